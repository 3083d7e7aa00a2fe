package capture

import "time"

// secondsCutoff separates epoch seconds from epoch milliseconds.
const secondsCutoff = 1e12

// NormalizeTimestamp converts an epoch timestamp in seconds or milliseconds to
// a time. Zero means now.
func NormalizeTimestamp(ts float64, now time.Time) time.Time {
	if ts == 0 {
		return now
	}
	ms := ts
	if ts < secondsCutoff {
		ms = ts * 1000
	}
	return time.UnixMilli(int64(ms))
}

// DateString formats the UTC calendar date, e.g. 2026-02-11.
func DateString(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// ISOString formats t as UTC with millisecond precision, e.g.
// 2026-02-11T10:00:00.000Z.
func ISOString(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
