// Package sanitize cleans captured chat text before it is sent to the memory
// adapter.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultClipChars is the largest captured text, in characters, sent as one item.
const DefaultClipChars = 12000

// clipMarker is appended to clipped text.
const clipMarker = "…"

// Mode controls whether recalled context blocks are stripped from captured text.
type Mode string

const (
	// ModeAll strips injected recall blocks so memory is not re-ingested as new content.
	ModeAll Mode = "all"
	// ModeEverything keeps text as-is, markers included.
	ModeEverything Mode = "everything"
)

// ParseMode maps a config value to a Mode. Unknown values fall back to ModeAll.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeEverything)) {
		return ModeEverything
	}
	return ModeAll
}

// Marker names of recall blocks, current first, then legacy.
var contextMarkers = []string{"lightrag-context", "supermemory-context"}

var contextBlocks = compileBlocks(contextMarkers)

func compileBlocks(names []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(names))
	for _, name := range names {
		q := regexp.QuoteMeta(name)
		out = append(out, regexp.MustCompile(`(?is)<`+q+`>.*?</`+q+`>\s*`))
	}
	return out
}

// Text removes NUL bytes, normalizes CRLF to LF and trims surrounding whitespace.
func Text(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// Captured applies Text and, in ModeAll, removes every well-formed recall block.
// An open marker without a matching close marker is left untouched.
func Captured(s string, mode Mode) string {
	s = Text(s)
	if mode != ModeEverything {
		for _, re := range contextBlocks {
			s = re.ReplaceAllString(s, "")
		}
	}
	return strings.TrimSpace(s)
}

// Clip truncates s to maxChars characters and appends an ellipsis when it was longer.
func Clip(s string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultClipChars
	}
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	n := 0
	for i := range s {
		if n == maxChars {
			return s[:i] + clipMarker
		}
		n++
	}
	return s
}

// Len returns the length of s in characters.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
