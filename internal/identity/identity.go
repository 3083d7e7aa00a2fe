// Package identity derives canonical conversation identifiers of the form
// "<channel>:<localId>" from the partial fields chat events carry.
package identity

import (
	"regexp"
	"strings"
)

// Unknown is the channel or local id used when none can be determined.
const Unknown = "unknown"

// prefixed matches ids that already carry a channel prefix.
var prefixed = regexp.MustCompile(`(?i)^[a-z0-9_-]+:.+`)

// ChannelBase returns the lowercase channel token of a channel designator,
// i.e. the part before the first ':'. Empty input yields "unknown".
func ChannelBase(hint string) string {
	base, _, _ := strings.Cut(strings.TrimSpace(hint), ":")
	base = strings.ToLower(base)
	if base == "" {
		return Unknown
	}
	return base
}

// Normalize turns a raw conversation id into a canonical id for channel.
// Repeated "<channel>:" prefixes collapse to one; ids already carrying a
// different channel prefix are kept verbatim.
func Normalize(channel, raw string) string {
	channel = ChannelBase(channel)
	id := strings.TrimSpace(raw)
	if id == "" {
		return channel + ":" + Unknown
	}

	prefix := channel + ":"
	for len(id) >= 2*len(prefix) && strings.EqualFold(id[:2*len(prefix)], prefix+prefix) {
		id = id[len(prefix):]
	}

	if strings.HasPrefix(id, prefix) || prefixed.MatchString(id) {
		return id
	}
	return prefix + id
}

// Resolve normalizes the first non-empty candidate for the channel named by
// channelHint. Callers pass candidates in priority order: the event's
// conversation id, then a fallback such as the sender, then the account id.
func Resolve(channelHint string, candidates ...string) string {
	channel := ChannelBase(channelHint)
	for _, c := range candidates {
		if c != "" {
			return Normalize(channel, c)
		}
	}
	return channel + ":" + Unknown
}

// FromQualified normalizes an id that names its own channel, e.g.
// "slack:C123", using the id's prefix as the channel.
func FromQualified(id string) string {
	return Normalize(ChannelBase(id), id)
}
