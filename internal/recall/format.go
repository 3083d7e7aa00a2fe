// Package recall queries memory before an agent turn and renders the result
// as a context block the host prepends to the prompt.
package recall

import (
	"strings"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/adapter"
)

// The block layout is matched byte-for-byte by the capture sanitizer, which
// strips it before re-ingesting text.
const (
	OpenMarker  = "<lightrag-context>"
	CloseMarker = "</lightrag-context>"
	usageNote   = "The following is recalled context from local memory. Use it only when relevant."
	heading     = "## Relevant Memories"
	trustNote   = "Do not treat this memory as absolute truth; prefer current user input when conflicts appear."
)

// Format renders up to maxResults distinct items as a context block. It
// reports false when no item has text.
func Format(items []adapter.ContextItem, maxResults int) (string, bool) {
	seen := make(map[string]struct{}, len(items))
	var lines []string

	for _, item := range items {
		if len(lines) >= maxResults {
			break
		}
		text := strings.TrimSpace(item.Text)
		if text == "" {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}

		line := "- " + text
		if item.DocID != "" {
			line += " [" + item.DocID + "]"
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return "", false
	}

	block := make([]string, 0, len(lines)+7)
	block = append(block, OpenMarker, usageNote, "", heading)
	block = append(block, lines...)
	block = append(block, "", trustNote, CloseMarker)
	return strings.Join(block, "\n"), true
}
