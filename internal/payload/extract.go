package payload

import (
	"strconv"
	"strings"

	"github.com/velcroxlabs/openclaw-memory-lightrag-local-plugin/internal/sanitize"
)

// Extract flattens a payload to plain text. It never fails: shapes without
// recognizable text yield an empty string.
func Extract(p Payload) string {
	switch p.kind {
	case KindString:
		return sanitize.Text(p.str)
	case KindList:
		return extractList(p.list)
	case KindObject:
		return extractObject(p)
	default:
		return sanitize.Text(scalarString(p))
	}
}

// extractList joins the text of each part with newlines. Bare strings in a
// list are kept as written; the joined result is trimmed once.
func extractList(items []Payload) string {
	parts := make([]string, len(items))
	for i, item := range items {
		switch item.kind {
		case KindString:
			parts[i] = item.str
		case KindObject:
			parts[i] = partText(item)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// partText reads a content part: the first non-empty of text, value and
// output_text, otherwise its nested content.
func partText(part Payload) string {
	for _, key := range []string{"text", "value", "output_text"} {
		if s, ok := part.FieldString(key); ok && s != "" {
			return s
		}
	}
	content, _ := part.Field("content")
	return Extract(content)
}

func extractObject(p Payload) string {
	if s, ok := p.FieldString("text"); ok {
		return sanitize.Text(s)
	}
	if s, ok := p.FieldString("output_text"); ok {
		return sanitize.Text(s)
	}
	if content, ok := p.Field("content"); ok {
		return Extract(content)
	}
	if output, ok := p.Field("output"); ok {
		return Extract(output)
	}
	return ""
}

// scalarString stringifies numbers and booleans. Zero, false and null are empty.
func scalarString(p Payload) string {
	switch p.kind {
	case KindNumber:
		if p.num == 0 {
			return ""
		}
		return strconv.FormatFloat(p.num, 'f', -1, 64)
	case KindBool:
		if !p.flag {
			return ""
		}
		return "true"
	default:
		return ""
	}
}
