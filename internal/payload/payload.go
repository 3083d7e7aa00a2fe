// Package payload models the shape-varying content of chat host messages and
// flattens it to plain text.
//
// Hosts deliver message content as a string, as an ordered list of parts, or as
// an object whose text sits under one of several fields, sometimes nested a few
// levels deep. Payload captures all of these as a closed set of kinds so text
// extraction is an explicit recursive walk rather than ad-hoc field probing.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind is the variant held by a Payload.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Payload is one JSON-shaped value. The zero value is null.
type Payload struct {
	kind   Kind
	str    string
	num    float64
	flag   bool
	list   []Payload
	fields map[string]Payload
}

// String builds a string payload.
func String(s string) Payload { return Payload{kind: KindString, str: s} }

// Number builds a number payload.
func Number(n float64) Payload { return Payload{kind: KindNumber, num: n} }

// Bool builds a boolean payload.
func Bool(b bool) Payload { return Payload{kind: KindBool, flag: b} }

// List builds a list payload.
func List(items ...Payload) Payload { return Payload{kind: KindList, list: items} }

// Object builds an object payload. A nil map yields an empty object.
func Object(fields map[string]Payload) Payload {
	if fields == nil {
		fields = map[string]Payload{}
	}
	return Payload{kind: KindObject, fields: fields}
}

// Kind reports the variant.
func (p Payload) Kind() Kind { return p.kind }

// IsNull reports whether p is null or was never set.
func (p Payload) IsNull() bool { return p.kind == KindNull }

// Str returns the string value and whether p is a string.
func (p Payload) Str() (string, bool) { return p.str, p.kind == KindString }

// Items returns the elements of a list payload.
func (p Payload) Items() []Payload {
	if p.kind != KindList {
		return nil
	}
	return p.list
}

// Field returns a field of an object payload and whether the key is present.
// A present key may still hold null.
func (p Payload) Field(name string) (Payload, bool) {
	if p.kind != KindObject {
		return Payload{}, false
	}
	v, ok := p.fields[name]
	return v, ok
}

// FieldString returns a field when it holds a string.
func (p Payload) FieldString(name string) (string, bool) {
	v, ok := p.Field(name)
	if !ok {
		return "", false
	}
	return v.Str()
}

// UnmarshalJSON decodes any JSON value into the matching kind.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	*p = FromValue(v)
	return nil
}

// MarshalJSON encodes the payload back to JSON.
func (p Payload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Value())
}

// Value converts the payload to plain Go values (nil, string, float64, bool,
// []any, map[string]any).
func (p Payload) Value() any {
	switch p.kind {
	case KindString:
		return p.str
	case KindNumber:
		return p.num
	case KindBool:
		return p.flag
	case KindList:
		out := make([]any, len(p.list))
		for i, item := range p.list {
			out[i] = item.Value()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(p.fields))
		for k, v := range p.fields {
			out[k] = v.Value()
		}
		return out
	default:
		return nil
	}
}

// FromValue builds a payload from values produced by encoding/json or written
// by hand. Unsupported types become null.
func FromValue(v any) Payload {
	switch x := v.(type) {
	case nil:
		return Payload{}
	case Payload:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case float64:
		return Number(x)
	case float32:
		return Number(float64(x))
	case int:
		return Number(float64(x))
	case int64:
		return Number(float64(x))
	case json.Number:
		n, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return String(x.String())
		}
		return Number(n)
	case []any:
		items := make([]Payload, len(x))
		for i, item := range x {
			items[i] = FromValue(item)
		}
		return List(items...)
	case []string:
		items := make([]Payload, len(x))
		for i, item := range x {
			items[i] = String(item)
		}
		return List(items...)
	case map[string]any:
		fields := make(map[string]Payload, len(x))
		for k, item := range x {
			fields[k] = FromValue(item)
		}
		return Object(fields)
	default:
		return Payload{}
	}
}
