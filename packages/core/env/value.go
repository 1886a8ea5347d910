package env

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind identifies which branch of a Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Member is a single key/value pair of an object. Objects keep their
// members in document order.
type Member struct {
	Key   string
	Value Value
}

// Value is a tagged JSON value. Numbers keep their raw text so that
// re-encoding never changes precision.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  string
	Str     string
	Items   []Value
	Members []Member
}

// String builds a string Value.
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// ParseValue parses raw JSON text into a Value.
func ParseValue(raw string) (Value, error) {
	if !gjson.Valid(raw) {
		return Value{}, fmt.Errorf("invalid JSON")
	}
	return fromResult(gjson.Parse(raw)), nil
}

// IsStructured reports whether raw is a JSON object or array.
func IsStructured(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return gjson.Valid(trimmed)
}

func fromResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Value{Kind: KindNull}
	case gjson.False:
		return Value{Kind: KindBool, Bool: false}
	case gjson.True:
		return Value{Kind: KindBool, Bool: true}
	case gjson.Number:
		return Value{Kind: KindNumber, Number: r.Raw}
	case gjson.String:
		return Value{Kind: KindString, Str: r.Str}
	}

	if r.IsArray() {
		v := Value{Kind: KindArray, Items: []Value{}}
		r.ForEach(func(_, item gjson.Result) bool {
			v.Items = append(v.Items, fromResult(item))
			return true
		})
		return v
	}

	v := Value{Kind: KindObject, Members: []Member{}}
	r.ForEach(func(key, item gjson.Result) bool {
		v.Members = append(v.Members, Member{Key: key.String(), Value: fromResult(item)})
		return true
	})
	return v
}

// Transform walks v depth-first and returns a copy with fn applied to every
// string leaf. Object keys are left alone.
func Transform(v Value, fn func(string) string) Value {
	switch v.Kind {
	case KindString:
		return String(fn(v.Str))
	case KindArray:
		out := Value{Kind: KindArray, Items: make([]Value, len(v.Items))}
		for i, item := range v.Items {
			out.Items[i] = Transform(item, fn)
		}
		return out
	case KindObject:
		out := Value{Kind: KindObject, Members: make([]Member, len(v.Members))}
		for i, m := range v.Members {
			out.Members[i] = Member{Key: m.Key, Value: Transform(m.Value, fn)}
		}
		return out
	default:
		return v
	}
}

// Strings returns every string leaf of v in document order.
func Strings(v Value) []string {
	var out []string
	Transform(v, func(s string) string {
		out = append(out, s)
		return s
	})
	return out
}

// MarshalJSON encodes v compactly, preserving member order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(v.Number)
	case KindString:
		return writeJSONString(buf, v.Str)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode value of kind %s", v.Kind)
	}
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
