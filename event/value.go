package event

import (
	"fmt"
	"strconv"
)

// maxStringValueLen bounds attribute string values to keep payloads small.
const maxStringValueLen = 500

// ValueKind discriminates the scalar types an attribute value may hold.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
	KindBool
)

// Value is a scalar attribute value: a string, int64, float64, or bool.
// The zero Value is the empty string.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	i    int64
	b    bool
}

func StringValue(s string) Value {
	if len(s) > maxStringValueLen {
		s = s[:maxStringValueLen]
	}
	return Value{kind: KindString, str: s}
}

func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

func FloatValue(v float64) Value { return Value{kind: KindFloat, num: v} }

func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// ValueOf converts an arbitrary scalar into a Value. The second return is
// false for unsupported types (slices, maps, structs, nil); callers drop
// those fields rather than guessing a representation.
func ValueOf(v any) (Value, bool) {
	switch x := v.(type) {
	case string:
		return StringValue(x), true
	case bool:
		return BoolValue(x), true
	case int:
		return IntValue(int64(x)), true
	case int8:
		return IntValue(int64(x)), true
	case int16:
		return IntValue(int64(x)), true
	case int32:
		return IntValue(int64(x)), true
	case int64:
		return IntValue(x), true
	case uint:
		return IntValue(int64(x)), true
	case uint8:
		return IntValue(int64(x)), true
	case uint16:
		return IntValue(int64(x)), true
	case uint32:
		return IntValue(int64(x)), true
	case float32:
		return FloatValue(float64(x)), true
	case float64:
		return FloatValue(x), true
	case fmt.Stringer:
		return StringValue(x.String()), true
	default:
		return Value{}, false
	}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) Str() string    { return v.str }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.num }
func (v Value) Bool() bool     { return v.b }

// Text renders the value as a plain string, the representation used for
// ClickHouse's flat Map(String, String) attribute columns.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// Equal reports whether two values hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	}
	return false
}

// Attrs is an attribute map of string keys to scalar values. No nesting.
type Attrs map[string]Value

// Clone returns a shallow copy. Values are immutable, so a shallow copy is a
// full copy.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// AttrsOf converts a caller-supplied map into Attrs, dropping entries whose
// values have no scalar representation.
func AttrsOf(in map[string]any) Attrs {
	if len(in) == 0 {
		return Attrs{}
	}
	out := make(Attrs, len(in))
	for k, raw := range in {
		if v, ok := ValueOf(raw); ok {
			out[k] = v
		}
	}
	return out
}
