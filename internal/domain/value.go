package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which scalar a Value holds
type Kind uint8

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
)

// Value is a scalar metadata field value: string, integer, float or boolean.
// The zero Value is the empty string.
type Value struct {
	kind Kind
	str  string
	num  int64
	flt  float64
	b    bool
}

// String wraps s
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int wraps n
func Int(n int64) Value { return Value{kind: KindInt, num: n} }

// Float wraps f
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Bool wraps b
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports which scalar v holds
func (v Value) Kind() Kind { return v.kind }

// IsBlank reports whether the string form is empty or whitespace
func (v Value) IsBlank() bool { return strings.TrimSpace(v.String()) == "" }

// String returns the canonical string form, used as the usage key
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

// Truthy reports whether the value is non-empty, non-zero or true
func (v Value) Truthy() bool {
	switch v.kind {
	case KindInt:
		return v.num != 0
	case KindFloat:
		return v.flt != 0
	case KindBool:
		return v.b
	default:
		return v.str != ""
	}
}

// Interface returns the underlying Go value
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

// ScalarOf converts a decoded JSON/YAML/codec value into a Value.
// It returns false for nil, maps, slices and other non-scalar inputs.
func ScalarOf(raw any) (Value, bool) {
	switch x := raw.(type) {
	case Value:
		return x, true
	case string:
		return String(x), true
	case bool:
		return Bool(x), true
	case int:
		return Int(int64(x)), true
	case int8:
		return Int(int64(x)), true
	case int16:
		return Int(int64(x)), true
	case int32:
		return Int(int64(x)), true
	case int64:
		return Int(x), true
	case uint:
		return Int(int64(x)), true
	case uint8:
		return Int(int64(x)), true
	case uint16:
		return Int(int64(x)), true
	case uint32:
		return Int(int64(x)), true
	case uint64:
		if x > math.MaxInt64 {
			return Float(float64(x)), true
		}
		return Int(int64(x)), true
	case float32:
		return fromFloat(float64(x)), true
	case float64:
		return fromFloat(x), true
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return Int(n), true
		}
		f, err := x.Float64()
		if err != nil {
			return String(x.String()), true
		}
		return Float(f), true
	default:
		return Value{}, false
	}
}

// integral floats within the exact range become integers
func fromFloat(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}
	return Float(f)
}

// MarshalJSON encodes the underlying scalar
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts a JSON string, number or boolean
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	s, ok := ScalarOf(raw)
	if !ok {
		return fmt.Errorf("value %s must be a string, number or boolean", string(data))
	}
	*v = s
	return nil
}

// MarshalYAML encodes the underlying scalar
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}
