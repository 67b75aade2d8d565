package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a single product attribute value. The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  int64
	flt  float64
	bit  bool
}

func NullValue() Value { return Value{} }

func StringValue(value string) Value { return Value{kind: KindString, str: value} }

func IntValue(value int64) Value { return Value{kind: KindInt, num: value} }

func FloatValue(value float64) Value { return Value{kind: KindFloat, flt: value} }

func BoolValue(value bool) Value { return Value{kind: KindBool, bit: value} }

// ValueOf converts a scalar Go value into a Value. Nested maps and slices are
// rejected because product attributes are flat.
func ValueOf(raw any) (Value, error) {
	switch typed := raw.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return typed, nil
	case string:
		return StringValue(typed), nil
	case bool:
		return BoolValue(typed), nil
	case int:
		return IntValue(int64(typed)), nil
	case int8:
		return IntValue(int64(typed)), nil
	case int16:
		return IntValue(int64(typed)), nil
	case int32:
		return IntValue(int64(typed)), nil
	case int64:
		return IntValue(typed), nil
	case uint:
		return IntValue(int64(typed)), nil
	case uint8:
		return IntValue(int64(typed)), nil
	case uint16:
		return IntValue(int64(typed)), nil
	case uint32:
		return IntValue(int64(typed)), nil
	case uint64:
		if typed > math.MaxInt64 {
			return FloatValue(float64(typed)), nil
		}
		return IntValue(int64(typed)), nil
	case float32:
		return FloatValue(float64(typed)), nil
	case float64:
		return FloatValue(typed), nil
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return IntValue(parsed), nil
		}
		parsed, err := typed.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("core: invalid json number %q", typed.String())
		}
		return FloatValue(parsed), nil
	default:
		return Value{}, fmt.Errorf("core: unsupported attribute value type %T", raw)
	}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

func (v Value) Int() (int64, bool) { return v.num, v.kind == KindInt }

func (v Value) Float() (float64, bool) { return v.flt, v.kind == KindFloat }

func (v Value) Bool() (bool, bool) { return v.bit, v.kind == KindBool }

// Interface returns the plain Go value, nil for null.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.bit
	default:
		return nil
	}
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindInt:
		return v.num == other.num
	case KindFloat:
		return v.flt == other.flt
	case KindBool:
		return v.bit == other.bit
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.bit)
	default:
		return ""
	}
}

// AsInt64 interprets ints, integral floats and numeric strings.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.num, true
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) || v.flt != math.Trunc(v.flt) {
			return 0, false
		}
		return int64(v.flt), true
	case KindString:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v.str), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return []byte(strconv.FormatInt(v.num, 10)), nil
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			return nil, fmt.Errorf("core: float value %v is not representable in json", v.flt)
		}
		return json.Marshal(v.flt)
	case KindBool:
		return json.Marshal(v.bit)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
