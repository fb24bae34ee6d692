package param

import (
	"fmt"
	"math"
	"strconv"
)

// Value type names used in serialized combinations.
const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeString = "string"
)

// Int converts v to an int. Integral floats are accepted because YAML and
// JSON decoders may produce them for whole numbers. Values outside the int
// range are a type mismatch.
func Int(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		if n >= math.MinInt && n <= math.MaxInt {
			return int(n), nil
		}
	case uint:
		if n <= math.MaxInt {
			return int(n), nil
		}
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		if uint64(n) <= math.MaxInt {
			return int(n), nil
		}
	case uint64:
		if n <= math.MaxInt {
			return int(n), nil
		}
	case float64:
		if i, ok := floatToInt(n); ok {
			return i, nil
		}
	case float32:
		if i, ok := floatToInt(float64(n)); ok {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: want int, got %T (%v)", ErrTypeMismatch, v, v)
}

// floatToInt converts a whole float inside [math.MinInt, math.MaxInt].
// float64(math.MinInt) is exact; its negation is the first value past MaxInt.
func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < float64(math.MinInt) || f >= -float64(math.MinInt) {
		return 0, false
	}
	return int(f), true
}

// Float converts v to a float64. Any integer type is accepted.
func Float(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	}
	if i, err := Int(v); err == nil {
		return float64(i), nil
	}
	return 0, fmt.Errorf("%w: want float, got %T (%v)", ErrTypeMismatch, v, v)
}

// Bool converts v to a bool.
func Bool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("%w: want bool, got %T (%v)", ErrTypeMismatch, v, v)
}

// String converts v to a string.
func String(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: want string, got %T (%v)", ErrTypeMismatch, v, v)
}

// TypeName classifies a primitive value. The second result is false for
// values that are not primitives.
func TypeName(v any) (string, bool) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt, true
	case float32, float64:
		return TypeFloat, true
	case bool:
		return TypeBool, true
	case string:
		return TypeString, true
	}
	return "", false
}

// Format renders a primitive value in a form ParseValue reads back.
func Format(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'g', -1, 32)
	}
	return fmt.Sprint(v)
}

// ParseValue is the inverse of TypeName and Format.
func ParseValue(typ, s string) (any, error) {
	switch typ {
	case TypeInt:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("parsing int %q: %w", s, err)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing float %q: %w", s, err)
		}
		return f, nil
	case TypeBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("parsing bool %q: %w", s, err)
		}
		return b, nil
	case TypeString:
		return s, nil
	}
	return nil, fmt.Errorf("unknown value type %q", typ)
}
