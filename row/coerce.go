package row

import (
	"strconv"
	"strings"
)

// Coerce converts a raw string into its scalar tag: decimal integers become
// int64, decimal/exponent floats become float64, "true"/"false"
// (case-insensitive) become bool, "null" (case-insensitive) becomes nil,
// and anything else stays a string. Adapters that only know how to hand
// back raw text (CSV cells, query literals) use this to get scalar-typed
// values; adapters that already produce typed values (JSON, YAML) should
// not re-coerce them.
func Coerce(s string) Value {
	switch strings.ToLower(s) {
	case "null":
		return nil
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Trim(s, "0123456789+-.eE") == "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// IsNumeric reports whether v is an int64 or float64.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case int64, float64:
		return true
	default:
		return false
	}
}

// ToFloat coerces a numeric-like value (int64, float64, or a string that
// parses as a number) to float64. ok is false for anything else.
func ToFloat(v Value) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case float64:
		return t, true
	case string:
		c := Coerce(t)
		if c == t {
			return 0, false
		}
		return ToFloat(c)
	default:
		return 0, false
	}
}

// ToInt coerces a numeric-like value to int64, truncating floats.
func ToInt(v Value) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case float64:
		return int64(t), true
	case string:
		c := Coerce(t)
		if c == t {
			return 0, false
		}
		return ToInt(c)
	default:
		return 0, false
	}
}

// ToString renders a scalar as its string form, used by string functions
// and GROUP_CONCAT/group-key construction. Non-scalars render as "".
func ToString(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// looksNumericLike reports whether v is a number, or a string that would
// coerce to one. Used by the comparison operators to decide whether to
// compare numerically or lexically (spec section 3: "numeric comparisons
// coerce both sides when both are numeric-like; otherwise string compare").
func looksNumericLike(v Value) bool {
	if IsNumeric(v) {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	c := Coerce(s)
	return IsNumeric(c)
}

// Compare performs a three-way comparison of two scalar values. It returns
// (-1, true), (0, true), or (1, true) when comparable, or (0, false) when
// one side is not a comparable scalar. nil sorts as less than any
// non-nil value, matching ASC/DESC null-ordering (spec section 4.6).
func Compare(a, b Value) (int, bool) {
	if a == nil && b == nil {
		return 0, true
	}
	if a == nil {
		return -1, true
	}
	if b == nil {
		return 1, true
	}
	for _, v := range []Value{a, b} {
		switch v.(type) {
		case string, bool, int, int64, float64:
		default:
			return 0, false
		}
	}
	if looksNumericLike(a) && looksNumericLike(b) {
		fa, okA := ToFloat(a)
		fb, okB := ToFloat(b)
		if okA && okB {
			switch {
			case fa < fb:
				return -1, true
			case fa > fb:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if !okA {
		sa = ToString(a)
	}
	if !okB {
		sb = ToString(b)
	}
	switch {
	case sa < sb:
		return -1, true
	case sa > sb:
		return 1, true
	default:
		return 0, true
	}
}

// Equal reports scalar equality using the same numeric-aware rules as Compare.
func Equal(a, b Value) bool {
	c, ok := Compare(a, b)
	return ok && c == 0
}
