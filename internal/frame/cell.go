package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MissingKey is how a missing cell is rendered inside a group key.
const MissingKey = "nan"

// Numeric coerces a cell to a finite float64. Numbers pass through, bools
// become 0/1 and strings are parsed; anything else (including missing)
// reports false.
func Numeric(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func number(v any) (float64, bool) {
	switch val := v.(type) {
	case int64:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}

// Equal reports cell equality. Numbers compare by value regardless of
// int/float representation; other cells compare by type and value. A
// missing cell equals nothing, not even another missing cell.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
		return false
	}
	return a == b
}

// Compare orders two non-missing cells. Numbers order numerically, strings
// lexically and bools false before true. Ordering cells of different kinds
// is an error.
func Compare(a, b any) (int, error) {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, fmt.Errorf("cannot order %s against %s", cellKind(a), cellKind(b))
}

func cellKind(v any) string {
	switch v.(type) {
	case nil:
		return "missing"
	case int64, float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// FormatCell renders a cell for group keys and reports. Missing cells
// render as MissingKey; integral floats keep a trailing ".0" so they stay
// distinguishable from integers.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return MissingKey
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return formatFloat(val)
	case string:
		return val
	case bool:
		if val {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(val)
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return MissingKey
	}
	if math.IsInf(f, 0) {
		if f > 0 {
			return "inf"
		}
		return "-inf"
	}
	abs := math.Abs(f)
	if f == math.Trunc(f) && abs < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	if abs >= 1e16 || abs < 1e-4 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CellKey is the identity of a cell for grouping and distinct counting.
// Numbers share one namespace so 1 and 1.0 fall in the same group.
func CellKey(v any) string {
	switch val := v.(type) {
	case nil:
		return "\x00"
	case int64:
		return "n" + strconv.FormatFloat(float64(val), 'g', -1, 64)
	case float64:
		return "n" + strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return "s" + val
	case bool:
		return "b" + strconv.FormatBool(val)
	default:
		return fmt.Sprintf("?%v", val)
	}
}
