package value

import (
	"math"
	"strconv"
	"strings"
)

// hi/loScientificThreshold mirror HI_SCIENTIFIC_THRESHOLD/
// LO_SCIENTIFIC_THRESHOLD in the original source: magnitudes outside this
// band are rendered in scientific notation.
const (
	hiScientificThreshold = 1e9
	loScientificThreshold = 1e-6
)

// Format renders v in the canonical value->string form from spec.md §6,
// used both by op_add(string, any) and by any explicit stringification.
func Format(v Value) string {
	switch v.Tag {
	case Bool:
		if v.Truthy() {
			return "true"
		}
		return "false"
	case Char:
		return string(rune(v.Int))
	case Int:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return formatFloat(v.Float)
	case String:
		return v.Str.String()
	case Array:
		return formatArray(v.Arr)
	case Undefined:
		return "<error>"
	case Func:
		if v.Fn != nil {
			return "<fn " + v.Fn.Name + ">"
		}
		return "<fn>"
	case StackRef:
		if v.Global {
			return "<ref " + v.RefKey + ">"
		}
		return "<ref " + strconv.FormatInt(v.Ref, 10) + ">"
	case OpRef:
		return "<expr>"
	default:
		return ""
	}
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	if f != 0 && (abs >= hiScientificThreshold || abs < loScientificThreshold) {
		mant, exp := frexp10(f)
		sign := "+"
		if exp < 0 {
			sign = "-"
			exp = -exp
		}
		return strconv.FormatFloat(mant, 'f', -1, 64) + "E" + sign + strconv.Itoa(exp)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// frexp10 splits f into a base-10 mantissa in [1, 10) and an exponent, the
// decimal analog of math.Frexp.
func frexp10(f float64) (mantissa float64, exp int) {
	if f == 0 {
		return 0, 0
	}
	neg := f < 0
	if neg {
		f = -f
	}
	exp = int(math.Floor(math.Log10(f)))
	mantissa = f / math.Pow(10, float64(exp))
	// guard against log10 rounding pushing mantissa out of [1,10)
	if mantissa >= 10 {
		mantissa /= 10
		exp++
	} else if mantissa < 1 {
		mantissa *= 10
		exp--
	}
	if neg {
		mantissa = -mantissa
	}
	return mantissa, exp
}

func formatArray(a *ArrayData) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range a.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(Format(e))
	}
	sb.WriteByte(']')
	return sb.String()
}
