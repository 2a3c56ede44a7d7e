package value

import "corelang/internal/vmerr"

// Add implements spec.md §4.1's addition dispatch table.
func Add(l, r Value) (Value, *vmerr.Error) {
	switch {
	case l.Tag == String:
		return MakeString(l.Str.String() + Format(r)), nil
	case r.Tag == String:
		return MakeString(Format(l) + r.Str.String()), nil
	case l.Tag == Float || r.Tag == Float:
		lf, rf, ok := toFloats(l, r)
		if !ok {
			return errv(vmerr.BadType, "operand does not support addition")
		}
		return MakeFloat(lf + rf), nil
	case isIntegral(l) && isIntegral(r):
		res := l.Int + r.Int
		if l.Tag == Char || r.Tag == Char {
			return MakeChar(res), nil
		}
		return MakeInt(res), nil
	default:
		return errv(vmerr.BadType, "addition is undefined for these operand types")
	}
}

// Sub implements numeric subtraction; character operands are accepted.
func Sub(l, r Value) (Value, *vmerr.Error) {
	return numericOp(l, r, '-')
}

// Mul implements numeric multiplication; character operands are rejected.
func Mul(l, r Value) (Value, *vmerr.Error) {
	if l.Tag == Char || r.Tag == Char {
		return errv(vmerr.BadType, "multiplication does not accept character operands")
	}
	return numericOp(l, r, '*')
}

// Div implements numeric division; character operands are rejected and
// division by zero fails with BADVAL (per spec.md's note that BADTYPE is
// used generically there, this port gives zero-divisor its own kind since
// Go has no implicit trap and a caller must be able to distinguish it).
func Div(l, r Value) (Value, *vmerr.Error) {
	if l.Tag == Char || r.Tag == Char {
		return errv(vmerr.BadType, "division does not accept character operands")
	}
	if (r.Tag == Int && r.Int == 0) || (r.Tag == Float && r.Float == 0) {
		return errv(vmerr.BadVal, "division by zero")
	}
	return numericOp(l, r, '/')
}

func numericOp(l, r Value, op byte) (Value, *vmerr.Error) {
	if l.Tag == Float || r.Tag == Float {
		lf, rf, ok := toFloats(l, r)
		if !ok {
			return errv(vmerr.BadType, "operand does not support this operation")
		}
		return MakeFloat(applyFloat(lf, rf, op)), nil
	}
	if isIntegral(l) && isIntegral(r) {
		res := applyInt(l.Int, r.Int, op)
		if l.Tag == Char || r.Tag == Char {
			return MakeChar(res), nil
		}
		return MakeInt(res), nil
	}
	return errv(vmerr.BadType, "operand does not support this operation")
}

func applyFloat(l, r float64, op byte) float64 {
	switch op {
	case '-':
		return l - r
	case '*':
		return l * r
	case '/':
		return l / r
	}
	return 0
}

func applyInt(l, r int64, op byte) int64 {
	switch op {
	case '-':
		return l - r
	case '*':
		return l * r
	case '/':
		return l / r
	}
	return 0
}

// Eq implements structural equality with the array-element exception
// described in spec.md §4.1: a failing element comparison inside an array
// is treated as "not equal" rather than propagated as an error.
func Eq(l, r Value) (Value, *vmerr.Error) {
	switch {
	case l.Tag == Bool || r.Tag == Bool:
		if !isBoolLike(l) || !isBoolLike(r) {
			return errv(vmerr.BadType, "equality is undefined for mismatched operand categories")
		}
		return MakeBool(l.Truthy() == r.Truthy()), nil
	case isNumeric(l) && isNumeric(r):
		lf, rf, _ := toFloats(l, r)
		return MakeBool(lf == rf), nil
	case l.Tag == String && r.Tag == String:
		return MakeBool(l.Str.String() == r.Str.String()), nil
	case l.Tag == Array && r.Tag == Array:
		return MakeBool(arrayEq(l.Arr, r.Arr)), nil
	default:
		return errv(vmerr.BadType, "equality is undefined for mismatched operand categories")
	}
}

func arrayEq(a, b *ArrayData) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := range a.Elements {
		eq, cmpErr := Eq(a.Elements[i], b.Elements[i])
		if cmpErr != nil || !eq.Truthy() {
			return false
		}
	}
	return true
}

// Gt/Ge implement ordering; Lt/Le are sugar (argument swap) per spec.md §4.1
// and are implemented in the evaluator, not here.
func Gt(l, r Value) (Value, *vmerr.Error) { return order(l, r, '>') }
func Ge(l, r Value) (Value, *vmerr.Error) { return order(l, r, 'G') }

func order(l, r Value, op byte) (Value, *vmerr.Error) {
	switch {
	case isNumeric(l) && isNumeric(r):
		lf, rf, _ := toFloats(l, r)
		if op == '>' {
			return MakeBool(lf > rf), nil
		}
		return MakeBool(lf >= rf), nil
	case l.Tag == String && r.Tag == String:
		if op == '>' {
			return MakeBool(l.Str.String() > r.Str.String()), nil
		}
		return MakeBool(l.Str.String() >= r.Str.String()), nil
	default:
		return errv(vmerr.BadType, "ordering is undefined for these operand types")
	}
}

// And/Or/Not implement the logical operators; operands coerce if boolean or
// integer, any other type fails.
func And(l, r Value) (Value, *vmerr.Error) { return logic(l, r, true) }
func Or(l, r Value) (Value, *vmerr.Error)  { return logic(l, r, false) }

func logic(l, r Value, isAnd bool) (Value, *vmerr.Error) {
	if !isBoolLike(l) || !isBoolLike(r) {
		return errv(vmerr.BadType, "logical operators require boolean or integer operands")
	}
	if isAnd {
		return MakeBool(l.Truthy() && r.Truthy()), nil
	}
	return MakeBool(l.Truthy() || r.Truthy()), nil
}

func Not(v Value) (Value, *vmerr.Error) {
	if !isBoolLike(v) {
		return errv(vmerr.BadType, "! requires a boolean or integer operand")
	}
	return MakeBool(!v.Truthy()), nil
}

func isBoolLike(v Value) bool { return v.Tag == Bool || v.Tag == Int }
func isNumeric(v Value) bool  { return v.Tag == Int || v.Tag == Float || v.Tag == Char }
func isIntegral(v Value) bool { return v.Tag == Int || v.Tag == Char }

func toFloats(l, r Value) (float64, float64, bool) {
	lf, ok1 := asFloat(l)
	rf, ok2 := asFloat(r)
	return lf, rf, ok1 && ok2
}

func asFloat(v Value) (float64, bool) {
	switch v.Tag {
	case Float:
		return v.Float, true
	case Int, Char:
		return float64(v.Int), true
	default:
		return 0, false
	}
}

func errv(kind vmerr.Kind, msg string) (Value, *vmerr.Error) {
	return Value{Tag: Undefined}, vmerr.New(kind, msg)
}
