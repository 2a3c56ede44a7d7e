package optree

import (
	"testing"

	"corelang/internal/container"
	"corelang/internal/value"
)

func evalStr(t *testing.T, expr string, stack *container.NamedStack) float64 {
	t.Helper()
	n, err := Gen(expr, stack)
	if err != nil {
		t.Fatalf("Gen(%q): %v", expr, err)
	}
	v, eerr := Eval(n, stack)
	if eerr != nil {
		t.Fatalf("Eval(%q): %v", expr, eerr)
	}
	if v.Tag == value.Float {
		return v.Float
	}
	return float64(v.Int)
}

func TestIntegerArithmetic(t *testing.T) {
	got := evalStr(t, "(7+2)-3", nil)
	if got != 6 {
		t.Fatalf("got %v want 6", got)
	}
}

func TestMixedFloatInt(t *testing.T) {
	got := evalStr(t, "17 - ((1.0 + 2.0) - 0.5)", nil)
	if diff := got - 14.5; diff > 1e-3 || diff < -1e-3 {
		t.Fatalf("got %v want ~14.5", got)
	}
}

func TestComparisonChain(t *testing.T) {
	n, err := Gen("(7+2 <= 3) || (7-5 <= 3)", nil)
	if err != nil {
		t.Fatal(err)
	}
	v, eerr := Eval(n, nil)
	if eerr != nil {
		t.Fatal(eerr)
	}
	if !v.Truthy() {
		t.Fatal("expected true")
	}

	n, err = Gen("(7+2 <= 3) && (7-5 <= 3)", nil)
	if err != nil {
		t.Fatal(err)
	}
	v, eerr = Eval(n, nil)
	if eerr != nil {
		t.Fatal(eerr)
	}
	if v.Truthy() {
		t.Fatal("expected false")
	}
}

func TestVariableSubstitution(t *testing.T) {
	stack := container.NewNamedStack()
	// Push in reverse so names resolve to the offsets the scenario implies;
	// order doesn't matter for Find, only presence.
	stack.Push("test_a", value.MakeInt(12))
	stack.Push("test_b", value.MakeInt(24))

	n, err := Gen("(test_a + test_b) * test_b", stack)
	if err != nil {
		t.Fatal(err)
	}
	v, eerr := Eval(n, stack)
	if eerr != nil {
		t.Fatal(eerr)
	}
	if v.Int != 864 {
		t.Fatalf("got %v want 864", v.Int)
	}
}

func TestStringConcatInExpression(t *testing.T) {
	n, err := Gen(`"foo" + 1`, nil)
	if err != nil {
		t.Fatal(err)
	}
	v, eerr := Eval(n, nil)
	if eerr != nil {
		t.Fatal(eerr)
	}
	if v.Tag != value.String || v.Str.String() != "foo1" {
		t.Fatalf("got %v", v)
	}
}

func TestUnaryMinusAndNot(t *testing.T) {
	if got := evalStr(t, "-5 + 3", nil); got != -2 {
		t.Fatalf("got %v want -2", got)
	}
	n, err := Gen("!(1 > 2)", nil)
	if err != nil {
		t.Fatal(err)
	}
	v, eerr := Eval(n, nil)
	if eerr != nil {
		t.Fatal(eerr)
	}
	if !v.Truthy() {
		t.Fatal("expected true")
	}
}
