package funcc

import (
	"testing"

	"corelang/internal/container"
	"corelang/internal/value"
	"corelang/internal/vm"
	"corelang/internal/vmerr"
)

// TestAddFunctionStackDelta compiles and runs scenario 5 from spec.md §8:
// "(int a, int b) => (int) { int c = a+b; c = c+1; return c; }" called with
// (3, 4) must leave 8 on top of the stack, with a net call-stack depth
// change of n_rets - n_args (1 - 2 = -1).
func TestAddFunctionStackDelta(t *testing.T) {
	ctx := container.NewContext()
	fn, err := Compile("add1", "(int a, int b) => (int) { int c = a+b; c = c+1; return c; }", ctx, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if fn.NArgs != 2 || fn.NRets != 1 {
		t.Fatalf("got NArgs=%d NRets=%d want 2,1", fn.NArgs, fn.NRets)
	}

	ctx.Stack.Push("", value.MakeInt(3))
	ctx.Stack.Push("", value.MakeInt(4))
	before := ctx.Stack.Len()

	m := vm.New(ctx)
	if err := m.Run(fn); err != nil {
		t.Fatalf("Run: %v", err)
	}

	_, top, ok := ctx.Stack.AtFromTop(0)
	if !ok {
		t.Fatal("expected a value on top of stack")
	}
	if top.Tag != value.Int || top.Int != 8 {
		t.Fatalf("got %v want int 8", top)
	}
	if delta := ctx.Stack.Len() - before; delta != fn.NRets-fn.NArgs {
		t.Fatalf("stack depth delta = %d, want %d", delta, fn.NRets-fn.NArgs)
	}
}

// TestWhileLoopSums compiles a small accumulator loop and checks the
// returned sum, exercising WHILE/JUMP_CND/assignment compilation together.
func TestWhileLoopSums(t *testing.T) {
	ctx := container.NewContext()
	fn, err := Compile("sumTo", "(int n) => (int) { int total = 0; int i = 0; while (i < n) { total = total + i; i = i + 1; } return total; }", ctx, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	ctx.Stack.Push("", value.MakeInt(5))
	m := vm.New(ctx)
	if err := m.Run(fn); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, top, ok := ctx.Stack.AtFromTop(0)
	if !ok {
		t.Fatal("expected a value on top of stack")
	}
	if top.Tag != value.Int || top.Int != 10 {
		t.Fatalf("got %v want int 10 (0+1+2+3+4)", top)
	}
}

// TestIfElseBranches exercises the if/else-if/else jump-patching path.
func TestIfElseBranches(t *testing.T) {
	ctx := container.NewContext()
	fn, err := Compile("classify", "(int x) => (int) { if (x < 0) { return 0-1; } else if (x == 0) { return 0; } else { return 1; } }", ctx, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	cases := map[int64]int64{-5: -1, 0: 0, 7: 1}
	for in, want := range cases {
		ctx.Stack.Push("", value.MakeInt(in))
		m := vm.New(ctx)
		if err := m.Run(fn); err != nil {
			t.Fatalf("Run(%d): %v", in, err)
		}
		_, top, ok := ctx.Stack.AtFromTop(0)
		if !ok {
			t.Fatalf("Run(%d): expected a value on top of stack", in)
		}
		if top.Int != want {
			t.Fatalf("classify(%d) = %d, want %d", in, top.Int, want)
		}
		ctx.Stack.Pop()
	}
}

// TestArrayLiteralAndLen exercises the array-literal and len() builtin
// surface syntax, wiring MAKE_ARR and GET_SIZE through the function
// compiler rather than only through hand-built bytecode.
func TestArrayLiteralAndLen(t *testing.T) {
	ctx := container.NewContext()
	fn, err := Compile("countOf", "() => (int) { array a = [1, 2, 3, 4]; return len(a); }", ctx, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	m := vm.New(ctx)
	if err := m.Run(fn); err != nil {
		t.Fatalf("Run: %v", err)
	}
	_, top, ok := ctx.Stack.AtFromTop(0)
	if !ok {
		t.Fatal("expected a value on top of stack")
	}
	if top.Tag != value.Int || top.Int != 4 {
		t.Fatalf("got %v want int 4", top)
	}
}

// TestMultiReturnAssignment compiles a two-value function plus a caller
// using multi-target assignment, checking positional pairing of targets
// and values.
func TestMultiReturnAssignment(t *testing.T) {
	ctx := container.NewContext()
	fns, err := CompileProgram(map[string]string{
		"minmax": "(int a, int b) => (int, int) { if (a > b) { return b, a; } return a, b; }",
		"spread": "() => (int) { int lo = 0; int hi = 0; lo, hi = minmax(9, 4); return hi - lo; }",
	}, ctx)
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}

	m := vm.New(ctx)
	if verr := m.Run(fns["spread"]); verr != nil {
		t.Fatalf("Run: %v", verr)
	}
	_, top, ok := ctx.Stack.AtFromTop(0)
	if !ok || top.Tag != value.Int || top.Int != 5 {
		t.Fatalf("got %v want int 5 (9-4)", top)
	}
}

// TestAssignCountMismatchIsBadVal exercises the mismatched lvalue/rvalue
// count failure scenario.
func TestAssignCountMismatchIsBadVal(t *testing.T) {
	ctx := container.NewContext()
	_, err := CompileProgram(map[string]string{
		"one":  "() => (int) { return 1; }",
		"main": "() => (int) { int a = 0; int b = 0; a, b = one(); return a; }",
	}, ctx)
	if err == nil || err.Kind != vmerr.BadVal {
		t.Fatalf("got %v want BadVal", err)
	}
	if ctx.Stack.Len() != 0 {
		t.Fatalf("failed compile left %d entries on the stack", ctx.Stack.Len())
	}
}

// TestReturnCountMismatchIsBadVal checks a return statement must match the
// declared return list.
func TestReturnCountMismatchIsBadVal(t *testing.T) {
	ctx := container.NewContext()
	_, err := Compile("f", "() => (int, int) { return 1; }", ctx, nil)
	if err == nil || err.Kind != vmerr.BadVal {
		t.Fatalf("got %v want BadVal", err)
	}
	if ctx.Stack.Len() != 0 {
		t.Fatalf("failed compile left %d entries on the stack", ctx.Stack.Len())
	}
}

// TestSliceExpansion compiles a slice read into per-element pushes via
// multi-target assignment.
func TestSliceExpansion(t *testing.T) {
	ctx := container.NewContext()
	fn, err := Compile("sliced", "() => (int) { array a = [10, 20, 30, 40]; int x = 0; int y = 0; x, y = a[1:3]; return x + y; }", ctx, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	m := vm.New(ctx)
	if verr := m.Run(fn); verr != nil {
		t.Fatalf("Run: %v", verr)
	}
	_, top, ok := ctx.Stack.AtFromTop(0)
	if !ok || top.Tag != value.Int || top.Int != 50 {
		t.Fatalf("got %v want int 50 (20+30)", top)
	}
}

// TestIndexReadWriteThroughSource exercises IND_READ/IND_WRITE lowered
// from surface syntax rather than hand-built bytecode.
func TestIndexReadWriteThroughSource(t *testing.T) {
	ctx := container.NewContext()
	fn, err := Compile("swapFirst", "() => (int) { array a = [5, 6]; a[0] = a[1]; return a[0]; }", ctx, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	m := vm.New(ctx)
	if verr := m.Run(fn); verr != nil {
		t.Fatalf("Run: %v", verr)
	}
	_, top, ok := ctx.Stack.AtFromTop(0)
	if !ok || top.Tag != value.Int || top.Int != 6 {
		t.Fatalf("got %v want int 6", top)
	}
}

// TestBoolDeclLiteral checks the declared type acts as the parse hint for
// boolean initializers.
func TestBoolDeclLiteral(t *testing.T) {
	ctx := container.NewContext()
	fn, err := Compile("flag", "() => (bool) { bool b = true; return b; }", ctx, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	m := vm.New(ctx)
	if verr := m.Run(fn); verr != nil {
		t.Fatalf("Run: %v", verr)
	}
	_, top, ok := ctx.Stack.AtFromTop(0)
	if !ok || top.Tag != value.Bool || !top.Truthy() {
		t.Fatalf("got %v want bool true", top)
	}
}

// TestCompileLeavesContextUnchanged checks the stack-cleanup contract: a
// successful compile pops every argument and local it pushed.
func TestCompileLeavesContextUnchanged(t *testing.T) {
	ctx := container.NewContext()
	_, err := Compile("f", "(int a) => (int) { int b = a + 1; return b; }", ctx, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if ctx.Stack.Len() != 0 {
		t.Fatalf("compile left %d entries on the stack", ctx.Stack.Len())
	}
}
