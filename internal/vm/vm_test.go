package vm

import (
	"testing"

	"corelang/internal/bytecode"
	"corelang/internal/container"
	"corelang/internal/value"
	"corelang/internal/vmerr"
)

func newFn(nargs, nrets int) *value.Function {
	return value.NewFunction("t", nargs, make([]value.Tag, nrets))
}

// TestMakePtrSurvivesPush builds a stack reference to a slot, pushes
// something else on top, then dereferences it — checking the
// bottom-relative addressing scheme in spec.md §4.5 keeps the reference
// valid across intervening pushes.
func TestMakePtrSurvivesPush(t *testing.T) {
	ctx := container.NewContext()
	ctx.Stack.Push("target", value.MakeInt(42))

	fn := newFn(0, 0)
	// MAKE_PTR(stack offset 0) -> R0
	fn.Code.Emit(bytecode.OpMakePtr, bytecode.ModeStack, bytecode.ModeReg)
	fn.Code.EmitOperand(0)
	// MOV R1, R0 (save the reference off R0)
	fn.Code.Emit(bytecode.OpMov, bytecode.ModeReg, bytecode.ModeReg)
	fn.Code.EmitOperand(1)
	fn.Code.EmitOperand(0)
	// PUSH a constant (something else on top, shifting top-relative offsets)
	zero := fn.AddConstant(value.MakeInt(0))
	fn.Code.Emit(bytecode.OpPush, bytecode.ModeConst, bytecode.ModeReg)
	fn.Code.EmitOperand(int64(zero))
	// PTR_DRF(R1) -> R0
	fn.Code.Emit(bytecode.OpPtrDrf, bytecode.ModeReg, bytecode.ModeReg)
	fn.Code.EmitOperand(1)
	fn.Code.Emit(bytecode.OpReturn, bytecode.ModeReg, bytecode.ModeReg)
	fn.Code.EmitOperand(0)
	fn.Code.EmitOperand(0)

	m := New(ctx)
	if err := m.Run(fn); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.regs[0].Tag != value.Int || m.regs[0].Int != 42 {
		t.Fatalf("got %v want int 42", m.regs[0])
	}
}

// TestArrayIndexReadWriteAndSize builds a 3-element array via MAKE_ARR,
// writes a new value at index 1, reads it back, and checks GET_SIZE.
func TestArrayIndexReadWriteAndSize(t *testing.T) {
	ctx := container.NewContext()
	fn := newFn(0, 1)

	for _, v := range []int64{10, 20, 30} {
		c := fn.AddConstant(value.MakeInt(v))
		fn.Code.Emit(bytecode.OpMakeVal, bytecode.ModeConst, bytecode.ModeReg)
		fn.Code.EmitOperand(int64(c))
		fn.Code.Emit(bytecode.OpPush, bytecode.ModeReg, bytecode.ModeReg)
		fn.Code.EmitOperand(0)
	}
	fn.Code.Emit(bytecode.OpMakeArr, bytecode.ModeReg, bytecode.ModeReg)
	fn.Code.EmitOperand(3)
	fn.Code.Emit(bytecode.OpPush, bytecode.ModeReg, bytecode.ModeReg)
	fn.Code.EmitOperand(0)
	// array is now the sole named-less entry at stack offset 0

	newVal := fn.AddConstant(value.MakeInt(99))
	fn.Code.Emit(bytecode.OpMakeVal, bytecode.ModeConst, bytecode.ModeReg)
	fn.Code.EmitOperand(int64(newVal))
	idxConst := fn.AddConstant(value.MakeInt(1))
	fn.Code.Emit(bytecode.OpIndWrite, bytecode.ModeStack, bytecode.ModeConst)
	fn.Code.EmitOperand(0)
	fn.Code.EmitOperand(int64(idxConst))

	fn.Code.Emit(bytecode.OpIndRead, bytecode.ModeStack, bytecode.ModeConst)
	fn.Code.EmitOperand(0)
	fn.Code.EmitOperand(int64(idxConst))
	fn.Code.Emit(bytecode.OpPush, bytecode.ModeReg, bytecode.ModeReg)
	fn.Code.EmitOperand(0)

	fn.Code.Emit(bytecode.OpGetSize, bytecode.ModeStack, bytecode.ModeReg)
	fn.Code.EmitOperand(1)

	fn.Code.Emit(bytecode.OpReturn, bytecode.ModeReg, bytecode.ModeReg)
	fn.Code.EmitOperand(1)
	fn.Code.EmitOperand(1)

	m := New(ctx)
	if err := m.Run(fn); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.regs[0].Tag != value.Int || m.regs[0].Int != 3 {
		t.Fatalf("GET_SIZE got %v want int 3", m.regs[0])
	}
	_, top, ok := ctx.Stack.AtFromTop(0)
	if !ok || top.Tag != value.Int || top.Int != 99 {
		t.Fatalf("IND_READ got %v want int 99", top)
	}
}

// TestPopOnEmptyStackIsUnderflow exercises the stack-underflow failure
// scenario from spec.md §8.
func TestPopOnEmptyStackIsUnderflow(t *testing.T) {
	ctx := container.NewContext()
	fn := newFn(0, 0)
	fn.Code.Emit(bytecode.OpPop, bytecode.ModeReg, bytecode.ModeReg)
	fn.Code.EmitOperand(0)

	m := New(ctx)
	err := m.Run(fn)
	if err == nil || err.Kind != vmerr.StackUnderflow {
		t.Fatalf("got %v want StackUnderflow", err)
	}
}

// TestIndReadOnNonArrayIsBadType exercises the bad-type failure scenario.
func TestIndReadOnNonArrayIsBadType(t *testing.T) {
	ctx := container.NewContext()
	fn := newFn(0, 0)
	c := fn.AddConstant(value.MakeInt(5))
	idx := fn.AddConstant(value.MakeInt(0))
	fn.Code.Emit(bytecode.OpIndRead, bytecode.ModeConst, bytecode.ModeConst)
	fn.Code.EmitOperand(int64(c))
	fn.Code.EmitOperand(int64(idx))

	m := New(ctx)
	err := m.Run(fn)
	if err == nil || err.Kind != vmerr.BadType {
		t.Fatalf("got %v want BadType", err)
	}
}

// TestUndefinedGlobalIsUndef exercises reading an unset global.
func TestUndefinedGlobalIsUndef(t *testing.T) {
	ctx := container.NewContext()
	fn := newFn(0, 0)
	key := fn.AddConstant(value.MakeString("nope"))
	fn.Code.Emit(bytecode.OpPush, bytecode.ModeGlobal, bytecode.ModeReg)
	fn.Code.EmitOperand(int64(key))

	m := New(ctx)
	err := m.Run(fn)
	if err == nil || err.Kind != vmerr.Undef {
		t.Fatalf("got %v want Undef", err)
	}
}

// TestPtrDrfOnNonReferenceIsBadType exercises the dereference failure
// scenario.
func TestPtrDrfOnNonReferenceIsBadType(t *testing.T) {
	ctx := container.NewContext()
	fn := newFn(0, 0)
	c := fn.AddConstant(value.MakeInt(7))
	fn.Code.Emit(bytecode.OpPtrDrf, bytecode.ModeConst, bytecode.ModeReg)
	fn.Code.EmitOperand(int64(c))

	m := New(ctx)
	err := m.Run(fn)
	if err == nil || err.Kind != vmerr.BadType {
		t.Fatalf("got %v want BadType", err)
	}
}

// TestIndexOutOfBoundsIsBadVal checks an out-of-range read fails with
// BADVAL, and that a negative index wraps once before the bounds check.
func TestIndexOutOfBoundsIsBadVal(t *testing.T) {
	ctx := container.NewContext()
	fn := newFn(0, 0)
	arr := fn.AddConstant(value.MakeArray([]value.Value{value.MakeInt(1), value.MakeInt(2)}))
	oob := fn.AddConstant(value.MakeInt(5))
	fn.Code.Emit(bytecode.OpIndRead, bytecode.ModeConst, bytecode.ModeConst)
	fn.Code.EmitOperand(int64(arr))
	fn.Code.EmitOperand(int64(oob))

	m := New(ctx)
	err := m.Run(fn)
	if err == nil || err.Kind != vmerr.BadVal {
		t.Fatalf("got %v want BadVal", err)
	}

	fn2 := newFn(0, 0)
	arr2 := fn2.AddConstant(value.MakeArray([]value.Value{value.MakeInt(1), value.MakeInt(2)}))
	last := fn2.AddConstant(value.MakeInt(-1))
	fn2.Code.Emit(bytecode.OpIndRead, bytecode.ModeConst, bytecode.ModeConst)
	fn2.Code.EmitOperand(int64(arr2))
	fn2.Code.EmitOperand(int64(last))
	fn2.Code.Emit(bytecode.OpReturn, bytecode.ModeReg, bytecode.ModeReg)
	fn2.Code.EmitOperand(0)
	fn2.Code.EmitOperand(0)

	m2 := New(container.NewContext())
	if err := m2.Run(fn2); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m2.regs[0].Tag != value.Int || m2.regs[0].Int != 2 {
		t.Fatalf("arr[-1] got %v want int 2", m2.regs[0])
	}
}
