package funcc

import (
	"corelang/internal/bytecode"
	"corelang/internal/value"
)

// emitPush appends PUSH(mode, operand): resolve operand under mode, push
// the result onto the call stack as an anonymous entry.
func (c *compiler) emitPush(mode bytecode.Mode, operand int64) {
	c.fn.Code.Emit(bytecode.OpPush, mode, bytecode.ModeReg)
	c.fn.Code.EmitOperand(operand)
}

// emitPop appends POP(mode, operand): pop the call stack top into the
// addressed destination.
func (c *compiler) emitPop(mode bytecode.Mode, operand int64) {
	c.fn.Code.Emit(bytecode.OpPop, mode, bytecode.ModeReg)
	c.fn.Code.EmitOperand(operand)
}

// emitMov appends MOV(dst, src): resolve src, write it to dst, no stack
// traffic.
func (c *compiler) emitMov(dstMode bytecode.Mode, dstOperand int64, srcMode bytecode.Mode, srcOperand int64) {
	c.fn.Code.Emit(bytecode.OpMov, dstMode, srcMode)
	c.fn.Code.EmitOperand(dstOperand)
	c.fn.Code.EmitOperand(srcOperand)
}

// emitEval appends OP_EVAL for the operation tree stored at constIdx,
// result landing in R0.
func (c *compiler) emitEval(constIdx int64) {
	c.fn.Code.Emit(bytecode.OpEval, bytecode.ModeConst, bytecode.ModeReg)
	c.fn.Code.EmitOperand(constIdx)
}

// emitJump appends an unconditional JUMP with a placeholder target and
// returns the operand word's index for later Patch-ing.
func (c *compiler) emitJump() int {
	c.fn.Code.Emit(bytecode.OpJump, bytecode.ModeReg, bytecode.ModeReg)
	return c.fn.Code.EmitOperand(0)
}

// emitJumpCnd appends JUMP_CND (taken when R0 is falsy) with a placeholder
// target.
func (c *compiler) emitJumpCnd() int {
	c.fn.Code.Emit(bytecode.OpJumpCnd, bytecode.ModeReg, bytecode.ModeReg)
	return c.fn.Code.EmitOperand(0)
}

func (c *compiler) patchJumpHere(operandIdx int) {
	c.fn.Code.Patch(operandIdx, int64(c.fn.Code.Len()))
}

func (c *compiler) patchJumpTo(operandIdx, target int) {
	c.fn.Code.Patch(operandIdx, int64(target))
}

// emitFnEval appends FN_EVAL addressing the callee by mode/operand.
func (c *compiler) emitFnEval(mode bytecode.Mode, operand int64) {
	c.fn.Code.Emit(bytecode.OpFnEval, mode, bytecode.ModeReg)
	c.fn.Code.EmitOperand(operand)
}

func (c *compiler) emitMakeVal(constIdx int64) {
	c.fn.Code.Emit(bytecode.OpMakeVal, bytecode.ModeConst, bytecode.ModeReg)
	c.fn.Code.EmitOperand(constIdx)
}

// emitLiteralPush materializes a literal through the constants table and
// pushes it: MAKE_STR for heap strings, MAKE_VAL otherwise.
func (c *compiler) emitLiteralPush(v value.Value) {
	idx := c.constIndex(v)
	if v.Tag == value.String {
		c.emitMakeStr(idx)
	} else {
		c.emitMakeVal(idx)
	}
	c.emitPush(bytecode.ModeReg, 0)
}

func (c *compiler) emitMakeStr(constIdx int64) {
	c.fn.Code.Emit(bytecode.OpMakeStr, bytecode.ModeConst, bytecode.ModeReg)
	c.fn.Code.EmitOperand(constIdx)
}

func (c *compiler) emitMakeArr(count int64) {
	c.fn.Code.Emit(bytecode.OpMakeArr, bytecode.ModeReg, bytecode.ModeReg)
	c.fn.Code.EmitOperand(count)
}

func (c *compiler) emitIndRead(arrMode bytecode.Mode, arrOperand int64, idxMode bytecode.Mode, idxOperand int64) {
	c.fn.Code.Emit(bytecode.OpIndRead, arrMode, idxMode)
	c.fn.Code.EmitOperand(arrOperand)
	c.fn.Code.EmitOperand(idxOperand)
}

func (c *compiler) emitIndWrite(arrMode bytecode.Mode, arrOperand int64, idxMode bytecode.Mode, idxOperand int64) {
	c.fn.Code.Emit(bytecode.OpIndWrite, arrMode, idxMode)
	c.fn.Code.EmitOperand(arrOperand)
	c.fn.Code.EmitOperand(idxOperand)
}

func (c *compiler) emitGetSize(mode bytecode.Mode, operand int64) {
	c.fn.Code.Emit(bytecode.OpGetSize, mode, bytecode.ModeReg)
	c.fn.Code.EmitOperand(operand)
}

// emitReturn appends RETURN(nRets, discardBelow): pop nRets values, discard
// discardBelow more beneath them, then push the nRets values back so only
// they (and whatever the caller had below this frame) remain.
func (c *compiler) emitReturn(nRets, discardBelow int64) {
	c.fn.Code.Emit(bytecode.OpReturn, bytecode.ModeReg, bytecode.ModeReg)
	c.fn.Code.EmitOperand(nRets)
	c.fn.Code.EmitOperand(discardBelow)
}

// resolveVar finds name as a local (stack) slot first, falling back to a
// global, mirroring ordinary lexical shadowing.
func (c *compiler) resolveVar(name string) (bytecode.Mode, int64, bool) {
	if off, ok := c.ctx.Stack.Find(name); ok {
		return bytecode.ModeStack, int64(off), true
	}
	if _, ok := c.ctx.Globals.Lookup(name); ok {
		return bytecode.ModeGlobal, c.constIndex(value.MakeString(name)), true
	}
	return 0, 0, false
}
