// Package vm implements the register+stack virtual machine described in
// spec.md §4.6: a 4-register file, four operand-source modes (register,
// stack slot, global, inline constant), and a dispatch loop over the
// opcodes internal/bytecode defines.
//
// Grounded on the teacher's internal/vmregister dispatch loop
// (internal/vmregister/vm.go), which decodes a control word then switches
// on opcode, reading however many operand words that opcode declares;
// generalized here to the four addressing modes and the RETURN/FN_EVAL
// calling convention spec.md §4.4/§4.6 describe.
package vm

import (
	"corelang/internal/bytecode"
	"corelang/internal/container"
	"corelang/internal/optree"
	"corelang/internal/value"
	"corelang/internal/vmerr"
)

// Tracer receives one notification per dispatched instruction, the hook
// internal/trace's sqlite-backed Recorder attaches through so observing a
// run never changes what that run computes.
type Tracer interface {
	OnInstr(pc int, op bytecode.OpCode, regs [bytecode.RegisterCount]value.Value, stackDepth int)
}

// VM holds the register file and the shared context (call stack + globals)
// every compiled Function runs against.
type VM struct {
	ctx    *container.Context
	regs   [bytecode.RegisterCount]value.Value
	tracer Tracer
}

// New returns a VM sharing ctx with whatever compiled the functions it will
// run; the call stack already carries any pushed arguments by the time Run
// is invoked (spec.md §4.4's calling convention).
func New(ctx *container.Context) *VM {
	return &VM{ctx: ctx}
}

// SetTracer attaches t so every subsequent Run reports each dispatched
// instruction to it; pass nil to detach. Recording is best-effort and never
// alters a program's result (spec.md §5).
func (m *VM) SetTracer(t Tracer) { m.tracer = t }

// Regs exposes the register file for disassembly/tracing callers.
func (m *VM) Regs() [bytecode.RegisterCount]value.Value { return m.regs }

// Run executes fn's instruction buffer to completion (a RETURN instruction)
// or until an opcode reports an error. FN_EVAL recurses into this same
// method against the same ctx, matching "nested calls share the caller's
// stack" in spec.md §4.4.
func (m *VM) Run(fn *value.Function) *vmerr.Error {
	code := fn.Code.Words
	ip := 0
	for ip < len(code) {
		pc := ip
		op, hl, hh := bytecode.DecodeControl(code[ip])
		ip++
		if m.tracer != nil {
			m.tracer.OnInstr(pc, op, m.regs, m.ctx.Stack.Len())
		}

		switch op {
		case bytecode.OpNop:
			// no operands

		case bytecode.OpEval:
			constIdx := int64(code[ip])
			ip++
			if constIdx < 0 || int(constIdx) >= len(fn.Constants) {
				return vmerr.New(vmerr.Range, "OP_EVAL constant index out of range")
			}
			cv := fn.Constants[constIdx]
			if cv.Tag != value.OpRef {
				return vmerr.New(vmerr.BadType, "OP_EVAL constant is not an operation tree")
			}
			node, _ := cv.Op.(*optree.Node)
			result, err := optree.Eval(node, m.ctx.Stack)
			if err != nil {
				return err
			}
			m.regs[0] = result

		case bytecode.OpFnEval:
			operand := int64(code[ip])
			ip++
			callee, err := m.resolve(hl, operand, fn)
			if err != nil {
				return err
			}
			if callee.Tag != value.Func || callee.Fn == nil {
				return vmerr.New(vmerr.BadType, "FN_EVAL target is not a function")
			}
			if err := m.Run(callee.Fn); err != nil {
				return err
			}
			m.regs[0] = value.MakeInt(int64(callee.Fn.NRets))

		case bytecode.OpJump:
			target := int(code[ip])
			ip = target
			continue

		case bytecode.OpJumpCnd:
			target := int(code[ip])
			ip++
			if !m.regs[0].Truthy() {
				ip = target
			}

		case bytecode.OpPush:
			operand := int64(code[ip])
			ip++
			v, err := m.resolve(hl, operand, fn)
			if err != nil {
				return err
			}
			m.ctx.Stack.Push("", v)

		case bytecode.OpPop:
			operand := int64(code[ip])
			ip++
			_, v, ok := m.ctx.Stack.Pop()
			if !ok {
				return vmerr.New(vmerr.StackUnderflow, "POP on an empty stack")
			}
			if err := m.write(hl, operand, v, fn); err != nil {
				return err
			}

		case bytecode.OpMov:
			dstOperand := int64(code[ip])
			ip++
			srcOperand := int64(code[ip])
			ip++
			v, err := m.resolve(hh, srcOperand, fn)
			if err != nil {
				return err
			}
			if err := m.write(hl, dstOperand, v, fn); err != nil {
				return err
			}

		case bytecode.OpPtrDrf:
			operand := int64(code[ip])
			ip++
			ref, err := m.resolve(hl, operand, fn)
			if err != nil {
				return err
			}
			if ref.Tag != value.StackRef {
				return vmerr.New(vmerr.BadType, "PTR_DRF operand is not a reference")
			}
			var target value.Value
			if ref.Global {
				v, ok := m.ctx.Globals.Lookup(ref.RefKey)
				if !ok {
					return vmerr.New(vmerr.Undef, "undefined global: "+ref.RefKey)
				}
				target = v
			} else {
				_, v, ok := m.ctx.Stack.AtFromBottom(int(ref.Ref))
				if !ok {
					return vmerr.New(vmerr.Range, "dereferenced stack offset out of range")
				}
				target = v
			}
			m.regs[0] = target

		case bytecode.OpGetSize:
			operand := int64(code[ip])
			ip++
			v, err := m.resolve(hl, operand, fn)
			if err != nil {
				return err
			}
			switch v.Tag {
			case value.Array:
				m.regs[0] = value.MakeInt(int64(v.Arr.Len()))
			case value.String:
				m.regs[0] = value.MakeInt(int64(v.Str.Len()))
			default:
				return vmerr.New(vmerr.BadType, "GET_SIZE operand is not an array or string")
			}

		case bytecode.OpIndRead:
			arrOperand := int64(code[ip])
			ip++
			idxOperand := int64(code[ip])
			ip++
			arrVal, err := m.resolve(hl, arrOperand, fn)
			if err != nil {
				return err
			}
			idxVal, err := m.resolve(hh, idxOperand, fn)
			if err != nil {
				return err
			}
			if arrVal.Tag != value.Array {
				return vmerr.New(vmerr.BadType, "IND_READ target is not an array")
			}
			if idxVal.Tag != value.Int {
				return vmerr.New(vmerr.BadType, "IND_READ index is not an int")
			}
			elem, ok := arrVal.Arr.Get(wrapIndex(int(idxVal.Int), arrVal.Arr.Len()))
			if !ok {
				return vmerr.New(vmerr.BadVal, "array index out of range")
			}
			m.regs[0] = elem

		case bytecode.OpIndWrite:
			arrOperand := int64(code[ip])
			ip++
			idxOperand := int64(code[ip])
			ip++
			arrVal, err := m.resolve(hl, arrOperand, fn)
			if err != nil {
				return err
			}
			idxVal, err := m.resolve(hh, idxOperand, fn)
			if err != nil {
				return err
			}
			if arrVal.Tag != value.Array {
				return vmerr.New(vmerr.BadType, "IND_WRITE target is not an array")
			}
			if idxVal.Tag != value.Int {
				return vmerr.New(vmerr.BadType, "IND_WRITE index is not an int")
			}
			if !arrVal.Arr.Set(wrapIndex(int(idxVal.Int), arrVal.Arr.Len()), m.regs[0]) {
				return vmerr.New(vmerr.BadVal, "array index out of range")
			}

		case bytecode.OpMakePtr:
			operand := int64(code[ip])
			ip++
			switch hl {
			case bytecode.ModeStack:
				bottomOff := m.ctx.Stack.BottomRelativeOffset(int(operand))
				m.regs[0] = value.MakeStackRef(int64(bottomOff), "", false)
			case bytecode.ModeGlobal:
				if int(operand) >= len(fn.Constants) {
					return vmerr.New(vmerr.Range, "MAKE_PTR constant index out of range")
				}
				key := fn.Constants[operand]
				m.regs[0] = value.MakeStackRef(0, key.Str.String(), true)
			default:
				return vmerr.New(vmerr.BadVal, "MAKE_PTR requires a stack or global operand")
			}

		case bytecode.OpMakeArr:
			count := int(code[ip])
			ip++
			elems := make([]value.Value, count)
			for i := count - 1; i >= 0; i-- {
				_, v, ok := m.ctx.Stack.Pop()
				if !ok {
					return vmerr.New(vmerr.StackUnderflow, "MAKE_ARR underflow")
				}
				elems[i] = v
			}
			m.regs[0] = value.MakeArray(elems)

		case bytecode.OpMakeStr:
			constIdx := int64(code[ip])
			ip++
			if constIdx < 0 || int(constIdx) >= len(fn.Constants) {
				return vmerr.New(vmerr.Range, "MAKE_STR constant index out of range")
			}
			m.regs[0] = value.DeepCopy(fn.Constants[constIdx])

		case bytecode.OpMakeVal:
			constIdx := int64(code[ip])
			ip++
			if constIdx < 0 || int(constIdx) >= len(fn.Constants) {
				return vmerr.New(vmerr.Range, "MAKE_VAL constant index out of range")
			}
			// Deep copy so a constant with a heap payload (a zero-value
			// array, say) is never shared with, or mutated through, the
			// running program.
			m.regs[0] = value.DeepCopy(fn.Constants[constIdx])

		case bytecode.OpReturn:
			nRets := int(code[ip])
			ip++
			discard := int(code[ip])
			ip++
			// Shuttle the results through an anonymous value stack while
			// the frame beneath them is discarded.
			scratch := container.NewAnonStack()
			for i := 0; i < nRets; i++ {
				_, v, ok := m.ctx.Stack.Pop()
				if !ok {
					return vmerr.New(vmerr.StackUnderflow, "RETURN underflow popping results")
				}
				scratch.Push(v)
			}
			for i := 0; i < discard; i++ {
				if _, _, ok := m.ctx.Stack.Pop(); !ok {
					return vmerr.New(vmerr.StackUnderflow, "RETURN underflow discarding frame")
				}
			}
			for {
				v, ok := scratch.Pop()
				if !ok {
					break
				}
				m.ctx.Stack.Push("", v)
			}
			return nil

		case bytecode.OpExt, bytecode.OpFileOpen, bytecode.OpFileClose, bytecode.OpFileRead, bytecode.OpFileWrite:
			return vmerr.New(vmerr.Undef, op.String()+" is not implemented")

		default:
			return vmerr.New(vmerr.Undef, "unknown opcode")
		}
	}
	return nil
}

// wrapIndex resolves a negative index to n+idx, the wraparound rule slice
// selection and indexing share; an index still negative after wrapping is
// left as-is so the bounds check downstream rejects it.
func wrapIndex(idx, n int) int {
	if idx < 0 {
		idx += n
	}
	return idx
}

// resolve reads an operand under the given addressing mode.
func (m *VM) resolve(mode bytecode.Mode, operand int64, fn *value.Function) (value.Value, *vmerr.Error) {
	switch mode {
	case bytecode.ModeReg:
		if operand < 0 || int(operand) >= bytecode.RegisterCount {
			return value.Undef(), vmerr.New(vmerr.Range, "register operand out of range")
		}
		return m.regs[operand], nil
	case bytecode.ModeStack:
		_, v, ok := m.ctx.Stack.AtFromTop(int(operand))
		if !ok {
			return value.Undef(), vmerr.New(vmerr.Range, "stack operand out of range")
		}
		return v, nil
	case bytecode.ModeGlobal:
		if operand < 0 || int(operand) >= len(fn.Constants) {
			return value.Undef(), vmerr.New(vmerr.Range, "global key constant index out of range")
		}
		key := fn.Constants[operand]
		v, ok := m.ctx.Globals.Lookup(key.Str.String())
		if !ok {
			return value.Undef(), vmerr.New(vmerr.Undef, "undefined global: "+key.Str.String())
		}
		return v, nil
	case bytecode.ModeConst:
		if operand < 0 || int(operand) >= len(fn.Constants) {
			return value.Undef(), vmerr.New(vmerr.Range, "constant index out of range")
		}
		return fn.Constants[operand], nil
	default:
		return value.Undef(), vmerr.New(vmerr.Syntax, "invalid operand mode")
	}
}

// write stores a value through the given addressing mode; ModeConst is not
// writable.
func (m *VM) write(mode bytecode.Mode, operand int64, v value.Value, fn *value.Function) *vmerr.Error {
	switch mode {
	case bytecode.ModeReg:
		if operand < 0 || int(operand) >= bytecode.RegisterCount {
			return vmerr.New(vmerr.Range, "register operand out of range")
		}
		m.regs[operand] = v
		return nil
	case bytecode.ModeStack:
		if !m.ctx.Stack.SetAtFromTop(int(operand), v) {
			return vmerr.New(vmerr.Range, "stack operand out of range")
		}
		return nil
	case bytecode.ModeGlobal:
		if operand < 0 || int(operand) >= len(fn.Constants) {
			return vmerr.New(vmerr.Range, "global key constant index out of range")
		}
		key := fn.Constants[operand]
		m.ctx.Globals.Insert(key.Str.String(), v)
		return nil
	case bytecode.ModeConst:
		return vmerr.New(vmerr.BadVal, "cannot write to a constant operand")
	default:
		return vmerr.New(vmerr.Syntax, "invalid operand mode")
	}
}
