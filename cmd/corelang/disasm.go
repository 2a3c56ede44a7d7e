package main

import (
	"fmt"
	"strings"

	"corelang/internal/bytecode"
	"corelang/internal/value"
)

// operandCount reports how many operand words follow op's control word,
// mirroring internal/vm's dispatch loop's own knowledge of each opcode's
// shape (vm.go is the source of truth; this just has to agree with it).
func operandCount(op bytecode.OpCode) int {
	switch op {
	case bytecode.OpMov, bytecode.OpIndRead, bytecode.OpIndWrite, bytecode.OpReturn:
		return 2
	case bytecode.OpNop, bytecode.OpExt, bytecode.OpFileOpen, bytecode.OpFileClose,
		bytecode.OpFileRead, bytecode.OpFileWrite:
		return 0
	default:
		return 1
	}
}

// disassemble prints fn's instruction buffer one instruction per line, in
// the mnemonic form "pc  OPCODE  mode+operand, mode+operand", grounded on
// the teacher's bytecode.Instruction.String()-style disassembly in
// internal/vmregister.
func disassemble(fn *value.Function) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "function %s (args=%d rets=%d constants=%d)\n", fn.Name, fn.NArgs, fn.NRets, len(fn.Constants))
	code := fn.Code.Words
	ip := 0
	for ip < len(code) {
		pc := ip
		op, hl, hh := bytecode.DecodeControl(code[ip])
		ip++
		n := operandCount(op)
		operands := make([]int64, 0, n)
		for i := 0; i < n && ip < len(code); i++ {
			operands = append(operands, int64(code[ip]))
			ip++
		}
		fmt.Fprintf(&sb, "%5d  %-10s", pc, op)
		switch len(operands) {
		case 1:
			fmt.Fprintf(&sb, " %s%d", hl, operands[0])
		case 2:
			fmt.Fprintf(&sb, " %s%d, %s%d", hl, operands[0], hh, operands[1])
		}
		sb.WriteByte('\n')
	}
	for i, c := range fn.Constants {
		fmt.Fprintf(&sb, "  const[%d] = %s\n", i, value.Format(c))
	}
	return sb.String()
}
