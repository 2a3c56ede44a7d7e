package funcc

import (
	"strings"

	"corelang/internal/bytecode"
	"corelang/internal/optree"
	"corelang/internal/value"
	"corelang/internal/vmerr"
)

// parseRval lowers an rvalue expression to instructions that leave its
// results on top of the call stack, returning how many values those
// instructions push. It recognizes whole-expression call, index, and slice
// forms before falling back to internal/optree for ordinary arithmetic/
// comparison/logical expressions; indexing and calls are not themselves
// composable inside a larger optree expression (e.g. "arr[i] + 1" isn't
// supported) since the grammar's literal parser has no postfix operators.
//
// The compiler mirrors every emitted push/pop on the compile-time stack
// (anonymous placeholder entries), so slot offsets resolved for later
// emits line up with the depths the VM will actually see.
func (c *compiler) parseRval(expr string) (int, *vmerr.Error) {
	expr = strings.TrimSpace(expr)
	if isCallExpr(expr) {
		if name, args, perr := parseCallParts(expr); perr == nil && name == "len" && len(args) == 1 {
			if err := c.compileLenPush(args[0]); err != nil {
				return 0, err
			}
			return 1, nil
		}
		return c.compileCallMultiPush(expr)
	}
	if name, idxExpr, ok := splitIndexExpr(expr); ok {
		if strings.Contains(idxExpr, ":") {
			return c.compileSlicePush(name, idxExpr)
		}
		if err := c.compileIndexReadPush(name, idxExpr); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if isArrayLiteral(expr) {
		if err := c.compileArrayLiteralPush(expr); err != nil {
			return 0, err
		}
		return 1, nil
	}
	node, err := optree.Gen(expr, c.ctx.Stack)
	if err != nil {
		return 0, err
	}
	idx := c.constIndex(value.Value{Tag: value.OpRef, Op: node})
	c.emitEval(idx)
	c.emitPush(bytecode.ModeReg, 0)
	c.pushAnon()
	return 1, nil
}

// compileExprPush is parseRval in forced-single-return position: call
// arguments, declaration initializers, return expressions, and plain
// assignment right-hand sides all require exactly one pushed value.
func (c *compiler) compileExprPush(expr string) *vmerr.Error {
	n, err := c.parseRval(expr)
	if err != nil {
		return err
	}
	if n != 1 {
		return fail(vmerr.BadVal, "expression must produce exactly one value here")
	}
	return nil
}

// compileExprIntoR0 is compileExprPush followed by a pop into R0, for
// callers (plain assignment, indexed-write) that want the value addressed
// as a register rather than left on the stack.
func (c *compiler) compileExprIntoR0(expr string) *vmerr.Error {
	if err := c.compileExprPush(expr); err != nil {
		return err
	}
	c.emitPop(bytecode.ModeReg, 0)
	c.popAnon()
	return nil
}

// compileCallMultiPush compiles a call expression's arguments and FN_EVAL,
// leaving however many values the callee returns on the stack and
// reporting that count.
func (c *compiler) compileCallMultiPush(expr string) (int, *vmerr.Error) {
	name, args, err := parseCallParts(expr)
	if err != nil {
		return 0, err
	}
	for _, a := range args {
		if err := c.compileExprPush(a); err != nil {
			return 0, err
		}
	}
	mode, operand, ok := c.resolveVar(name)
	if !ok {
		return 0, fail(vmerr.Undef, "undefined function: "+name)
	}
	c.emitFnEval(mode, operand)
	// At run time FN_EVAL consumes the pushed arguments and leaves the
	// callee's results in their place.
	for range args {
		c.popAnon()
	}
	nrets := c.calleeRets(name)
	for i := 0; i < nrets; i++ {
		c.pushAnon()
	}
	return nrets, nil
}

// calleeRets reports how many values name returns, consulting the
// program-level registry first (CompileProgram's two-pass shells) and the
// globals table second; an unknown callee is assumed single-valued.
func (c *compiler) calleeRets(name string) int {
	if fn, ok := c.funcs[name]; ok {
		return fn.NRets
	}
	if v, ok := c.ctx.Globals.Lookup(name); ok && v.Tag == value.Func && v.Fn != nil {
		return v.Fn.NRets
	}
	return 1
}

// compileLenPush compiles the builtin len(x) as GET_SIZE: a bare-name
// argument is addressed directly, anything else is computed into R0 first.
func (c *compiler) compileLenPush(argExpr string) *vmerr.Error {
	argExpr = strings.TrimSpace(argExpr)
	if mode, operand, ok := c.resolveVar(argExpr); ok {
		c.emitGetSize(mode, operand)
	} else {
		if err := c.compileExprIntoR0(argExpr); err != nil {
			return err
		}
		c.emitGetSize(bytecode.ModeReg, 0)
	}
	c.emitPush(bytecode.ModeReg, 0)
	c.pushAnon()
	return nil
}

// isArrayLiteral reports whether s is exactly "[elem, elem, ...]".
func isArrayLiteral(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '[' {
		return false
	}
	_, rest, err := matchGroup(s, 0, '[', ']')
	return err == nil && strings.TrimSpace(rest) == ""
}

// compileArrayLiteralPush compiles "[e1, e2, ...]" by pushing each element
// left to right, then MAKE_ARR to collect them off the stack in order.
func (c *compiler) compileArrayLiteralPush(s string) *vmerr.Error {
	inner, rest, err := matchGroup(s, 0, '[', ']')
	if err != nil || strings.TrimSpace(rest) != "" {
		return fail(vmerr.Syntax, "malformed array literal: "+s)
	}
	inner = strings.TrimSpace(inner)
	var elems []string
	if inner != "" {
		for _, e := range value.SplitTopLevel(inner, ',') {
			elems = append(elems, strings.TrimSpace(e))
		}
	}
	for _, e := range elems {
		if err := c.compileExprPush(e); err != nil {
			return err
		}
	}
	c.emitMakeArr(int64(len(elems)))
	for range elems {
		c.popAnon()
	}
	c.emitPush(bytecode.ModeReg, 0)
	c.pushAnon()
	return nil
}

func (c *compiler) compileIndexReadPush(name, idxExpr string) *vmerr.Error {
	arrMode, arrOperand, ok := c.resolveVar(name)
	if !ok {
		return fail(vmerr.Undef, "undefined variable: "+name)
	}
	node, operr := optree.Gen(idxExpr, c.ctx.Stack)
	if operr != nil {
		return operr
	}
	cidx := c.constIndex(value.Value{Tag: value.OpRef, Op: node})
	c.emitEval(cidx)
	c.emitIndRead(arrMode, arrOperand, bytecode.ModeReg, 0)
	c.emitPush(bytecode.ModeReg, 0)
	c.pushAnon()
	return nil
}

// compileSlicePush expands "name[start:end:step]" at compile time into one
// IND_READ+PUSH per selected index. The bounds must be integer literals
// (the selected count has to be known here); step defaults to 1 and must
// be nonzero. Negative indices wrap against the array length at run time,
// so the two bounds may not mix signs — the wrapped count would depend on
// a length this compiler never sees.
func (c *compiler) compileSlicePush(name, sliceExpr string) (int, *vmerr.Error) {
	parts := value.SplitTopLevel(sliceExpr, ':')
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fail(vmerr.Syntax, "malformed slice: "+sliceExpr)
	}
	bounds := make([]int64, 0, 3)
	for _, p := range parts {
		v, perr := value.ParseLiteral(strings.TrimSpace(p), value.HintInt)
		if perr != nil {
			return 0, fail(vmerr.BadVal, "slice bounds must be integer literals: "+sliceExpr)
		}
		bounds = append(bounds, v.Int)
	}
	start, end := bounds[0], bounds[1]
	step := int64(1)
	if len(bounds) == 3 {
		step = bounds[2]
	}
	if step == 0 {
		return 0, fail(vmerr.BadVal, "slice step must be nonzero")
	}
	if (start < 0) != (end < 0) {
		return 0, fail(vmerr.BadVal, "slice bounds must not mix signs: "+sliceExpr)
	}
	count := 0
	for i := start; (step > 0 && i < end) || (step < 0 && i > end); i += step {
		mode, operand, ok := c.resolveVar(name)
		if !ok {
			return 0, fail(vmerr.Undef, "undefined variable: "+name)
		}
		cidx := c.constIndex(value.MakeInt(i))
		c.emitIndRead(mode, operand, bytecode.ModeConst, cidx)
		c.emitPush(bytecode.ModeReg, 0)
		c.pushAnon()
		count++
	}
	return count, nil
}

// isCallExpr reports whether s is exactly "name(args)" with nothing
// trailing after the matching close-paren.
func isCallExpr(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || !isIdentStartByte(s[0]) {
		return false
	}
	i := 0
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	if i >= len(s) || s[i] != '(' {
		return false
	}
	_, rest, err := matchGroup(s, i, '(', ')')
	return err == nil && strings.TrimSpace(rest) == ""
}

// splitIndexExpr reports whether s is exactly "name[index]" with nothing
// trailing after the matching close-bracket.
func splitIndexExpr(s string) (name, idxExpr string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" || !isIdentStartByte(s[0]) {
		return "", "", false
	}
	i := 0
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	if i >= len(s) || s[i] != '[' {
		return "", "", false
	}
	inner, rest, err := matchGroup(s, i, '[', ']')
	if err != nil || strings.TrimSpace(rest) != "" {
		return "", "", false
	}
	return s[:i], inner, true
}

func parseCallParts(s string) (name string, args []string, err *vmerr.Error) {
	s = strings.TrimSpace(s)
	open := strings.Index(s, "(")
	if open < 0 || s[len(s)-1] != ')' {
		return "", nil, fail(vmerr.Syntax, "malformed call: "+s)
	}
	name = strings.TrimSpace(s[:open])
	argsText := strings.TrimSpace(s[open+1 : len(s)-1])
	if argsText == "" {
		return name, nil, nil
	}
	for _, a := range value.SplitTopLevel(argsText, ',') {
		args = append(args, strings.TrimSpace(a))
	}
	return name, args, nil
}

func isIdentStartByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
