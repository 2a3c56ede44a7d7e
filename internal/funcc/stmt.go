package funcc

import (
	"strings"

	"corelang/internal/bytecode"
	"corelang/internal/optree"
	"corelang/internal/value"
	"corelang/internal/vmerr"
)

// compileBlock walks body, dispatching if/while/return/simple statements in
// source order. Declared locals are function-scoped (no block scoping),
// matching the flat stack frame the original compiler builds.
func (c *compiler) compileBlock(body string) *vmerr.Error {
	pos := 0
	for {
		pos = skipWS(body, pos)
		if pos >= len(body) {
			return nil
		}
		var err *vmerr.Error
		switch {
		case matchKeyword(body, pos, "if"):
			pos, err = c.compileIfChain(body, pos)
		case matchKeyword(body, pos, "while"):
			pos, err = c.compileWhile(body, pos)
		case matchKeyword(body, pos, "return"):
			end := scanSimpleStatementEnd(body, pos)
			err = c.compileReturn(body[pos:end])
			pos = end
		default:
			end := scanSimpleStatementEnd(body, pos)
			stmt := strings.TrimSpace(body[pos:end])
			if stmt != "" {
				err = c.compileSimpleStmt(stmt)
			}
			pos = end
		}
		if err != nil {
			return err
		}
	}
}

// compileIfChain compiles "if (cond) { ... }" followed by any number of
// "else if (cond) { ... }" and an optional trailing "else { ... }".
func (c *compiler) compileIfChain(body string, pos int) (int, *vmerr.Error) {
	pos += len("if")
	condText, rest, perr := parseParenGroup(body, pos)
	if perr != nil {
		return pos, perr
	}
	pos = posAfter(body, pos, rest)
	blockText, rest, perr := parseBraceGroup(body, pos)
	if perr != nil {
		return pos, perr
	}
	pos = posAfter(body, pos, rest)

	var endJumps []int
	if err := c.compileCondBranch(condText, blockText, &endJumps); err != nil {
		return pos, err
	}

	for {
		p := skipWS(body, pos)
		if !matchKeyword(body, p, "else") {
			break
		}
		p2 := skipWS(body, p+len("else"))
		if matchKeyword(body, p2, "if") {
			p2 += len("if")
			condText2, rest2, perr := parseParenGroup(body, p2)
			if perr != nil {
				return pos, perr
			}
			p2 = posAfter(body, p2, rest2)
			blockText2, rest2, perr := parseBraceGroup(body, p2)
			if perr != nil {
				return pos, perr
			}
			pos = posAfter(body, p2, rest2)
			if err := c.compileCondBranch(condText2, blockText2, &endJumps); err != nil {
				return pos, err
			}
			continue
		}
		blockText3, rest3, perr := parseBraceGroup(body, p2)
		if perr != nil {
			return pos, perr
		}
		pos = posAfter(body, p2, rest3)
		if err := c.compileBlock(blockText3); err != nil {
			return pos, err
		}
		break
	}

	for _, idx := range endJumps {
		c.patchJumpHere(idx)
	}
	return pos, nil
}

// compileCondBranch compiles one "cond { block }" arm of an if/else-if
// chain: evaluate cond, skip the block when false, otherwise run it and
// jump to the chain's end (recorded into endJumps for the caller to patch).
func (c *compiler) compileCondBranch(condText, blockText string, endJumps *[]int) *vmerr.Error {
	node, operr := optree.Gen(condText, c.ctx.Stack)
	if operr != nil {
		return operr
	}
	constIdx := c.constIndex(value.Value{Tag: value.OpRef, Op: node})
	c.emitEval(constIdx)
	jc := c.emitJumpCnd()
	if err := c.compileBlock(blockText); err != nil {
		return err
	}
	*endJumps = append(*endJumps, c.emitJump())
	c.patchJumpHere(jc)
	return nil
}

func (c *compiler) compileWhile(body string, pos int) (int, *vmerr.Error) {
	pos += len("while")
	condText, rest, perr := parseParenGroup(body, pos)
	if perr != nil {
		return pos, perr
	}
	pos = posAfter(body, pos, rest)
	blockText, rest, perr := parseBraceGroup(body, pos)
	if perr != nil {
		return pos, perr
	}
	pos = posAfter(body, pos, rest)

	loopStart := c.fn.Code.Len()
	node, operr := optree.Gen(condText, c.ctx.Stack)
	if operr != nil {
		return pos, operr
	}
	constIdx := c.constIndex(value.Value{Tag: value.OpRef, Op: node})
	c.emitEval(constIdx)
	jc := c.emitJumpCnd()
	if err := c.compileBlock(blockText); err != nil {
		return pos, err
	}
	backIdx := c.emitJump()
	c.patchJumpTo(backIdx, loopStart)
	c.patchJumpHere(jc)
	return pos, nil
}

func (c *compiler) compileReturn(stmtText string) *vmerr.Error {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(stmtText), "return"))
	var exprs []string
	if rest != "" {
		for _, e := range value.SplitTopLevel(rest, ',') {
			if t := strings.TrimSpace(e); t != "" {
				exprs = append(exprs, t)
			}
		}
	}
	if len(exprs) != c.fn.NRets {
		return fail(vmerr.BadVal, "return value count does not match the declared return list")
	}
	for _, e := range exprs {
		if err := c.compileExprPush(e); err != nil {
			return err
		}
	}
	c.emitReturn(int64(len(exprs)), int64(c.framePushes))
	for range exprs {
		c.popAnon()
	}
	return nil
}

func (c *compiler) compileSimpleStmt(stmt string) *vmerr.Error {
	word := firstToken(stmt)
	if tag, ok := typeNameToTag[word]; ok {
		return c.compileDecl(tag, strings.TrimSpace(stmt[len(word):]))
	}
	if eqIdx, ok := findTopLevelAssignEq(stmt); ok {
		lhs := strings.TrimSpace(stmt[:eqIdx])
		rhs := strings.TrimSpace(stmt[eqIdx+1:])
		return c.compileAssign(lhs, rhs)
	}
	if isCallExpr(stmt) {
		return c.compileCallStmt(stmt)
	}
	return fail(vmerr.Syntax, "unrecognized statement: "+stmt)
}

func (c *compiler) compileDecl(tag value.Tag, rest string) *vmerr.Error {
	eqIdx, hasInit := findTopLevelAssignEq(rest)
	var name, initExpr string
	if hasInit {
		name = strings.TrimSpace(rest[:eqIdx])
		initExpr = strings.TrimSpace(rest[eqIdx+1:])
	} else {
		name = strings.TrimSpace(rest)
	}
	if name == "" {
		return fail(vmerr.Syntax, "declaration missing a name")
	}

	if hasInit {
		// A boolean declaration's type is the parse hint that lets
		// "bool b = true" read true as a literal rather than a name; the
		// hinted parse only accepts true/false/1/0, so anything else
		// falls through to ordinary expression compilation.
		if tag == value.Bool {
			if lit, perr := value.ParseLiteral(initExpr, value.HintBool); perr == nil {
				c.emitLiteralPush(lit)
				c.ctx.Stack.Push(name, zeroValue(tag))
				c.framePushes++
				return nil
			}
		}
		// The initializer compiles against the stack as it is before the
		// declaration; the value it pushes at run time becomes this
		// declaration's slot, so rename the placeholder afterwards.
		if err := c.compileExprPush(initExpr); err != nil {
			return err
		}
		c.popAnon()
		c.ctx.Stack.Push(name, zeroValue(tag))
		c.framePushes++
		return nil
	}

	c.emitLiteralPush(zeroValue(tag))
	c.ctx.Stack.Push(name, zeroValue(tag))
	c.framePushes++
	return nil
}

func (c *compiler) compileAssign(lhs, rhs string) *vmerr.Error {
	targets := value.SplitTopLevel(lhs, ',')
	if len(targets) == 1 {
		t := strings.TrimSpace(targets[0])
		if name, idxExpr, ok := splitIndexExpr(t); ok {
			return c.compileIndexWrite(name, idxExpr, rhs)
		}
		mode, operand, ok := c.resolveVar(t)
		if !ok {
			return fail(vmerr.Undef, "undefined variable: "+t)
		}
		if err := c.compileExprIntoR0(rhs); err != nil {
			return err
		}
		c.emitMov(mode, operand, bytecode.ModeReg, 0)
		return nil
	}

	rhsTrim := strings.TrimSpace(rhs)
	nvals, err := c.parseRval(rhsTrim)
	if err != nil {
		return err
	}
	if nvals != len(targets) {
		return fail(vmerr.BadVal, "assignment target count does not match value count")
	}
	for i := len(targets) - 1; i >= 0; i-- {
		tgt := strings.TrimSpace(targets[i])
		// Resolve after dropping the placeholder: POP pops first, so the
		// destination offset is measured against the post-pop depth.
		c.popAnon()
		mode, operand, ok := c.resolveVar(tgt)
		if !ok {
			return fail(vmerr.Undef, "undefined variable: "+tgt)
		}
		c.emitPop(mode, operand)
	}
	return nil
}

func (c *compiler) compileIndexWrite(name, idxExpr, rhs string) *vmerr.Error {
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
	c.emitMov(bytecode.ModeReg, 1, bytecode.ModeReg, 0)
	if err := c.compileExprIntoR0(rhs); err != nil {
		return err
	}
	c.emitIndWrite(arrMode, arrOperand, bytecode.ModeReg, 1)
	return nil
}

// compileCallStmt compiles a call used for effect; every returned value is
// popped and discarded.
func (c *compiler) compileCallStmt(stmt string) *vmerr.Error {
	nrets, err := c.compileCallMultiPush(stmt)
	if err != nil {
		return err
	}
	for i := 0; i < nrets; i++ {
		c.emitPop(bytecode.ModeReg, 0)
		c.popAnon()
	}
	return nil
}

// posAfter returns the absolute position in body corresponding to the
// offset a helper reported relative to the slice it was handed starting at
// start.
func posAfter(body string, start int, rest string) int {
	return len(body) - len(rest)
}

// findTopLevelAssignEq finds a bare '=' at depth 0 that isn't part of ==,
// <=, >=, or !=.
func findTopLevelAssignEq(s string) (int, bool) {
	depth := 0
	inStr := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inStr = !inStr
		case inStr:
			continue
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case depth == 0 && c == '=':
			prev := byte(0)
			if i > 0 {
				prev = s[i-1]
			}
			next := byte(0)
			if i+1 < len(s) {
				next = s[i+1]
			}
			if next == '=' || prev == '=' || prev == '<' || prev == '>' || prev == '!' {
				continue
			}
			return i, true
		}
	}
	return -1, false
}
