package funcc

import (
	"strings"

	"corelang/internal/container"
	"corelang/internal/value"
	"corelang/internal/vmerr"
)

// Compile parses source as "(args) => (rets) { body }" and emits a
// value.Function executable by internal/vm. funcs, if non-nil, lets call
// sites resolve another function's return-value count at compile time (for
// multi-assignment and for trimming an N-valued call used as a single
// expression); it is typically built by a prior CompileProgram pass.
func Compile(name, source string, ctx *container.Context, funcs map[string]*value.Function) (*value.Function, *vmerr.Error) {
	argsText, retsText, body, err := splitSignature(source)
	if err != nil {
		return nil, err
	}

	argNames, argTypes, err := parseParamList(argsText, true)
	if err != nil {
		return nil, err
	}
	_, retTypes, err := parseParamList(retsText, false)
	if err != nil {
		return nil, err
	}

	fn := value.NewFunction(name, len(argTypes), retTypes)
	c := &compiler{ctx: ctx, fn: fn, funcs: funcs}

	// Everything this compilation pushes (arguments, declared locals,
	// expression placeholders) is popped again before returning, success
	// or failure, leaving the context unchanged.
	startDepth := ctx.Stack.Len()
	defer func() {
		for ctx.Stack.Len() > startDepth {
			ctx.Stack.Pop()
		}
	}()

	for i, n := range argNames {
		c.ctx.Stack.Push(n, zeroValue(argTypes[i]))
		c.framePushes++
	}

	if err := c.compileBlock(body); err != nil {
		return nil, err
	}
	// Fall-off-the-end return for bodies whose last path lacks an
	// explicit return; unreachable (and harmless) otherwise.
	c.emitReturn(0, int64(c.framePushes))

	return fn, nil
}

// CompileProgram compiles a set of mutually-visible functions in two passes
// so forward and mutual calls resolve: pass one allocates a Function shell
// per name and registers it as a global so call sites can find it by name;
// pass two compiles each body in place, mutating the shells pass one
// published (value.Value.Fn is a pointer, so earlier-registered references
// observe the finished code once pass two completes).
func CompileProgram(sources map[string]string, ctx *container.Context) (map[string]*value.Function, *vmerr.Error) {
	shells := make(map[string]*value.Function, len(sources))
	for name, src := range sources {
		argsText, retsText, _, err := splitSignature(src)
		if err != nil {
			return nil, err
		}
		_, argTypes, err := parseParamList(argsText, true)
		if err != nil {
			return nil, err
		}
		_, retTypes, err := parseParamList(retsText, false)
		if err != nil {
			return nil, err
		}
		fn := value.NewFunction(name, len(argTypes), retTypes)
		shells[name] = fn
		ctx.Globals.Insert(name, value.MakeFunc(fn))
	}

	for name, src := range sources {
		compiled, err := Compile(name, src, ctx, shells)
		if err != nil {
			return nil, err
		}
		*shells[name] = *compiled
	}
	return shells, nil
}

// splitSignature tears "(args) => (rets) { body }" apart into its three raw
// text spans. The argument list's parentheses are optional (spec.md §4.4);
// the return list and body braces are not.
func splitSignature(source string) (argsText, retsText, body string, err *vmerr.Error) {
	s := source
	arrow := topLevelIndex(s, "=>")
	if arrow < 0 {
		return "", "", "", fail(vmerr.Syntax, "missing => in function source")
	}
	argsRaw := strings.TrimSpace(s[:arrow])
	if len(argsRaw) >= 2 && argsRaw[0] == '(' && argsRaw[len(argsRaw)-1] == ')' {
		argsRaw = strings.TrimSpace(argsRaw[1 : len(argsRaw)-1])
	}

	rest := strings.TrimSpace(s[arrow+2:])
	if rest == "" || rest[0] != '(' {
		return "", "", "", fail(vmerr.Syntax, "missing return type list")
	}
	retsRaw, rest2, perr := parseParenGroup(rest, 0)
	if perr != nil {
		return "", "", "", perr
	}
	rest2 = strings.TrimSpace(rest2)
	if rest2 == "" || rest2[0] != '{' {
		return "", "", "", fail(vmerr.Syntax, "missing function body block")
	}
	bodyRaw, _, perr := parseBraceGroup(rest2, 0)
	if perr != nil {
		return "", "", "", perr
	}
	return argsRaw, retsRaw, bodyRaw, nil
}

// parseParamList parses a comma-separated "type name" list (names optional
// for the return list). typeNameToTag rejects unknown type keywords.
func parseParamList(s string, wantNames bool) ([]string, []value.Tag, *vmerr.Error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, nil
	}
	parts := value.SplitTopLevel(s, ',')
	names := make([]string, 0, len(parts))
	tags := make([]value.Tag, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(strings.TrimSpace(p))
		if len(fields) == 0 {
			continue
		}
		tag, ok := typeNameToTag[fields[0]]
		if !ok {
			return nil, nil, fail(vmerr.Syntax, "unknown type keyword: "+fields[0])
		}
		tags = append(tags, tag)
		if len(fields) > 1 {
			names = append(names, fields[1])
		} else if wantNames {
			return nil, nil, fail(vmerr.Syntax, "argument missing a name: "+p)
		} else {
			names = append(names, "")
		}
	}
	return names, tags, nil
}

// topLevelIndex finds the first occurrence of sep outside parens/brackets/
// braces and string literals.
func topLevelIndex(s, sep string) int {
	depth := 0
	inStr := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inStr = !inStr
		case inStr:
			continue
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		case depth == 0 && strings.HasPrefix(s[i:], sep):
			return i
		}
	}
	return -1
}

// parseParenGroup expects s[pos] == '(' (after skipping whitespace) and
// returns the text between the matching parens plus the position right
// after the closing paren.
func parseParenGroup(s string, pos int) (inner string, rest string, err *vmerr.Error) {
	return matchGroup(s, pos, '(', ')')
}

// parseBraceGroup is parseParenGroup for { }.
func parseBraceGroup(s string, pos int) (inner string, rest string, err *vmerr.Error) {
	return matchGroup(s, pos, '{', '}')
}

func matchGroup(s string, pos int, open, close byte) (string, string, *vmerr.Error) {
	pos = skipWS(s, pos)
	if pos >= len(s) || s[pos] != open {
		return "", "", fail(vmerr.Syntax, "expected '"+string(rune(open))+"'")
	}
	depth := 0
	inStr := false
	start := pos
	for i := pos; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inStr = !inStr
		case inStr:
			continue
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return s[start+1 : i], s[i+1:], nil
			}
		}
	}
	return "", "", fail(vmerr.Syntax, "unbalanced '"+string(rune(open))+"'")
}

func skipWS(s string, pos int) int {
	for pos < len(s) {
		switch s[pos] {
		case ' ', '\t', '\n', '\r', ';':
			pos++
			continue
		}
		break
	}
	return pos
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// matchKeyword reports whether s[pos:] starts with kw at a word boundary.
func matchKeyword(s string, pos int, kw string) bool {
	if pos+len(kw) > len(s) || s[pos:pos+len(kw)] != kw {
		return false
	}
	end := pos + len(kw)
	if end < len(s) && isIdentByte(s[end]) {
		return false
	}
	return true
}

// scanSimpleStatementEnd scans from pos for the end of a simple statement: a
// ';' or newline at depth 0, or end of string. Parens/brackets and quotes
// are respected so commas and operators inside them don't end the scan
// early.
func scanSimpleStatementEnd(s string, pos int) int {
	depth := 0
	inStr := false
	i := pos
	for i < len(s) {
		c := s[i]
		switch {
		case c == '"' && (i == pos || s[i-1] != '\\'):
			inStr = !inStr
		case inStr:
		case c == '(' || c == '[':
			depth++
		case c == ')' || c == ']':
			depth--
		case depth == 0 && (c == ';' || c == '\n'):
			return i
		}
		i++
	}
	return i
}

func firstToken(s string) string {
	i := 0
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	return s[:i]
}
