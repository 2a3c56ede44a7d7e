package optree

import (
	"strings"

	"corelang/internal/container"
	"corelang/internal/value"
	"corelang/internal/vmerr"
)

// class is an operator-precedence class, ordered weakest (0) to strongest.
type class int

const (
	classLogical class = iota
	classComparison
	classAdditive
	classMultiplicative
	classCount
)

// candidate records where, and as which Op, a class's rightmost top-level
// occurrence was found.
type candidate struct {
	found bool
	index int
	op    Op
	width int
}

// Gen parses an infix expression into an operation tree. When stack is
// non-nil, bare identifiers that aren't literals are resolved against it
// and become stack-reference leaves; when stack is nil, any unresolved
// identifier is a SYNTAX error.
func Gen(source string, stack *container.NamedStack) (*Node, *vmerr.Error) {
	s := strings.TrimSpace(source)
	if s == "" {
		return nil, vmerr.New(vmerr.Syntax, "empty expression")
	}
	return parseExpr(s, stack)
}

func parseExpr(s string, stack *container.NamedStack) (*Node, *vmerr.Error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, vmerr.New(vmerr.Syntax, "empty expression")
	}

	cands := findCandidates(s)
	for c := classLogical; c < classCount; c++ {
		if cands[c].found {
			cand := cands[c]
			left := s[:cand.index]
			right := s[cand.index+cand.width:]
			l, err := parseExpr(left, stack)
			if err != nil {
				return nil, err
			}
			r, err := parseExpr(right, stack)
			if err != nil {
				return nil, err
			}
			return inner(cand.op, l, r), nil
		}
	}
	return parseUnaryAtom(s, stack)
}

// findCandidates scans s once, recording for each class the rightmost
// top-level occurrence of any operator belonging to that class. Splitting
// there makes a chain of same-class operators associate to the left:
// "a-b-c" parses as (a-b)-c and "a/b*c" as (a/b)*c.
func findCandidates(s string) [classCount]candidate {
	var out [classCount]candidate
	depth := 0
	inStr := false
	prevSignificant := byte(0)

	record := func(c class, idx int, op Op, width int) {
		out[c] = candidate{found: true, index: idx, op: op, width: width}
	}

	i := 0
	for i < len(s) {
		ch := s[i]
		switch {
		case ch == '"':
			inStr = !inStr
			i++
			prevSignificant = ch
			continue
		case inStr:
			i++
			continue
		case ch == '(' || ch == '[':
			depth++
			i++
			prevSignificant = ch
			continue
		case ch == ')' || ch == ']':
			depth--
			i++
			prevSignificant = ch
			continue
		case ch == ' ' || ch == '\t':
			i++
			continue
		}

		if depth == 0 {
			two := ""
			if i+1 < len(s) {
				two = s[i : i+2]
			}
			switch two {
			case "||":
				record(classLogical, i, OpOr, 2)
				i += 2
				prevSignificant = '|'
				continue
			case "&&":
				record(classLogical, i, OpAnd, 2)
				i += 2
				prevSignificant = '&'
				continue
			case "==":
				record(classComparison, i, OpEq, 2)
				i += 2
				prevSignificant = '='
				continue
			case ">=":
				record(classComparison, i, OpGe, 2)
				i += 2
				prevSignificant = '='
				continue
			case "<=":
				record(classComparison, i, OpLe, 2)
				i += 2
				prevSignificant = '='
				continue
			}
			switch ch {
			case '>':
				record(classComparison, i, OpGt, 1)
				i++
				prevSignificant = ch
				continue
			case '<':
				record(classComparison, i, OpLt, 1)
				i++
				prevSignificant = ch
				continue
			case '+', '-':
				if isUnaryPosition(prevSignificant) {
					// sign, not a binary operator candidate
					i++
					prevSignificant = ch
					continue
				}
				op := OpAdd
				if ch == '-' {
					op = OpSub
				}
				record(classAdditive, i, op, 1)
				i++
				prevSignificant = ch
				continue
			case '*', '/':
				op := OpMul
				if ch == '/' {
					op = OpDiv
				}
				record(classMultiplicative, i, op, 1)
				i++
				prevSignificant = ch
				continue
			}
		}
		prevSignificant = ch
		i++
	}
	return out
}

// isUnaryPosition reports whether a following '+'/'-' should be read as a
// sign rather than a binary operator: at start-of-string (prev==0) or
// immediately after another operator or an opening paren.
func isUnaryPosition(prev byte) bool {
	if prev == 0 {
		return true
	}
	switch prev {
	case '+', '-', '*', '/', '=', '!', '&', '|', '>', '<', '(', ',':
		return true
	default:
		return false
	}
}

// parseUnaryAtom handles leading unary +/-/! and atoms (parens, literals,
// identifiers).
func parseUnaryAtom(s string, stack *container.NamedStack) (*Node, *vmerr.Error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, vmerr.New(vmerr.Syntax, "empty operand")
	}
	if s[0] == '!' {
		operand, err := parseUnaryAtom(s[1:], stack)
		if err != nil {
			return nil, err
		}
		return inner(OpNot, operand, nil), nil
	}
	if s[0] == '-' {
		operand, err := parseUnaryAtom(s[1:], stack)
		if err != nil {
			return nil, err
		}
		return inner(OpSub, leaf(value.MakeInt(0)), operand), nil
	}
	if s[0] == '+' {
		return parseUnaryAtom(s[1:], stack)
	}
	return parseAtom(s, stack)
}

func parseAtom(s string, stack *container.NamedStack) (*Node, *vmerr.Error) {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' && matchingParen(s) {
		return parseExpr(s[1:len(s)-1], stack)
	}
	v, perr := value.ParseLiteral(s, value.HintNone)
	if perr == nil {
		return leaf(v), nil
	}
	if v.Unresolved && stack != nil {
		if off, ok := stack.Find(s); ok {
			ref := value.MakeStackRef(int64(off), s, false)
			return leaf(ref), nil
		}
	}
	return nil, vmerr.New(vmerr.Syntax, "cannot resolve atom: "+s)
}

// matchingParen reports whether s's first '(' matches its last ')', i.e.
// the whole string is wrapped in one redundant pair of parens rather than
// two adjacent parenthesized groups like "(a)(b)".
func matchingParen(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}
