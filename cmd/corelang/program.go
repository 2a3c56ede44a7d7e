package main

import (
	"fmt"
	"strings"
)

// parseProgram splits a source file into named function literals of the
// form "name = (args) => (rets) { body }" — the top-level program layout
// this command line front end understands. It is CLI-level convenience,
// not part of the core grammar: internal/funcc compiles one function
// literal at a time and has no opinion on how a multi-function source file
// names and separates them.
func parseProgram(src string) (sources map[string]string, order []string, err error) {
	sources = make(map[string]string)
	pos := 0
	for {
		pos = skipSpace(src, pos)
		if pos >= len(src) {
			break
		}
		nameStart := pos
		for pos < len(src) && isIdentByte(src[pos]) {
			pos++
		}
		if pos == nameStart {
			return nil, nil, fmt.Errorf("program: expected a function name at byte %d", pos)
		}
		name := src[nameStart:pos]
		pos = skipSpace(src, pos)
		if pos >= len(src) || src[pos] != '=' {
			return nil, nil, fmt.Errorf("program: expected '=' after %q", name)
		}
		pos++
		pos = skipSpace(src, pos)
		start := pos
		end, merr := matchFunctionLiteral(src, pos)
		if merr != nil {
			return nil, nil, fmt.Errorf("program: in %q: %w", name, merr)
		}
		sources[name] = src[start:end]
		order = append(order, name)
		pos = end
	}
	return sources, order, nil
}

// matchFunctionLiteral expects s[pos:] to begin a "(args) => (rets) {
// body }" literal and returns the index just past its closing brace.
func matchFunctionLiteral(s string, pos int) (int, error) {
	pos, err := matchBalanced(s, pos, '(', ')')
	if err != nil {
		return 0, err
	}
	pos = skipSpace(s, pos)
	if !strings.HasPrefix(s[pos:], "=>") {
		return 0, fmt.Errorf("expected '=>' at byte %d", pos)
	}
	pos = skipSpace(s, pos+2)
	pos, err = matchBalanced(s, pos, '(', ')')
	if err != nil {
		return 0, err
	}
	pos = skipSpace(s, pos)
	pos, err = matchBalanced(s, pos, '{', '}')
	if err != nil {
		return 0, err
	}
	return pos, nil
}

// matchBalanced expects s[pos] == open and returns the index just past the
// matching close, tracking quoted strings so braces/parens inside string
// literals don't throw off the depth count.
func matchBalanced(s string, pos int, open, close byte) (int, error) {
	if pos >= len(s) || s[pos] != open {
		return 0, fmt.Errorf("expected %q at byte %d", rune(open), pos)
	}
	depth := 0
	inStr := false
	for i := pos; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == pos || s[i-1] != '\\'):
			inStr = !inStr
		case inStr:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced %q", rune(open))
}

func skipSpace(s string, pos int) int {
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
