package value

import (
	"strconv"
	"strings"

	"corelang/internal/vmerr"
)

// Hint forces the type a literal string is parsed as; zero value (HintNone)
// lets ParseLiteral infer the type from the text, matching read_value_string
// with hint=0 in spec.md §4.2.
type Hint int

const (
	HintNone Hint = iota
	HintBool
	HintInt
	HintFloat
	HintString
	HintChar
)

// ParseLiteral parses one literal per spec.md §4.2. With HintNone the type
// is inferred from the leading character/content; with any other hint,
// coercion is forced.
func ParseLiteral(s string, hint Hint) (Value, *vmerr.Error) {
	s = strings.TrimSpace(s)
	if hint != HintNone {
		return parseWithHint(s, hint)
	}
	if s == "" {
		return errv(vmerr.Syntax, "empty literal")
	}
	switch {
	case s[0] == '"':
		return parseStringLiteral(s)
	case s[0] == '[':
		return parseArrayLiteral(s)
	case isIdentStart(s[0]):
		// Looks like a name rather than a literal: mark unresolved so a
		// later compiler pass can try symbol resolution, per the
		// BIT_UNRES_NAME flag in the original source.
		return Value{Tag: Undefined, Unresolved: true, RefKey: s}, vmerr.New(vmerr.BadVal, "unresolved name")
	default:
		return parseNumber(s)
	}
}

func parseWithHint(s string, hint Hint) (Value, *vmerr.Error) {
	switch hint {
	case HintBool:
		switch s {
		case "true", "1":
			return MakeBool(true), nil
		case "false", "0":
			return MakeBool(false), nil
		default:
			return errv(vmerr.BadVal, "not a boolean literal")
		}
	case HintInt:
		return parseIntLiteral(s)
	case HintFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return errv(vmerr.BadVal, "not a float literal")
		}
		return MakeFloat(f), nil
	case HintString:
		return MakeString(strings.Trim(s, "\"")), nil
	case HintChar:
		if len(s) == 0 {
			return errv(vmerr.BadVal, "empty character literal")
		}
		return MakeChar(int64(s[0])), nil
	default:
		return ParseLiteral(s, HintNone)
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func parseStringLiteral(s string) (Value, *vmerr.Error) {
	if len(s) < 2 || s[len(s)-1] != '"' {
		return errv(vmerr.Syntax, "unterminated string literal")
	}
	body := s[1 : len(s)-1]
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			i++
			switch body[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(body[i])
			}
			continue
		}
		sb.WriteByte(c)
	}
	return MakeString(sb.String()), nil
}

// parseArrayLiteral parses "[e1, e2, ...]" recursively, each element with
// no hint, per spec.md §4.2.
func parseArrayLiteral(s string) (Value, *vmerr.Error) {
	if len(s) < 2 || s[len(s)-1] != ']' {
		return errv(vmerr.Syntax, "unterminated array literal")
	}
	body := s[1 : len(s)-1]
	parts := splitTopLevel(body, ',')
	elems := make([]Value, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := ParseLiteral(p, HintNone)
		if err != nil && !v.Unresolved {
			return Value{}, err
		}
		elems = append(elems, v)
	}
	return MakeArray(elems), nil
}

// SplitTopLevel exposes splitTopLevel for the function compiler, which
// needs the same bracket/paren/quote-aware splitting for call argument
// lists and multi-assignment targets.
func SplitTopLevel(s string, sep byte) []string { return splitTopLevel(s, sep) }

// splitTopLevel splits s on sep, ignoring occurrences nested inside
// brackets/parens/quotes, used by the array literal parser and reused by
// the function compiler for splitting call arguments.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	inStr := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inStr = !inStr
		case inStr:
			continue
		case c == '[' || c == '(':
			depth++
		case c == ']' || c == ')':
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// parseNumber implements the base/float/sign detection rules of spec.md
// §4.2 and §6.
func parseNumber(s string) (Value, *vmerr.Error) {
	orig := s
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return errv(vmerr.Syntax, "not a number: "+orig)
	}
	if strings.ContainsAny(s, ".") || (strings.ContainsAny(s, "eE") && !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X")) {
		f, err := strconv.ParseFloat(orig, 64)
		if err != nil {
			return errv(vmerr.Syntax, "not a float: "+orig)
		}
		return MakeFloat(f), nil
	}
	return parseIntLiteral(orig)
}

func parseIntLiteral(s string) (Value, *vmerr.Error) {
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	base := 10
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		base = 16
		s = s[2:]
	case strings.HasPrefix(s, "0b") || strings.HasPrefix(s, "0B"):
		base = 2
		s = s[2:]
	case len(s) > 1 && s[0] == '0':
		base = 8
		s = s[1:]
	}
	if s == "" {
		return errv(vmerr.Syntax, "empty integer literal")
	}
	n, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return errv(vmerr.Syntax, "not an integer literal")
	}
	if neg {
		n = -n
	}
	return MakeInt(n), nil
}

// FormatInBase renders i in base b (2, 8, 10, or 16), the inverse of
// parseIntLiteral for a given base, used by the round-trip test property in
// spec.md §8.
func FormatInBase(i int64, b int) string {
	neg := i < 0
	if neg {
		i = -i
	}
	digits := strconv.FormatInt(i, b)
	if neg {
		return "-" + digits
	}
	return digits
}
