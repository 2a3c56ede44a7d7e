// Package value implements the tagged value system: the runtime
// representation shared by the expression compiler, the function compiler,
// and the virtual machine.
//
// The original C source (see original_source/src/values.h) represents a
// value as a byte tag with two flag bits overlaid on it (TOP_BIT,
// BIT_UNRES_NAME) plus a union payload. Per the spec's design notes this is
// ported as a sum type: an explicit Tag field plus two explicit booleans on
// the variants that need them, rather than bit-packed flags on a shared tag
// byte.
package value

import "fmt"

// Tag identifies which variant of Value is populated.
type Tag int

const (
	Undefined Tag = iota // alias: Error
	Char
	Bool
	Int
	Float
	String
	Array
	Func
	StackRef
	OpRef
)

var tagNames = [...]string{
	Undefined: "undefined",
	Char:      "char",
	Bool:      "bool",
	Int:       "int",
	Float:     "float",
	String:    "string",
	Array:     "array",
	Func:      "func",
	StackRef:  "ref",
	OpRef:     "opref",
}

func (t Tag) String() string {
	if int(t) >= 0 && int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// Value is the tagged union every operation in this module consumes and
// produces. Only the field(s) matching Tag are meaningful.
type Value struct {
	Tag Tag

	// Char/Bool/Int share the integer payload; Char additionally participates
	// in integer arithmetic (see ops.go), matching the C source where
	// VT_CHAR and VT_INT are both backed by an integral cell.
	Int   int64
	Float float64

	Str *Str
	Arr *ArrayData
	Fn  *Function

	// Ref is populated when Tag is StackRef and Global is false: an offset
	// into a container.NamedStack. References built by MAKE_PTR measure it
	// from the bottom; operation-tree leaves built by internal/optree measure
	// it from the top. When Global is true, RefKey names a global-table entry
	// instead.
	Ref        int64
	RefKey     string
	Global     bool // overlays the original TOP_BIT
	Unresolved bool // overlays the original BIT_UNRES_NAME

	// Op is populated when Tag is OpRef, carrying a pointer to an
	// already-built operation tree node rather than a slot index.
	Op interface{}
}

// Undef returns the zero/undefined value, used both for "no value yet" and
// doubling as the tag for a propagated error marker per the original
// source's VT_UNDEF == VT_ERROR aliasing.
func Undef() Value { return Value{Tag: Undefined} }

func MakeChar(c int64) Value { return Value{Tag: Char, Int: c} }
func MakeBool(b bool) Value {
	var i int64
	if b {
		i = 1
	}
	return Value{Tag: Bool, Int: i}
}
func MakeInt(i int64) Value     { return Value{Tag: Int, Int: i} }
func MakeFloat(f float64) Value { return Value{Tag: Float, Float: f} }

// MakeString constructs an owned heap string from s.
func MakeString(s string) Value { return Value{Tag: String, Str: NewStr(s)} }

// MakeArray constructs an owned heap array from elems (copied by value,
// shallow: heap payloads inside elems are shared, matching push/pop
// semantics described in §5 Ownership discipline).
func MakeArray(elems []Value) Value {
	a := NewArray(len(elems))
	a.Elements = append(a.Elements, elems...)
	return Value{Tag: Array, Arr: a}
}

func MakeFunc(fn *Function) Value { return Value{Tag: Func, Fn: fn} }

// MakeStackRef builds a reference value. When global is true, ref is ignored
// and key names a global-table entry; otherwise ref is a stack offset,
// bottom-relative when built by MAKE_PTR (see §4.5) and top-relative in an
// operation-tree leaf.
func MakeStackRef(ref int64, key string, global bool) Value {
	return Value{Tag: StackRef, Ref: ref, RefKey: key, Global: global}
}

// Truthy reports whether v is nonzero: Bool, Int and Char by their integer
// payload, Float by its value. Every other tag is false.
func (v Value) Truthy() bool {
	switch v.Tag {
	case Bool, Int, Char:
		return v.Int != 0
	case Float:
		return v.Float != 0
	default:
		return false
	}
}

func (v Value) IsError() bool { return v.Tag == Undefined }

// Equal is Go-level structural equality used by tests; it is NOT the language's == operator (see ops.go for that,
// which has its own coercion and failure rules).
func (v Value) Equal(o Value) bool {
	if v.Tag != o.Tag {
		return false
	}
	switch v.Tag {
	case Undefined:
		return true
	case Char, Bool, Int:
		return v.Int == o.Int
	case Float:
		return v.Float == o.Float
	case String:
		return v.Str.String() == o.Str.String()
	case Array:
		if v.Arr.Len() != o.Arr.Len() {
			return false
		}
		for i := range v.Arr.Elements {
			if !v.Arr.Elements[i].Equal(o.Arr.Elements[i]) {
				return false
			}
		}
		return true
	case StackRef:
		return v.Ref == o.Ref && v.RefKey == o.RefKey && v.Global == o.Global
	default:
		return v.Fn == o.Fn
	}
}

// DeepCopy produces a value whose heap payloads (if any) are disjoint from
// v's, matching the spec's "copy(a) owns disjoint memory" testable property
// and the original source's insert_deep/POP semantics for assignment.
func DeepCopy(v Value) Value {
	switch v.Tag {
	case String:
		return Value{Tag: String, Str: v.Str.Clone()}
	case Array:
		out := make([]Value, len(v.Arr.Elements))
		for i, e := range v.Arr.Elements {
			out[i] = DeepCopy(e)
		}
		a := NewArray(len(out))
		a.Elements = out
		a.ElemType = v.Arr.ElemType
		return Value{Tag: Array, Arr: a}
	default:
		return v
	}
}

// GoString supports %#v-style debugging without leaking internal pointer
// identity into ordinary formatting (see Format for the canonical language
// stringification).
func (v Value) GoString() string {
	return fmt.Sprintf("Value{Tag:%s}", v.Tag)
}
