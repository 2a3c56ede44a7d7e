package optree

import (
	"corelang/internal/container"
	"corelang/internal/value"
	"corelang/internal/vmerr"
)

// Eval walks the tree, resolving operation-tree-reference leaves against
// stack at evaluation time (spec.md §4.3: "Evaluation (eval) walks the tree
// recursively, resolving op-reference leaves against the supplied value
// stack at eval time").
func Eval(n *Node, stack *container.NamedStack) (value.Value, *vmerr.Error) {
	if n == nil {
		return value.Undef(), vmerr.New(vmerr.Syntax, "nil node")
	}
	if n.IsLeaf() {
		return resolveLeaf(n.Val, stack)
	}

	// OpNot is unary: only Left is populated.
	if n.Op == OpNot {
		v, err := Eval(n.Left, stack)
		if err != nil {
			return v, err
		}
		return value.Not(v)
	}

	l, err := Eval(n.Left, stack)
	if err != nil {
		return l, err
	}
	r, err := Eval(n.Right, stack)
	if err != nil {
		return r, err
	}

	switch n.Op {
	case OpAdd:
		return value.Add(l, r)
	case OpSub:
		return value.Sub(l, r)
	case OpMul:
		return value.Mul(l, r)
	case OpDiv:
		return value.Div(l, r)
	case OpEq:
		return value.Eq(l, r)
	case OpGt:
		return value.Gt(l, r)
	case OpGe:
		return value.Ge(l, r)
	case OpLt:
		// < is sugar for swapped >, per spec.md §4.1.
		return value.Gt(r, l)
	case OpLe:
		// <= is sugar for swapped >=.
		return value.Ge(r, l)
	case OpAnd:
		return value.And(l, r)
	case OpOr:
		return value.Or(l, r)
	default:
		return value.Undef(), vmerr.Newf(vmerr.Syntax, "unknown operator %v", n.Op)
	}
}

func resolveLeaf(v value.Value, stack *container.NamedStack) (value.Value, *vmerr.Error) {
	if v.Tag != value.StackRef {
		return v, nil
	}
	if stack == nil {
		return value.Undef(), vmerr.New(vmerr.BadVal, "stack reference with no stack to resolve against")
	}
	_, resolved, ok := stack.AtFromTop(int(v.Ref))
	if !ok {
		return value.Undef(), vmerr.New(vmerr.Range, "stack reference out of range")
	}
	return resolved, nil
}
