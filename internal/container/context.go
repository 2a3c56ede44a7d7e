package container

import "corelang/internal/value"

// Location sentinels returned by Context.Resolve, per spec.md §3: a
// non-negative result is a call-stack slot offset, LocGlobal means the name
// was found in globals, and LocNotFound means neither.
const (
	LocGlobal   = -1
	LocNotFound = -2
)

// Context is the pair (named call stack, global hash table) shared by the
// compiler and the VM.
type Context struct {
	Stack   *NamedStack
	Globals *HashTable
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{Stack: NewNamedStack(), Globals: NewHashTable()}
}

// Resolve looks up name, searching the call stack first and then globals,
// returning the sentinels described above.
func (c *Context) Resolve(name string) int {
	if off, ok := c.Stack.Find(name); ok {
		return off
	}
	if _, ok := c.Globals.Lookup(name); ok {
		return LocGlobal
	}
	return LocNotFound
}

// Get fetches name's current value, wherever it resolved to.
func (c *Context) Get(name string) (value.Value, bool) {
	if off, ok := c.Stack.Find(name); ok {
		_, v, _ := c.Stack.AtFromTop(off)
		return v, true
	}
	return c.Globals.Lookup(name)
}
