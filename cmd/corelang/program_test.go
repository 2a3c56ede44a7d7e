package main

import (
	"testing"

	"corelang/internal/container"
	"corelang/internal/funcc"
)

func TestParseProgramSplitsNamedFunctions(t *testing.T) {
	src := `
add = (int a, int b) => (int) { return a+b; }
main = () => (int) { return add(3, 4); }
`
	sources, order, err := parseProgram(src)
	if err != nil {
		t.Fatalf("parseProgram: %v", err)
	}
	if len(order) != 2 || order[0] != "add" || order[1] != "main" {
		t.Fatalf("got order %v, want [add main]", order)
	}
	if _, ok := sources["add"]; !ok {
		t.Fatal("missing \"add\" source")
	}
	if _, ok := sources["main"]; !ok {
		t.Fatal("missing \"main\" source")
	}
}

func TestParseProgramAndDisassemble(t *testing.T) {
	src := `main = () => (int) { int a = 1; int b = 2; return a+b; }`
	sources, _, err := parseProgram(src)
	if err != nil {
		t.Fatalf("parseProgram: %v", err)
	}
	ctx := container.NewContext()
	fns, cerr := funcc.CompileProgram(sources, ctx)
	if cerr != nil {
		t.Fatalf("CompileProgram: %v", cerr)
	}
	out := disassemble(fns["main"])
	if out == "" {
		t.Fatal("expected non-empty disassembly")
	}
}
