// cmd/corelang is the process entry point the spec.md §1 Scope section
// declares an external collaborator rather than core: a thin hand-rolled
// subcommand dispatcher in the teacher's style (cmd/sentra/main.go), not a
// CLI framework.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"corelang/internal/container"
	"corelang/internal/funcc"
	"corelang/internal/optree"
	"corelang/internal/trace"
	"corelang/internal/value"
	"corelang/internal/vm"
)

const version = "0.1.0"

// commandAliases mirrors the teacher's short-form aliases.
var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
	"d": "disasm",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Println("corelang", version)
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: corelang run <file> [entry]")
			os.Exit(1)
		}
		entry := "main"
		if len(args) >= 3 {
			entry = args[2]
		}
		if err := runFile(args[1], entry); err != nil {
			log.Fatalf("corelang run: %v", err)
		}
	case "disasm":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: corelang disasm <file> [entry]")
			os.Exit(1)
		}
		entry := "main"
		if len(args) >= 3 {
			entry = args[2]
		}
		if err := disasmFile(args[1], entry); err != nil {
			log.Fatalf("corelang disasm: %v", err)
		}
	case "repl":
		startREPL()
	default:
		fmt.Fprintln(os.Stderr, "corelang: unknown command", cmd)
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("corelang - a small bytecode-compiled scripting core")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  corelang run <file> [entry]      Compile and run a program   (alias: r)")
	fmt.Println("  corelang disasm <file> [entry]    Print an entry's bytecode   (alias: d)")
	fmt.Println("  corelang repl                     Start an interactive REPL   (alias: i)")
	fmt.Println("  corelang version                  Print the version")
}

// runFile compiles every function in path and executes entry against a
// fresh context with no pushed arguments — entry must declare zero
// parameters, since this front end has no syntax for passing CLI arguments
// into the call stack the VM expects them already pushed onto (spec.md
// §4.4) — printing whatever entry leaves on top of the stack. A
// CORELANG_TRACE_DB environment variable, if set,
// routes execution through internal/trace's sqlite-backed recorder and
// prints its summary afterward — debug tooling, not part of the language.
func runFile(path, entry string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sources, _, perr := parseProgram(string(src))
	if perr != nil {
		return perr
	}
	ctx := container.NewContext()
	fns, cerr := funcc.CompileProgram(sources, ctx)
	if cerr != nil {
		return cerr
	}
	fn, ok := fns[entry]
	if !ok {
		return fmt.Errorf("no function named %q in %s", entry, path)
	}

	m := vm.New(ctx)
	if dbPath := os.Getenv("CORELANG_TRACE_DB"); dbPath != "" {
		rec, terr := trace.Open(dbPath)
		if terr != nil {
			return terr
		}
		defer rec.Close()
		m.SetTracer(rec)
		defer fmt.Fprint(os.Stderr, rec.Summary())
	}

	before := ctx.Stack.Len()
	if verr := m.Run(fn); verr != nil {
		return verr
	}
	for i := 0; i < ctx.Stack.Len()-before; i++ {
		_, v, ok := ctx.Stack.AtFromTop(i)
		if !ok {
			break
		}
		fmt.Println(value.Format(v))
	}
	return nil
}

func disasmFile(path, entry string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	sources, _, perr := parseProgram(string(src))
	if perr != nil {
		return perr
	}
	ctx := container.NewContext()
	fns, cerr := funcc.CompileProgram(sources, ctx)
	if cerr != nil {
		return cerr
	}
	fn, ok := fns[entry]
	if !ok {
		return fmt.Errorf("no function named %q in %s", entry, path)
	}
	fmt.Print(disassemble(fn))
	return nil
}

// startREPL evaluates one expression per line against a context shared by
// the whole session. The expression grammar has no assignment, so a line
// cannot bind a name for later lines to use. The prompt is only
// colorized when stdout is an interactive terminal, grounded on the
// teacher's internal/repl combined with its go-isatty indirect dependency
// put to direct use here.
func startREPL() {
	isTTY := isatty.IsTerminal(os.Stdout.Fd())
	prompt := "> "
	if isTTY {
		prompt = "\x1b[36m>\x1b[0m "
	}

	ctx := container.NewContext()
	scanner := bufio.NewScanner(os.Stdin)
	started := time.Now()
	evaluated := int64(0)
	fmt.Println("corelang REPL | type 'exit' to quit, ':stats' for session stats")
	for {
		fmt.Print(prompt)
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "exit" || line == "quit" {
			return
		}
		if line == ":stats" {
			fmt.Printf("%s expressions evaluated since %s\n",
				humanize.Comma(evaluated), humanize.Time(started))
			continue
		}
		if line == "" {
			continue
		}

		node, perr := optree.Gen(line, ctx.Stack)
		if perr != nil {
			fmt.Fprintln(os.Stderr, perr)
			continue
		}
		result, eerr := optree.Eval(node, ctx.Stack)
		if eerr != nil {
			fmt.Fprintln(os.Stderr, eerr)
			continue
		}
		evaluated++
		fmt.Println(value.Format(result))
	}
}
