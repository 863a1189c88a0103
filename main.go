// ripvm compiles source from a small Ruby-like scripting language into the
// compiler's tuple form, decodes it into an instruction sequence, and runs
// it on the stack-based execution core.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/nolang/ripvm/code"
	"github.com/nolang/ripvm/compiler"
	"github.com/nolang/ripvm/host"
	"github.com/nolang/ripvm/lexer"
	"github.com/nolang/ripvm/parser"
	"github.com/nolang/ripvm/repl"
	"github.com/nolang/ripvm/value"
	"github.com/nolang/ripvm/vm"
)

const version = "0.1.0"

// printUsage displays custom usage information.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `ripvm v%s

USAGE:
    %s [OPTIONS]

DESCRIPTION:
    ripvm decodes a pre-compiled instruction sequence and runs it on the
    stack-based execution core. Without any flags, it starts an interactive
    REPL (Read-Eval-Print-Loop).

OPTIONS:
    -f, --file <path>       Execute a script file
    -e, --eval <code>       Evaluate an expression and print the result
    --dump=insns <path>     Decode a script's instruction sequences and
                            print them, breadth-first, instead of running
                            them
    -d, --debug             Enable debug mode with more verbose output
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    # Start interactive REPL
    %s

    # Execute a script file
    %s -f script.rip
    %s --file script.rip

    # Evaluate an expression
    %s -e "p 2 + 3"

    # Disassemble a script's instruction sequences
    %s --dump=insns script.rip

`, version, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	fileFlag := flag.String("file", "", "Execute a script file")
	evalFlag := flag.String("eval", "", "Evaluate an expression and print the result")
	debugFlag := flag.Bool("debug", false, "Enable debug mode with more verbose output")
	versionFlag := flag.Bool("version", false, "Show version information")
	dumpFlag := flag.String("dump", "", `Dump form to print instead of running ("insns")`)

	flag.StringVar(fileFlag, "f", "", "Execute a script file")
	flag.StringVar(evalFlag, "e", "", "Evaluate an expression and print the result")
	flag.BoolVar(debugFlag, "d", false, "Enable debug mode with more verbose output")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("ripvm v%s\n", version)
		return
	}

	if *dumpFlag != "" {
		if *dumpFlag != "insns" {
			fmt.Fprintf(os.Stderr, "unrecognized --dump form %q (only \"insns\" is supported)\n", *dumpFlag)
			os.Exit(1)
		}
		target := *fileFlag
		if target == "" {
			target = flag.Arg(0)
		}
		if target == "" {
			fmt.Fprintln(os.Stderr, "--dump=insns requires a file argument")
			os.Exit(1)
		}
		dumpInsns(target)
		return
	}

	if *fileFlag != "" {
		executeFile(*fileFlag, *debugFlag)
		return
	}
	if arg := flag.Arg(0); arg != "" {
		executeFile(arg, *debugFlag)
		return
	}

	if *evalFlag != "" {
		evaluateExpression(*evalFlag)
		return
	}

	username := "unknown"
	if usr, err := user.Current(); err == nil {
		username = usr.Username
	}

	repl.Start(username, repl.Options{Debug: *debugFlag})
}

// decode lexes, parses, and compiles source into a decoded top-level ISeq,
// exiting the process on any front-end error.
func decode(source string) *code.ISeq {
	l := lexer.New(source)
	p := parser.New(l)
	program := p.ParseProgram()
	if len(p.Errors()) != 0 {
		printParserErrors(p.Errors())
		os.Exit(1)
	}

	comp := compiler.New()
	tuple, err := comp.Compile(program)
	if err != nil {
		fmt.Printf("Compilation error: %s\n", err)
		os.Exit(1)
	}

	iseq, err := code.Decode(tuple, value.MainValue)
	if err != nil {
		fmt.Printf("Decode error: %s\n", err)
		os.Exit(1)
	}
	return iseq
}

// executeFile reads, decodes, and runs a script file under a fresh
// execution context, printing a debug-mode trace of the returned value.
func executeFile(filename string, debug bool) {
	cleaned := filepath.Clean(filename)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		fmt.Printf("Error getting absolute path: %s\n", err)
		os.Exit(1)
	}

	//nolint:gosec // the path comes from a trusted CLI argument, not remote input
	content, err := os.ReadFile(absolute)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	iseq := decode(string(content))
	ctx := vm.NewContext(host.NewDefault())
	result, err := ctx.Eval(iseq)
	if err != nil {
		fmt.Printf("VM error: %s\n", err)
		os.Exit(1)
	}

	if debug {
		fmt.Println(result.Inspect())
	}
}

// evaluateExpression decodes and runs a single expression, always printing
// its result (debug mode adds nothing extra here: there is no file path to
// report).
func evaluateExpression(expr string) {
	iseq := decode(expr)
	ctx := vm.NewContext(host.NewDefault())
	result, err := ctx.Eval(iseq)
	if err != nil {
		fmt.Printf("VM error: %s\n", err)
		os.Exit(1)
	}
	fmt.Println(result.Inspect())
}

// dumpInsns implements `ripvm --dump=insns <file>`: decode the file's
// top-level instruction sequence and print every instruction in every
// nested ISeq, breadth-first, separated by "== disasm" banners.
func dumpInsns(filename string) {
	cleaned := filepath.Clean(filename)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		fmt.Printf("Error getting absolute path: %s\n", err)
		os.Exit(1)
	}

	//nolint:gosec // the path comes from a trusted CLI argument, not remote input
	content, err := os.ReadFile(absolute)
	if err != nil {
		fmt.Printf("Error reading file: %s\n", err)
		os.Exit(1)
	}

	iseq := decode(string(content))
	fmt.Print(code.Disassemble(iseq))
}

// printParserErrors prints parser errors to stderr.
func printParserErrors(errors []string) {
	_, _ = fmt.Fprintln(os.Stderr, "Parser errors:")
	for _, msg := range errors {
		_, _ = fmt.Fprintln(os.Stderr, "\t"+strings.TrimSpace(msg))
	}
}
