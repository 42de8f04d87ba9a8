// cmd/bfc/main.go
package main

import (
	"fmt"
	"log"
	"os"

	"bfc/cmd/bfc/commands"
)

const version = "1.0.0"

// commandAliases mirrors the single-letter shortcuts a hand-rolled argv
// dispatcher grows over time: each maps to the canonical subcommand name
// before dispatch looks at args[0].
var commandAliases = map[string]string{
	"i": "interpret",
	"c": "compile",
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
		return
	case "--version", "-v", "version":
		fmt.Println("bfc version " + version)
		return
	}

	var err error
	switch cmd {
	case "interpret":
		err = commands.Interpret(args[1:])
	case "compile":
		err = commands.Compile(args[1:])
	case "check":
		err = commands.Check(args[1:])
	case "dump":
		err = commands.Dump(args[1:])
	case "completions":
		err = commands.Completions(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "bfc: unknown command %q\n", args[0])
		showUsage()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("bfc: %v", err)
	}
}

func showUsage() {
	fmt.Println("bfc - an optimizing Brainfuck toolchain")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bfc interpret <file>   Run a program directly            (alias: i)")
	fmt.Println("  bfc compile <file>     Emit a standalone C program       (alias: c)")
	fmt.Println("  bfc check <file>       Parse and rewrite only, report a summary")
	fmt.Println("  bfc dump <file>        Print the lowered instruction stream")
	fmt.Println("  bfc completions <shell>  Generate shell completions (bash|zsh|fish)")
	fmt.Println()
	fmt.Println("Global flags (interpret, compile, check, dump):")
	fmt.Println("  -b, --bits <8|16|32>   Cell width                        (default 8)")
	fmt.Println("  -s, --size <n>         Tape size in cells       (default max(30000, count '>'))")
	fmt.Println("  -c, --code <src>       Read the program from an argument instead of a file")
	fmt.Println()
	fmt.Println("interpret flags:")
	fmt.Println("  -l, --limit <n>        Stop after n instructions (0 = unlimited)")
	fmt.Println("  -i, --interpreter <standard|minibit|direct>  Execution tier (default standard)")
	fmt.Println()
	fmt.Println("compile flags:")
	fmt.Println("  -o, --output <file>    Write the generated C program here (default stdout)")
	fmt.Println("  -O, --opt-level <secs> Partial-eval deadline; 0 = cold emission (default 1)")
	fmt.Println()
	fmt.Println("dump flags:")
	fmt.Println("  -m, --minibit <file>   Also write the packed minibit encoding here")
}
