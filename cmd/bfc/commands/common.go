// Package commands implements the bfc subcommands. Flags are hand-parsed
// with a small switch over each remaining argument, matching the rest of
// this codebase's argv handling rather than adopting a flag-parsing
// library (command-line argument parsing is an external collaborator this
// repository does not own the shape of).
package commands

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"bfc/internal/bytecode"
	"bfc/internal/looptree"
	"bfc/internal/lowering"
	"bfc/internal/rewriter"
	"bfc/internal/token"
)

// sharedFlags holds the flags common to every subcommand that needs a
// compiled program: cell width, tape size, and the source (either a file
// path or an inline -c/--code argument).
type sharedFlags struct {
	bits    int
	size    int
	sizeSet bool
	code    string
	file    string
}

// defaultTapeSize is the floor applied when -s/--size is not given: the
// tape must be at least this large regardless of how few '>' the source
// contains.
const defaultTapeSize = 30_000

func defaultSharedFlags() sharedFlags {
	return sharedFlags{bits: 8, size: defaultTapeSize}
}

// parseShared consumes the flags this package defines from args, along
// with the first non-flag argument (treated as the source file path), and
// returns whatever is left for the caller to keep parsing.
func parseShared(f *sharedFlags, args []string) ([]string, error) {
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch a {
		case "-b", "--bits":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("%s requires a value", a)
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a, err)
			}
			f.bits = n
		case "-s", "--size":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("%s requires a value", a)
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", a, err)
			}
			f.size = n
			f.sizeSet = true
		case "-c", "--code":
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("%s requires a value", a)
			}
			f.code = args[i]
		default:
			rest = append(rest, a)
		}
	}

	for i, a := range rest {
		if len(a) == 0 || a[0] != '-' {
			f.file = a
			rest = append(rest[:i], rest[i+1:]...)
			break
		}
	}

	switch f.bits {
	case 8, 16, 32:
	default:
		return nil, fmt.Errorf("unsupported cell width %d (must be 8, 16, or 32)", f.bits)
	}

	return rest, nil
}

func loadSource(f sharedFlags) ([]byte, error) {
	if f.code != "" {
		return []byte(f.code), nil
	}
	if f.file == "" {
		return nil, fmt.Errorf("no source file given (pass a path or -c/--code)")
	}
	return os.ReadFile(f.file)
}

// resolveSize is the tape-size default: when -s/--size was not given
// explicitly, the tape must hold at least defaultTapeSize cells, or one per
// '>' in the source if that is larger (a program that only ever moves
// right needs at least that many cells to avoid an immediate Overflow).
func resolveSize(f sharedFlags, src []byte) int {
	if f.sizeSet {
		return f.size
	}
	n := defaultTapeSize
	if c := bytes.Count(src, []byte{'>'}); c > n {
		n = c
	}
	return n
}

// program is the result of running the front end: a lowered instruction
// stream ready for any execution tier.
type program struct {
	Ops     []bytecode.Op
	Recipes []bytecode.DistinctMultiply
}

func buildProgram(src []byte) (*program, error) {
	tokens := token.Tokenize(src)
	tree, err := looptree.Build(tokens)
	if err != nil {
		return nil, err
	}
	rewriter.Rewrite(tree)
	res, err := lowering.Lower(tree)
	if err != nil {
		return nil, err
	}
	return &program{Ops: res.Ops, Recipes: res.Recipes}, nil
}

func countMultiplyOps(ops []bytecode.Op) int {
	n := 0
	for _, op := range ops {
		if op.Kind == bytecode.Multiply {
			n++
		}
	}
	return n
}

func countWriteLoops(ops []bytecode.Op) int {
	n := 0
	for _, op := range ops {
		if op.Kind == bytecode.WLStart {
			n++
		}
	}
	return n
}
