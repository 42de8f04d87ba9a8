package commands

import (
	"bufio"
	"fmt"
	"os"

	"bfc/internal/bytecode"
	"bfc/internal/direct"
	"bfc/internal/minibit"
	"bfc/internal/tape"
	"bfc/internal/vm"
)

type interpretFlags struct {
	shared      sharedFlags
	limit       uint64
	interpreter string
}

// Interpret implements `bfc interpret`/`bfc i`.
func Interpret(args []string) error {
	f := interpretFlags{shared: defaultSharedFlags(), interpreter: "standard"}

	rest, err := parseShared(&f.shared, args)
	if err != nil {
		return err
	}
	for i := 0; i < len(rest); i++ {
		a := rest[i]
		switch a {
		case "-l", "--limit":
			i++
			if i >= len(rest) {
				return fmt.Errorf("%s requires a value", a)
			}
			var n uint64
			if _, err := fmt.Sscanf(rest[i], "%d", &n); err != nil {
				return fmt.Errorf("%s: %w", a, err)
			}
			f.limit = n
		case "-i", "--interpreter":
			i++
			if i >= len(rest) {
				return fmt.Errorf("%s requires a value", a)
			}
			f.interpreter = rest[i]
		default:
			return fmt.Errorf("interpret: unrecognized argument %q", a)
		}
	}

	src, err := loadSource(f.shared)
	if err != nil {
		return err
	}
	f.shared.size = resolveSize(f.shared, src)

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()

	switch f.interpreter {
	case "standard":
		prog, err := buildProgram(src)
		if err != nil {
			return err
		}
		return runStandard(f, prog.Ops, prog.Recipes, w)
	case "minibit":
		return runMinibit(f, src, w)
	case "direct":
		return runDirect(f, src, w)
	default:
		return fmt.Errorf("interpret: unknown interpreter %q (want standard, minibit, or direct)", f.interpreter)
	}
}

func runStandard(f interpretFlags, ops []bytecode.Op, recipes []bytecode.DistinctMultiply, w *bufio.Writer) error {
	switch f.shared.bits {
	case 8:
		return runStandardWidth[uint8](f, ops, recipes, w)
	case 16:
		return runStandardWidth[uint16](f, ops, recipes, w)
	default:
		return runStandardWidth[uint32](f, ops, recipes, w)
	}
}

func runStandardWidth[C tape.Cell](f interpretFlags, ops []bytecode.Op, recipes []bytecode.DistinctMultiply, w *bufio.Writer) error {
	it, err := vm.NewBuilder[C]().
		WithProgram(ops, recipes).
		WithReader(os.Stdin).
		WithWriter(w).
		WithSize(f.shared.size).
		Build()
	if err != nil {
		return err
	}

	if f.limit == 0 {
		return it.Run()
	}
	_, err = it.RunLimited(f.limit)
	return err
}

func runMinibit(f interpretFlags, src []byte, w *bufio.Writer) error {
	switch f.shared.bits {
	case 8:
		return runMinibitWidth[uint8](f, src, w)
	case 16:
		return runMinibitWidth[uint16](f, src, w)
	default:
		return runMinibitWidth[uint32](f, src, w)
	}
}

func runMinibitWidth[C tape.Cell](f interpretFlags, src []byte, w *bufio.Writer) error {
	prog, err := minibit.Encode(src)
	if err != nil {
		return err
	}
	st, err := tape.New[C](0, f.shared.size, os.Stdin, w)
	if err != nil {
		return err
	}
	return minibit.Run[C](prog, st)
}

// runDirect drives the DirectInterpreter straight off the raw source bytes,
// skipping the token/looptree/rewriter/lowering pipeline entirely; it has
// no resumable/limit story (--limit is ignored here), trading that and
// every rewrite optimization away for zero compile time.
func runDirect(f interpretFlags, src []byte, w *bufio.Writer) error {
	switch f.shared.bits {
	case 8:
		return runDirectWidth[uint8](f, src, w)
	case 16:
		return runDirectWidth[uint16](f, src, w)
	default:
		return runDirectWidth[uint32](f, src, w)
	}
}

func runDirectWidth[C tape.Cell](f interpretFlags, src []byte, w *bufio.Writer) error {
	st, err := tape.New[C](0, f.shared.size, os.Stdin, w)
	if err != nil {
		return err
	}
	return direct.Run[C](direct.New(src), st)
}
