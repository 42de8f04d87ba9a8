package commands

import (
	"fmt"
	"os"

	"bfc/internal/buildutil"
	"bfc/internal/bytecode"
	"bfc/internal/minibit"
)

// Dump implements `bfc dump`: print the lowered Op stream and the multiply
// recipe side table, one entry per line, for debugging the rewriter and
// lowering passes without building a full interpreter. With -m/--minibit it
// additionally encodes the source into the packed minibit form and writes
// the serialized program (code plus the oversized-loop map) to the given
// path.
func Dump(args []string) error {
	f := defaultSharedFlags()
	rest, err := parseShared(&f, args)
	if err != nil {
		return err
	}

	var minibitOut string
	for i := 0; i < len(rest); i++ {
		a := rest[i]
		switch a {
		case "-m", "--minibit":
			i++
			if i >= len(rest) {
				return fmt.Errorf("%s requires a value", a)
			}
			minibitOut = rest[i]
		default:
			return fmt.Errorf("dump: unrecognized argument %q", a)
		}
	}

	src, err := loadSource(f)
	if err != nil {
		return err
	}

	prog, err := buildProgram(src)
	if err != nil {
		return err
	}

	for i, op := range prog.Ops {
		switch op.Kind {
		case bytecode.LStart, bytecode.LEnd, bytecode.WLStart, bytecode.WLEnd:
			fmt.Printf("%5d: %-8s -> %d\n", i, op.Kind, op.Operand)
		case bytecode.Multiply:
			fmt.Printf("%5d: %-8s recipe %d\n", i, op.Kind, op.Operand)
		case bytecode.Inc, bytecode.Dec, bytecode.IncPtr, bytecode.DecPtr:
			fmt.Printf("%5d: %-8s %d\n", i, op.Kind, op.Operand)
		default:
			fmt.Printf("%5d: %-8s\n", i, op.Kind)
		}
	}

	if len(prog.Recipes) > 0 {
		fmt.Println("recipes:")
		for i, r := range prog.Recipes {
			fmt.Printf("  %3d: range [%d, %d]", i, r.Lo, r.Hi)
			for _, a := range r.Args {
				fmt.Printf(" (%+d: *%d)", a.Offset, a.Delta)
			}
			fmt.Println()
		}
	}

	if minibitOut != "" {
		return writeMinibit(src, minibitOut)
	}
	return nil
}

func writeMinibit(src []byte, path string) error {
	mp, err := minibit.Encode(src)
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	return buildutil.SerializeMinibit(out, &buildutil.MinibitFile{
		Code:      mp.Code,
		Oversized: mp.Oversized,
	})
}
