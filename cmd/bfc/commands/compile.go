package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"bfc/internal/emit"
)

type compileFlags struct {
	shared   sharedFlags
	output   string
	optLevel float64
}

// Compile implements `bfc compile`/`bfc c`: lower the program and emit it as
// a standalone C translation unit.
func Compile(args []string) error {
	f := compileFlags{shared: defaultSharedFlags(), optLevel: 1}

	rest, err := parseShared(&f.shared, args)
	if err != nil {
		return err
	}
	for i := 0; i < len(rest); i++ {
		a := rest[i]
		switch a {
		case "-o", "--output":
			i++
			if i >= len(rest) {
				return fmt.Errorf("%s requires a value", a)
			}
			f.output = rest[i]
		case "-O", "--opt-level":
			i++
			if i >= len(rest) {
				return fmt.Errorf("%s requires a value", a)
			}
			secs, err := strconv.ParseFloat(rest[i], 64)
			if err != nil || secs < 0 {
				return fmt.Errorf("%s: want a non-negative number of seconds, got %q", a, rest[i])
			}
			f.optLevel = secs
		default:
			return fmt.Errorf("compile: unrecognized argument %q", a)
		}
	}

	src, err := loadSource(f.shared)
	if err != nil {
		return err
	}
	f.shared.size = resolveSize(f.shared, src)
	prog, err := buildProgram(src)
	if err != nil {
		return err
	}

	width := emit.Width8
	switch f.shared.bits {
	case 16:
		width = emit.Width16
	case 32:
		width = emit.Width32
	}

	var out string
	if f.optLevel == 0 {
		// A zero-second deadline means never partially evaluate: emit the
		// cold, direct translation with no resume state at all.
		out = emit.EmitCold(prog.Ops, prog.Recipes, f.shared.size, width)
	} else {
		deadline := time.Duration(f.optLevel * float64(time.Second))
		out, err = compileOptimized(prog, f.shared, width, deadline)
		if err != nil {
			return err
		}
	}

	if f.output == "" {
		fmt.Print(out)
		return nil
	}
	return os.WriteFile(f.output, []byte(out), 0o644)
}

func compileOptimized(prog *program, f sharedFlags, width emit.Width, deadline time.Duration) (string, error) {
	switch f.bits {
	case 8:
		return emit.EmitOptimized[uint8](prog.Ops, prog.Recipes, f.size, width, deadline)
	case 16:
		return emit.EmitOptimized[uint16](prog.Ops, prog.Recipes, f.size, width, deadline)
	default:
		return emit.EmitOptimized[uint32](prog.Ops, prog.Recipes, f.size, width, deadline)
	}
}
