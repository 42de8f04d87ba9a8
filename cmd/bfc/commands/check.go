package commands

import "fmt"

// Check implements `bfc check`: run the front end (tokenize, loop tree,
// rewrite, lower) without executing or emitting anything, and report a
// one-line summary. It exists so a user (or a test harness) can confirm a
// source file compiles and see whether the rewriter found anything to
// optimize, without paying for a full interpret or compile run.
func Check(args []string) error {
	f := defaultSharedFlags()
	rest, err := parseShared(&f, args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("check: unrecognized argument %q", rest[0])
	}

	src, err := loadSource(f)
	if err != nil {
		return err
	}

	prog, err := buildProgram(src)
	if err != nil {
		return err
	}

	muls := countMultiplyOps(prog.Ops)
	wloops := countWriteLoops(prog.Ops)
	fmt.Printf("ok: %d instructions, %d recipe(s)\n", len(prog.Ops), len(prog.Recipes))
	fmt.Printf("multiply loops: %d\n", muls)
	fmt.Printf("write loops: %d\n", wloops)
	return nil
}
