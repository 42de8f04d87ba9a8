// Package emit implements the CEmitter: compiling a lowered Op stream into
// standalone C, either by a direct cold-start translation or, for programs
// expected to spend most of their time looping before ever touching I/O, by
// partially evaluating the program against a deadline and baking the
// output it produces in that time directly into the emitted source,
// resuming compiled execution from wherever it stopped (or emitting just
// the output, when the whole program ran to completion inside the
// compiler).
package emit

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"bfc/internal/buildutil"
	"bfc/internal/bytecode"
	"bfc/internal/errors"
	"bfc/internal/estimator"
	"bfc/internal/tape"
	"bfc/internal/vm"
)

// Width is a cell width the emitted C program's cell_t may take.
type Width int

const (
	Width8 Width = iota
	Width16
	Width32
)

func (w Width) cType() string {
	switch w {
	case Width8:
		return "uint8_t"
	case Width16:
		return "uint16_t"
	default:
		return "uint32_t"
	}
}

// EmitCold translates ops directly into a complete C program with no
// partial evaluation: every Op becomes one line, in order.
func EmitCold(ops []bytecode.Op, recipes []bytecode.DistinctMultiply, size int, width Width) string {
	var body strings.Builder
	emitFull(&body, ops, recipes, -1)
	return program(width, size, "", body.String())
}

// EmitOptimized partially evaluates ops against a deadline using the
// PrimaryInterpreter, then emits the remaining instructions as C, with
// whatever output was already produced baked in as a literal fwrite and the
// tape's live state restored before the remaining stream runs. A program
// that finishes entirely within the deadline is emitted as just its
// captured output, with no instruction body or resume state at all.
func EmitOptimized[C tape.Cell](ops []bytecode.Op, recipes []bytecode.DistinctMultiply, size int, width Width, deadline time.Duration) (string, error) {
	rate, err := estimator.EstimateInstructionsPerSecond[C]()
	if err != nil {
		return "", err
	}
	if rate == 0 {
		rate = 1
	}
	sliceBudget := rate / 10
	if sliceBudget == 0 {
		sliceBudget = 1
	}

	out := &bytes.Buffer{}
	it, err := vm.NewBuilder[C]().
		WithProgram(ops, recipes).
		WithReader(errorReader{}).
		WithWriter(out).
		WithSize(size).
		Build()
	if err != nil {
		return "", err
	}

	start := time.Now()
	idx := 0
	for {
		stopped, runErr := it.RunLimitedFrom(idx, sliceBudget)
		if runErr == nil {
			// Finished entirely within the deadline: every effect the program
			// will ever have is already in the captured output, so the
			// emitted program is just that output replayed, with no
			// instruction body at all.
			return program(width, size, buildutil.EscapeC(out.Bytes()), ""), nil
		}

		rerr, ok := runErr.(*errors.RuntimeError)
		if !ok {
			return "", runErr
		}

		switch rerr.Kind {
		case errors.IOError:
			return snapshotResume(it, ops, recipes, size, width, out, stopped)
		case errors.NotEnoughInstructions:
			idx = stopped
			if time.Since(start) > deadline {
				return snapshotResume(it, ops, recipes, size, width, out, stopped)
			}
		default:
			return "", runErr
		}
	}
}

// errorReader always fails a Read: it stands in for real stdin during
// partial evaluation, so the first instruction that would actually need
// input deterministically stops evaluation there instead of blocking or
// consuming real input that would have to be replayed later.
type errorReader struct{}

func (errorReader) Read([]byte) (int, error) {
	return 0, errReadDuringPartialEval
}

var errReadDuringPartialEval = fmt.Errorf("emit: program attempted a Read during partial evaluation")

// snapshotResume captures the tape, the output produced so far, and the
// instruction pointer, and emits a program that restores all three before
// jumping into the remaining instruction stream.
//
// The write-loop output buffer is force-flushed first: the emitted C never
// batches writes (it calls w() directly per Write op, same as the
// PrimaryInterpreter does outside a write loop), so any bytes still sitting
// in the interpreter's internal buffer must be committed to the captured
// output now, or they would never appear in the emitted program's output at
// all.
func snapshotResume[C tape.Cell](it *vm.Interpreter[C], ops []bytecode.Op, recipes []bytecode.DistinctMultiply, size int, width Width, captured *bytes.Buffer, resumeIdx int) (string, error) {
	if err := it.FlushPending(); err != nil {
		return "", err
	}

	var out strings.Builder
	cells := it.State.Cells()
	for i, v := range cells {
		if v != 0 {
			fmt.Fprintf(&out, "\tarr[%d] = %d;\n", i, uint64(v))
		}
	}
	fmt.Fprintf(&out, "\ta = arr + %d;\n", it.State.Ptr())
	out.WriteString("\tgoto resume;\n")

	emitFull(&out, ops, recipes, resumeIdx)

	return program(width, size, buildutil.EscapeC(captured.Bytes()), out.String()), nil
}

// emitFull walks the full ops stream and emits it as C, always emitting
// loop braces (while/}) regardless of position so brace nesting stays
// well-formed, but suppressing the statement line for any op before
// resumeLabelAt. A "resume:" label is written immediately before the op at
// resumeLabelAt. Passing a negative resumeLabelAt emits a plain, complete
// program with no label and nothing suppressed.
//
// Landing the label inside nested while blocks like this is deliberate:
// plain C allows goto into a block, so jumping straight to "resume:" skips
// the loop's entry condition (correct, since the interpreter was already
// inside that loop's body when it stopped) while the loop's own closing
// brace and backward edge are reached normally afterward.
func emitFull(w *strings.Builder, ops []bytecode.Op, recipes []bytecode.DistinctMultiply, resumeLabelAt int) {
	// closeAt counts the loop starts that target each index: an LEnd shared
	// by nested loops closes every one of them, and an If's LStart targets
	// the final op of its body, so its brace closes right after that op.
	closeAt := map[int]int{}
	for _, op := range ops {
		if op.Kind == bytecode.LStart || op.Kind == bytecode.WLStart {
			closeAt[int(op.Operand)]++
		}
	}
	indent := 1
	for i, op := range ops {
		if i == resumeLabelAt {
			// The null statement keeps the label legal even when the op it
			// precedes contributes no statement of its own on this line
			// (an LEnd emits only a closing brace, and a label may not
			// directly precede one).
			w.WriteString("resume:;\n")
		}
		skip := resumeLabelAt >= 0 && i < resumeLabelAt
		pad := strings.Repeat("\t", indent)

		switch op.Kind {
		case bytecode.Zero:
			if !skip {
				fmt.Fprintf(w, "%s*a = 0;\n", pad)
			}
		case bytecode.Inc:
			if skip {
				break
			}
			if op.Operand == 1 {
				fmt.Fprintf(w, "%s++*a;\n", pad)
			} else {
				fmt.Fprintf(w, "%s*a += %d;\n", pad, op.Operand)
			}
		case bytecode.Dec:
			if skip {
				break
			}
			if op.Operand == 1 {
				fmt.Fprintf(w, "%s--*a;\n", pad)
			} else {
				fmt.Fprintf(w, "%s*a -= %d;\n", pad, op.Operand)
			}
		case bytecode.IncPtr:
			if skip {
				break
			}
			if op.Operand == 1 {
				fmt.Fprintf(w, "%s++a;\n", pad)
			} else {
				fmt.Fprintf(w, "%sa += %d;\n", pad, op.Operand)
			}
		case bytecode.DecPtr:
			if skip {
				break
			}
			if op.Operand == 1 {
				fmt.Fprintf(w, "%s--a;\n", pad)
			} else {
				fmt.Fprintf(w, "%sa -= %d;\n", pad, op.Operand)
			}
		case bytecode.Write:
			if !skip {
				fmt.Fprintf(w, "%sw(*a);\n", pad)
			}
		case bytecode.Read:
			if !skip {
				fmt.Fprintf(w, "%sr(a);\n", pad)
			}
		case bytecode.LStart, bytecode.WLStart:
			fmt.Fprintf(w, "%swhile (*a != 0) {\n", pad)
			indent++
		case bytecode.LEnd, bytecode.WLEnd:
			// Closed below, once per loop start that targets this index.
		case bytecode.Multiply:
			if skip {
				break
			}
			r := recipes[op.Operand]
			fmt.Fprintf(w, "%s{\n", pad)
			fmt.Fprintf(w, "%s\tlong v = (long)*a;\n", pad)
			fmt.Fprintf(w, "%s\t*a = 0;\n", pad)
			for _, arg := range r.Args {
				fmt.Fprintf(w, "%s\ta[%d] += (cell_t)(v * %d);\n", pad, arg.Offset, arg.Delta)
			}
			fmt.Fprintf(w, "%s}\n", pad)
		}
		for n := closeAt[i]; n > 0; n-- {
			indent--
			fmt.Fprintf(w, "%s}\n", strings.Repeat("\t", indent))
		}
	}
}

func program(width Width, size int, literalOutput string, body string) string {
	var b strings.Builder
	b.WriteString("#include <stdint.h>\n")
	b.WriteString("#include <stdio.h>\n\n")
	fmt.Fprintf(&b, "typedef %s cell_t;\n\n", width.cType())
	fmt.Fprintf(&b, "static cell_t arr[%d];\n\n", size)

	b.WriteString("static void w(cell_t c) {\n")
	b.WriteString("\tfputc((int)(unsigned char)c, stdout);\n")
	b.WriteString("}\n\n")

	b.WriteString("static void r(cell_t *p) {\n")
	b.WriteString("\tfflush(stdout);\n")
	b.WriteString("\tint c = getchar();\n")
	b.WriteString("\t*p = (c == EOF) ? 0 : (cell_t)c;\n")
	b.WriteString("}\n\n")

	b.WriteString("int main(void) {\n")
	b.WriteString("\tcell_t *a = arr;\n")
	if literalOutput != "" {
		fmt.Fprintf(&b, "\tstatic const char out[] = %s;\n", literalOutput)
		b.WriteString("\tfwrite(out, 1, sizeof(out) - 1, stdout);\n")
	}
	b.WriteString(body)
	b.WriteString("\tfflush(stdout);\n")
	b.WriteString("\treturn 0;\n")
	b.WriteString("}\n")
	return b.String()
}
