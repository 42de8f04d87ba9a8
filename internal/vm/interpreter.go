// Package vm implements the PrimaryInterpreter: a dispatch loop over a
// lowered bytecode.Op stream, with batched write-loop output, multiply
// expansion, and a resumable instruction budget.
package vm

import (
	stderrors "errors"
	"fmt"
	"time"

	"bfc/internal/bytecode"
	"bfc/internal/errors"
	"bfc/internal/tape"
)

// coalesceWindow bounds how often a plain (non write-loop) Write flushes
// the underlying writer: once this much time has passed since the last
// flush, rather than on every byte.
const coalesceWindow = 16 * time.Millisecond

// writeLoopBatch is the size of the buffer a WriteLoop accumulates output
// into before flushing early (it always flushes in full at WLEnd
// regardless of how full the buffer is).
const writeLoopBatch = 32

// Interpreter is the PrimaryInterpreter. Build one with Builder.
type Interpreter[C tape.Cell] struct {
	Ops     []bytecode.Op
	Recipes []bytecode.DistinctMultiply
	State   *tape.State[C]

	lastFlush time.Time

	wbuf        [writeLoopBatch]byte
	wcursor     int
	inWriteLoop bool
}

// Builder constructs an Interpreter, mirroring the fluent
// WithX/Build() shape used elsewhere in this codebase for multi-field
// value construction.
type Builder[C tape.Cell] struct {
	ops      []bytecode.Op
	recipes  []bytecode.DistinctMultiply
	reader   ioReader
	writer   ioWriter
	size     int
	startPtr int
	haveSize bool
}

type ioReader = interface {
	Read(p []byte) (int, error)
}

type ioWriter = interface {
	Write(p []byte) (int, error)
}

func NewBuilder[C tape.Cell]() *Builder[C] {
	return &Builder[C]{}
}

func (b *Builder[C]) WithProgram(ops []bytecode.Op, recipes []bytecode.DistinctMultiply) *Builder[C] {
	b.ops = ops
	b.recipes = recipes
	return b
}

func (b *Builder[C]) WithReader(r ioReader) *Builder[C] {
	b.reader = r
	return b
}

func (b *Builder[C]) WithWriter(w ioWriter) *Builder[C] {
	b.writer = w
	return b
}

func (b *Builder[C]) WithSize(n int) *Builder[C] {
	b.size = n
	b.haveSize = true
	return b
}

func (b *Builder[C]) WithStartPointer(p int) *Builder[C] {
	b.startPtr = p
	return b
}

// Build validates the required fields and allocates the tape.
func (b *Builder[C]) Build() (*Interpreter[C], error) {
	if b.reader == nil {
		return nil, fmt.Errorf("vm: builder missing a reader")
	}
	if b.writer == nil {
		return nil, fmt.Errorf("vm: builder missing a writer")
	}
	if !b.haveSize {
		return nil, fmt.Errorf("vm: builder missing a tape size")
	}
	st, err := tape.New[C](b.startPtr, b.size, b.reader, b.writer)
	if err != nil {
		return nil, errors.NewRuntimeError(errors.InitOverflow, 0)
	}
	return &Interpreter[C]{
		Ops:       b.ops,
		Recipes:   b.recipes,
		State:     st,
		lastFlush: time.Now(),
	}, nil
}

// Run executes the whole stream from the start, to completion or error.
func (it *Interpreter[C]) Run() error {
	_, err := it.execute(0, 0, false)
	return err
}

// RunFrom resumes unlimited execution at an arbitrary instruction index.
func (it *Interpreter[C]) RunFrom(idx int) error {
	_, err := it.execute(idx, 0, false)
	return err
}

// RunLimited executes at most budget instructions starting from the
// beginning. It returns the index execution stopped at; if the stream
// wasn't exhausted within budget, the error is a *errors.RuntimeError with
// Kind == errors.NotEnoughInstructions, and execution can be continued with
// RunLimitedFrom(idx, moreBudget) or RunFrom(idx).
func (it *Interpreter[C]) RunLimited(budget uint64) (int, error) {
	return it.execute(0, budget, true)
}

// RunLimitedFrom is RunLimited starting from an arbitrary instruction
// index, for resuming a prior NotEnoughInstructions stop.
func (it *Interpreter[C]) RunLimitedFrom(idx int, budget uint64) (int, error) {
	return it.execute(idx, budget, true)
}

// FlushPending flushes any bytes a write loop has buffered but not yet
// written out. Ordinary callers never need this: a WriteLoop always
// flushes in full once it exits. It exists for the CEmitter's
// snapshot-resume path, which needs every byte truly produced so far
// captured in its output buffer before it can stop mid write-loop and
// resume compiled-C execution (which writes unbuffered) from the same
// index.
func (it *Interpreter[C]) FlushPending() error {
	if it.wcursor == 0 {
		return nil
	}
	if _, err := it.State.W.Write(it.wbuf[:it.wcursor]); err != nil {
		return err
	}
	it.wcursor = 0
	return nil
}

func (it *Interpreter[C]) execute(idx int, budget uint64, limited bool) (int, error) {
	ops := it.Ops
	for idx < len(ops) {
		if limited && budget == 0 {
			return idx, errors.NewRuntimeError(errors.NotEnoughInstructions, idx)
		}

		op := ops[idx]
		switch op.Kind {
		case bytecode.Zero:
			it.State.Zero()
		case bytecode.Inc:
			it.State.Inc(C(op.Operand))
		case bytecode.Dec:
			it.State.Dec(C(op.Operand))
		case bytecode.IncPtr:
			if err := it.State.IncPtr(uint64(op.Operand)); err != nil {
				return idx, errors.NewRuntimeError(errors.RuntimeOverflow, idx)
			}
		case bytecode.DecPtr:
			if err := it.State.DecPtr(uint64(op.Operand)); err != nil {
				return idx, errors.NewRuntimeError(errors.RuntimeUnderflow, idx)
			}
		case bytecode.Read:
			if err := it.State.Read(); err != nil {
				return idx, errors.NewIOError(idx, err)
			}
		case bytecode.Write:
			if err := it.write(idx); err != nil {
				return idx, err
			}
		case bytecode.LStart:
			if it.State.JumpForward() {
				idx = int(op.Operand)
			}
		case bytecode.LEnd:
			if it.State.JumpBackward() {
				idx = int(op.Operand)
			}
		case bytecode.WLStart:
			if it.State.JumpForward() {
				idx = int(op.Operand)
			} else {
				it.inWriteLoop = true
			}
		case bytecode.WLEnd:
			if it.State.JumpBackward() {
				idx = int(op.Operand)
			} else {
				it.inWriteLoop = false
				if err := it.FlushPending(); err != nil {
					return idx, errors.NewIOError(idx, err)
				}
			}
		case bytecode.Multiply:
			r := it.Recipes[op.Operand]
			if err := it.State.Mul(r.Lo, r.Hi, r.Args); err != nil {
				kind := errors.RuntimeOverflow
				if stderrors.Is(err, tape.ErrUnderflow) {
					kind = errors.RuntimeUnderflow
				}
				return idx, errors.NewRuntimeError(kind, idx)
			}
		}

		idx++
		if limited {
			budget--
		}
	}
	return idx, nil
}

func (it *Interpreter[C]) write(idx int) error {
	if it.inWriteLoop {
		it.wbuf[it.wcursor] = byte(it.State.Get())
		it.wcursor++
		if it.wcursor == len(it.wbuf) {
			if err := it.FlushPending(); err != nil {
				return errors.NewIOError(idx, err)
			}
		}
		return nil
	}

	if err := it.State.Write(); err != nil {
		return errors.NewIOError(idx, err)
	}
	if time.Since(it.lastFlush) > coalesceWindow {
		if f, ok := it.State.W.(tape.Flusher); ok {
			_ = f.Flush()
		}
		it.lastFlush = time.Now()
	}
	return nil
}
