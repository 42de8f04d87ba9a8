// Package direct implements the DirectInterpreter: it walks raw Brainfuck
// source bytes one at a time with no compilation step at all, lazily
// memoizing '['/']' jump pairs the first time each is crossed. It trades
// the other tiers' startup and memory cost for per-byte dispatch overhead,
// and is meant for input too large to be worth compiling.
package direct

import (
	"bfc/internal/errors"
	"bfc/internal/tape"
)

// Interpreter walks Source directly, caching jump targets as it discovers
// them. A single Interpreter should not be reused across unrelated
// sources: the cache is keyed by byte offset into Source.
type Interpreter struct {
	Source []byte

	cache map[int]int
	scan  []int
}

func New(source []byte) *Interpreter {
	return &Interpreter{Source: source, cache: map[int]int{}}
}

// lstartJump finds the index of the ']' matching the '[' at cur, scanning
// forward and caching every pair discovered along the way (not just the
// one asked for), so later unmatched lookups inside the same loop resolve
// without rescanning.
func (d *Interpreter) lstartJump(cur int) (int, error) {
	if v, ok := d.cache[cur]; ok {
		return v, nil
	}

	d.scan = d.scan[:0]
	for cur < len(d.Source) {
		switch d.Source[cur] {
		case '[':
			d.scan = append(d.scan, cur)
		case ']':
			if n := len(d.scan); n > 0 {
				end := d.scan[n-1]
				d.scan = d.scan[:n-1]
				d.cache[cur] = end
				d.cache[end] = cur
				if len(d.scan) == 0 {
					return cur, nil
				}
			}
		}
		cur++
	}
	return 0, errors.NewCompileError(errors.LoopCountMismatch)
}

// lendJump is lstartJump's mirror image, scanning backward from a ']' to
// find its '['.
func (d *Interpreter) lendJump(cur int) (int, error) {
	if v, ok := d.cache[cur]; ok {
		return v, nil
	}

	d.scan = d.scan[:0]
	for {
		switch d.Source[cur] {
		case ']':
			d.scan = append(d.scan, cur)
		case '[':
			if n := len(d.scan); n > 0 {
				end := d.scan[n-1]
				d.scan = d.scan[:n-1]
				d.cache[cur] = end
				d.cache[end] = cur
				if len(d.scan) == 0 {
					return cur, nil
				}
			}
		}
		if cur == 0 {
			return 0, errors.NewCompileError(errors.LoopEndBeforeLoopStart)
		}
		cur--
	}
}

// Run interprets d.Source against st from the start. It is a free function
// for the same reason minibit.Run is: a method cannot add its own type
// parameter.
func Run[C tape.Cell](d *Interpreter, st *tape.State[C]) error {
	src := d.Source
	idx := 0
	for idx < len(src) {
		switch src[idx] {
		case '+':
			st.Inc(1)
		case '-':
			st.Dec(1)
		case '>':
			if err := st.IncPtr(1); err != nil {
				return errors.NewRuntimeError(errors.RuntimeOverflow, idx)
			}
		case '<':
			if err := st.DecPtr(1); err != nil {
				return errors.NewRuntimeError(errors.RuntimeUnderflow, idx)
			}
		case '[':
			if st.JumpForward() {
				j, err := d.lstartJump(idx)
				if err != nil {
					return err
				}
				idx = j
			}
		case ']':
			if st.JumpBackward() {
				j, err := d.lendJump(idx)
				if err != nil {
					return err
				}
				idx = j
			}
		case ',':
			if err := st.Read(); err != nil {
				return errors.NewIOError(idx, err)
			}
		case '.':
			if err := st.Write(); err != nil {
				return errors.NewIOError(idx, err)
			}
		}
		idx++
	}

	if f, ok := st.W.(tape.Flusher); ok {
		if err := f.Flush(); err != nil {
			return errors.NewIOError(idx, err)
		}
	}
	return nil
}
