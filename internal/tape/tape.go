// Package tape implements the tape machine that every execution tier
// (PrimaryInterpreter, MinibitInterpreter, DirectInterpreter) drives: a
// bounds-checked pointer into a fixed-size array of wrapping unsigned
// cells, plus the Read/Write I/O adapters. Cell width is a type parameter
// rather than a runtime switch, so wraparound falls out of Go's native
// unsigned-integer arithmetic instead of needing a per-width code path.
package tape

import (
	"errors"
	"io"

	"bfc/internal/bytecode"
)

// Cell is the set of cell widths the tape machine supports: 8, 16 and
// 32-bit unsigned integers. Go's conversion rules (truncate to the target
// width's low bits) and operator overflow (wrap silently) give wrapping
// arithmetic for free across all three.
type Cell interface {
	~uint8 | ~uint16 | ~uint32
}

// Sentinel errors returned by State's pointer-moving and I/O methods.
// Callers (the interpreters) attach the instruction index before
// surfacing these as errors.RuntimeError.
var (
	ErrOverflow  = errors.New("tape: pointer moved past the end of the tape")
	ErrUnderflow = errors.New("tape: pointer moved before the start of the tape")
)

// Flusher is implemented by writers that buffer (bufio.Writer and similar).
// State.Read flushes through it before blocking on input, and callers may
// use it to implement their own coalescing-flush policy on Write.
type Flusher interface {
	Flush() error
}

// State is the tape machine itself: a pointer into a fixed-size array of
// cells, plus the reader/writer pair used by Read and Write.
type State[C Cell] struct {
	cells []C
	ptr   int
	R     io.Reader
	W     io.Writer
}

// New allocates a tape of size cells and places the pointer at ptr.
// InitOverflow is returned if ptr does not fall inside [0, size).
func New[C Cell](ptr, size int, r io.Reader, w io.Writer) (*State[C], error) {
	if size <= 0 || ptr < 0 || ptr >= size {
		return nil, ErrInitOverflow
	}
	return &State[C]{cells: make([]C, size), ptr: ptr, R: r, W: w}, nil
}

// ErrInitOverflow is returned by New when the requested start pointer does
// not fall inside the tape.
var ErrInitOverflow = errors.New("tape: start pointer outside the tape")

func (s *State[C]) Ptr() int    { return s.ptr }
func (s *State[C]) Len() int    { return len(s.cells) }
func (s *State[C]) Cells() []C  { return s.cells }
func (s *State[C]) Get() C      { return s.cells[s.ptr] }
func (s *State[C]) Set(v C)     { s.cells[s.ptr] = v }
func (s *State[C]) Zero()       { s.cells[s.ptr] = 0 }
func (s *State[C]) Inc(by C)    { s.cells[s.ptr] += by }
func (s *State[C]) Dec(by C)    { s.cells[s.ptr] -= by }

// JumpForward reports whether an LStart/WLStart at the current cell should
// jump past its body (the cell reads zero).
func (s *State[C]) JumpForward() bool { return s.Get() == 0 }

// JumpBackward reports whether an LEnd/WLEnd at the current cell should
// jump back to repeat its body (the cell reads nonzero).
func (s *State[C]) JumpBackward() bool { return s.Get() != 0 }

// IncPtr moves the pointer right by by cells, failing with ErrOverflow if
// that would move it past the end of the tape.
func (s *State[C]) IncPtr(by uint64) error {
	if by > uint64(len(s.cells)-1-s.ptr) {
		return ErrOverflow
	}
	s.ptr += int(by)
	return nil
}

// DecPtr moves the pointer left by by cells, failing with ErrUnderflow if
// that would move it before the start of the tape.
func (s *State[C]) DecPtr(by uint64) error {
	if by > uint64(s.ptr) {
		return ErrUnderflow
	}
	s.ptr -= int(by)
	return nil
}

// Write emits the current cell, truncated to a byte, to W.
func (s *State[C]) Write() error {
	_, err := s.W.Write([]byte{byte(s.Get())})
	return err
}

// Read flushes W (if it implements Flusher) and reads one byte from R into
// the current cell, zero-extended; EOF reads as zero.
func (s *State[C]) Read() error {
	if f, ok := s.W.(Flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	var buf [1]byte
	n, err := s.R.Read(buf[:])
	if err != nil && err != io.EOF {
		return err
	}
	if n == 0 {
		buf[0] = 0
	}
	s.Set(C(buf[0]))
	return nil
}

// Mul implements a Multiply op: the current cell's value is captured and
// zeroed, then added (scaled by each recipe delta, wrapping in C's width)
// to every other referenced cell. lo and hi bound the offsets the recipe
// touches and are checked once up front.
func (s *State[C]) Mul(lo, hi int64, args []bytecode.MulArg) error {
	if lo < 0 && uint64(-lo) > uint64(s.ptr) {
		return ErrUnderflow
	}
	if hi > 0 && hi > int64(len(s.cells)-1-s.ptr) {
		return ErrOverflow
	}

	v := int64(s.Get())
	s.Zero()
	for _, a := range args {
		idx := s.ptr + int(a.Offset)
		s.cells[idx] += C(v * a.Delta)
	}
	return nil
}
