package direct

import (
	"bytes"
	"strings"
	"testing"

	"bfc/internal/errors"
	"bfc/internal/tape"
)

func runSrc(t *testing.T, src, in string, size int) (string, error) {
	t.Helper()
	var out bytes.Buffer
	st, err := tape.New[uint8](0, size, strings.NewReader(in), &out)
	if err != nil {
		t.Fatalf("tape.New returned error: %v", err)
	}
	err = Run[uint8](New([]byte(src)), st)
	return out.String(), err
}

func TestRunHelloByteViaNestedLoop(t *testing.T) {
	out, err := runSrc(t, "++++[>++++[>++++<-]<-]>>+.", "", 30000)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "A" {
		t.Errorf("output = %q, want %q", out, "A")
	}
}

func TestRunEchoIncrement(t *testing.T) {
	out, err := runSrc(t, ",+.", "\x20", 30000)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "\x21" {
		t.Errorf("output = %q, want %q", out, "\x21")
	}
}

func TestRunUnderflow(t *testing.T) {
	_, err := runSrc(t, "<", "", 30000)
	re, ok := err.(*errors.RuntimeError)
	if !ok || re.Kind != errors.RuntimeUnderflow {
		t.Fatalf("got %v, want RuntimeUnderflow", err)
	}
}

func TestRunOverflow(t *testing.T) {
	_, err := runSrc(t, "+[>+]", "", 2)
	re, ok := err.(*errors.RuntimeError)
	if !ok || re.Kind != errors.RuntimeOverflow {
		t.Fatalf("got %v, want RuntimeOverflow", err)
	}
}

func TestRunUnmatchedStart(t *testing.T) {
	_, err := runSrc(t, "[", "", 30000)
	ce, ok := err.(*errors.CompileError)
	if !ok || ce.Kind != errors.LoopCountMismatch {
		t.Fatalf("got %v, want LoopCountMismatch", err)
	}
}

func TestRunUnmatchedEnd(t *testing.T) {
	_, err := runSrc(t, "]", "", 30000)
	ce, ok := err.(*errors.CompileError)
	if !ok || ce.Kind != errors.LoopEndBeforeLoopStart {
		t.Fatalf("got %v, want LoopEndBeforeLoopStart", err)
	}
}

func TestJumpCacheReuseAcrossRepeatedLoop(t *testing.T) {
	// Two adjacent loops exercise both lazy-scan directions (lstartJump's
	// forward scan for the first, lendJump's backward scan once the second
	// loop's body is first entered) against independent bracket pairs.
	d := New([]byte("++[>+<-][>+<-]"))
	var out bytes.Buffer
	st, err := tape.New[uint8](0, 10, strings.NewReader(""), &out)
	if err != nil {
		t.Fatalf("tape.New returned error: %v", err)
	}
	if err := Run[uint8](d, st); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if st.Cells()[1] != 2 {
		t.Errorf("cells[1] = %d, want 2", st.Cells()[1])
	}
}

func TestNonProgramBytesIgnored(t *testing.T) {
	out, err := runSrc(t, "+ this is a comment +.", "", 1)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if out != "\x02" {
		t.Errorf("output = %v, want [2]", []byte(out))
	}
}
