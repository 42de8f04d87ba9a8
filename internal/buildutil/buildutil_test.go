package buildutil

import (
	"bytes"
	"strings"
	"testing"
)

func TestEscapeC(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"empty", nil, ""},
		{"single byte", []byte{0x41}, `"\x41"`},
		{"does not greedily consume trailing hex digits", []byte("A1"), `"\x41""\x31"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EscapeC(tc.in); got != tc.want {
				t.Errorf("EscapeC(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestEscapeCProducesValidAdjacentLiterals(t *testing.T) {
	got := EscapeC([]byte{0, 255, 10})
	if strings.Count(got, `"`) != 6 {
		t.Errorf("expected 3 closed literals (6 quotes), got %q", got)
	}
}

func TestMinibitRoundTrip(t *testing.T) {
	f := &MinibitFile{
		Code:      []byte{0x01, 0x02, 0xff, 0x00},
		Oversized: map[int]int{3: 9, 9: 3},
	}
	var buf bytes.Buffer
	if err := SerializeMinibit(&buf, f); err != nil {
		t.Fatalf("SerializeMinibit returned error: %v", err)
	}

	got, err := DeserializeMinibit(&buf)
	if err != nil {
		t.Fatalf("DeserializeMinibit returned error: %v", err)
	}
	if !bytes.Equal(got.Code, f.Code) {
		t.Errorf("Code = %v, want %v", got.Code, f.Code)
	}
	if len(got.Oversized) != len(f.Oversized) {
		t.Fatalf("Oversized = %v, want %v", got.Oversized, f.Oversized)
	}
	for k, v := range f.Oversized {
		if got.Oversized[k] != v {
			t.Errorf("Oversized[%d] = %d, want %d", k, got.Oversized[k], v)
		}
	}
}

func TestMinibitRoundTripEmpty(t *testing.T) {
	f := &MinibitFile{Code: []byte{}, Oversized: map[int]int{}}
	var buf bytes.Buffer
	if err := SerializeMinibit(&buf, f); err != nil {
		t.Fatalf("SerializeMinibit returned error: %v", err)
	}
	got, err := DeserializeMinibit(&buf)
	if err != nil {
		t.Fatalf("DeserializeMinibit returned error: %v", err)
	}
	if len(got.Code) != 0 || len(got.Oversized) != 0 {
		t.Errorf("got %#v, want empty code and map", got)
	}
}

func TestDeserializeMinibitRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0})
	if _, err := DeserializeMinibit(buf); err == nil {
		t.Error("expected an error for a non-minibit buffer")
	}
}

func TestDeserializeMinibitRejectsFutureVersion(t *testing.T) {
	f := &MinibitFile{Code: nil, Oversized: nil}
	var buf bytes.Buffer
	if err := SerializeMinibit(&buf, f); err != nil {
		t.Fatalf("SerializeMinibit returned error: %v", err)
	}
	raw := buf.Bytes()
	// Version is the second uint32 (bytes 4..8), little-endian.
	raw[4] = 99
	if _, err := DeserializeMinibit(bytes.NewReader(raw)); err == nil {
		t.Error("expected an error for an unsupported future version")
	}
}
