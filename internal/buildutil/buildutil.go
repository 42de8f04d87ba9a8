// Package buildutil collects the small pieces of byte-level plumbing that
// more than one package in this repository needs: escaping a byte slice as
// a C string literal for the emitter, and a length-prefixed binary framing
// for the minibit tier's out-of-band jump map, modeled on the
// magic-number/version/length-prefixed framing internal/buildutil uses for
// its own bytecode file format.
package buildutil

import (
	"encoding/binary"
	"fmt"
	"io"
)

// minibitMagic tags a serialized minibit program so Deserialize rejects
// anything else handed to it; minibitVersion lets a future encoding change
// be detected rather than silently misread.
const (
	minibitMagic   uint32 = 0x4d494e49 // "MINI"
	minibitVersion uint32 = 1
)

// EscapeC renders data as a sequence of adjacent "\xHH" C string literals
// (the C compiler concatenates adjacent literals at compile time). Closing
// the literal after every byte avoids the classic \x pitfall where a hex
// escape greedily consumes every following hex digit, bounding each escape
// to exactly two digits regardless of what follows.
func EscapeC(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	out := make([]byte, 0, len(data)*4)
	for _, c := range data {
		out = append(out, fmt.Sprintf(`"\x%02x"`, c)...)
	}
	return string(out)
}

// MinibitFile is the out-of-band serialized form of a minibit program: the
// packed instruction bytes plus the oversized-loop jump map that the
// in-band 5-bit operand can't address. This framing is not meant to
// persist across binary versions, only to move a compiled program between
// two runs of the same tool.
type MinibitFile struct {
	Code      []byte
	Oversized map[int]int
}

// SerializeMinibit writes f in the length-prefixed binary framing every
// section of this format shares: a magic number and version, then each
// section as a uint32 count/length followed by its raw entries.
func SerializeMinibit(w io.Writer, f *MinibitFile) error {
	if err := binary.Write(w, binary.LittleEndian, minibitMagic); err != nil {
		return fmt.Errorf("buildutil: write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, minibitVersion); err != nil {
		return fmt.Errorf("buildutil: write version: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.Code))); err != nil {
		return fmt.Errorf("buildutil: write code length: %w", err)
	}
	if _, err := w.Write(f.Code); err != nil {
		return fmt.Errorf("buildutil: write code: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.Oversized))); err != nil {
		return fmt.Errorf("buildutil: write oversized count: %w", err)
	}
	for k, v := range f.Oversized {
		if err := binary.Write(w, binary.LittleEndian, uint32(k)); err != nil {
			return fmt.Errorf("buildutil: write oversized key: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(v)); err != nil {
			return fmt.Errorf("buildutil: write oversized value: %w", err)
		}
	}
	return nil
}

// DeserializeMinibit reads back what SerializeMinibit wrote.
func DeserializeMinibit(r io.Reader) (*MinibitFile, error) {
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("buildutil: read magic: %w", err)
	}
	if magic != minibitMagic {
		return nil, fmt.Errorf("buildutil: not a minibit file (bad magic)")
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("buildutil: read version: %w", err)
	}
	if version > minibitVersion {
		return nil, fmt.Errorf("buildutil: unsupported minibit version %d", version)
	}

	var codeLen uint32
	if err := binary.Read(r, binary.LittleEndian, &codeLen); err != nil {
		return nil, fmt.Errorf("buildutil: read code length: %w", err)
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, fmt.Errorf("buildutil: read code: %w", err)
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("buildutil: read oversized count: %w", err)
	}
	oversized := make(map[int]int, n)
	for i := uint32(0); i < n; i++ {
		var k, v uint32
		if err := binary.Read(r, binary.LittleEndian, &k); err != nil {
			return nil, fmt.Errorf("buildutil: read oversized key: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, fmt.Errorf("buildutil: read oversized value: %w", err)
		}
		oversized[int(k)] = int(v)
	}

	return &MinibitFile{Code: code, Oversized: oversized}, nil
}
