package looptree

import (
	"testing"

	"bfc/internal/errors"
	"bfc/internal/token"
)

func TestBuildWellFormed(t *testing.T) {
	tests := []struct {
		name   string
		tokens []token.Token
		want   []Node
	}{
		{
			name:   "flat sequence",
			tokens: []token.Token{{Kind: token.Inc, Count: 1}, {Kind: token.Write}},
			want:   []Node{{Kind: Inc, Count: 1}, {Kind: Write}},
		},
		{
			name: "single loop",
			tokens: []token.Token{
				{Kind: token.LStart},
				{Kind: token.Dec, Count: 1},
				{Kind: token.LEnd},
			},
			want: []Node{{Kind: Loop, Children: []Node{{Kind: Dec, Count: 1}}}},
		},
		{
			name: "nested loops",
			tokens: []token.Token{
				{Kind: token.LStart},
				{Kind: token.LStart},
				{Kind: token.Write},
				{Kind: token.LEnd},
				{Kind: token.LEnd},
			},
			want: []Node{{Kind: Loop, Children: []Node{
				{Kind: Loop, Children: []Node{{Kind: Write}}},
			}}},
		},
		{
			name:   "zero token passes through unchanged",
			tokens: []token.Token{{Kind: token.Zero}},
			want:   []Node{{Kind: Zero}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Build(tc.tokens)
			if err != nil {
				t.Fatalf("Build returned error: %v", err)
			}
			if !nodesEqual(got, tc.want) {
				t.Errorf("Build(%v) = %#v, want %#v", tc.tokens, got, tc.want)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		tokens []token.Token
		want   errors.CompileErrorKind
	}{
		{
			name:   "unmatched end",
			tokens: []token.Token{{Kind: token.LEnd}},
			want:   errors.LoopEndBeforeLoopStart,
		},
		{
			name:   "unclosed start",
			tokens: []token.Token{{Kind: token.LStart}},
			want:   errors.LoopCountMismatch,
		},
		{
			name: "end before matching start at nested depth",
			tokens: []token.Token{
				{Kind: token.LStart},
				{Kind: token.LEnd},
				{Kind: token.LEnd},
			},
			want: errors.LoopEndBeforeLoopStart,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.tokens)
			if err == nil {
				t.Fatal("Build returned nil error, want one")
			}
			ce, ok := err.(*errors.CompileError)
			if !ok {
				t.Fatalf("Build returned %T, want *errors.CompileError", err)
			}
			if ce.Kind != tc.want {
				t.Errorf("Build error kind = %v, want %v", ce.Kind, tc.want)
			}
		})
	}
}

func nodesEqual(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Count != b[i].Count {
			return false
		}
		if !nodesEqual(a[i].Children, b[i].Children) {
			return false
		}
	}
	return true
}
