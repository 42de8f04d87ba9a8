// Package looptree builds the nested tree of Brainfuck operations that the
// rewriter's four passes operate on, turning a flat token stream into
// properly-bracketed Loop nodes (or failing with the two loop-matching
// errors that a malformed program can produce).
package looptree

import (
	"bfc/internal/errors"
	"bfc/internal/token"
)

// Kind is the tag of a single tree node.
type Kind uint8

const (
	Zero Kind = iota
	Inc
	Dec
	IncPtr
	DecPtr
	Read
	Write
	Mul
	Loop
	If
	WriteLoop
)

// MulArg is one nonzero destination cell of a multiply loop, relative to
// the loop's entry pointer position.
type MulArg struct {
	Offset int64
	Delta  int64
}

// Node is one entry of the tree. Count carries the run length for
// Inc/Dec/IncPtr/DecPtr. Children carries the body for Loop, If and
// WriteLoop. RangeLo/RangeHi/Args describe a Mul node's recipe.
type Node struct {
	Kind     Kind
	Count    uint64
	Children []Node

	RangeLo, RangeHi int64
	Args             []MulArg
}

// Build consumes a folded token stream and produces the bracket-matched
// tree. LoopCountMismatch is returned for an unclosed '[', and
// LoopEndBeforeLoopStart for a ']' with no matching '[' still open.
func Build(tokens []token.Token) ([]Node, error) {
	nodes, _, err := parseSeq(tokens, 0, false)
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func parseSeq(tokens []token.Token, i int, inLoop bool) ([]Node, int, error) {
	var out []Node
	for i < len(tokens) {
		t := tokens[i]
		switch t.Kind {
		case token.LEnd:
			if inLoop {
				return out, i + 1, nil
			}
			return nil, 0, errors.NewCompileError(errors.LoopEndBeforeLoopStart)
		case token.LStart:
			body, ni, err := parseSeq(tokens, i+1, true)
			if err != nil {
				return nil, 0, err
			}
			out = append(out, Node{Kind: Loop, Children: body})
			i = ni
		default:
			out = append(out, leaf(t))
			i++
		}
	}
	if inLoop {
		return nil, 0, errors.NewCompileError(errors.LoopCountMismatch)
	}
	return out, i, nil
}

func leaf(t token.Token) Node {
	switch t.Kind {
	case token.Zero:
		return Node{Kind: Zero}
	case token.Inc:
		return Node{Kind: Inc, Count: t.Count}
	case token.Dec:
		return Node{Kind: Dec, Count: t.Count}
	case token.IncPtr:
		return Node{Kind: IncPtr, Count: t.Count}
	case token.DecPtr:
		return Node{Kind: DecPtr, Count: t.Count}
	case token.Read:
		return Node{Kind: Read}
	case token.Write:
		return Node{Kind: Write}
	default:
		panic("looptree: unreachable token kind in leaf position")
	}
}
