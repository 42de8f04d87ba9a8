// Package lowering walks the rewritten loop tree and flattens it into a
// bytecode.Op stream that every execution tier (PrimaryInterpreter,
// CEmitter) drives from, plus a deduplicated table of multiply recipes that
// Multiply ops index into.
package lowering

import (
	"fmt"
	"math"

	"bfc/internal/bytecode"
	"bfc/internal/errors"
	"bfc/internal/looptree"
)

// maxStreamLen bounds the number of Op entries lowering will produce;
// exceeding it surfaces as a compile-time Overflow rather than letting a
// uint32 jump-target operand silently wrap.
const maxStreamLen = math.MaxInt32 / 2

// Result is the output of Lower: a flat instruction stream and the side
// table its Multiply ops reference by index.
type Result struct {
	Ops     []bytecode.Op
	Recipes []bytecode.DistinctMultiply
}

// Lower flattens a rewritten tree (see package rewriter) into a Result.
func Lower(nodes []looptree.Node) (*Result, error) {
	s := &state{recipeIndex: map[string]uint32{}}
	s.emit(nodes)
	if len(s.ops) > maxStreamLen {
		return nil, errors.NewCompileError(errors.StreamOverflow)
	}
	return &Result{Ops: s.ops, Recipes: s.recipes}, nil
}

type state struct {
	ops         []bytecode.Op
	recipes     []bytecode.DistinctMultiply
	recipeIndex map[string]uint32
}

func (s *state) emit(nodes []looptree.Node) {
	for _, n := range nodes {
		switch n.Kind {
		case looptree.Zero:
			s.ops = append(s.ops, bytecode.Op{Kind: bytecode.Zero})
		case looptree.Inc:
			s.ops = append(s.ops, bytecode.Op{Kind: bytecode.Inc, Operand: uint32(n.Count)})
		case looptree.Dec:
			s.ops = append(s.ops, bytecode.Op{Kind: bytecode.Dec, Operand: uint32(n.Count)})
		case looptree.IncPtr:
			s.ops = append(s.ops, bytecode.Op{Kind: bytecode.IncPtr, Operand: uint32(n.Count)})
		case looptree.DecPtr:
			s.ops = append(s.ops, bytecode.Op{Kind: bytecode.DecPtr, Operand: uint32(n.Count)})
		case looptree.Read:
			s.ops = append(s.ops, bytecode.Op{Kind: bytecode.Read})
		case looptree.Write:
			s.ops = append(s.ops, bytecode.Op{Kind: bytecode.Write})
		case looptree.Mul:
			idx := s.internRecipe(n.RangeLo, n.RangeHi, n.Args)
			s.ops = append(s.ops, bytecode.Op{Kind: bytecode.Multiply, Operand: idx})
		case looptree.Loop:
			s.emitLoop(n.Children)
		case looptree.WriteLoop:
			s.emitWriteLoop(n.Children)
		case looptree.If:
			s.emitIf(n.Children)
		}
	}
}

// emitLoop appends LStart ... LEnd, except that if the body's own last
// instruction already turned out to be an LEnd (because the body's last
// child was itself a Loop), that instruction is reused as this loop's end
// marker instead of appending a redundant one. Both ends would test the
// same current cell at that point in the stream (nothing runs between
// them), so the two decisions can never diverge.
func (s *state) emitLoop(children []looptree.Node) {
	sIdx := len(s.ops)
	s.ops = append(s.ops, bytecode.Op{Kind: bytecode.LStart})
	s.emit(children)

	var eIdx int
	if n := len(s.ops); n > 0 && s.ops[n-1].Kind == bytecode.LEnd {
		eIdx = n - 1
	} else {
		eIdx = len(s.ops)
		s.ops = append(s.ops, bytecode.Op{Kind: bytecode.LEnd, Operand: uint32(sIdx)})
	}
	s.ops[sIdx].Operand = uint32(eIdx)
}

func (s *state) emitWriteLoop(children []looptree.Node) {
	sIdx := len(s.ops)
	s.ops = append(s.ops, bytecode.Op{Kind: bytecode.WLStart})
	s.emit(children)

	eIdx := len(s.ops)
	s.ops = append(s.ops, bytecode.Op{Kind: bytecode.WLEnd, Operand: uint32(sIdx)})
	s.ops[sIdx].Operand = uint32(eIdx)
}

// emitIf never appends a matching end instruction: an If's body always
// ends in a Zero node (by construction, see rewriter.FindIfConditions), so
// the LStart's forward-skip target is simply the index of that final
// instruction. Jumping there and falling through (as every LStart does)
// lands one past it, skipping the body; falling through normally executes
// it like any other instruction and arrives at the same place. If the body
// produced no instructions at all, the placeholder LStart is elided.
func (s *state) emitIf(children []looptree.Node) {
	sIdx := len(s.ops)
	s.ops = append(s.ops, bytecode.Op{Kind: bytecode.LStart})
	s.emit(children)

	if len(s.ops) == sIdx+1 {
		s.ops = s.ops[:sIdx]
		return
	}
	eIdx := len(s.ops) - 1
	s.ops[sIdx].Operand = uint32(eIdx)
}

func (s *state) internRecipe(lo, hi int64, args []looptree.MulArg) uint32 {
	bArgs := make([]bytecode.MulArg, len(args))
	for i, a := range args {
		bArgs[i] = bytecode.MulArg{Offset: a.Offset, Delta: a.Delta}
	}
	key := fmt.Sprintf("%d:%d:%v", lo, hi, bArgs)
	if idx, ok := s.recipeIndex[key]; ok {
		return idx
	}
	idx := uint32(len(s.recipes))
	s.recipes = append(s.recipes, bytecode.DistinctMultiply{Lo: lo, Hi: hi, Args: bArgs})
	s.recipeIndex[key] = idx
	return idx
}
