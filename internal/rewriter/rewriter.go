// Package rewriter applies the four peephole passes that turn a bracket
// tree into the richer node set (Zero, Mul, If, WriteLoop) the lowering
// pass and the interpreters are built around. The pass order is fixed and
// load-bearing: rewrite_zero must run before rewrite_multiply (otherwise a
// multiply body ending in an unrecognized [-]/[+]  never gets the chance to
// present as a single Zero node), and rewrite_multiply must run before
// find_if_conditions (otherwise an If-wrapped multiply body can never
// qualify as a Mul, since If/Loop both disqualify a multiply candidate).
// rewrite_write_loops runs last since it looks for plain Write leaves that
// the earlier passes do not otherwise touch.
package rewriter

import "bfc/internal/looptree"

// Rewrite runs all four passes over nodes in place, in the fixed order.
func Rewrite(nodes []looptree.Node) {
	RewriteZero(nodes)
	RewriteMultiply(nodes)
	FindIfConditions(nodes)
	RewriteWriteLoops(nodes)
}

// RewriteZero collapses any Loop whose entire body is a single Inc(1) or
// Dec(1) into a Zero node. This subsumes the [+]/[-] case the tokenizer
// already folds, so it only finds new work in trees not built from
// Tokenize output. It works top-down: a nested loop that collapses to Zero
// does not make its parent a candidate.
func RewriteZero(nodes []looptree.Node) {
	for i := range nodes {
		if nodes[i].Kind != looptree.Loop {
			continue
		}
		if zeroBody(nodes[i].Children) {
			nodes[i] = looptree.Node{Kind: looptree.Zero}
		} else {
			RewriteZero(nodes[i].Children)
		}
	}
}

func zeroBody(children []looptree.Node) bool {
	if len(children) != 1 {
		return false
	}
	c := children[0]
	return (c.Kind == looptree.Inc || c.Kind == looptree.Dec) && c.Count == 1
}

// zCellOffset is the index of the loop's entry cell within the 64-cell
// scratch tape used to simulate a multiply-loop candidate.
const zCellOffset = 32
const scratchSize = 64

// RewriteMultiply collapses any Loop whose body consists solely of
// Inc/Dec/IncPtr/DecPtr, keeps the pointer within the scratch window, and
// leaves the entry cell decremented by exactly one and the pointer back
// where it started, into a single Mul node carrying the per-cell deltas.
func RewriteMultiply(nodes []looptree.Node) {
	for i := range nodes {
		if nodes[i].Kind != looptree.Loop {
			continue
		}
		if lo, hi, args, ok := asMultiply(nodes[i].Children); ok {
			nodes[i] = looptree.Node{Kind: looptree.Mul, RangeLo: lo, RangeHi: hi, Args: args}
		} else {
			RewriteMultiply(nodes[i].Children)
		}
	}
}

func asMultiply(children []looptree.Node) (lo, hi int64, args []looptree.MulArg, ok bool) {
	var cells [scratchSize]int64
	idx := zCellOffset

	for _, c := range children {
		switch c.Kind {
		case looptree.Inc:
			cells[idx] += int64(c.Count)
		case looptree.Dec:
			cells[idx] -= int64(c.Count)
		case looptree.IncPtr:
			next := idx + int(c.Count)
			if next >= scratchSize {
				return 0, 0, nil, false
			}
			idx = next
			if off := int64(idx - zCellOffset); off > hi {
				hi = off
			}
		case looptree.DecPtr:
			next := idx - int(c.Count)
			if next < 0 {
				return 0, 0, nil, false
			}
			idx = next
			if off := int64(idx - zCellOffset); off < lo {
				lo = off
			}
		default:
			return 0, 0, nil, false
		}
	}

	if idx != zCellOffset || cells[zCellOffset] != -1 {
		return 0, 0, nil, false
	}

	for i, v := range cells {
		if i == zCellOffset || v == 0 {
			continue
		}
		args = append(args, looptree.MulArg{Offset: int64(i - zCellOffset), Delta: v})
	}
	return lo, hi, args, true
}

// FindIfConditions runs bottom-up: any Loop whose body's last node is a
// Zero is known to execute at most once (the body always ends by zeroing
// the cell the loop condition tests), so it is rewritten to an If, which
// lowering can then compile without a backward jump.
func FindIfConditions(nodes []looptree.Node) {
	for i := range nodes {
		if nodes[i].Kind != looptree.Loop {
			continue
		}
		FindIfConditions(nodes[i].Children)
		children := nodes[i].Children
		if len(children) > 0 && children[len(children)-1].Kind == looptree.Zero {
			nodes[i] = looptree.Node{Kind: looptree.If, Children: children}
		}
	}
}

// maxWriteLoopNodes bounds how large a write loop's body (counting nested
// If bodies, which always terminate alongside it) may be before it is left
// as a plain Loop instead. This keeps the inlined batch-write fast path
// limited to genuinely small, hot loops.
const maxWriteLoopNodes = 32

// RewriteWriteLoops collapses any Loop whose body (including the bodies of
// nested Ifs) has no Read, no nested Loop or WriteLoop, and which has at
// least one Write among its direct children, into a WriteLoop, letting the
// interpreter batch its output instead of flushing per byte.
func RewriteWriteLoops(nodes []looptree.Node) {
	for i := range nodes {
		if nodes[i].Kind != looptree.Loop {
			continue
		}
		if isWriteLoop(nodes[i].Children) {
			nodes[i] = looptree.Node{Kind: looptree.WriteLoop, Children: nodes[i].Children}
		} else {
			RewriteWriteLoops(nodes[i].Children)
		}
	}
}

func isWriteLoop(children []looptree.Node) bool {
	if terminatingLen(children) >= maxWriteLoopNodes {
		return false
	}
	hasWrite := false
	for _, c := range children {
		switch c.Kind {
		case looptree.Loop, looptree.WriteLoop:
			return false
		case looptree.Read:
			return false
		case looptree.Write:
			hasWrite = true
		case looptree.If:
			if hasReadOrLoop(c.Children) {
				return false
			}
		}
	}
	return hasWrite
}

// hasReadOrLoop reports whether children, or the body of any If among them
// at any depth, contain a Read, Loop or WriteLoop.
func hasReadOrLoop(children []looptree.Node) bool {
	for _, c := range children {
		if c.Kind == looptree.Read || c.Kind == looptree.Loop || c.Kind == looptree.WriteLoop ||
			(c.Kind == looptree.If && hasReadOrLoop(c.Children)) {
			return true
		}
	}
	return false
}

// terminatingLen counts children plus, recursively, the children of any
// nested If (an If always terminates, same as everything but Loop and
// WriteLoop, so its body still counts toward the size bound).
func terminatingLen(children []looptree.Node) int {
	total := len(children)
	for _, c := range children {
		if c.Kind == looptree.If {
			total += terminatingLen(c.Children)
		}
	}
	return total
}
