// Package estimator measures how many Brainfuck instructions the
// PrimaryInterpreter executes per second on this machine, for the
// CEmitter's partial-evaluation deadline budgeting.
package estimator

import (
	"bytes"
	"io"
	"sort"
	"time"

	"bfc/internal/bytecode"
	"bfc/internal/errors"
	"bfc/internal/tape"
	"bfc/internal/vm"

	"golang.org/x/sync/errgroup"
)

// sampleInstructions is the instruction budget the canonical workload is
// run under; it must be large enough to amortize interpreter startup cost
// but small enough that a single sample finishes quickly.
const sampleInstructions = 100_000

// scratchTapeSize is the tape size given to the canonical workload; it
// only ever touches two cells, so this is deliberately small.
const scratchTapeSize = 64

// canonicalWorkload builds the op stream for `+[>--++++<]`: cell 0 is set
// to 1 and never touched again inside the loop, so the loop runs forever.
// Never terminating (rather than running some large-but-finite count) is
// what makes the measurement immune to the loop happening to finish partway
// through the sample: every run is guaranteed to exhaust the full
// instruction budget, so elapsed wall-clock time divided by the budget is
// always a throughput measurement of the interpreter's dispatch loop, never
// partly a measurement of how fast the loop body's arithmetic converges.
func canonicalWorkload() []bytecode.Op {
	return []bytecode.Op{
		{Kind: bytecode.Inc, Operand: 1},       // 0: cell0 = 1
		{Kind: bytecode.LStart, Operand: 6},    // 1: while cell0 != 0 {
		{Kind: bytecode.IncPtr, Operand: 1},    // 2:   ptr = 1
		{Kind: bytecode.Dec, Operand: 2},       // 3:   cell1 -= 2
		{Kind: bytecode.Inc, Operand: 4},       // 4:   cell1 += 4
		{Kind: bytecode.DecPtr, Operand: 1},    // 5:   ptr = 0
		{Kind: bytecode.LEnd, Operand: 1},      // 6: }
	}
}

// EstimateInstructionsPerSecond runs the canonical workload under
// sampleInstructions and returns a throughput estimate in instructions per
// second.
func EstimateInstructionsPerSecond[C tape.Cell]() (uint64, error) {
	return EstimateFromOps[C](canonicalWorkload())
}

// EstimateFromOps is EstimateInstructionsPerSecond against a caller-supplied
// op stream, so a workload more representative of a specific program can be
// substituted in.
func EstimateFromOps[C tape.Cell](ops []bytecode.Op) (uint64, error) {
	it, err := vm.NewBuilder[C]().
		WithProgram(ops, nil).
		WithReader(bytes.NewReader(nil)).
		WithWriter(io.Discard).
		WithSize(scratchTapeSize).
		Build()
	if err != nil {
		return 0, err
	}

	start := time.Now()
	_, err = it.RunLimited(sampleInstructions)
	elapsed := time.Since(start)

	if err != nil {
		if rerr, ok := err.(*errors.RuntimeError); !ok || rerr.Kind != errors.NotEnoughInstructions {
			return 0, err
		}
	}

	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}
	return uint64(float64(sampleInstructions) / elapsed.Seconds()), nil
}

// EstimateConcurrent runs n independent estimations concurrently (using
// errgroup, since each estimation is wholly independent and the only
// shared state is the returned slice) and returns their median, which is
// steadier than a single sample on a machine with variable scheduling
// noise.
func EstimateConcurrent[C tape.Cell](n int) (uint64, error) {
	if n <= 0 {
		n = 1
	}
	results := make([]uint64, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			r, err := EstimateInstructionsPerSecond[C]()
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i] < results[j] })
	return results[len(results)/2], nil
}
