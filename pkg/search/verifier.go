package search

import (
	"bytes"
	"fmt"

	"github.com/oisee/algopt/pkg/cpu"
	"github.com/oisee/algopt/pkg/inst"
)

// ForEachInput calls fn with every input vector of n bytes. Vectors are
// produced as a base-256 counter starting at all zeros, input[0] being the
// least significant digit. The slice passed to fn is reused between calls.
// Iteration stops early when fn returns false; ForEachInput then returns
// false too.
func ForEachInput(n int, fn func(input []uint8) bool) bool {
	input := make([]uint8, n)
	for {
		if !fn(input) {
			return false
		}
		i := 0
		for ; i < n; i++ {
			input[i]++
			if input[i] != 0 {
				break
			}
		}
		if i == n {
			return true
		}
	}
}

// agree reports whether a candidate run matches a reference run on one
// input: both loop, or both halt with identical output banks. A run that
// hit the step limit never agrees with anything.
func agree(refOutcome cpu.Outcome, refOutput []uint8, cand cpu.Result) bool {
	if refOutcome == cpu.Undetermined || cand.Outcome == cpu.Undetermined {
		return false
	}
	if refOutcome != cand.Outcome {
		return false
	}
	return refOutcome != cpu.Halted || bytes.Equal(refOutput, cand.Output)
}

// Equivalent checks a and b over every input vector. When they are
// equivalent it also returns the total step count of b over all inputs.
// Temp registers are not compared.
func Equivalent(l inst.Layout, a, b inst.Program, limit uint64) (bool, uint64) {
	ra := cpu.NewRunner(l, limit)
	rb := cpu.NewRunner(l, limit)
	var steps uint64
	ok := ForEachInput(l.Inputs, func(input []uint8) bool {
		resA := ra.Run(a, input)
		resB := rb.Run(b, input)
		if !agree(resA.Outcome, resA.Output, resB) {
			return false
		}
		steps += resB.Steps
		return true
	})
	if !ok {
		return false, 0
	}
	return true, steps
}

// ProbeInputs returns the fixed input vectors Checker.QuickCheck runs. They are
// chosen to reject most non-equivalent candidates after a handful of runs.
func ProbeInputs(n int) [][]uint8 {
	patterns := []func(i int) uint8{
		func(int) uint8 { return 0x00 },
		func(int) uint8 { return 0xFF },
		func(i int) uint8 { return uint8(i + 1) },
		func(i int) uint8 { return uint8(0x80 >> (i % 8)) },
		func(i int) uint8 { return []uint8{0x55, 0xAA}[i%2] },
		func(i int) uint8 { return []uint8{0xAA, 0x55}[i%2] },
		func(i int) uint8 { return []uint8{0x0F, 0xF0}[i%2] },
		func(i int) uint8 { return []uint8{0x7F, 0x80}[i%2] },
		func(i int) uint8 { return uint8(3 + 5*i) },
		func(i int) uint8 { return uint8(200 - 7*i) },
	}
	if n == 0 {
		return [][]uint8{{}}
	}
	out := make([][]uint8, len(patterns))
	for p, f := range patterns {
		v := make([]uint8, n)
		for i := range v {
			v[i] = f(i)
		}
		out[p] = v
	}
	return out
}

// maxCachedInputs bounds the input space for which an Oracle keeps every
// reference result in memory.
const maxCachedInputs = 1 << 16

type refRun struct {
	outcome cpu.Outcome
	output  []uint8
}

// Oracle decides equivalence against one fixed reference program. Creating
// it sweeps the reference once to measure its baseline cost; small input
// spaces keep the reference results so candidates run alone.
type Oracle struct {
	layout    inst.Layout
	reference inst.Program
	limit     uint64
	baseline  uint64

	probes    [][]uint8
	probeRuns []refRun
	cache     []refRun // indexed by input counter value; nil when not cached
}

// NewOracle sweeps the reference over every input. It fails when the
// reference itself cannot be classified on some input within the step
// limit, since then no candidate can be proven equivalent.
func NewOracle(l inst.Layout, reference inst.Program, limit uint64) (*Oracle, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if !reference.Valid(l) {
		return nil, fmt.Errorf("reference program is not valid for layout %s", l)
	}
	o := &Oracle{
		layout:    l,
		reference: reference.Clone(),
		limit:     limit,
		probes:    ProbeInputs(l.Inputs),
	}
	r := cpu.NewRunner(l, limit)

	cached := l.Inputs <= 2 // 256^N <= maxCachedInputs
	if cached {
		o.cache = make([]refRun, 0, inputSpace(l.Inputs))
	}
	var bad []uint8
	ForEachInput(l.Inputs, func(input []uint8) bool {
		res := r.Run(o.reference, input)
		if res.Outcome == cpu.Undetermined {
			bad = append([]uint8(nil), input...)
			return false
		}
		o.baseline += res.Steps
		if cached {
			o.cache = append(o.cache, snapshot(res))
		}
		return true
	})
	if bad != nil {
		return nil, fmt.Errorf("reference exceeds the step limit of %d on input %v", r.Limit, bad)
	}

	o.probeRuns = make([]refRun, len(o.probes))
	for i, input := range o.probes {
		o.probeRuns[i] = snapshot(r.Run(o.reference, input))
	}
	return o, nil
}

func inputSpace(n int) int {
	if n > 2 {
		return maxCachedInputs
	}
	return 1 << (8 * n)
}

func snapshot(res cpu.Result) refRun {
	return refRun{outcome: res.Outcome, output: append([]uint8(nil), res.Output...)}
}

// Reference returns the reference program.
func (o *Oracle) Reference() inst.Program { return o.reference }

// Baseline returns the total step count of the reference over all inputs.
func (o *Oracle) Baseline() uint64 { return o.baseline }

// Cached reports whether reference results are kept in memory.
func (o *Oracle) Cached() bool { return o.cache != nil }

// Verdict is the oracle's answer for one candidate.
type Verdict struct {
	Equivalent bool
	Steps      uint64 // total candidate steps; meaningful only when Equivalent
}

// Checker evaluates candidates against an Oracle. Each worker needs its own.
type Checker struct {
	o   *Oracle
	ref *cpu.Runner
	run *cpu.Runner
}

// NewChecker returns a checker bound to o.
func (o *Oracle) NewChecker() *Checker {
	return &Checker{
		o:   o,
		ref: cpu.NewRunner(o.layout, o.limit),
		run: cpu.NewRunner(o.layout, o.limit),
	}
}

// QuickCheck reports whether cand agrees with the reference on the probe
// inputs. A false result proves the programs differ; true proves nothing.
func (c *Checker) QuickCheck(cand inst.Program) bool {
	for i, input := range c.o.probes {
		ref := &c.o.probeRuns[i]
		if !agree(ref.outcome, ref.output, c.run.Run(cand, input)) {
			return false
		}
	}
	return true
}

// Check runs cand on every input and compares it with the reference.
func (c *Checker) Check(cand inst.Program) Verdict {
	if !c.QuickCheck(cand) {
		return Verdict{}
	}
	var steps uint64
	idx := 0
	ok := ForEachInput(c.o.layout.Inputs, func(input []uint8) bool {
		var refOutcome cpu.Outcome
		var refOutput []uint8
		if c.o.cache != nil {
			ref := &c.o.cache[idx]
			idx++
			refOutcome, refOutput = ref.outcome, ref.output
		} else {
			res := c.ref.Run(c.o.reference, input)
			refOutcome, refOutput = res.Outcome, res.Output
		}
		res := c.run.Run(cand, input)
		if !agree(refOutcome, refOutput, res) {
			return false
		}
		steps += res.Steps
		return true
	})
	if !ok {
		return Verdict{}
	}
	return Verdict{Equivalent: true, Steps: steps}
}
