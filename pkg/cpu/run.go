package cpu

import (
	"github.com/oisee/algopt/pkg/inst"
)

// DefaultStepLimit caps the instructions the fast cursor may execute before
// a run is reported as Undetermined.
const DefaultStepLimit = 1_000_000

// Outcome classifies a run.
type Outcome uint8

const (
	Halted       Outcome = iota // PC left the program
	Looping                     // a machine state repeated
	Undetermined                // step limit reached first
)

func (o Outcome) String() string {
	switch o {
	case Halted:
		return "halted"
	case Looping:
		return "looping"
	case Undetermined:
		return "undetermined"
	}
	return "?"
}

// Result describes one run on one input.
type Result struct {
	Outcome Outcome
	// Output is the output bank after halting, nil otherwise. Results from
	// a Runner alias its state and are valid until the next run.
	Output []uint8
	// Steps is the number of instructions the fast cursor executed.
	Steps uint64
}

// Runner executes programs with two cursors over the same program and
// input: the fast cursor takes two steps per round, the slow one takes one.
// Halting is decided by the fast cursor; after each round the full states
// are compared and equality proves the program loops.
//
// A Runner keeps its state buffers between runs and is not safe for
// concurrent use; give each worker its own.
type Runner struct {
	Limit uint64

	layout inst.Layout
	fast   *State
	slow   *State
	steps  uint64

	hook    func(TraceEvent) bool
	stopped bool
}

// NewRunner returns a runner for layout l. limit 0 means DefaultStepLimit.
func NewRunner(l inst.Layout, limit uint64) *Runner {
	if limit == 0 {
		limit = DefaultStepLimit
	}
	return &Runner{
		Limit:  limit,
		layout: l,
		fast:   NewState(l, nil),
		slow:   NewState(l, nil),
	}
}

// Layout returns the layout the runner was built for.
func (r *Runner) Layout() inst.Layout { return r.layout }

// Run executes p on input and classifies the run.
func (r *Runner) Run(p inst.Program, input []uint8) Result {
	r.fast.Reset(input)
	r.slow.Reset(input)
	r.steps = 0
	r.stopped = false

	for round := uint64(1); ; round++ {
		for i := 0; i < 2; i++ {
			if !r.stepFast(p, round) {
				return r.halted()
			}
			if r.stopped {
				return Result{Outcome: Undetermined, Steps: r.steps}
			}
		}
		Step(p, r.slow)
		r.emit(Slow, round, r.slow)
		if r.stopped {
			return Result{Outcome: Undetermined, Steps: r.steps}
		}
		if r.fast.Equal(r.slow) {
			return Result{Outcome: Looping, Steps: r.steps}
		}
		if r.steps >= r.Limit {
			return Result{Outcome: Undetermined, Steps: r.steps}
		}
	}
}

// stepFast advances the fast cursor by one instruction and reports whether
// it is still inside the program. Only instructions actually executed are
// counted.
func (r *Runner) stepFast(p inst.Program, round uint64) bool {
	s := r.fast
	if s.PC < 0 || s.PC >= len(p) {
		return false
	}
	Exec(s, &p[s.PC])
	r.steps++
	r.emit(Fast, round, s)
	return s.PC >= 0 && s.PC < len(p)
}

func (r *Runner) emit(c Cursor, round uint64, s *State) {
	if r.hook != nil && !r.stopped && !r.hook(TraceEvent{Cursor: c, Round: round, Steps: r.steps, State: s}) {
		r.stopped = true
	}
}

func (r *Runner) halted() Result {
	return Result{Outcome: Halted, Output: r.fast.Output(), Steps: r.steps}
}

// Run executes p once on input with a fresh runner and the default step
// limit. The returned output does not alias anything.
func Run(l inst.Layout, p inst.Program, input []uint8) Result {
	res := NewRunner(l, 0).Run(p, input)
	if res.Output != nil {
		res.Output = append([]uint8(nil), res.Output...)
	}
	return res
}
