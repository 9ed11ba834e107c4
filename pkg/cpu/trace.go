package cpu

import (
	"fmt"
	"strings"

	"github.com/oisee/algopt/pkg/inst"
)

// Cursor names one of the two cursors of a Runner.
type Cursor uint8

const (
	Fast Cursor = iota
	Slow
)

func (c Cursor) String() string {
	if c == Fast {
		return "fast"
	}
	return "slow"
}

// TraceEvent is reported after every instruction either cursor executes.
// State aliases the cursor's live state.
type TraceEvent struct {
	Cursor Cursor
	Round  uint64
	Steps  uint64 // fast cursor steps so far
	State  *State
}

// Trace runs p like Runner.Run and calls fn after every cursor step. When fn
// returns false the run stops and is reported as Undetermined. The output of
// a halted trace does not alias the runner.
func Trace(l inst.Layout, p inst.Program, input []uint8, limit uint64, fn func(TraceEvent) bool) Result {
	r := NewRunner(l, limit)
	r.hook = fn
	res := r.Run(p, input)
	if res.Output != nil {
		res.Output = append([]uint8(nil), res.Output...)
	}
	return res
}

// DumpState renders every bank and the program counter, one per line.
func DumpState(s *State) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Input variables:  %s\n", bytesList(s.Input()))
	fmt.Fprintf(&sb, "Output variables: %s\n", bytesList(s.Output()))
	fmt.Fprintf(&sb, "Temp variables:   %s\n", bytesList(s.Temp()))
	fmt.Fprintf(&sb, "Instruction pointer: %d", s.PC)
	return sb.String()
}

// DumpExecution renders the state followed by the program listing with the
// current instruction marked.
func DumpExecution(s *State, p inst.Program) string {
	return DumpState(s) + "\n\nProgram:\n" + p.DumpAt(s.PC)
}

func bytesList(b []uint8) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
