// Package demo holds small named reference programs used by the CLI and
// tests.
package demo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oisee/algopt/pkg/inst"
)

// Demo is a reference program together with the machine it runs on.
type Demo struct {
	Name        string
	Description string
	Set         *inst.InstructionSet
	Layout      inst.Layout
	Program     inst.Program
	Sample      []uint8 // input shown by the run command
	MaxLen      int     // suggested search length
}

var demos = []*Demo{
	{
		Name:        "sum3",
		Description: "output[0] = input[0] + input[1] + input[2], straight-line",
		Set:         inst.B0,
		Layout:      inst.Layout{Inputs: 3, Outputs: 1},
		Program: inst.Program{
			{Op: inst.Move, Src1: inst.In(0), Dst: inst.Out(0)},
			{Op: inst.Add, Src1: inst.Out(0), Src2: inst.In(1), Dst: inst.Out(0)},
			{Op: inst.Add, Src1: inst.Out(0), Src2: inst.In(2), Dst: inst.Out(0)},
		},
		Sample: []uint8{1, 2, 3},
		MaxLen: 1,
	},
	{
		Name:        "loop-sum",
		Description: "output[0] = input[0] + input[1], counting both inputs down with Inc/Dec",
		Set:         inst.B1,
		Layout:      inst.Layout{Inputs: 2, Outputs: 1},
		Program: inst.Program{
			{Op: inst.JumpIfZero, Src1: inst.In(0), Target: 4},
			{Op: inst.Inc, Dst: inst.Out(0)},
			{Op: inst.Dec, Dst: inst.In(0)},
			{Op: inst.Goto, Target: 0},
			{Op: inst.JumpIfZero, Src1: inst.In(1), Target: 8},
			{Op: inst.Dec, Dst: inst.In(1)},
			{Op: inst.Inc, Dst: inst.Out(0)},
			{Op: inst.Goto, Target: 4},
		},
		Sample: []uint8{3, 5},
		MaxLen: 1,
	},
	{
		Name:        "copy-noise",
		Description: "output[0] = input[0] with a redundant Inc/Dec pair",
		Set:         inst.B1,
		Layout:      inst.Layout{Inputs: 1, Outputs: 1},
		Program: inst.Program{
			{Op: inst.Move, Src1: inst.In(0), Dst: inst.Out(0)},
			{Op: inst.Inc, Dst: inst.Out(0)},
			{Op: inst.Dec, Dst: inst.Out(0)},
		},
		Sample: []uint8{42},
		MaxLen: 2,
	},
}

// Lookup returns the demo with the given name.
func Lookup(name string) (*Demo, error) {
	for _, d := range demos {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown demo %q (have %s)", name, strings.Join(Names(), ", "))
}

// Names returns the demo names, sorted.
func Names() []string {
	names := make([]string, len(demos))
	for i, d := range demos {
		names[i] = d.Name
	}
	sort.Strings(names)
	return names
}

// All returns every demo in declaration order.
func All() []*Demo {
	return demos
}
