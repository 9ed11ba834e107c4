package search

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/oisee/algopt/pkg/inst"
)

// Enumerator walks every program of one length over an instruction set.
// The program is an L-digit counter in base Radix; digit i is the
// combination index of instruction i, and the last digit is the least
// significant. Each program is visited exactly once, in increasing order.
type Enumerator struct {
	set    *inst.InstructionSet
	layout inst.Layout
	table  *inst.DecodeTable
	radix  uint64
	digits []uint64
}

// NewEnumerator returns an enumerator positioned at the all-zero program.
func NewEnumerator(set *inst.InstructionSet, l inst.Layout, length int) (*Enumerator, error) {
	if length < 1 {
		return nil, fmt.Errorf("program length %d must be positive", length)
	}
	table := set.Table(l, length)
	if table.Count() == 0 {
		return nil, fmt.Errorf("%s has no instructions for layout %s", set.Name, l)
	}
	return &Enumerator{
		set:    set,
		layout: l,
		table:  table,
		radix:  table.Count(),
		digits: make([]uint64, length),
	}, nil
}

// Length returns the program length.
func (e *Enumerator) Length() int { return len(e.digits) }

// Radix returns the number of distinct instructions per position.
func (e *Enumerator) Radix() uint64 { return e.radix }

// Digits returns a copy of the current position.
func (e *Enumerator) Digits() []uint64 {
	return append([]uint64(nil), e.digits...)
}

// Generate decodes the current program into fresh storage.
func (e *Enumerator) Generate() inst.Program {
	p := make(inst.Program, len(e.digits))
	e.GenerateInto(p)
	return p
}

// GenerateInto decodes the current program into p, which must have Length
// elements.
func (e *Enumerator) GenerateInto(p inst.Program) {
	for i, d := range e.digits {
		p[i] = e.table.Decode(d)
	}
}

// Next advances to the following program. It returns false once every
// digit has wrapped, leaving the enumerator back at the all-zero program.
func (e *Enumerator) Next() bool {
	for i := len(e.digits) - 1; i >= 0; i-- {
		e.digits[i]++
		if e.digits[i] < e.radix {
			return true
		}
		e.digits[i] = 0
	}
	return false
}

// Seek moves to the given position, as returned by Digits.
func (e *Enumerator) Seek(digits []uint64) error {
	if len(digits) != len(e.digits) {
		return fmt.Errorf("position has %d digits, want %d", len(digits), len(e.digits))
	}
	for i, d := range digits {
		if d >= e.radix {
			return fmt.Errorf("digit %d = %d out of range [0, %d)", i, d, e.radix)
		}
	}
	copy(e.digits, digits)
	return nil
}

// Ordinal returns the mixed-radix value of the current position.
func (e *Enumerator) Ordinal() *big.Int {
	n := new(big.Int)
	r := new(big.Int).SetUint64(e.radix)
	d := new(big.Int)
	for _, v := range e.digits {
		n.Mul(n, r)
		n.Add(n, d.SetUint64(v))
	}
	return n
}

// Total returns the number of programs of this length, Radix^Length.
func (e *Enumerator) Total() *big.Int {
	r := new(big.Int).SetUint64(e.radix)
	return r.Exp(r, big.NewInt(int64(len(e.digits))), nil)
}

// ID renders the current position as "[0x0, 0x1f]".
func (e *Enumerator) ID() string {
	return formatID(e.digits)
}

// LastID renders the final position of the enumeration.
func (e *Enumerator) LastID() string {
	last := make([]uint64, len(e.digits))
	for i := range last {
		last[i] = e.radix - 1
	}
	return formatID(last)
}

func formatID(digits []uint64) string {
	parts := make([]string, len(digits))
	for i, d := range digits {
		parts[i] = "0x" + strconv.FormatUint(d, 16)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
