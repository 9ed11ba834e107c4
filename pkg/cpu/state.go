package cpu

import (
	"bytes"

	"github.com/oisee/algopt/pkg/inst"
)

// State is the full machine state: the program counter plus one flat register
// file holding the Input, Output and Temp banks in that order.
//
// Two states are equal iff PC and every register match. The twin-cursor
// engine relies on that: a repeated state is a proven loop.
type State struct {
	PC     int
	layout inst.Layout
	regs   []uint8
}

// NewState returns a state for layout l with the input bank loaded from
// input, all other registers zero and PC 0.
func NewState(l inst.Layout, input []uint8) *State {
	s := &State{layout: l, regs: make([]uint8, l.Size())}
	s.Reset(input)
	return s
}

// Reset zeroes the state and loads a new input vector. Missing input bytes
// read as zero, extra ones are ignored.
func (s *State) Reset(input []uint8) {
	s.PC = 0
	clear(s.regs)
	copy(s.regs[:s.layout.Inputs], input)
}

// Layout returns the bank sizes of the state.
func (s *State) Layout() inst.Layout { return s.layout }

func (s *State) bank(b inst.Bank) []uint8 {
	off := s.layout.BankOffset(b)
	return s.regs[off : off+s.layout.BankSize(b)]
}

// Input, Output and Temp return views of the banks. They alias the state.
func (s *State) Input() []uint8  { return s.bank(inst.Input) }
func (s *State) Output() []uint8 { return s.bank(inst.Output) }
func (s *State) Temp() []uint8   { return s.bank(inst.Temp) }

// Get reads a register. a must be a legal address of the layout.
func (s *State) Get(a inst.Address) uint8 {
	return s.regs[s.layout.Index(a)]
}

// Set writes a register. a must be a legal address of the layout.
func (s *State) Set(a inst.Address, v uint8) {
	s.regs[s.layout.Index(a)] = v
}

// Load reads bank[index], or 0 when index is past the end of the bank.
func (s *State) Load(b inst.Bank, index uint8) uint8 {
	if int(index) >= s.layout.BankSize(b) {
		return 0
	}
	return s.regs[s.layout.BankOffset(b)+int(index)]
}

// Store writes bank[index]. Out-of-range stores are dropped.
func (s *State) Store(b inst.Bank, index uint8, v uint8) {
	if int(index) >= s.layout.BankSize(b) {
		return
	}
	s.regs[s.layout.BankOffset(b)+int(index)] = v
}

// CopyFrom overwrites s with o. Both must share a layout.
func (s *State) CopyFrom(o *State) {
	s.PC = o.PC
	copy(s.regs, o.regs)
}

// Clone returns an independent copy of s.
func (s *State) Clone() *State {
	c := &State{PC: s.PC, layout: s.layout, regs: make([]uint8, len(s.regs))}
	copy(c.regs, s.regs)
	return c
}

// Equal reports whether two states are identical.
func (s *State) Equal(o *State) bool {
	return s.PC == o.PC && bytes.Equal(s.regs, o.regs)
}
