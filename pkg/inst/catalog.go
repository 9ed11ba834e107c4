package inst

import (
	"fmt"
	"sort"
	"strings"
)

// Info holds static metadata for an instruction kind.
type Info struct {
	Mnemonic string // e.g. "Add", "JumpIfZero"
	Slots    []Slot // operand digits, most significant first
}

var (
	threeAddr   = []Slot{SlotSrc1, SlotSrc2, SlotDst}
	compareJump = []Slot{SlotTarget, SlotSrc1, SlotSrc2}
	indirectCmp = []Slot{SlotTarget, SlotBank, SlotSrc1, SlotSrc2}
)

// Catalog maps each OpCode to its Info.
var Catalog = [OpCodeCount]Info{
	Add:  {"Add", threeAddr},
	Sub:  {"Sub", threeAddr},
	Mul:  {"Mul", threeAddr},
	Div:  {"Div", threeAddr},
	Move: {"Move", []Slot{SlotSrc1, SlotDst}},
	Swap: {"Swap", []Slot{SlotSrc1, SlotSrc2}},
	Goto: {"Goto", []Slot{SlotTarget}},

	JumpIfGreater:        {"JumpIfGreater", compareJump},
	JumpIfLess:           {"JumpIfLess", compareJump},
	JumpIfGreaterOrEqual: {"JumpIfGreaterOrEqual", compareJump},
	JumpIfLessOrEqual:    {"JumpIfLessOrEqual", compareJump},
	JumpIfEqual:          {"JumpIfEqual", compareJump},
	JumpIfZero:           {"JumpIfZero", []Slot{SlotTarget, SlotSrc1}},

	LoadIndirect:  {"LoadIndirect", []Slot{SlotBank, SlotSrc1, SlotDst}},
	StoreIndirect: {"StoreIndirect", []Slot{SlotBank, SlotSrc1, SlotSrc2}},

	Inc:      {"Inc", []Slot{SlotDst}},
	Dec:      {"Dec", []Slot{SlotDst}},
	SetConst: {"SetC", []Slot{SlotDst, SlotImm}},

	SwapIndirect:          {"SwapIndirect", []Slot{SlotBank, SlotSrc1, SlotSrc2}},
	JumpIfLessIndirect:    {"JumpIfLessIndirect", indirectCmp},
	JumpIfGreaterIndirect: {"JumpIfGreaterIndirect", indirectCmp},
	JumpIfEqualIndirect:   {"JumpIfEqualIndirect", indirectCmp},
}

// InstructionSet is a closed, ordered catalog of instruction kinds. The order
// is part of the numbering scheme: kind i owns the combination indices after
// those of kinds 0..i-1.
type InstructionSet struct {
	Name string
	Ops  []OpCode
}

// Built-in instruction sets.
var (
	// B0: arithmetic, moves and comparison jumps.
	B0 = &InstructionSet{Name: "B0", Ops: []OpCode{
		Add, Sub, Mul, Div, Move, Swap, Goto,
		JumpIfGreater, JumpIfLess, JumpIfGreaterOrEqual, JumpIfLessOrEqual,
	}}

	// B1: B0 plus equality/zero jumps, indirect load/store and Inc/Dec.
	B1 = &InstructionSet{Name: "B1", Ops: []OpCode{
		Add, Sub, Mul, Div, Move, Swap, Goto,
		JumpIfGreater, JumpIfLess, JumpIfGreaterOrEqual, JumpIfLessOrEqual,
		JumpIfEqual, JumpIfZero, LoadIndirect, StoreIndirect, Inc, Dec,
	}}

	// S0: a sorting-oriented set built around indirect compare and swap.
	S0 = &InstructionSet{Name: "S0", Ops: []OpCode{
		SwapIndirect, JumpIfLessIndirect, JumpIfGreaterIndirect, JumpIfEqualIndirect,
		LoadIndirect, StoreIndirect, Inc, Dec, JumpIfEqual, JumpIfZero,
		SetConst, Goto, Move,
	}}
)

var sets = map[string]*InstructionSet{
	B0.Name: B0,
	B1.Name: B1,
	S0.Name: S0,
}

// LookupSet returns the built-in instruction set with the given name.
func LookupSet(name string) (*InstructionSet, error) {
	if s, ok := sets[strings.ToUpper(name)]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("unknown instruction set %q (have %s)", name, strings.Join(SetNames(), ", "))
}

// SetNames returns the names of all built-in instruction sets, sorted.
func SetNames() []string {
	names := make([]string, 0, len(sets))
	for n := range sets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Contains reports whether op belongs to the set.
func (is *InstructionSet) Contains(op OpCode) bool {
	for _, o := range is.Ops {
		if o == op {
			return true
		}
	}
	return false
}

// CombinationCount returns the number of distinct single instructions of the
// set for a program of length programLen.
func (is *InstructionSet) CombinationCount(l Layout, programLen int) uint64 {
	var total uint64
	for _, op := range is.Ops {
		total += op.CombinationCount(l, programLen)
	}
	return total
}

// Decode maps a combination index to an instruction: the owning kind is found
// by prefix sums over the set order, the rest of the index is decoded by the
// kind.
func (is *InstructionSet) Decode(l Layout, index uint64, programLen int) (Instruction, error) {
	var acc uint64
	for _, op := range is.Ops {
		n := op.CombinationCount(l, programLen)
		if index < acc+n {
			return op.Decode(l, index-acc, programLen), nil
		}
		acc += n
	}
	return Instruction{}, fmt.Errorf("%s: combination index %d out of range [0, %d)", is.Name, index, acc)
}

// Encode is the inverse of Decode.
func (is *InstructionSet) Encode(l Layout, in Instruction, programLen int) (uint64, error) {
	if !in.Valid(l, programLen) {
		return 0, fmt.Errorf("%s: invalid instruction %s for layout %s, length %d", is.Name, Disassemble(in), l, programLen)
	}
	if in.Op.IsJump() && in.Target == programLen {
		return 0, fmt.Errorf("%s: jump to the end of the program has no combination index", is.Name)
	}
	var acc uint64
	for _, op := range is.Ops {
		if op == in.Op {
			return acc + op.Encode(l, in, programLen), nil
		}
		acc += op.CombinationCount(l, programLen)
	}
	return 0, fmt.Errorf("%s: %s is not part of the set", is.Name, in.Op)
}

// DecodeTable caches the prefix sums of a set for one layout and program
// length, turning the kind lookup into a binary search.
type DecodeTable struct {
	layout     Layout
	programLen int
	ops        []OpCode
	ends       []uint64 // ends[i]: first index after kind i
}

// Table precomputes the decode offsets for programs of length programLen.
// Kinds with no combinations are left out.
func (is *InstructionSet) Table(l Layout, programLen int) *DecodeTable {
	t := &DecodeTable{layout: l, programLen: programLen}
	var acc uint64
	for _, op := range is.Ops {
		n := op.CombinationCount(l, programLen)
		if n == 0 {
			continue
		}
		acc += n
		t.ops = append(t.ops, op)
		t.ends = append(t.ends, acc)
	}
	return t
}

// Count returns the total number of combinations.
func (t *DecodeTable) Count() uint64 {
	if len(t.ends) == 0 {
		return 0
	}
	return t.ends[len(t.ends)-1]
}

// Decode is InstructionSet.Decode without the linear scan. index must be
// below Count.
func (t *DecodeTable) Decode(index uint64) Instruction {
	i := sort.Search(len(t.ends), func(i int) bool { return index < t.ends[i] })
	var start uint64
	if i > 0 {
		start = t.ends[i-1]
	}
	return t.ops[i].Decode(t.layout, index-start, t.programLen)
}
