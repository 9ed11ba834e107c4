package inst

// OpCode identifies an instruction kind. One enum covers the kinds of every
// built-in instruction set; a set is an ordered subset of it.
type OpCode uint8

// Instruction is one concrete instruction instance. Op is the tag; the other
// fields form the payload and their meaning is fixed per op by the op's
// operand slots (see Catalog). Unused fields stay zero.
//
// Small and comparable, so programs are plain slices copied by value.
type Instruction struct {
	Op     OpCode  `json:"op"`
	Src1   Address `json:"src1"`
	Src2   Address `json:"src2"`
	Dst    Address `json:"dst"`
	Bank   Bank    `json:"bank"`   // array selector of indirect ops
	Imm    uint8   `json:"imm"`    // constant of SetConst
	Target int     `json:"target"` // jump target
}

const (
	// Three-address arithmetic: Dst = Src1 op Src2 (mod 256).
	Add OpCode = iota
	Sub
	Mul
	Div // division by zero yields 0

	Move // Dst = Src1
	Swap // exchange Src1 and Src2

	Goto // PC = Target

	// Conditional jumps on Src1 <cmp> Src2.
	JumpIfGreater
	JumpIfLess
	JumpIfGreaterOrEqual
	JumpIfLessOrEqual
	JumpIfEqual
	JumpIfZero // on Src1 == 0

	// Indirect addressing: the byte in Src1 (or Src2) indexes into Bank.
	LoadIndirect  // Dst = Bank[Src1], 0 when out of range
	StoreIndirect // Bank[Src2] = Src1, skipped when out of range

	Inc // Dst++
	Dec // Dst--

	SetConst // Dst = Imm

	SwapIndirect          // exchange Bank[Src1] and Bank[Src2]
	JumpIfLessIndirect    // jump if Bank[Src1] < Bank[Src2]
	JumpIfGreaterIndirect // jump if Bank[Src1] > Bank[Src2]
	JumpIfEqualIndirect   // jump if Bank[Src1] == Bank[Src2]

	OpCodeCount
)

// Slot is an operand position of an instruction kind. Each slot is one digit
// of the kind's mixed-radix combination number.
type Slot uint8

const (
	SlotSrc1 Slot = iota
	SlotSrc2
	SlotDst
	SlotBank
	SlotImm
	SlotTarget
)

// Radix returns the number of legal values of slot s.
func (s Slot) Radix(l Layout, programLen int) uint64 {
	switch s {
	case SlotSrc1, SlotSrc2, SlotDst:
		return uint64(l.Size())
	case SlotBank:
		return BankCount
	case SlotImm:
		return 256
	case SlotTarget:
		if programLen < 0 {
			return 0
		}
		return uint64(programLen)
	}
	return 0
}

// digit reads the value of slot s out of an instruction.
func (in *Instruction) digit(s Slot, l Layout) uint64 {
	switch s {
	case SlotSrc1:
		return uint64(l.Index(in.Src1))
	case SlotSrc2:
		return uint64(l.Index(in.Src2))
	case SlotDst:
		return uint64(l.Index(in.Dst))
	case SlotBank:
		return uint64(in.Bank)
	case SlotImm:
		return uint64(in.Imm)
	case SlotTarget:
		return uint64(in.Target)
	}
	return 0
}

// setDigit stores value v into slot s.
func (in *Instruction) setDigit(s Slot, l Layout, v uint64) {
	switch s {
	case SlotSrc1:
		in.Src1 = l.Address(int(v))
	case SlotSrc2:
		in.Src2 = l.Address(int(v))
	case SlotDst:
		in.Dst = l.Address(int(v))
	case SlotBank:
		in.Bank = Bank(v)
	case SlotImm:
		in.Imm = uint8(v)
	case SlotTarget:
		in.Target = int(v)
	}
}

// CombinationCount returns the number of distinct instructions of kind op
// for a program of length programLen: the product of its slot radices.
func (op OpCode) CombinationCount(l Layout, programLen int) uint64 {
	n := uint64(1)
	for _, s := range Catalog[op].Slots {
		n *= s.Radix(l, programLen)
	}
	return n
}

// Decode builds the index-th instruction of kind op. The first slot is the
// most significant digit. index must be below CombinationCount.
func (op OpCode) Decode(l Layout, index uint64, programLen int) Instruction {
	in := Instruction{Op: op}
	slots := Catalog[op].Slots
	for i := len(slots) - 1; i >= 0; i-- {
		r := slots[i].Radix(l, programLen)
		if r == 0 {
			return in
		}
		in.setDigit(slots[i], l, index%r)
		index /= r
	}
	return in
}

// Encode is the left inverse of Decode.
func (op OpCode) Encode(l Layout, in Instruction, programLen int) uint64 {
	var index uint64
	for _, s := range Catalog[op].Slots {
		index = index*s.Radix(l, programLen) + in.digit(s, l)
	}
	return index
}

// IsJump reports whether op may redirect the program counter.
func (op OpCode) IsJump() bool {
	for _, s := range Catalog[op].Slots {
		if s == SlotTarget {
			return true
		}
	}
	return false
}

func (op OpCode) String() string {
	if op < OpCodeCount {
		return Catalog[op].Mnemonic
	}
	return "?"
}

// Valid reports whether every operand of in is legal for the layout and
// program length. A jump may target programLen, the end of the program,
// which halts; Decode never produces such jumps.
func (in Instruction) Valid(l Layout, programLen int) bool {
	if in.Op >= OpCodeCount {
		return false
	}
	for _, s := range Catalog[in.Op].Slots {
		switch s {
		case SlotSrc1:
			if !l.Contains(in.Src1) {
				return false
			}
		case SlotSrc2:
			if !l.Contains(in.Src2) {
				return false
			}
		case SlotDst:
			if !l.Contains(in.Dst) {
				return false
			}
		case SlotBank:
			if in.Bank >= BankCount {
				return false
			}
		case SlotTarget:
			if in.Target < 0 || in.Target > programLen {
				return false
			}
		}
	}
	return true
}
