package inst

import (
	"strconv"
	"strings"
)

// Program is an ordered sequence of instructions. Programs handed out by the
// enumerator are never mutated by the code that executes them.
type Program []Instruction

// Clone returns a copy of p that shares no storage with it.
func (p Program) Clone() Program {
	c := make(Program, len(p))
	copy(c, p)
	return c
}

// Equal reports whether two programs consist of the same instructions.
func (p Program) Equal(o Program) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Valid reports whether every instruction of p is legal for the layout.
func (p Program) Valid(l Layout) bool {
	for i := range p {
		if !p[i].Valid(l, len(p)) {
			return false
		}
	}
	return true
}

// Dump returns a numbered listing, one instruction per line.
func (p Program) Dump() string {
	var sb strings.Builder
	for i := range p {
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(": ")
		sb.WriteString(Disassemble(p[i]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DumpAt is Dump with the instruction at pc marked by "=> ".
func (p Program) DumpAt(pc int) string {
	var sb strings.Builder
	for i := range p {
		if i == pc {
			sb.WriteString("=> ")
		} else {
			sb.WriteString("   ")
		}
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(": ")
		sb.WriteString(Disassemble(p[i]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Listing returns the disassembly of every instruction.
func (p Program) Listing() []string {
	out := make([]string, len(p))
	for i := range p {
		out[i] = Disassemble(p[i])
	}
	return out
}

func (p Program) String() string {
	return strings.Join(p.Listing(), " : ")
}

// Disassemble returns the text form of an instruction.
func Disassemble(in Instruction) string {
	m := in.Op.String()
	target := strconv.Itoa(in.Target)
	switch in.Op {
	case Add:
		return m + " " + in.Dst.String() + " = " + in.Src1.String() + " + " + in.Src2.String()
	case Sub:
		return m + " " + in.Dst.String() + " = " + in.Src1.String() + " - " + in.Src2.String()
	case Mul:
		return m + " " + in.Dst.String() + " = " + in.Src1.String() + " * " + in.Src2.String()
	case Div:
		return m + " " + in.Dst.String() + " = " + in.Src1.String() + " / " + in.Src2.String()
	case Move:
		return m + " " + in.Dst.String() + " = " + in.Src1.String()
	case Swap:
		return m + " " + in.Src1.String() + " <-> " + in.Src2.String()
	case Goto:
		return m + " " + target
	case JumpIfGreater:
		return m + " " + in.Src1.String() + " > " + in.Src2.String() + " -> " + target
	case JumpIfLess:
		return m + " " + in.Src1.String() + " < " + in.Src2.String() + " -> " + target
	case JumpIfGreaterOrEqual:
		return m + " " + in.Src1.String() + " >= " + in.Src2.String() + " -> " + target
	case JumpIfLessOrEqual:
		return m + " " + in.Src1.String() + " <= " + in.Src2.String() + " -> " + target
	case JumpIfEqual:
		return m + " " + in.Src1.String() + " == " + in.Src2.String() + " -> " + target
	case JumpIfZero:
		return m + " " + in.Src1.String() + " == 0 -> " + target
	case LoadIndirect:
		return m + " " + in.Dst.String() + " = " + indirect(in.Bank, in.Src1)
	case StoreIndirect:
		return m + " " + indirect(in.Bank, in.Src2) + " = " + in.Src1.String()
	case Inc:
		return m + " " + in.Dst.String() + "++"
	case Dec:
		return m + " " + in.Dst.String() + "--"
	case SetConst:
		return m + " " + in.Dst.String() + " = " + strconv.Itoa(int(in.Imm))
	case SwapIndirect:
		return m + " " + indirect(in.Bank, in.Src1) + " <-> " + indirect(in.Bank, in.Src2)
	case JumpIfLessIndirect:
		return m + " " + indirect(in.Bank, in.Src1) + " < " + indirect(in.Bank, in.Src2) + " -> " + target
	case JumpIfGreaterIndirect:
		return m + " " + indirect(in.Bank, in.Src1) + " > " + indirect(in.Bank, in.Src2) + " -> " + target
	case JumpIfEqualIndirect:
		return m + " " + indirect(in.Bank, in.Src1) + " == " + indirect(in.Bank, in.Src2) + " -> " + target
	}
	return "?"
}

func indirect(b Bank, index Address) string {
	return b.String() + "[" + index.String() + "]"
}
