package inst

import (
	"strings"
	"testing"
)

// TestCatalogCompleteness verifies every OpCode has a catalog entry.
func TestCatalogCompleteness(t *testing.T) {
	for op := OpCode(0); op < OpCodeCount; op++ {
		info := &Catalog[op]
		if info.Mnemonic == "" {
			t.Errorf("OpCode %d has no mnemonic", op)
		}
		if len(info.Slots) == 0 {
			t.Errorf("OpCode %d (%s) has no operand slots", op, info.Mnemonic)
		}
	}
}

// TestSetSizes verifies the kind lists of the built-in sets.
func TestSetSizes(t *testing.T) {
	tests := []struct {
		set  *InstructionSet
		want int
	}{
		{B0, 11},
		{B1, 17},
		{S0, 13},
	}
	for _, tc := range tests {
		if len(tc.set.Ops) != tc.want {
			t.Errorf("%s: %d kinds, want %d", tc.set.Name, len(tc.set.Ops), tc.want)
		}
		seen := map[OpCode]bool{}
		for _, op := range tc.set.Ops {
			if seen[op] {
				t.Errorf("%s: %s listed twice", tc.set.Name, op)
			}
			seen[op] = true
		}
	}
}

// TestCombinationCount checks the per-kind formulas against hand counts.
func TestCombinationCount(t *testing.T) {
	l := Layout{Inputs: 3, Outputs: 1, Temps: 0} // 4 addresses

	tests := []struct {
		op   OpCode
		n    int
		want uint64
	}{
		{Add, 3, 64},
		{Move, 3, 16},
		{Swap, 3, 16},
		{Goto, 3, 3},
		{Goto, 0, 0},
		{JumpIfLess, 3, 48},
		{JumpIfZero, 5, 20},
		{LoadIndirect, 3, 48},
		{StoreIndirect, 3, 48},
		{Inc, 7, 4},
		{SetConst, 1, 1024},
		{JumpIfEqualIndirect, 2, 96},
	}
	for _, tc := range tests {
		if got := tc.op.CombinationCount(l, tc.n); got != tc.want {
			t.Errorf("%s (len %d): got %d combinations, want %d", tc.op, tc.n, got, tc.want)
		}
	}

	// 4 arithmetic * 64 + Move 16 + Swap 16 + Goto 3 + 4 jumps * 48
	if got := B0.CombinationCount(l, 3); got != 483 {
		t.Errorf("B0 len 3: got %d, want 483", got)
	}
}

// TestBijection decodes every index of every set and checks that each
// instruction is legal, distinct and encodes back to its index.
func TestBijection(t *testing.T) {
	layouts := []Layout{
		{Inputs: 1, Outputs: 1, Temps: 1},
		{Inputs: 2, Outputs: 1, Temps: 0},
	}
	for _, set := range []*InstructionSet{B0, B1, S0} {
		for _, l := range layouts {
			for n := 1; n <= 3; n++ {
				count := set.CombinationCount(l, n)
				table := set.Table(l, n)
				if table.Count() != count {
					t.Fatalf("%s %s len %d: table count %d, want %d", set.Name, l, n, table.Count(), count)
				}
				seen := make(map[Instruction]uint64, count)
				for i := uint64(0); i < count; i++ {
					in, err := set.Decode(l, i, n)
					if err != nil {
						t.Fatalf("%s %s len %d: decode %d: %v", set.Name, l, n, i, err)
					}
					if !in.Valid(l, n) {
						t.Fatalf("%s %s len %d: index %d decodes to invalid %s", set.Name, l, n, i, Disassemble(in))
					}
					if prev, dup := seen[in]; dup {
						t.Fatalf("%s %s len %d: indices %d and %d both decode to %s", set.Name, l, n, prev, i, Disassemble(in))
					}
					seen[in] = i
					if got := table.Decode(i); got != in {
						t.Fatalf("%s %s len %d: table decode %d = %s, want %s", set.Name, l, n, i, Disassemble(got), Disassemble(in))
					}
					back, err := set.Encode(l, in, n)
					if err != nil {
						t.Fatalf("%s: encode %s: %v", set.Name, Disassemble(in), err)
					}
					if back != i {
						t.Fatalf("%s %s len %d: encode(decode(%d)) = %d", set.Name, l, n, i, back)
					}
				}
			}
		}
	}
}

// TestDecodeOrder pins the digit order: first slot most significant.
func TestDecodeOrder(t *testing.T) {
	l := Layout{Inputs: 2, Outputs: 1, Temps: 0}

	// Add: src1*9 + src2*3 + dst
	got := Add.Decode(l, 5, 1)
	want := Instruction{Op: Add, Src1: In(0), Src2: In(1), Dst: Out(0)}
	if got != want {
		t.Errorf("Add #5: got %s, want %s", Disassemble(got), Disassemble(want))
	}

	// JumpIfZero: target*3 + src1
	got = JumpIfZero.Decode(l, 7, 4)
	want = Instruction{Op: JumpIfZero, Src1: In(1), Target: 2}
	if got != want {
		t.Errorf("JumpIfZero #7: got %s, want %s", Disassemble(got), Disassemble(want))
	}

	// LoadIndirect: bank*9 + index*3 + dst
	got = LoadIndirect.Decode(l, 9+1*3+2, 1)
	want = Instruction{Op: LoadIndirect, Bank: Output, Src1: In(1), Dst: Out(0)}
	if got != want {
		t.Errorf("LoadIndirect #14: got %s, want %s", Disassemble(got), Disassemble(want))
	}
}

// TestDecodeOutOfRange verifies the end of the index space is reported.
func TestDecodeOutOfRange(t *testing.T) {
	l := Layout{Inputs: 1, Outputs: 1}
	n := B1.CombinationCount(l, 2)
	if _, err := B1.Decode(l, n, 2); err == nil {
		t.Errorf("decode of index %d (== count) should fail", n)
	}
	if _, err := B0.Encode(l, Instruction{Op: Inc, Dst: Out(0)}, 2); err == nil {
		t.Error("Inc is not part of B0, encode should fail")
	}
	end := Instruction{Op: JumpIfZero, Src1: In(0), Target: 2}
	if !end.Valid(l, 2) {
		t.Error("a jump to the end of the program is executable")
	}
	if _, err := B1.Encode(l, end, 2); err == nil {
		t.Error("a jump to the end of the program is not enumerable, encode should fail")
	}
}

// TestLayoutAddressing verifies the flat address order Input, Output, Temp.
func TestLayoutAddressing(t *testing.T) {
	l := Layout{Inputs: 2, Outputs: 1, Temps: 2}
	want := []Address{In(0), In(1), Out(0), Tmp(0), Tmp(1)}
	for i, a := range want {
		if got := l.Address(i); got != a {
			t.Errorf("Address(%d) = %s, want %s", i, got, a)
		}
		if got := l.Index(a); got != i {
			t.Errorf("Index(%s) = %d, want %d", a, got, i)
		}
	}
	if l.Contains(Out(1)) {
		t.Error("output[1] should be outside a layout with one output")
	}
}

// TestLayoutValidate verifies bank size bounds.
func TestLayoutValidate(t *testing.T) {
	tests := []struct {
		l  Layout
		ok bool
	}{
		{Layout{Inputs: 3, Outputs: 1}, true},
		{Layout{Outputs: 1}, true},
		{Layout{}, false},
		{Layout{Inputs: -1, Outputs: 1}, false},
		{Layout{Inputs: 257, Outputs: 1}, false},
	}
	for _, tc := range tests {
		err := tc.l.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("Validate(%s): err=%v, want ok=%v", tc.l, err, tc.ok)
		}
	}
}

// TestDisassemble verifies the listing text.
func TestDisassemble(t *testing.T) {
	tests := []struct {
		instr Instruction
		want  string
	}{
		{Instruction{Op: Add, Src1: In(0), Src2: In(1), Dst: Out(0)}, "Add output[0] = input[0] + input[1]"},
		{Instruction{Op: Move, Src1: Tmp(1), Dst: Out(0)}, "Move output[0] = temp[1]"},
		{Instruction{Op: Swap, Src1: In(0), Src2: In(2)}, "Swap input[0] <-> input[2]"},
		{Instruction{Op: Goto, Target: 4}, "Goto 4"},
		{Instruction{Op: JumpIfZero, Src1: In(1), Target: 8}, "JumpIfZero input[1] == 0 -> 8"},
		{Instruction{Op: LoadIndirect, Bank: Input, Src1: Tmp(0), Dst: Out(0)}, "LoadIndirect output[0] = input[temp[0]]"},
		{Instruction{Op: StoreIndirect, Bank: Temp, Src1: In(0), Src2: In(1)}, "StoreIndirect temp[input[1]] = input[0]"},
		{Instruction{Op: SetConst, Dst: Tmp(0), Imm: 200}, "SetC temp[0] = 200"},
		{Instruction{Op: Dec, Dst: In(0)}, "Dec input[0]--"},
	}

	for _, tc := range tests {
		got := Disassemble(tc.instr)
		if got != tc.want {
			t.Errorf("Disassemble(%v): got %q want %q", tc.instr, got, tc.want)
		}
	}
}

// TestProgramDump verifies the numbered listing.
func TestProgramDump(t *testing.T) {
	p := Program{
		{Op: Move, Src1: In(0), Dst: Out(0)},
		{Op: Goto, Target: 0},
	}
	want := "0: Move output[0] = input[0]\n1: Goto 0\n"
	if got := p.Dump(); got != want {
		t.Errorf("Dump:\n%s\nwant:\n%s", got, want)
	}

	want = "   0: Move output[0] = input[0]\n=> 1: Goto 0\n"
	if got := p.DumpAt(1); got != want {
		t.Errorf("DumpAt(1):\n%s\nwant:\n%s", got, want)
	}
	// a halted PC marks nothing
	if got := p.DumpAt(2); strings.Contains(got, "=>") {
		t.Errorf("DumpAt(2) marks an instruction:\n%s", got)
	}
}

// TestLookupSet verifies set lookup by name.
func TestLookupSet(t *testing.T) {
	s, err := LookupSet("b1")
	if err != nil || s != B1 {
		t.Errorf("LookupSet(b1) = %v, %v", s, err)
	}
	if _, err := LookupSet("Z80"); err == nil {
		t.Error("LookupSet(Z80) should fail")
	}
}
