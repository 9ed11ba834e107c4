package cpu

import "github.com/oisee/algopt/pkg/inst"

// Exec executes a single instruction on the given state, in place.
// Arithmetic wraps modulo 256; division by zero yields 0. Non-jumps and
// jumps not taken advance PC by one.
func Exec(s *State, in *inst.Instruction) {
	next := s.PC + 1
	switch in.Op {
	// === arithmetic ===
	case inst.Add:
		s.Set(in.Dst, s.Get(in.Src1)+s.Get(in.Src2))
	case inst.Sub:
		s.Set(in.Dst, s.Get(in.Src1)-s.Get(in.Src2))
	case inst.Mul:
		s.Set(in.Dst, s.Get(in.Src1)*s.Get(in.Src2))
	case inst.Div:
		d := s.Get(in.Src2)
		if d == 0 {
			s.Set(in.Dst, 0)
		} else {
			s.Set(in.Dst, s.Get(in.Src1)/d)
		}
	case inst.Inc:
		s.Set(in.Dst, s.Get(in.Dst)+1)
	case inst.Dec:
		s.Set(in.Dst, s.Get(in.Dst)-1)
	case inst.SetConst:
		s.Set(in.Dst, in.Imm)

	// === moves ===
	case inst.Move:
		s.Set(in.Dst, s.Get(in.Src1))
	case inst.Swap:
		a, b := s.Get(in.Src1), s.Get(in.Src2)
		s.Set(in.Src1, b)
		s.Set(in.Src2, a)
	case inst.LoadIndirect:
		s.Set(in.Dst, s.Load(in.Bank, s.Get(in.Src1)))
	case inst.StoreIndirect:
		s.Store(in.Bank, s.Get(in.Src2), s.Get(in.Src1))
	case inst.SwapIndirect:
		if i, j, ok := indirectIndices(s, in); ok {
			a, b := s.Load(in.Bank, i), s.Load(in.Bank, j)
			s.Store(in.Bank, i, b)
			s.Store(in.Bank, j, a)
		}

	// === control flow ===
	case inst.Goto:
		next = in.Target
	case inst.JumpIfGreater:
		next = jumpIf(s.Get(in.Src1) > s.Get(in.Src2), in.Target, next)
	case inst.JumpIfLess:
		next = jumpIf(s.Get(in.Src1) < s.Get(in.Src2), in.Target, next)
	case inst.JumpIfGreaterOrEqual:
		next = jumpIf(s.Get(in.Src1) >= s.Get(in.Src2), in.Target, next)
	case inst.JumpIfLessOrEqual:
		next = jumpIf(s.Get(in.Src1) <= s.Get(in.Src2), in.Target, next)
	case inst.JumpIfEqual:
		next = jumpIf(s.Get(in.Src1) == s.Get(in.Src2), in.Target, next)
	case inst.JumpIfZero:
		next = jumpIf(s.Get(in.Src1) == 0, in.Target, next)
	case inst.JumpIfLessIndirect:
		a, b, ok := indirectPair(s, in)
		next = jumpIf(ok && a < b, in.Target, next)
	case inst.JumpIfGreaterIndirect:
		a, b, ok := indirectPair(s, in)
		next = jumpIf(ok && a > b, in.Target, next)
	case inst.JumpIfEqualIndirect:
		a, b, ok := indirectPair(s, in)
		next = jumpIf(ok && a == b, in.Target, next)
	}
	s.PC = next
}

// Step executes the instruction at PC. It returns false when PC lies outside
// the program, either before the step (nothing is executed) or after it.
func Step(p inst.Program, s *State) bool {
	if s.PC < 0 || s.PC >= len(p) {
		return false
	}
	Exec(s, &p[s.PC])
	return s.PC >= 0 && s.PC < len(p)
}

// indirectIndices reads the two bank indices of a two-index indirect op.
// ok is false unless both lie inside the bank; such ops then do nothing
// besides advancing PC.
func indirectIndices(s *State, in *inst.Instruction) (i, j uint8, ok bool) {
	i, j = s.Get(in.Src1), s.Get(in.Src2)
	n := s.layout.BankSize(in.Bank)
	return i, j, int(i) < n && int(j) < n
}

// indirectPair loads Bank[Src1] and Bank[Src2] when both are in range.
func indirectPair(s *State, in *inst.Instruction) (a, b uint8, ok bool) {
	i, j, ok := indirectIndices(s, in)
	if !ok {
		return 0, 0, false
	}
	return s.Load(in.Bank, i), s.Load(in.Bank, j), true
}

// jumpIf returns target if cond is true, else next.
func jumpIf(cond bool, target, next int) int {
	if cond {
		return target
	}
	return next
}
