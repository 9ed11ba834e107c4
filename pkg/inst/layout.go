package inst

import (
	"fmt"
	"strconv"
)

// Bank identifies one of the three disjoint register banks.
type Bank uint8

const (
	Input Bank = iota
	Output
	Temp

	BankCount = 3
)

var bankNames = [BankCount]string{"input", "output", "temp"}

func (b Bank) String() string {
	if b < BankCount {
		return bankNames[b]
	}
	return "bank(" + strconv.Itoa(int(b)) + ")"
}

// MaxBankSize bounds every bank: indirect indices are single bytes.
const MaxBankSize = 256

// Layout fixes the bank sizes of a machine variant:
// N input, K output and T temp registers.
type Layout struct {
	Inputs  int `toml:"inputs" json:"inputs"`
	Outputs int `toml:"outputs" json:"outputs"`
	Temps   int `toml:"temps" json:"temps"`
}

// Size returns N+K+T, the number of addressable registers.
func (l Layout) Size() int {
	return l.Inputs + l.Outputs + l.Temps
}

// BankSize returns the number of registers in bank b.
func (l Layout) BankSize(b Bank) int {
	switch b {
	case Input:
		return l.Inputs
	case Output:
		return l.Outputs
	case Temp:
		return l.Temps
	}
	return 0
}

// BankOffset returns the flat index of the first register of bank b.
func (l Layout) BankOffset(b Bank) int {
	switch b {
	case Output:
		return l.Inputs
	case Temp:
		return l.Inputs + l.Outputs
	}
	return 0
}

// Validate reports whether the layout describes a usable machine.
func (l Layout) Validate() error {
	for b := Bank(0); b < BankCount; b++ {
		n := l.BankSize(b)
		if n < 0 || n > MaxBankSize {
			return fmt.Errorf("%s bank size %d out of range [0, %d]", b, n, MaxBankSize)
		}
	}
	if l.Size() == 0 {
		return fmt.Errorf("layout has no registers")
	}
	return nil
}

func (l Layout) String() string {
	return fmt.Sprintf("N=%d,K=%d,T=%d", l.Inputs, l.Outputs, l.Temps)
}

// Address is a register reference: a bank plus an offset inside it.
type Address struct {
	Bank   Bank `json:"bank"`
	Offset int  `json:"offset"`
}

// Address maps a flat index in [0, Size) to an address.
// Indices are ordered Input, then Output, then Temp.
func (l Layout) Address(i int) Address {
	if i < l.Inputs {
		return Address{Bank: Input, Offset: i}
	}
	i -= l.Inputs
	if i < l.Outputs {
		return Address{Bank: Output, Offset: i}
	}
	return Address{Bank: Temp, Offset: i - l.Outputs}
}

// Index is the inverse of Address.
func (l Layout) Index(a Address) int {
	return l.BankOffset(a.Bank) + a.Offset
}

// Contains reports whether a is a legal address of the layout.
func (l Layout) Contains(a Address) bool {
	return a.Bank < BankCount && a.Offset >= 0 && a.Offset < l.BankSize(a.Bank)
}

func (a Address) String() string {
	return a.Bank.String() + "[" + strconv.Itoa(a.Offset) + "]"
}

// In, Out and Tmp are shorthands for building addresses by hand.
func In(i int) Address  { return Address{Bank: Input, Offset: i} }
func Out(i int) Address { return Address{Bank: Output, Offset: i} }
func Tmp(i int) Address { return Address{Bank: Temp, Offset: i} }
