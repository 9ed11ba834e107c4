package result

import (
	"sort"
	"sync"

	"github.com/oisee/algopt/pkg/inst"
)

// Finding is one candidate proven equivalent to the reference.
type Finding struct {
	Length  int          `json:"length" cbor:"1,keyasint"`
	Ordinal string       `json:"ordinal" cbor:"2,keyasint"` // enumeration ordinal within Length, decimal
	Steps   uint64       `json:"steps" cbor:"3,keyasint"`   // summed over all inputs
	Program inst.Program `json:"program" cbor:"4,keyasint"`
	Seq     uint64       `json:"-" cbor:"5,keyasint"` // discovery order
}

// Table stores equivalent programs in discovery order.
type Table struct {
	mu       sync.Mutex
	findings []Finding
	next     uint64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add appends a finding and stamps its discovery order.
func (t *Table) Add(f Finding) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f.Seq = t.next
	t.next++
	t.findings = append(t.findings, f)
}

// Findings returns a copy of all findings, cheapest first. Equal costs keep
// the shorter program first, then the one found earlier.
func (t *Table) Findings() []Finding {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]Finding, len(t.findings))
	copy(result, t.findings)
	sort.Slice(result, func(i, j int) bool {
		if result[i].Steps != result[j].Steps {
			return result[i].Steps < result[j].Steps
		}
		if result[i].Length != result[j].Length {
			return result[i].Length < result[j].Length
		}
		return result[i].Seq < result[j].Seq
	})
	return result
}

// WithSteps returns the findings of cost steps, in discovery order.
func (t *Table) WithSteps(steps uint64) []Finding {
	t.mu.Lock()
	defer t.mu.Unlock()
	var result []Finding
	for _, f := range t.findings {
		if f.Steps == steps {
			result = append(result, f)
		}
	}
	return result
}

// Len returns the number of findings.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.findings)
}

// TableOf rebuilds a table from findings saved by Snapshot.
func TableOf(fs []Finding) *Table {
	t := &Table{findings: append([]Finding(nil), fs...)}
	for _, f := range fs {
		if f.Seq >= t.next {
			t.next = f.Seq + 1
		}
	}
	return t
}

// Snapshot returns the findings in discovery order.
func (t *Table) Snapshot() []Finding {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]Finding, len(t.findings))
	copy(result, t.findings)
	return result
}
