package result

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/oisee/algopt/pkg/inst"
)

// Report is the outcome of one optimize run as written to disk.
type Report struct {
	Set            string       `json:"set"`
	Layout         inst.Layout  `json:"layout"`
	MaxLen         int          `json:"max_len"`
	StepLimit      uint64       `json:"step_limit"`
	Reference      inst.Program `json:"reference"`
	ReferenceSteps uint64       `json:"reference_steps"`
	Best           inst.Program `json:"best"`
	BestSteps      uint64       `json:"best_steps"`
	Improved       bool         `json:"improved"`
	Checked        uint64       `json:"checked"`
	Equivalent     uint64       `json:"equivalent"`
	Alternatives   []Finding    `json:"alternatives,omitempty"`
	Listing        []string     `json:"listing"` // disassembly of Best
}

// Programs returns Best followed by the alternatives.
func (r *Report) Programs() []inst.Program {
	progs := []inst.Program{r.Best}
	for _, alt := range r.Alternatives {
		progs = append(progs, alt.Program)
	}
	return progs
}

// WriteJSON writes r as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// ReadJSON decodes a report written by WriteJSON.
func ReadJSON(rd io.Reader) (*Report, error) {
	var r Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("result: decode report: %w", err)
	}
	return &r, nil
}

// SaveReport writes r to path.
func SaveReport(path string, r *Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadReport reads a report from path.
func LoadReport(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}
