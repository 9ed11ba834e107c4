package search

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/oisee/algopt/pkg/cpu"
	"github.com/oisee/algopt/pkg/inst"
	"github.com/oisee/algopt/pkg/result"
)

// Config holds search configuration.
type Config struct {
	Set        *inst.InstructionSet
	Layout     inst.Layout
	MaxLen     int    // longest candidate program tried
	NumWorkers int    // parallel workers (defaults to NumCPU)
	StepLimit  uint64 // per-run step cap (defaults to cpu.DefaultStepLimit)
	BatchSize  int    // candidates handed to the pool at once

	ProgressEvery   uint64 // log progress every n candidates, 0 disables
	Checkpoint      string // checkpoint file, empty disables
	CheckpointEvery uint64 // save after at least n more candidates
}

const defaultBatchSize = 256

func (cfg *Config) normalize() error {
	if cfg.Set == nil {
		return errors.New("no instruction set")
	}
	if err := cfg.Layout.Validate(); err != nil {
		return err
	}
	if cfg.MaxLen < 1 {
		return fmt.Errorf("max length %d must be positive", cfg.MaxLen)
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.StepLimit == 0 {
		cfg.StepLimit = cpu.DefaultStepLimit
	}
	return nil
}

// Outcome is the result of a search.
type Outcome struct {
	Config         Config // as resolved by Optimize or Resume
	Reference      inst.Program
	ReferenceSteps uint64
	Best           inst.Program // Reference when nothing cheaper was found
	BestSteps      uint64
	Improved       bool
	Checked        uint64 // candidates evaluated
	Equivalent     uint64 // candidates proven equivalent
	Findings       *result.Table
	Elapsed        time.Duration
}

// Alternatives returns the other equivalent programs that cost exactly as
// much as Best, in discovery order.
func (o *Outcome) Alternatives() []result.Finding {
	var alts []result.Finding
	for _, f := range o.Findings.WithSteps(o.BestSteps) {
		if !f.Program.Equal(o.Best) {
			alts = append(alts, f)
		}
	}
	return alts
}

// Report converts the outcome into its on-disk form.
func (o *Outcome) Report() *result.Report {
	cfg := o.Config
	return &result.Report{
		Set:            cfg.Set.Name,
		Layout:         cfg.Layout,
		MaxLen:         cfg.MaxLen,
		StepLimit:      cfg.StepLimit,
		Reference:      o.Reference,
		ReferenceSteps: o.ReferenceSteps,
		Best:           o.Best,
		BestSteps:      o.BestSteps,
		Improved:       o.Improved,
		Checked:        o.Checked,
		Equivalent:     o.Equivalent,
		Alternatives:   o.Alternatives(),
		Listing:        o.Best.Listing(),
	}
}

// Recheck verifies every program of r against its reference again, under
// the step limit the report was produced with. Verdict i belongs to
// r.Programs()[i].
func Recheck(r *result.Report) []Verdict {
	progs := r.Programs()
	verdicts := make([]Verdict, len(progs))
	for i, p := range progs {
		ok, steps := Equivalent(r.Layout, r.Reference, p, r.StepLimit)
		verdicts[i] = Verdict{Equivalent: ok, Steps: steps}
	}
	return verdicts
}

// Optimize searches every program of length 1..cfg.MaxLen for the cheapest
// one equivalent to ref. A candidate replaces the current best only when it
// is strictly cheaper, so among equal costs the first in enumeration order
// wins; the others are kept as alternatives.
//
// Cancelling ctx stops the search between batches. The partial outcome is
// returned together with the context error, after a final checkpoint save
// when checkpointing is enabled.
func Optimize(ctx context.Context, cfg Config, ref inst.Program) (*Outcome, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	oracle, err := NewOracle(cfg.Layout, ref, cfg.StepLimit)
	if err != nil {
		return nil, err
	}
	s := &searcher{
		cfg:    cfg,
		oracle: oracle,
		out: &Outcome{
			Config:         cfg,
			Reference:      oracle.Reference(),
			ReferenceSteps: oracle.Baseline(),
			Best:           oracle.Reference(),
			BestSteps:      oracle.Baseline(),
			Findings:       result.NewTable(),
		},
	}
	return s.run(ctx, 1, nil)
}

// Resume continues a search saved in ckpt. The set, layout, length bound and
// reference come from the checkpoint; cfg supplies the rest.
func Resume(ctx context.Context, cfg Config, ckpt *result.Checkpoint) (*Outcome, error) {
	set, err := inst.LookupSet(ckpt.Set)
	if err != nil {
		return nil, err
	}
	cfg.Set = set
	cfg.Layout = ckpt.Layout
	cfg.MaxLen = ckpt.MaxLen
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	oracle, err := NewOracle(cfg.Layout, ckpt.Reference, cfg.StepLimit)
	if err != nil {
		return nil, err
	}
	if oracle.Baseline() != ckpt.ReferenceSteps {
		return nil, fmt.Errorf("checkpoint baseline %d does not match reference cost %d", ckpt.ReferenceSteps, oracle.Baseline())
	}
	best := ckpt.Best
	if len(best) == 0 {
		best = oracle.Reference()
	}
	s := &searcher{
		cfg:    cfg,
		oracle: oracle,
		out: &Outcome{
			Config:         cfg,
			Reference:      oracle.Reference(),
			ReferenceSteps: ckpt.ReferenceSteps,
			Best:           best,
			BestSteps:      ckpt.BestSteps,
			Improved:       ckpt.BestSteps < ckpt.ReferenceSteps,
			Checked:        ckpt.Checked,
			Equivalent:     ckpt.Equivalent,
			Findings:       result.TableOf(ckpt.Findings),
		},
		lastSaved: ckpt.Checked,
	}
	log.Infof("Resuming at length %d, position %s (%d checked)", ckpt.Length, formatID(ckpt.Digits), ckpt.Checked)
	return s.run(ctx, ckpt.Length, ckpt.Digits)
}

// searcher carries the state of one Optimize or Resume call.
type searcher struct {
	cfg       Config
	oracle    *Oracle
	out       *Outcome
	lastSaved uint64
	lastLog   uint64
}

func (s *searcher) run(ctx context.Context, startLen int, startDigits []uint64) (*Outcome, error) {
	start := time.Now()
	defer func() { s.out.Elapsed += time.Since(start) }()

	pool := NewWorkerPool(s.oracle, s.cfg.NumWorkers)
	log.Debugf("Reference costs %d steps over all inputs (cached=%v)", s.out.ReferenceSteps, s.oracle.Cached())

	for length := startLen; length <= s.cfg.MaxLen; length++ {
		e, err := NewEnumerator(s.cfg.Set, s.cfg.Layout, length)
		if err != nil {
			return nil, err
		}
		if length == startLen && startDigits != nil {
			if err := e.Seek(startDigits); err != nil {
				return nil, fmt.Errorf("checkpoint position: %w", err)
			}
		}
		log.Infof("Searching programs of size %d (%s candidates, last %s)", length, e.Total(), e.LastID())

		if err := s.searchLength(ctx, pool, e); err != nil {
			s.save(length, e.Digits())
			return s.out, err
		}
		log.Infof("Size %d complete: checked %d programs, found %d equivalent", length, s.out.Checked, s.out.Equivalent)
		if checked, found := pool.Stats(); checked > 0 {
			log.Debugf("Pool: %d candidates this run, %.4f%% equivalent", checked, 100*float64(found)/float64(checked))
		}
		if length < s.cfg.MaxLen {
			s.maybeSave(length+1, nil)
		}
	}
	s.save(s.cfg.MaxLen+1, nil)
	return s.out, nil
}

// searchLength drains e batch by batch. On cancellation e is left at the
// first unchecked program.
func (s *searcher) searchLength(ctx context.Context, pool *WorkerPool, e *Enumerator) error {
	length := e.Length()
	batch := make([]inst.Program, s.cfg.BatchSize)
	for i := range batch {
		batch[i] = make(inst.Program, length)
	}
	verdicts := make([]Verdict, s.cfg.BatchSize)

	more := true
	for more {
		if err := ctx.Err(); err != nil {
			return err
		}
		first := e.Ordinal()
		n := 0
		for n < len(batch) && more {
			e.GenerateInto(batch[n])
			n++
			more = e.Next()
		}
		pool.RunBatch(batch[:n], verdicts[:n])
		for i := 0; i < n; i++ {
			s.merge(batch[i], verdicts[i], first, i)
		}
		if more {
			s.maybeSave(length, e.Digits())
		}
	}
	return nil
}

// merge folds one verdict into the outcome. Verdicts must arrive in
// enumeration order.
func (s *searcher) merge(p inst.Program, v Verdict, first *big.Int, offset int) {
	out := s.out
	out.Checked++
	if s.cfg.ProgressEvery > 0 && out.Checked-s.lastLog >= s.cfg.ProgressEvery {
		s.lastLog = out.Checked
		log.Debugf("Checked %d programs, found %d equivalent", out.Checked, out.Equivalent)
	}
	if !v.Equivalent {
		return
	}
	out.Equivalent++
	if v.Steps > out.BestSteps {
		return
	}
	ordinal := new(big.Int).Add(first, big.NewInt(int64(offset)))
	out.Findings.Add(result.Finding{
		Length:  len(p),
		Ordinal: ordinal.String(),
		Steps:   v.Steps,
		Program: p.Clone(),
	})
	if v.Steps < out.BestSteps {
		log.Infof("Found better program (size %d, %d steps, was %d): %s", len(p), v.Steps, out.BestSteps, p)
		out.Best = p.Clone()
		out.BestSteps = v.Steps
		out.Improved = true
		return
	}
	log.Debugf("Found equally good program (size %d, %d steps): %s", len(p), v.Steps, p)
}

func (s *searcher) maybeSave(length int, digits []uint64) {
	if s.cfg.Checkpoint == "" || s.out.Checked-s.lastSaved < s.cfg.CheckpointEvery {
		return
	}
	s.save(length, digits)
}

func (s *searcher) save(length int, digits []uint64) {
	if s.cfg.Checkpoint == "" {
		return
	}
	out := s.out
	ckpt := &result.Checkpoint{
		Set:            s.cfg.Set.Name,
		Layout:         s.cfg.Layout,
		MaxLen:         s.cfg.MaxLen,
		Reference:      out.Reference,
		Length:         length,
		Digits:         digits,
		ReferenceSteps: out.ReferenceSteps,
		Best:           out.Best,
		BestSteps:      out.BestSteps,
		Checked:        out.Checked,
		Equivalent:     out.Equivalent,
		Findings:       out.Findings.Snapshot(),
	}
	if err := result.SaveCheckpoint(s.cfg.Checkpoint, ckpt); err != nil {
		log.Warnf("Saving checkpoint %s: %v", s.cfg.Checkpoint, err)
		return
	}
	s.lastSaved = out.Checked
	log.Debugf("Checkpoint saved to %s (size %d, position %s)", s.cfg.Checkpoint, length, formatID(digits))
}
