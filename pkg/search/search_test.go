package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/oisee/algopt/pkg/cpu"
	"github.com/oisee/algopt/pkg/demo"
	"github.com/oisee/algopt/pkg/inst"
	"github.com/oisee/algopt/pkg/result"
)

func demoConfig(t *testing.T, name string, maxLen, workers int) (Config, inst.Program) {
	t.Helper()
	d, err := demo.Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	return Config{Set: d.Set, Layout: d.Layout, MaxLen: maxLen, NumWorkers: workers, BatchSize: 16}, d.Program
}

// TestOptimizeLoopSum replaces the counting loop by a single Add.
func TestOptimizeLoopSum(t *testing.T) {
	cfg, ref := demoConfig(t, "loop-sum", 1, 0)
	out, err := Optimize(context.Background(), cfg, ref)
	if err != nil {
		t.Fatal(err)
	}

	want := inst.Program{{Op: inst.Add, Src1: inst.In(0), Src2: inst.In(1), Dst: inst.Out(0)}}
	if !out.Improved || !out.Best.Equal(want) {
		t.Fatalf("best = %s (improved=%v), want %s", out.Best, out.Improved, want)
	}
	if out.BestSteps != 65536 {
		t.Errorf("best steps = %d, want 65536", out.BestSteps)
	}
	// sum over all a, b of 4a + 4b + 2
	if out.ReferenceSteps != 66977792 {
		t.Errorf("reference steps = %d, want 66977792", out.ReferenceSteps)
	}
	if out.Checked != cfg.Set.CombinationCount(cfg.Layout, 1) {
		t.Errorf("checked %d, want every single instruction", out.Checked)
	}

	alts := out.Alternatives()
	if len(alts) != 1 {
		t.Fatalf("alternatives = %v, want the commuted Add only", alts)
	}
	commuted := inst.Program{{Op: inst.Add, Src1: inst.In(1), Src2: inst.In(0), Dst: inst.Out(0)}}
	if !alts[0].Program.Equal(commuted) || alts[0].Ordinal != "11" {
		t.Errorf("alternative = %s at %s", alts[0].Program, alts[0].Ordinal)
	}
	t.Logf("  %s -> %s (%d -> %d steps, %s)", ref, out.Best, out.ReferenceSteps, out.BestSteps, out.Elapsed)
}

// TestOptimizeKeepsReference verifies nothing replaces an optimal program
// and that equal-cost programs are only listed.
func TestOptimizeKeepsReference(t *testing.T) {
	cfg, _ := demoConfig(t, "loop-sum", 1, 2)
	ref := inst.Program{{Op: inst.Add, Src1: inst.In(1), Src2: inst.In(0), Dst: inst.Out(0)}}
	out, err := Optimize(context.Background(), cfg, ref)
	if err != nil {
		t.Fatal(err)
	}
	if out.Improved || !out.Best.Equal(ref) || out.BestSteps != out.ReferenceSteps {
		t.Fatalf("best = %s (%d steps), want the reference unchanged", out.Best, out.BestSteps)
	}
	alts := out.Alternatives()
	if len(alts) != 1 || alts[0].Ordinal != "5" {
		t.Errorf("alternatives = %v, want input[0] + input[1] at 5", alts)
	}
}

// TestOptimizeParallelMatchesSequential checks the merged result does not
// depend on the worker count.
func TestOptimizeParallelMatchesSequential(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	seqCfg, ref := demoConfig(t, "copy-noise", 2, 1)
	seq, err := Optimize(context.Background(), seqCfg, ref)
	if err != nil {
		t.Fatal(err)
	}
	parCfg, _ := demoConfig(t, "copy-noise", 2, 8)
	parCfg.BatchSize = 7
	par, err := Optimize(context.Background(), parCfg, ref)
	if err != nil {
		t.Fatal(err)
	}

	want := inst.Program{{Op: inst.Add, Src1: inst.In(0), Src2: inst.Out(0), Dst: inst.Out(0)}}
	for name, out := range map[string]*Outcome{"sequential": seq, "parallel": par} {
		if !out.Best.Equal(want) || out.BestSteps != 256 {
			t.Errorf("%s: best = %s (%d steps), want %s (256)", name, out.Best, out.BestSteps, want)
		}
	}
	if seq.Checked != par.Checked || seq.Equivalent != par.Equivalent {
		t.Errorf("counts differ: %d/%d vs %d/%d", seq.Checked, seq.Equivalent, par.Checked, par.Equivalent)
	}
	assertSameFindings(t, seq.Findings.Findings(), par.Findings.Findings())
}

// TestOptimizeResume interrupts a search before its first batch and
// resumes it from the checkpoint.
func TestOptimizeResume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	cfg, ref := demoConfig(t, "copy-noise", 2, 4)
	full, err := Optimize(context.Background(), cfg, ref)
	if err != nil {
		t.Fatal(err)
	}

	cfg.Checkpoint = filepath.Join(t.TempDir(), "copy-noise.ckpt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Optimize(ctx, cfg, ref)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled search returned %v", err)
	}
	ckpt, err := result.LoadCheckpoint(cfg.Checkpoint)
	if err != nil {
		t.Fatal(err)
	}
	if ckpt.Length != 1 || ckpt.Checked != 0 {
		t.Fatalf("checkpoint at length %d after %d checks", ckpt.Length, ckpt.Checked)
	}

	resumed, err := Resume(context.Background(), cfg, ckpt)
	if err != nil {
		t.Fatal(err)
	}
	if !resumed.Best.Equal(full.Best) || resumed.Checked != full.Checked || resumed.Equivalent != full.Equivalent {
		t.Errorf("resumed %s %d/%d, full %s %d/%d",
			resumed.Best, resumed.Checked, resumed.Equivalent, full.Best, full.Checked, full.Equivalent)
	}
	assertSameFindings(t, full.Findings.Findings(), resumed.Findings.Findings())

	final, err := result.LoadCheckpoint(cfg.Checkpoint)
	if err != nil {
		t.Fatal(err)
	}
	if final.Length != cfg.MaxLen+1 {
		t.Errorf("final checkpoint at length %d, want %d", final.Length, cfg.MaxLen+1)
	}
}

// TestOptimizeResumeAcrossLengths extends a finished search by one length.
func TestOptimizeResumeAcrossLengths(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	cfg, ref := demoConfig(t, "copy-noise", 1, 2)
	cfg.Checkpoint = filepath.Join(t.TempDir(), "len1.ckpt")
	short, err := Optimize(context.Background(), cfg, ref)
	if err != nil {
		t.Fatal(err)
	}
	ckpt, err := result.LoadCheckpoint(cfg.Checkpoint)
	if err != nil {
		t.Fatal(err)
	}
	ckpt.MaxLen = 2
	resumed, err := Resume(context.Background(), Config{NumWorkers: 2}, ckpt)
	if err != nil {
		t.Fatal(err)
	}

	full, err := Optimize(context.Background(), Config{Set: cfg.Set, Layout: cfg.Layout, MaxLen: 2}, ref)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.Checked != full.Checked || !resumed.Best.Equal(short.Best) {
		t.Errorf("resumed checked %d best %s, want %d and %s", resumed.Checked, resumed.Best, full.Checked, short.Best)
	}
}

// TestOptimizeConfigErrors verifies argument checks.
func TestOptimizeConfigErrors(t *testing.T) {
	ref := inst.Program{{Op: inst.Inc, Dst: inst.Out(0)}}
	l := inst.Layout{Inputs: 1, Outputs: 1}
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no set", Config{Layout: l, MaxLen: 1}},
		{"bad layout", Config{Set: inst.B1, MaxLen: 1}},
		{"zero length", Config{Set: inst.B1, Layout: l}},
	}
	for _, tc := range tests {
		if _, err := Optimize(context.Background(), tc.cfg, ref); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
	bad := inst.Program{{Op: inst.Inc, Dst: inst.Tmp(3)}}
	if _, err := Optimize(context.Background(), Config{Set: inst.B1, Layout: l, MaxLen: 1}, bad); err == nil {
		t.Error("invalid reference should be rejected")
	}
}

func assertSameFindings(t *testing.T, a, b []result.Finding) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("%d findings vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Ordinal != b[i].Ordinal || a[i].Steps != b[i].Steps || !a[i].Program.Equal(b[i].Program) {
			t.Errorf("finding %d: %s@%s vs %s@%s", i, a[i].Program, a[i].Ordinal, b[i].Program, b[i].Ordinal)
		}
	}
}

// TestRecheckReport verifies a saved report against its own step limit.
func TestRecheckReport(t *testing.T) {
	cfg, ref := demoConfig(t, "loop-sum", 1, 0)
	out, err := Optimize(context.Background(), cfg, ref)
	if err != nil {
		t.Fatal(err)
	}
	r := out.Report()
	if r.StepLimit != cpu.DefaultStepLimit || r.Set != "B1" || r.MaxLen != 1 {
		t.Fatalf("report header = %s, %d, limit %d", r.Set, r.MaxLen, r.StepLimit)
	}

	verdicts := Recheck(r)
	if len(verdicts) != len(r.Programs()) || len(verdicts) != 2 {
		t.Fatalf("got %d verdicts for %d programs", len(verdicts), len(r.Programs()))
	}
	for i, v := range verdicts {
		if !v.Equivalent || v.Steps != r.BestSteps {
			t.Errorf("program %d: %+v, want equivalent at %d steps", i, v, r.BestSteps)
		}
	}

	// the reference counts 2042 steps on input {255, 255}
	r.StepLimit = 100
	if v := Recheck(r)[0]; v.Equivalent {
		t.Error("recheck ignored the report's step limit")
	}
}

// TestResumeUsesCheckpointConfig resumes with only runtime settings given.
func TestResumeUsesCheckpointConfig(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	cfg, ref := demoConfig(t, "copy-noise", 1, 2)
	cfg.Checkpoint = filepath.Join(t.TempDir(), "copy-noise.ckpt")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Optimize(ctx, cfg, ref); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled search returned %v", err)
	}
	ckpt, err := result.LoadCheckpoint(cfg.Checkpoint)
	if err != nil {
		t.Fatal(err)
	}

	out, err := Resume(context.Background(), Config{NumWorkers: 2}, ckpt)
	if err != nil {
		t.Fatal(err)
	}
	if out.Config.Set != inst.B1 || out.Config.Layout != cfg.Layout || out.Config.MaxLen != 1 {
		t.Errorf("resumed config = %s %s %d", out.Config.Set.Name, out.Config.Layout, out.Config.MaxLen)
	}
	if r := out.Report(); r.Set != "B1" || r.Layout != cfg.Layout {
		t.Errorf("report header = %s %s", r.Set, r.Layout)
	}
}
