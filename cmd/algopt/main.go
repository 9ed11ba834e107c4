package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/oisee/algopt/pkg/config"
	"github.com/oisee/algopt/pkg/cpu"
	"github.com/oisee/algopt/pkg/demo"
	"github.com/oisee/algopt/pkg/inst"
	"github.com/oisee/algopt/pkg/result"
	"github.com/oisee/algopt/pkg/search"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "algopt",
		Short: "Byte-register VM superoptimizer: find the fastest equivalent program",
	}

	var verbose bool
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetLevel(log.DebugLevel)
		}
	}

	// run command
	var stepLimit uint64

	runCmd := &cobra.Command{
		Use:   "run [demo] [input bytes...]",
		Short: "Run a demo program on one input",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, input, err := demoInput(args)
			if err != nil {
				return err
			}
			res := cpu.NewRunner(d.Layout, stepLimit).Run(d.Program, input)
			fmt.Printf("Input values: %v\n", input)
			fmt.Printf("Outcome: %s after %d steps\n", res.Outcome, res.Steps)
			if res.Outcome == cpu.Halted {
				fmt.Printf("Output values: %v\n", res.Output)
			}
			return nil
		},
	}
	runCmd.Flags().Uint64Var(&stepLimit, "step-limit", cpu.DefaultStepLimit, "Step limit before giving up")

	// dump command
	dumpCmd := &cobra.Command{
		Use:   "dump [demo]",
		Short: "Print the listing of a demo program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := demo.Lookup(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", d.Name, d.Description)
			fmt.Printf("  Set: %s, layout %s, %d instructions\n\n", d.Set.Name, d.Layout, len(d.Program))
			fmt.Print(d.Program.Dump())
			return nil
		},
	}

	// enumerate command
	var enumSet string
	var enumLayout inst.Layout
	var enumLen, enumCount int
	var enumSkip uint64

	enumCmd := &cobra.Command{
		Use:   "enumerate",
		Short: "List programs in enumeration order",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := inst.LookupSet(enumSet)
			if err != nil {
				return err
			}
			if err := enumLayout.Validate(); err != nil {
				return err
			}
			e, err := search.NewEnumerator(set, enumLayout, enumLen)
			if err != nil {
				return err
			}
			fmt.Printf("Program length: %d\n", e.Length())
			fmt.Printf("Instructions per position: %d\n", e.Radix())
			fmt.Printf("Programs: %s\n", e.Total())
			fmt.Printf("First combination ID: %s\n", e.ID())
			fmt.Printf("Last combination ID: %s\n", e.LastID())

			for i := uint64(0); i < enumSkip; i++ {
				if !e.Next() {
					return nil
				}
			}
			for i := 0; i < enumCount; i++ {
				fmt.Printf("\n--- Combination %s (ID: %s) ---\n", e.Ordinal(), e.ID())
				fmt.Print(e.Generate().Dump())
				if !e.Next() {
					break
				}
			}
			return nil
		},
	}
	enumCmd.Flags().StringVar(&enumSet, "set", "B0", "Instruction set")
	addLayoutFlags(enumCmd.Flags(), &enumLayout, inst.Layout{Inputs: 3, Outputs: 1})
	enumCmd.Flags().IntVar(&enumLen, "length", 3, "Program length")
	enumCmd.Flags().IntVarP(&enumCount, "count", "n", 5, "Number of programs to print")
	enumCmd.Flags().Uint64Var(&enumSkip, "skip", 0, "Programs to skip first")

	// optimize command
	var configPath, saveConfig, reference, setName, output, checkpoint string
	var resume bool
	var maxLen, numWorkers int
	var optLayout inst.Layout

	optCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search for the fastest program equivalent to a reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Default()
			if configPath != "" {
				var err error
				if c, err = config.Load(configPath); err != nil {
					return err
				}
			}
			flags := cmd.Flags()
			if flags.Changed("reference") {
				c.Reference = reference
			}
			if flags.Changed("set") {
				c.Set = setName
			}
			if flags.Changed("max-len") {
				c.MaxLength = maxLen
			}
			if flags.Changed("workers") {
				c.Workers = numWorkers
			}
			if flags.Changed("checkpoint") {
				c.Checkpoint = checkpoint
			}
			if flags.Changed("inputs") || flags.Changed("outputs") || flags.Changed("temps") {
				c.Layout = optLayout
			}

			cfg, ref, err := c.Search()
			if err != nil {
				return err
			}
			if saveConfig != "" {
				if err := c.Write(saveConfig); err != nil {
					return err
				}
				fmt.Printf("Configuration written to %s\n", saveConfig)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			var out *search.Outcome
			if resume {
				if cfg.Checkpoint == "" {
					return fmt.Errorf("--resume needs a checkpoint file")
				}
				ckpt, lerr := result.LoadCheckpoint(cfg.Checkpoint)
				if lerr != nil {
					return lerr
				}
				out, err = search.Resume(ctx, cfg, ckpt)
				if err != nil && out == nil {
					return err
				}
			} else {
				fmt.Printf("Algorithm superoptimizer\n")
				fmt.Printf("  Instruction set: %s\n", cfg.Set.Name)
				fmt.Printf("  Layout: %s\n", cfg.Layout)
				fmt.Printf("  Max program length: %d\n", cfg.MaxLen)
				fmt.Printf("  Reference program:\n%s\n", ref.Dump())
				out, err = search.Optimize(ctx, cfg, ref)
				if err != nil && out == nil {
					return err
				}
			}
			if err != nil {
				fmt.Printf("Search interrupted after %d programs (%v)\n", out.Checked, err)
			}

			printOutcome(out)

			if output != "" {
				if err := result.SaveReport(output, out.Report()); err != nil {
					return err
				}
				fmt.Printf("Written to %s\n", output)
			}
			return err
		},
	}
	optCmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	optCmd.Flags().StringVarP(&reference, "reference", "r", "loop-sum", "Reference demo program")
	optCmd.Flags().StringVar(&setName, "set", "", "Instruction set (default: the demo's)")
	optCmd.Flags().IntVar(&maxLen, "max-len", 1, "Maximum candidate length")
	optCmd.Flags().IntVar(&numWorkers, "workers", 0, "Number of workers (0 = NumCPU)")
	optCmd.Flags().StringVar(&output, "output", "", "Output JSON report path")
	optCmd.Flags().StringVar(&saveConfig, "save-config", "", "Write the effective configuration as TOML")
	optCmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Checkpoint file")
	optCmd.Flags().BoolVar(&resume, "resume", false, "Resume from the checkpoint file")
	addLayoutFlags(optCmd.Flags(), &optLayout, inst.Layout{})

	// trace command
	var noPause bool

	traceCmd := &cobra.Command{
		Use:   "trace [demo] [input bytes...]",
		Short: "Step through a demo program showing both cursors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, input, err := demoInput(args)
			if err != nil {
				return err
			}
			pause := !noPause && term.IsTerminal(int(os.Stdin.Fd()))
			stdin := bufio.NewReader(os.Stdin)

			s := cpu.NewState(d.Layout, input)
			fmt.Println(cpu.DumpExecution(s, d.Program))
			res := cpu.Trace(d.Layout, d.Program, input, stepLimit, func(ev cpu.TraceEvent) bool {
				fmt.Printf("\n[round %d, %s cursor, %d steps]\n", ev.Round, ev.Cursor, ev.Steps)
				fmt.Print(cpu.DumpExecution(ev.State, d.Program))
				if pause {
					fmt.Print("Press Enter to continue...")
					if _, err := stdin.ReadString('\n'); err != nil {
						return false
					}
				}
				return true
			})
			switch res.Outcome {
			case cpu.Halted:
				fmt.Printf("\nHalted after %d steps, output %v\n", res.Steps, res.Output)
			case cpu.Looping:
				fmt.Printf("\nInfinite loop detected after %d steps!\n", res.Steps)
			default:
				fmt.Printf("\nStopped after %d steps without a verdict\n", res.Steps)
			}
			return nil
		},
	}
	traceCmd.Flags().BoolVar(&noPause, "no-pause", false, "Do not wait for Enter between steps")
	traceCmd.Flags().Uint64Var(&stepLimit, "step-limit", cpu.DefaultStepLimit, "Step limit before giving up")

	// verify command
	verifyCmd := &cobra.Command{
		Use:   "verify [report.json]",
		Short: "Re-verify the programs of a report against its reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := result.LoadReport(args[0])
			if err != nil {
				return err
			}
			progs := r.Programs()
			verdicts := search.Recheck(r)

			fmt.Printf("Verifying %d programs against the %d-instruction reference (step limit %d)...\n",
				len(progs), len(r.Reference), r.StepLimit)
			failed := 0
			for i, p := range progs {
				v := verdicts[i]
				fmt.Printf("  [%d] %s ... ", i+1, p)
				switch {
				case !v.Equivalent:
					failed++
					fmt.Println("NOT EQUIVALENT")
				case i == 0 && v.Steps != r.BestSteps:
					failed++
					fmt.Printf("equivalent, but %d steps instead of %d\n", v.Steps, r.BestSteps)
				default:
					fmt.Printf("ok (%d steps)\n", v.Steps)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d programs failed verification", failed, len(progs))
			}
			return nil
		},
	}

	// sets command
	var setsLayout inst.Layout
	var setsLen int

	setsCmd := &cobra.Command{
		Use:   "sets",
		Short: "List the instruction sets and their sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setsLayout.Validate(); err != nil {
				return err
			}
			for _, name := range inst.SetNames() {
				set, _ := inst.LookupSet(name)
				fmt.Printf("%s: %d kinds, %d instructions for %s at length %d\n",
					set.Name, len(set.Ops), set.CombinationCount(setsLayout, setsLen), setsLayout, setsLen)
				if verbose {
					for _, op := range set.Ops {
						fmt.Printf("  %-22s %d\n", op, op.CombinationCount(setsLayout, setsLen))
					}
				}
			}
			return nil
		},
	}
	addLayoutFlags(setsCmd.Flags(), &setsLayout, inst.Layout{Inputs: 2, Outputs: 1})
	setsCmd.Flags().IntVar(&setsLen, "length", 1, "Program length")

	rootCmd.AddCommand(runCmd, dumpCmd, enumCmd, optCmd, traceCmd, verifyCmd, setsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addLayoutFlags registers --inputs, --outputs and --temps.
func addLayoutFlags(fs *pflag.FlagSet, l *inst.Layout, def inst.Layout) {
	fs.IntVarP(&l.Inputs, "inputs", "N", def.Inputs, "Input registers")
	fs.IntVarP(&l.Outputs, "outputs", "K", def.Outputs, "Output registers")
	fs.IntVarP(&l.Temps, "temps", "T", def.Temps, "Temp registers")
}

// demoInput resolves a demo name plus optional input bytes. Without bytes
// the demo's sample input is used.
func demoInput(args []string) (*demo.Demo, []uint8, error) {
	d, err := demo.Lookup(args[0])
	if err != nil {
		return nil, nil, err
	}
	if len(args) == 1 {
		return d, d.Sample, nil
	}
	if len(args)-1 != d.Layout.Inputs {
		return nil, nil, fmt.Errorf("%s takes %d input bytes, got %d", d.Name, d.Layout.Inputs, len(args)-1)
	}
	input := make([]uint8, d.Layout.Inputs)
	for i, a := range args[1:] {
		v, err := strconv.ParseUint(a, 0, 8)
		if err != nil {
			return nil, nil, fmt.Errorf("input %d: %w", i, err)
		}
		input[i] = uint8(v)
	}
	return d, input, nil
}

func printOutcome(out *search.Outcome) {
	fmt.Printf("\nReference: %d steps over all inputs\n", out.ReferenceSteps)
	fmt.Printf("Checked: %d, Equivalent: %d, Elapsed: %s\n", out.Checked, out.Equivalent, out.Elapsed.Round(time.Millisecond))
	if !out.Improved {
		fmt.Println("No cheaper program found; the reference is optimal within the searched lengths.")
	} else {
		fmt.Printf("Optimized program (%d steps):\n", out.BestSteps)
	}
	fmt.Print(out.Best.Dump())
	if alts := out.Alternatives(); len(alts) > 0 {
		fmt.Printf("%d alternatives of equal cost:\n", len(alts))
		for _, a := range alts {
			fmt.Printf("  #%s: %s\n", a.Ordinal, a.Program)
		}
	}
}
