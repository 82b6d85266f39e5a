package main

import (
	"fmt"
	"io"

	"github.com/pavanmanishd/scopestack/internal/bench"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"
)

var (
	benchCount  int
	benchRounds int
)

func init() {
	cmd := newBenchCmd()
	def := bench.DefaultConfig()
	cmd.Flags().IntVar(&benchCount, "count", def.Count, "Objects allocated per round")
	cmd.Flags().IntVar(&benchRounds, "rounds", def.Rounds, "Rounds averaged per strategy")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Compare heap boxing with scope stack allocation",
		Long: `The bench command allocates, iterates and destroys objects of several
sizes, once boxed on the Go heap and once from a scope, with and without a
destructor. Times are nanoseconds per object; percentages are relative to
heap-boxed plain objects of the same size.

Example:
  scopestack bench
  scopestack bench --count 100000 --rounds 10
  scopestack bench --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := bench.Config{
				Count:  benchCount,
				Rounds: benchRounds,
				Logger: newLogger(cmd.ErrOrStderr()),
			}
			return runBench(cmd.OutOrStdout(), cfg)
		},
	}
}

func runBench(w io.Writer, cfg bench.Config) error {
	cfg.Logger.Debug("running benchmark", slog.Int("count", cfg.Count), slog.Int("rounds", cfg.Rounds))
	results, err := bench.Run(cfg)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, results)
	}

	p := printer{w: w}
	for _, r := range results {
		p.Printf("\n%d byte objects\n", r.Size)
		p.Printf("  %-12s %12s %12s %12s\n", "strategy", "alloc", "iterate", "destroy")
		base := r.NaivePOD
		printTiming(p, "naive pod", r.NaivePOD, base)
		printTiming(p, "naive obj", r.NaiveObj, base)
		printTiming(p, "scoped pod", r.ScopedPOD, base)
		printTiming(p, "scoped obj", r.ScopedObj, base)
	}
	return nil
}

func printTiming(p printer, name string, t, base bench.Timing) {
	p.Printf("  %-12s %12s %12s %12s\n", name,
		cell(t.AllocNs, base.AllocNs),
		cell(t.IterNs, base.IterNs),
		cell(t.DestroyNs, base.DestroyNs))
}

// cell formats ns with its share of base, e.g. "12.3 (45%)".
func cell(ns, base float64) string {
	if base <= 0 {
		return fmt.Sprintf("%.1f", ns)
	}
	return fmt.Sprintf("%.1f (%.0f%%)", ns, 100*ns/base)
}
