package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"slices"
	"time"

	"github.com/nvandessel/simsweep/internal/automation"
	"github.com/nvandessel/simsweep/internal/config"
	"github.com/nvandessel/simsweep/internal/constants"
	"github.com/nvandessel/simsweep/internal/ledger"
	"github.com/nvandessel/simsweep/internal/logging"
	"github.com/nvandessel/simsweep/internal/looper"
	"github.com/nvandessel/simsweep/internal/output"
	"github.com/nvandessel/simsweep/internal/param"
	"github.com/nvandessel/simsweep/internal/provenance"
	"github.com/nvandessel/simsweep/internal/simulation"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation once, or once per combination of an automation file",
		Long: `Run a simulation kind.

Without --automation, or with an automation file that defines nothing, the
kind runs once with its default configuration in
<output>/<kind>_output_single/run_MMMMM.

With definitions, every combination is applied to a copy of the default
configuration and run in <output>/<kind>_output_batch_NNNNN/run_MMMMM, at
most --max-concurrency at a time. Failed runs are reported at the end and
do not stop the batch.

Examples:
  simsweep run --kind wator
  simsweep run --kind wator --automation automation.yaml --max-concurrency 4
  simsweep run --kind wator --automation automation.yaml --batch-index 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyRunFlags(cmd, cfg); err != nil {
				return err
			}
			root, err := projectRoot(cmd)
			if err != nil {
				return err
			}
			kindName, _ := cmd.Flags().GetString("kind")
			configPath, _ := cmd.Flags().GetString("config")
			automationPath, _ := cmd.Flags().GetString("automation")

			kind, err := simulation.Default().Lookup(kindName)
			if err != nil {
				return err
			}
			defaults, usedConfig, err := kind.Defaults(root, configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)
			if usedConfig == "" {
				logger.Info("using built-in default configuration", "kind", kind.Name)
			} else {
				logger.Info("loaded default configuration", "kind", kind.Name, "path", usedConfig)
			}

			var defs []automation.Definition
			if automationPath != "" {
				if defs, err = automation.LoadDefinitions(resolvePath(root, automationPath)); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()

			r := &runner{
				kind:     kind,
				cfg:      cfg,
				defaults: defaults,
				output:   resolvePath(root, cfg.Run.OutputDir),
				logger:   logger,
			}
			jsonOut, _ := cmd.Flags().GetBool("json")
			if len(defs) == 0 {
				res, err := r.single(ctx)
				printRunResult(cmd.OutOrStdout(), jsonOut, res, err)
				return err
			}

			batchIndex := -1
			if cmd.Flags().Changed("batch-index") {
				batchIndex, _ = cmd.Flags().GetInt("batch-index")
			}
			summary, batchDir, err := r.batch(ctx, defs, batchIndex)
			if summary != nil {
				printSummary(cmd.OutOrStdout(), jsonOut, batchDir, summary, err)
			}
			return err
		},
	}

	cmd.Flags().String("kind", "", "Simulation kind (required)")
	cmd.Flags().String("config", "", "Default configuration file (default: the kind's file in the project root)")
	cmd.Flags().String("automation", "", "Automation definitions file; omit for a single default run")
	cmd.Flags().String("output", "", "Parent directory for output (overrides run.output_dir)")
	cmd.Flags().Int("max-concurrency", 0, "Maximum runs in flight (overrides run.max_concurrency; 0 = one per CPU)")
	cmd.Flags().Float64("target-time", 0, "Simulated time at which each run stops (overrides run.target_time)")
	cmd.Flags().Int("batch-index", 0, "Continue the batch with this index instead of starting a new one")
	cmd.MarkFlagRequired("kind")

	return cmd
}

// applyRunFlags overrides loaded settings with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, cfg *config.SweepConfig) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Run.OutputDir, _ = flags.GetString("output")
	}
	if flags.Changed("max-concurrency") {
		cfg.Run.MaxConcurrency, _ = flags.GetInt("max-concurrency")
	}
	if flags.Changed("target-time") {
		cfg.Run.TargetTime, _ = flags.GetFloat64("target-time")
	}
	if flags.Changed("batch-index") {
		if n, _ := flags.GetInt("batch-index"); n < 0 {
			return fmt.Errorf("--batch-index must be non-negative, got %d", n)
		}
	}
	return cfg.Validate()
}

// runner executes runs of one kind against a resolved default configuration.
type runner struct {
	kind     simulation.Kind
	cfg      *config.SweepConfig
	defaults param.Node
	output   string
	logger   *slog.Logger
}

func (r *runner) single(ctx context.Context) (looper.RunResult, error) {
	gen, err := output.NewGenerator(r.output, r.kind.Name, constants.ModeSingle)
	if err != nil {
		return looper.RunResult{}, err
	}
	applied, err := automation.ApplyOne(automation.Combination{}, r.defaults)
	if err != nil {
		return looper.RunResult{}, err
	}
	path, _ := gen.Next()

	lp := looper.New(r.kind.New, looper.Options{
		Kind:           r.kind.Name,
		MaxConcurrency: 1,
		TargetTime:     r.cfg.Run.TargetTime,
		Recorder:       provenance.NewWriter(r.kind.ConfigFile),
	})
	lp.SetLogger(r.logger, nil)
	return lp.Run(ctx, applied, path)
}

func (r *runner) batch(ctx context.Context, defs []automation.Definition, batchIndex int) (*looper.Summary, string, error) {
	if total := automation.Count(defs); r.cfg.Run.MaxCombinations > 0 && total > r.cfg.Run.MaxCombinations {
		return nil, "", fmt.Errorf("%d combinations exceed run.max_combinations (%d)", total, r.cfg.Run.MaxCombinations)
	}
	compiler := automation.NewCompiler(r.defaults)
	compiler.SetLogger(r.logger, nil)
	combos, err := compiler.Compile(defs)
	if err != nil {
		return nil, "", err
	}

	var opts []output.Option
	if batchIndex >= 0 {
		opts = append(opts, output.WithBatchIndex(batchIndex))
	}
	gen, err := output.NewGenerator(r.output, r.kind.Name, constants.ModeBatch, opts...)
	if err != nil {
		return nil, "", err
	}
	batchDir := gen.BatchDir()

	runLedger, err := ledger.Open(batchDir)
	if err != nil {
		return nil, batchDir, err
	}
	defer runLedger.Close()
	events := logging.NewEventLogger(batchDir, r.cfg.Logging.Level)
	defer events.Close()

	r.logger.Info("starting batch",
		"kind", r.kind.Name, "batch_dir", batchDir, "combinations", len(combos),
		"max_concurrency", r.cfg.Run.Concurrency())

	lp := looper.New(r.kind.New, looper.Options{
		Kind:           r.kind.Name,
		MaxConcurrency: r.cfg.Run.Concurrency(),
		TargetTime:     r.cfg.Run.TargetTime,
		Recorder:       provenance.NewWriter(r.kind.ConfigFile),
		Ledger:         runLedger,
	})
	lp.SetLogger(r.logger, events)
	summary, err := lp.Batch(ctx, automation.Apply(slices.Values(combos), r.defaults), gen.Paths())
	return summary, batchDir, err
}

func printRunResult(w io.Writer, jsonOut bool, res looper.RunResult, err error) {
	if jsonOut {
		out := map[string]any{
			"run":      res.Run,
			"path":     res.Path,
			"sim_time": res.SimTime,
			"steps":    res.Steps,
			"duration": res.Duration.Seconds(),
		}
		if err != nil {
			out["error"] = err.Error()
		}
		json.NewEncoder(w).Encode(out)
		return
	}
	if res.Path == "" {
		return
	}
	status := "finished"
	if err != nil {
		status = "failed"
	}
	fmt.Fprintf(w, "Run %d %s: %s\n", res.Run, status, res.Path)
	fmt.Fprintf(w, "  steps: %d, simulated time: %g, wall time: %s\n", res.Steps, res.SimTime, res.Duration.Round(time.Millisecond))
}

func printSummary(w io.Writer, jsonOut bool, batchDir string, s *looper.Summary, err error) {
	if jsonOut {
		runs := make([]map[string]any, 0, len(s.Runs))
		for _, r := range s.Runs {
			run := map[string]any{
				"run":         r.Run,
				"path":        r.Path,
				"combination": r.Combination,
				"sim_time":    r.SimTime,
				"steps":       r.Steps,
			}
			if r.Err != nil {
				run["error"] = r.Err.Error()
			}
			runs = append(runs, run)
		}
		out := map[string]any{
			"batch_dir": batchDir,
			"submitted": s.Submitted,
			"succeeded": s.Succeeded,
			"failed":    s.Failed,
			"elapsed":   s.Elapsed.Seconds(),
			"runs":      runs,
		}
		if err != nil {
			out["error"] = err.Error()
		}
		json.NewEncoder(w).Encode(out)
		return
	}

	fmt.Fprintf(w, "Batch %s\n", batchDir)
	fmt.Fprintf(w, "  %d submitted, %d succeeded, %d failed in %s\n",
		s.Submitted, s.Succeeded, s.Failed, s.Elapsed.Round(time.Millisecond))
	var batchErr *looper.BatchError
	if errors.As(err, &batchErr) {
		fmt.Fprintln(w, "Failed runs:")
		for _, r := range batchErr.Failed {
			fmt.Fprintf(w, "  run %d (%s): %v\n", r.Run, r.Combination, r.Err)
		}
	}
}
