package looper

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/simsweep/internal/automation"
	"github.com/nvandessel/simsweep/internal/constants"
	"github.com/nvandessel/simsweep/internal/ledger"
	"github.com/nvandessel/simsweep/internal/logging"
	"github.com/nvandessel/simsweep/internal/output"
	"github.com/nvandessel/simsweep/internal/workpool"
)

// ErrPathsExhausted is returned when the path sequence ends before the
// applied combinations do.
var ErrPathsExhausted = errors.New("output path sequence exhausted")

// Recorder persists a run's provenance into its output directory before
// the run is submitted.
type Recorder interface {
	Record(dir string, applied automation.Applied) error
}

// RunLedger records run outcomes.
type RunLedger interface {
	Start(ctx context.Context, r ledger.Run) error
	Finish(ctx context.Context, number int, status ledger.Status, runErr error, simTime float64, steps int) error
}

// Options configures a Looper.
type Options struct {
	// Kind names the simulation kind in logs and events.
	Kind string

	// MaxConcurrency bounds the number of runs in flight. Zero uses
	// runtime.NumCPU().
	MaxConcurrency int

	// TargetTime is the simulated time at which every run stops.
	TargetTime float64

	// Recorder, when set, writes provenance into each run directory.
	Recorder Recorder

	// Ledger, when set, records every run's outcome.
	Ledger RunLedger
}

// RunResult is the outcome of one run.
type RunResult struct {
	Run         int           `json:"run"`
	Path        string        `json:"path"`
	Combination string        `json:"combination"`
	Worker      int           `json:"worker"`
	SimTime     float64       `json:"sim_time"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// Failed reports whether the run returned an error or panicked.
func (r RunResult) Failed() bool {
	return r.Err != nil
}

// Summary describes a completed batch.
type Summary struct {
	Submitted int           `json:"submitted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
	// Runs is ordered by run number.
	Runs []RunResult `json:"runs"`
}

// BatchError reports the runs that failed in an otherwise completed batch.
type BatchError struct {
	Total  int
	Failed []RunResult
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d runs failed", len(e.Failed), e.Total)
	for i, r := range e.Failed {
		if i == 3 {
			fmt.Fprintf(&b, "; ...")
			break
		}
		fmt.Fprintf(&b, "; run %d (%s): %v", r.Run, r.Combination, r.Err)
	}
	return b.String()
}

// Unwrap exposes each run's error to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, r := range e.Failed {
		errs[i] = r.Err
	}
	return errs
}

// Looper executes simulation runs.
type Looper struct {
	factory Factory
	opts    Options
	logger  *slog.Logger
	events  *logging.EventLogger
}

// New creates a Looper that builds simulation instances with factory.
func New(factory Factory, opts Options) *Looper {
	return &Looper{
		factory: factory,
		opts:    opts,
		logger:  logging.Discard(),
	}
}

// SetLogger sets the structured logger and event logger for observability.
func (l *Looper) SetLogger(logger *slog.Logger, events *logging.EventLogger) {
	if logger == nil {
		logger = logging.Discard()
	}
	l.logger = logger
	l.events = events
}

// slot is a worker's reusable simulation instance.
type slot struct {
	worker int
	sim    Simulation
}

// run is one unit of work handed to the pool.
type run struct {
	number  int
	path    string
	applied automation.Applied
	result  RunResult
}

// Run executes a single run synchronously on a fresh simulation instance.
func (l *Looper) Run(ctx context.Context, applied automation.Applied, path string) (RunResult, error) {
	r := l.prepare(ctx, applied, path, 0)
	sim, err := l.factory()
	if err != nil {
		r.result.Err = fmt.Errorf("creating simulation: %w", err)
	} else {
		r.result.Err = l.safeExecute(ctx, sim, r)
	}
	l.complete(r)
	return r.result, r.result.Err
}

func (l *Looper) safeExecute(ctx context.Context, sim Simulation, r *run) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &workpool.PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return l.execute(ctx, sim, r)
}

// Batch runs every applied combination, pairing each with the next path
// from paths. At most MaxConcurrency runs are in flight; the call returns
// once all submitted runs have finished. Failed runs do not stop the batch
// and are reported through a *BatchError. An error from applied stops
// submission and is returned after in-flight runs complete.
func (l *Looper) Batch(ctx context.Context, applied iter.Seq2[automation.Applied, error], paths iter.Seq[string]) (*Summary, error) {
	start := time.Now()
	nextPath, stop := iter.Pull(paths)
	defer stop()

	pool := workpool.New(l.opts.MaxConcurrency, func(worker int) (*slot, error) {
		l.logger.Debug("creating simulation instance", "kind", l.opts.Kind, "worker", worker)
		sim, err := l.factory()
		if err != nil {
			return nil, err
		}
		return &slot{worker: worker, sim: sim}, nil
	})

	var (
		mu      sync.Mutex
		results []RunResult
	)
	collect := func(r *run) {
		l.complete(r)
		mu.Lock()
		results = append(results, r.result)
		mu.Unlock()
	}

	var submitErr error
	submitted := 0
	for a, err := range applied {
		if err != nil {
			submitErr = fmt.Errorf("applying combination %d: %w", submitted, err)
			break
		}
		path, ok := nextPath()
		if !ok {
			submitErr = ErrPathsExhausted
			break
		}

		r := l.prepare(ctx, a, path, submitted)
		err := pool.Submit(ctx, func(ctx context.Context, s *slot) error {
			r.result.Worker = s.worker
			return l.execute(ctx, s.sim, r)
		}, func(err error) {
			if err != nil {
				r.result.Err = err
			}
			collect(r)
		})
		if err != nil {
			submitErr = err
			r.result.Err = fmt.Errorf("not submitted: %w", err)
			collect(r)
			break
		}
		submitted++
	}
	pool.Wait()

	if submitted == 0 && submitErr == nil {
		l.logger.Warn("no combinations to run", "kind", l.opts.Kind)
	}

	slices.SortFunc(results, func(a, b RunResult) int { return a.Run - b.Run })
	summary := &Summary{Submitted: submitted, Elapsed: time.Since(start), Runs: results}
	var failed []RunResult
	for _, r := range results {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	summary.Failed = len(failed)
	summary.Succeeded = len(results) - len(failed)

	l.logger.Info("batch finished",
		"kind", l.opts.Kind, "submitted", submitted, "succeeded", summary.Succeeded,
		"failed", summary.Failed, "elapsed", summary.Elapsed)
	l.events.BatchFinished(l.opts.Kind, submitted, summary.Succeeded, summary.Failed, summary.Elapsed)

	var batchErr error
	if len(failed) > 0 {
		batchErr = &BatchError{Total: len(results), Failed: failed}
	}
	return summary, errors.Join(submitErr, batchErr)
}

// prepare creates the run directory, records provenance and marks the run
// as started. Failures here are logged and do not stop the run.
func (l *Looper) prepare(ctx context.Context, applied automation.Applied, path string, seq int) *run {
	number, ok := output.ParseIndex(filepath.Base(path), constants.RunPrefix)
	if !ok {
		number = seq
	}
	r := &run{
		number:  number,
		path:    path,
		applied: applied,
		result: RunResult{
			Run:         number,
			Path:        path,
			Combination: applied.Combination.ID(),
		},
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		l.logger.Warn("failed to create run directory", "path", path, "error", err)
	}
	if l.opts.Recorder != nil {
		if err := l.opts.Recorder.Record(path, applied); err != nil {
			l.logger.Warn("failed to record run provenance", "path", path, "error", err)
		}
	}
	if l.opts.Ledger != nil {
		if err := l.opts.Ledger.Start(ctx, ledger.Run{Number: number, Path: path, Combination: r.result.Combination}); err != nil {
			l.logger.Warn("failed to record run start", "run", number, "error", err)
		}
	}
	l.logger.Debug("run submitted", "run", number, "combination", r.result.Combination)
	l.events.RunStarted(number, path, r.result.Combination)
	return r
}

// execute binds sim to the run, drives it and clears the binding.
func (l *Looper) execute(ctx context.Context, sim Simulation, r *run) error {
	start := time.Now()
	defer func() { r.result.Duration = time.Since(start) }()

	if err := sim.Bind(r.applied.Config, r.path, r.number); err != nil {
		return fmt.Errorf("binding run %d: %w", r.number, err)
	}
	defer sim.Reset()

	steps, err := loop(ctx, sim, l.opts.TargetTime, l.logger.With("run", r.number))
	r.result.Steps = steps
	r.result.SimTime = sim.Time()
	return err
}

// complete logs and records the outcome of a run.
func (l *Looper) complete(r *run) {
	res := r.result
	status := ledger.StatusOK
	if res.Failed() {
		status = ledger.StatusFailed
		var pe *workpool.PanicError
		if errors.As(res.Err, &pe) {
			l.logger.Error("run panicked",
				"run", res.Run, "path", res.Path, "combination", res.Combination,
				"panic", pe.Value, "stack", string(pe.Stack))
		} else {
			l.logger.Error("run failed",
				"run", res.Run, "path", res.Path, "combination", res.Combination, "error", res.Err)
		}
		l.events.RunFailed(res.Run, res.Combination, res.Err)
	} else {
		l.logger.Info("run finished",
			"run", res.Run, "steps", res.Steps, "sim_time", res.SimTime, "duration", res.Duration)
		l.events.RunFinished(res.Run, res.Steps, res.SimTime, res.Duration)
	}

	if l.opts.Ledger != nil {
		// The batch context may already be cancelled; the outcome is still recorded.
		if err := l.opts.Ledger.Finish(context.Background(), res.Run, status, res.Err, res.SimTime, res.Steps); err != nil {
			l.logger.Warn("failed to record run outcome", "run", res.Run, "error", err)
		}
	}
}
