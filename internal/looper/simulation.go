// Package looper drives simulation lifecycles: one run to a target time, or
// a batch of runs over applied combinations on a bounded worker pool.
package looper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nvandessel/simsweep/internal/logging"
	"github.com/nvandessel/simsweep/internal/param"
)

// Simulation is a reusable simulation instance. A worker binds it to one
// run's configuration, drives it through Start, Step and Finish, then
// resets it before the next run.
type Simulation interface {
	// Bind attaches the resolved configuration, the run's output directory
	// and its run number.
	Bind(cfg param.Node, outputDir string, run int) error
	Start(ctx context.Context) error
	// HasWork reports whether another Step can make progress.
	HasWork() bool
	// Time is the current simulated time.
	Time() float64
	Step(ctx context.Context) error
	// Finish flushes run artifacts to the output directory.
	Finish() error
	// Reset clears the binding so the instance can be reused.
	Reset()
}

// Factory creates simulation instances.
type Factory func() (Simulation, error)

// Loop runs one simulation lifecycle: Start, then Step while the
// simulation has work and its time is below targetTime, then Finish.
// The simulation must already be bound.
func Loop(ctx context.Context, sim Simulation, targetTime float64) error {
	_, err := loop(ctx, sim, targetTime, nil)
	return err
}

func loop(ctx context.Context, sim Simulation, targetTime float64, logger *slog.Logger) (int, error) {
	if err := sim.Start(ctx); err != nil {
		return 0, fmt.Errorf("starting simulation: %w", err)
	}

	steps := 0
	for sim.HasWork() && sim.Time() < targetTime {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		if err := sim.Step(ctx); err != nil {
			return steps, fmt.Errorf("step %d at t=%g: %w", steps, sim.Time(), err)
		}
		steps++
		if logger != nil {
			logger.Log(ctx, logging.LevelTrace, "step", "step", steps, "time", sim.Time())
		}
	}

	if err := sim.Finish(); err != nil {
		return steps, fmt.Errorf("finishing simulation: %w", err)
	}
	return steps, nil
}
