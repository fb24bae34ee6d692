package logging

import "time"

// Event names written to events.jsonl.
const (
	EventRunStarted    = "run_started"
	EventRunFinished   = "run_finished"
	EventRunFailed     = "run_failed"
	EventBatchFinished = "batch_finished"
)

// RunStarted records a run being submitted.
func (el *EventLogger) RunStarted(run int, path, combination string) {
	el.Log(map[string]any{
		"event":       EventRunStarted,
		"run":         run,
		"path":        path,
		"combination": combination,
	})
}

// RunFinished records a run that reached its target time or ran out of work.
func (el *EventLogger) RunFinished(run, steps int, simTime float64, elapsed time.Duration) {
	el.Log(map[string]any{
		"event":    EventRunFinished,
		"run":      run,
		"steps":    steps,
		"sim_time": simTime,
		"duration": elapsed.Seconds(),
	})
}

// RunFailed records a run that returned an error or panicked.
func (el *EventLogger) RunFailed(run int, combination string, err error) {
	if el == nil || err == nil {
		return
	}
	el.Log(map[string]any{
		"event":       EventRunFailed,
		"run":         run,
		"combination": combination,
		"error":       err.Error(),
	})
}

// BatchFinished records the totals of a batch.
func (el *EventLogger) BatchFinished(kind string, submitted, succeeded, failed int, elapsed time.Duration) {
	el.Log(map[string]any{
		"event":     EventBatchFinished,
		"kind":      kind,
		"submitted": submitted,
		"succeeded": succeeded,
		"failed":    failed,
		"elapsed":   elapsed.Seconds(),
	})
}
