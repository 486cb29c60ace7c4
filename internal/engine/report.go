package engine

import (
	"fmt"
	"time"
)

// Report summarizes one template run.
type Report struct {
	RunID        string
	TemplateName string
	Fingerprint  string
	Triggered    bool
	JQL          string
	StartedAt    time.Time
	Duration     time.Duration
	Iterations   []IterationResult
}

// IterationResult is the outcome of one pass through the action list.
type IterationResult struct {
	EntityKey  string // key of the trigger entity, empty for untriggered runs
	ActionsRun int
	Err        *ActionError
}

// Failed counts iterations that stopped on an error.
func (r *Report) Failed() int {
	n := 0
	for _, it := range r.Iterations {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// Succeeded counts iterations that ran every action.
func (r *Report) Succeeded() int {
	return len(r.Iterations) - r.Failed()
}

// Err returns a non-nil error when at least one iteration failed.
func (r *Report) Err() error {
	if n := r.Failed(); n > 0 {
		return fmt.Errorf("%d of %d iteration(s) failed", n, len(r.Iterations))
	}
	return nil
}
