package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/browserguard/pkg/plan"
)

// Status is the outcome of one step.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StepOutcome records what happened to one action of the plan.
type StepOutcome struct {
	Index    int
	Action   plan.Action
	Status   Status
	Err      error
	Duration time.Duration
}

// Report is the result of a run. It has exactly one outcome per action, in
// plan order.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepOutcome
}

// Succeeded reports whether every step succeeded. An empty plan succeeds.
func (r *Report) Succeeded() bool {
	_, failed := r.Failure()
	return !failed
}

// Failure returns the step that stopped the run, if any.
func (r *Report) Failure() (StepOutcome, bool) {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return s, true
		}
	}
	return StepOutcome{}, false
}

// Count returns the number of steps with the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == status {
			n++
		}
	}
	return n
}

// Summary renders one line per step followed by a totals line.
func (r *Report) Summary() string {
	var b strings.Builder
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "%d. %-7s %s", s.Index+1, s.Status, s.Action)
		if s.Err != nil {
			fmt.Fprintf(&b, ": %v", s.Err)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%d succeeded, %d failed, %d skipped",
		r.Count(StatusSuccess), r.Count(StatusFailed), r.Count(StatusSkipped))
	return b.String()
}
