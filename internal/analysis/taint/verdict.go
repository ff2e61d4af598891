// File: internal/analysis/taint/verdict.go
package taint

import (
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of one pattern's pass.
type Status string

const (
	StatusClear    Status = "clear"
	StatusViolated Status = "violated"
)

// Verdict is the per-pattern result. Sink is set only when violated;
// ActiveEndorsers only when clear.
type Verdict struct {
	Pattern         string   `json:"pattern"`
	Status          Status   `json:"status"`
	Sink            string   `json:"sink,omitempty"`
	ActiveEndorsers []string `json:"active_endorsers,omitempty"`
}

func Clear(pattern string, endorsers []string) Verdict {
	return Verdict{Pattern: pattern, Status: StatusClear, ActiveEndorsers: endorsers}
}

func Violated(pattern, sink string) Verdict {
	return Verdict{Pattern: pattern, Status: StatusViolated, Sink: sink}
}

func (v Verdict) IsViolated() bool { return v.Status == StatusViolated }

// Result aggregates the verdicts of one analysis run, in catalog order.
type Result struct {
	RunID     uuid.UUID `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Verdicts  []Verdict `json:"verdicts"`
}

// Vulnerable reports whether any pattern was violated.
func (r *Result) Vulnerable() bool {
	for _, v := range r.Verdicts {
		if v.IsViolated() {
			return true
		}
	}
	return false
}
