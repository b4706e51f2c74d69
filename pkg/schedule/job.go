package schedule

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
)

const (
	KindEvery = "every"
	KindCron  = "cron"
)

// Spec describes when a job fires. Kind selects the variant: "every"
// uses EveryMS, "cron" uses a five-field cron expression in Expr.
type Spec struct {
	Kind    string `json:"kind"`
	EveryMS *int64 `json:"every_ms,omitempty"`
	Expr    string `json:"expr,omitempty"`
}

func (s Spec) Validate() error {
	switch s.Kind {
	case KindEvery:
		if s.EveryMS == nil || *s.EveryMS <= 0 {
			return fmt.Errorf("every schedule requires a positive interval")
		}
	case KindCron:
		if s.Expr == "" {
			return fmt.Errorf("cron schedule requires an expression")
		}
		if !gronx.New().IsValid(s.Expr) {
			return fmt.Errorf("invalid cron expression: %s", s.Expr)
		}
	default:
		return fmt.Errorf("unknown schedule kind: %s", s.Kind)
	}
	return nil
}

// NextRun computes the next firing time strictly after from.
func (s Spec) NextRun(from time.Time) (time.Time, error) {
	switch s.Kind {
	case KindEvery:
		if s.EveryMS == nil || *s.EveryMS <= 0 {
			return time.Time{}, fmt.Errorf("every schedule requires a positive interval")
		}
		return from.Add(time.Duration(*s.EveryMS) * time.Millisecond), nil
	case KindCron:
		next, err := gronx.NextTickAfter(s.Expr, from, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to evaluate cron expression: %w", err)
		}
		return next, nil
	}
	return time.Time{}, fmt.Errorf("unknown schedule kind: %s", s.Kind)
}

// State is run bookkeeping persisted alongside the job.
type State struct {
	NextRunAtMS *int64 `json:"next_run_at_ms,omitempty"`
	LastRunAtMS *int64 `json:"last_run_at_ms,omitempty"`
	LastStatus  string `json:"last_status,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

// Job is one recurring study task bound to a persona and a provider.
type Job struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	PersonaID   string   `json:"persona_id"`
	Provider    string   `json:"provider"`
	Prompts     []string `json:"prompts"`
	Schedule    Spec     `json:"schedule"`
	Enabled     bool     `json:"enabled"`
	State       State    `json:"state"`
	CreatedAtMS int64    `json:"created_at_ms"`
	UpdatedAtMS int64    `json:"updated_at_ms"`
}
