// Package polling provides the single bounded poll loop used for every
// submit/poll/fetch style client (analytical store, transcription jobs).
// All call sites share the same timeout semantics: exceeding the wall-clock
// budget is indistinguishable from an explicit terminal failure.
package polling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fieldpulse/copilot/internal/metrics"
)

// ErrBudgetExceeded is returned when a poll loop exhausts its wall-clock
// budget before the polled operation reaches a terminal state.
var ErrBudgetExceeded = errors.New("polling: wall-clock budget exceeded")

// Policy bounds one poll loop. Both values come from configuration, never
// hardcoded at call sites.
type Policy struct {
	Interval  time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxBudget time.Duration `mapstructure:"max_budget" yaml:"max_budget"`
}

// Validate reports whether the policy is usable.
func (p Policy) Validate() error {
	if p.Interval <= 0 {
		return fmt.Errorf("polling: interval must be positive, got %v", p.Interval)
	}
	if p.MaxBudget < p.Interval {
		return fmt.Errorf("polling: max budget %v is smaller than interval %v", p.MaxBudget, p.Interval)
	}
	return nil
}

// Probe inspects the polled operation once. done=true stops the loop and
// returns err (nil for success, non-nil for a terminal failure).
type Probe func(ctx context.Context) (done bool, err error)

// Wait runs probe at a fixed interval until it reports done, the budget is
// exhausted, or ctx is cancelled. The operation name labels timeout metrics.
func Wait(ctx context.Context, operation string, policy Policy, probe Probe) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	deadline := time.Now().Add(policy.MaxBudget)
	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	// First probe happens immediately; a query may already be terminal.
	for {
		done, err := probe(ctx)
		if done {
			return err
		}

		if time.Now().After(deadline) {
			metrics.PollTimeouts.WithLabelValues(operation).Inc()
			return fmt.Errorf("%s: %w (budget %v)", operation, ErrBudgetExceeded, policy.MaxBudget)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
