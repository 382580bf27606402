package resilience

import (
	"context"
	"time"

	apperrors "github.com/kbukum/speechkit/errors"
)

// PollConfig configures Poll.
type PollConfig struct {
	// Interval is the delay between checks. Defaults to one second.
	Interval time.Duration
	// Timeout bounds the whole poll. Zero means only ctx bounds it.
	Timeout time.Duration
	// Operation names the job in the timeout error.
	Operation string
}

// Poll calls check until it reports done or fails. Errors from check end
// the poll immediately; wrap check in Retry to tolerate transient ones.
func Poll[T any](ctx context.Context, cfg PollConfig, check func() (T, bool, error)) (T, error) {
	var zero T
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Operation == "" {
		cfg.Operation = "poll"
	}
	var deadline <-chan time.Time
	if cfg.Timeout > 0 {
		t := time.NewTimer(cfg.Timeout)
		defer t.Stop()
		deadline = t.C
	}

	for {
		v, done, err := check()
		if err != nil {
			return zero, err
		}
		if done {
			return v, nil
		}

		wait := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			wait.Stop()
			return zero, ctx.Err()
		case <-deadline:
			wait.Stop()
			return zero, apperrors.Timeout(cfg.Operation)
		case <-wait.C:
		}
	}
}
