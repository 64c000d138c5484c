// Package poll provides fixed-interval, capped-attempt polling for
// operations that complete outside the process, such as spawned commands.
// Every component that waits on an external command uses this helper, so
// that no call site can hang indefinitely.
package poll

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	perrors "github.com/persistfs/persistfs/pkg/errors"
)

// Config parameterizes one bounded polling loop. Interval times MaxAttempts
// derives the hard timeout.
type Config struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// Presets used across the system. Quick checks give up after about two
// seconds; mount, copy, and archive operations are given longer because they
// speak to remote storage.
var (
	QuickCheck       = Config{Interval: 100 * time.Millisecond, MaxAttempts: 20}
	MountOperation   = Config{Interval: 500 * time.Millisecond, MaxAttempts: 60}
	CopyOperation    = Config{Interval: 500 * time.Millisecond, MaxAttempts: 120}
	ArchiveOperation = Config{Interval: 500 * time.Millisecond, MaxAttempts: 120}
)

// Timeout returns the hard deadline implied by the configuration.
func (c Config) Timeout() time.Duration {
	n := c.normalized()
	return time.Duration(n.MaxAttempts) * n.Interval
}

func (c Config) normalized() Config {
	if c.Interval <= 0 {
		c.Interval = 100 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 20
	}
	return c
}

type notReadyError struct{}

func (notReadyError) Error() string { return "condition not yet satisfied" }

type condError struct{ err error }

func (e *condError) Error() string { return e.err.Error() }
func (e *condError) Unwrap() error { return e.err }

// Until polls cond at the configured interval until it reports done, the
// attempt cap is reached, or ctx is cancelled. A nil clk falls back to the
// wall clock. An error returned by cond aborts the loop immediately and is
// returned as-is; attempt exhaustion is reported as a COMMAND_TIMEOUT error
// recognizable via IsTimeout.
func Until(ctx context.Context, clk clock.Clock, cfg Config, cond func(ctx context.Context) (bool, error)) error {
	cfg = cfg.normalized()
	if clk == nil {
		clk = clock.WallClock
	}

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			done, err := cond(ctx)
			if err != nil {
				return &condError{err: err}
			}
			if !done {
				return notReadyError{}
			}
			return nil
		},
		IsFatalError: func(err error) bool {
			_, notReady := err.(notReadyError)
			return !notReady
		},
		Attempts: cfg.MaxAttempts,
		Delay:    cfg.Interval,
		Clock:    clk,
		Stop:     ctx.Done(),
	})
	if err == nil {
		return nil
	}
	var ce *condError
	if stderrors.As(err, &ce) {
		return ce.err
	}
	if retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err) {
		return perrors.Wrap(err, perrors.ErrCodeCommandTimeout,
			"polling attempts exhausted").WithComponent("poll")
	}
	if retry.IsRetryStopped(err) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}

// IsTimeout reports whether err represents an exhausted polling loop.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, perrors.NewError(perrors.ErrCodeCommandTimeout, ""))
}
