// Package probe runs external commands with bounded completion polling and
// captured output. It is the single seam through which PersistFS interrogates
// the container's OS-level state: the mount table, file existence, and the
// exit codes of the mount, copy, and archive utilities.
package probe

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/persistfs/persistfs/internal/metrics"
	perrors "github.com/persistfs/persistfs/pkg/errors"
	"github.com/persistfs/persistfs/pkg/poll"
)

// ExecCommand is the command constructor seam. Tests swap it to fake the
// container's utilities.
var ExecCommand = exec.CommandContext

// Spec describes one external command invocation.
type Spec struct {
	Name string
	Args []string
	Dir  string
	// Env entries are appended to the parent environment.
	Env []string
	// Poll bounds how long the command may run. Zero values use the quick
	// check preset.
	Poll poll.Config
}

// Result captures what the command produced. A Result is returned even when
// the run failed, so callers can classify the captured output.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// CombinedOutput returns stderr followed by stdout, trimmed, for
// classification and diagnostics.
func (r Result) CombinedOutput() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stderr) + "\n" + strings.TrimSpace(r.Stdout))
}

// Prober runs external commands with bounded polling.
type Prober struct {
	clk       clock.Clock
	logger    *slog.Logger
	collector *metrics.Collector
}

// New creates a Prober. A nil clk uses the wall clock; a nil logger uses the
// default logger; a nil collector disables metrics.
func New(clk clock.Clock, logger *slog.Logger, collector *metrics.Collector) *Prober {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{clk: clk, logger: logger, collector: collector}
}

// Run starts the command and polls for completion at the spec's interval. A
// command still running when the attempt cap is reached is killed and
// reported with TimedOut set; Run never hangs. The error is non-nil for
// start failures, timeouts, and non-zero exits; captured output is returned
// in all cases.
func (p *Prober) Run(ctx context.Context, spec Spec) (Result, error) {
	start := time.Now()

	cmd := ExecCommand(ctx, spec.Name, spec.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	if err := cmd.Start(); err != nil {
		p.logger.Debug("probe start failed", "command", spec.Name, "error", err)
		return Result{ExitCode: -1, Duration: time.Since(start)},
			perrors.Wrap(err, perrors.ErrCodeCommandFailed,
				fmt.Sprintf("failed to start %s", spec.Name)).WithComponent("probe")
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var waitErr error
	finished := false
	pollErr := poll.Until(ctx, p.clk, spec.Poll, func(context.Context) (bool, error) {
		select {
		case waitErr = <-waitCh:
			finished = true
			return true, nil
		default:
			return false, nil
		}
	})

	if !finished {
		// Cap reached or context cancelled; kill and reap so the goroutine
		// and any pipe buffers are released.
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		<-waitCh

		result := Result{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: -1,
			TimedOut: poll.IsTimeout(pollErr),
			Duration: time.Since(start),
		}
		if result.TimedOut && p.collector != nil {
			p.collector.RecordProbeTimeout(spec.Name)
		}
		p.logger.Warn("probe did not complete",
			"command", spec.Name, "timed_out", result.TimedOut, "elapsed", result.Duration)
		return result, pollErr
	}

	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if stderrors.As(waitErr, &exitErr) {
			p.logger.Debug("probe exited non-zero",
				"command", spec.Name, "exit_code", result.ExitCode, "stderr", trimForLog(result.Stderr))
			return result, perrors.Wrap(waitErr, perrors.ErrCodeCommandFailed,
				fmt.Sprintf("%s exited with code %d", spec.Name, result.ExitCode)).
				WithComponent("probe").
				WithContext("stderr", trimForLog(result.Stderr))
		}
		return result, perrors.Wrap(waitErr, perrors.ErrCodeCommandFailed,
			fmt.Sprintf("%s failed", spec.Name)).WithComponent("probe")
	}

	p.logger.Debug("probe completed", "command", spec.Name, "elapsed", result.Duration)
	return result, nil
}

func trimForLog(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}
