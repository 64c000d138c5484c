// Package startup runs the mount-and-sync sequence exactly once per process
// attempt and records terminal failures for external visibility.
package startup

import (
	"strings"
	"sync"
	"time"

	"github.com/persistfs/persistfs/pkg/types"
)

// Remediation hints surfaced alongside recorded failures.
const (
	hintCredentials = "set the storage access key and secret in the environment or configuration file"
	hintMemory      = "increase the container memory limit and restart the worker"
	hintGeneric     = "check the startup logs for details"
)

// Ledger holds the most recent terminal startup failure for the lifetime of
// the process. The supervisor and the status endpoint read it without
// triggering new attempts.
type Ledger struct {
	mu      sync.Mutex
	failure *types.StartupFailure
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record stores a terminal failure. An empty hint is derived from the
// message by pattern matching.
func (l *Ledger) Record(message, hint string) {
	if hint == "" {
		hint = deriveHint(message)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failure = &types.StartupFailure{
		Message:         message,
		RemediationHint: hint,
		OccurredAt:      time.Now().UTC(),
	}
}

// Clear resets the ledger at the start of a fresh attempt.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failure = nil
}

// Current returns a copy of the recorded failure, or nil when the last
// attempt did not fail terminally.
func (l *Ledger) Current() *types.StartupFailure {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failure == nil {
		return nil
	}
	copied := *l.failure
	return &copied
}

func deriveHint(message string) string {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "api key"),
		strings.Contains(lower, "access key"),
		strings.Contains(lower, "credentials"),
		strings.Contains(lower, "account"):
		return hintCredentials
	case strings.Contains(lower, "out of memory"),
		strings.Contains(lower, "oom"),
		strings.Contains(lower, "cannot allocate"):
		return hintMemory
	default:
		return hintGeneric
	}
}
