// Package flight provides keyed single-flight coordination: at most one
// in-flight execution per key, with concurrent callers awaiting the same
// settled result. Unlike a cache, nothing outlives the in-flight window:
// the slot is cleared on settlement, success or failure, so a later call
// always starts a brand-new attempt.
//
// The guard exists because concurrent attachment attempts are the exact
// failure mode (duplicate credential entries, racing mount helpers) the rest
// of the system is built to avoid.
package flight

import (
	"log/slog"
	"sync"
)

type call struct {
	done chan struct{}
	val  any
	err  error
}

// Guard is a keyed single-flight registry owned by a long-lived coordinator.
type Guard struct {
	mu     sync.Mutex
	calls  map[string]*call
	logger *slog.Logger
}

// NewGuard creates an empty guard.
func NewGuard(logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{calls: make(map[string]*call), logger: logger}
}

// Do executes fn under key. If a call under the same key is already in
// flight, fn is not invoked; the caller blocks and receives that call's
// settled result. The number of executions of fn equals the number of
// non-overlapping call windows, not the number of callers.
func (g *Guard) Do(key string, fn func() (any, error)) (any, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		g.logger.Debug("joining in-flight call", "key", key)
		<-c.done
		return c.val, c.err
	}

	c := &call{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	// Clear the slot before publishing the result: once any caller observes
	// settlement, the next Do must be free to start a fresh attempt.
	g.mu.Lock()
	if g.calls[key] == c {
		delete(g.calls, key)
	}
	g.mu.Unlock()
	close(c.done)

	return c.val, c.err
}

// InFlight reports whether a call under key is currently executing.
func (g *Guard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.calls[key]
	return ok
}

// Reset detaches any in-flight slot for key. An abandoned execution still
// runs to completion and settles for its existing waiters; Reset only frees
// the key so the next Do starts fresh. Primarily a test-isolation hook.
func (g *Guard) Reset(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.calls, key)
}

// Do executes fn under key on g with a typed result.
func Do[T any](g *Guard, key string, fn func() (T, error)) (T, error) {
	val, err := g.Do(key, func() (any, error) {
		return fn()
	})
	if val == nil {
		var zero T
		return zero, err
	}
	return val.(T), err
}
