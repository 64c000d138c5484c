package mount

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/persistfs/persistfs/internal/metrics"
	"github.com/persistfs/persistfs/internal/probe"
	"github.com/persistfs/persistfs/pkg/poll"
	"github.com/persistfs/persistfs/pkg/types"
)

// StrategyChain attempts an ordered list of attachment strategies, each
// independently verified against the mount table, and stops at the first
// verified success. The chain never raises: every failure mode collapses to
// a boolean so startup can proceed in degraded mode.
type StrategyChain struct {
	verifier   types.MountVerifier
	strategies []Strategy
	logger     *slog.Logger
	collector  *metrics.Collector
}

// NewStrategyChain creates a chain over the given strategies in priority
// order.
func NewStrategyChain(verifier types.MountVerifier, strategies []Strategy, logger *slog.Logger, collector *metrics.Collector) *StrategyChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &StrategyChain{
		verifier:   verifier,
		strategies: strategies,
		logger:     logger,
		collector:  collector,
	}
}

// DefaultStrategies returns the production strategy order: managed attach
// with ambient credentials, managed attach with explicit credentials, then
// the manual low-level attach.
func DefaultStrategies(prober *probe.Prober, attacher types.Attacher, logger *slog.Logger, credFile CredentialFile, pollCfg poll.Config) []Strategy {
	return []Strategy{
		NewManagedStrategy(attacher),
		NewManagedCredentialStrategy(attacher),
		NewManualStrategy(prober, logger, credFile, pollCfg),
	}
}

// Attach attempts to attach the bucket at the target's mount path. It is
// idempotent: an already-attached bucket returns true without attempting any
// strategy. A false return means every strategy was exhausted and the mount
// table still shows nothing attached.
func (c *StrategyChain) Attach(ctx context.Context, target types.MountTarget) bool {
	start := time.Now()
	log := c.logger.With(
		"attempt_id", uuid.NewString(),
		"bucket", target.BucketName,
		"path", target.MountPath,
	)

	// Fatal precondition: without an account there is no endpoint and no
	// strategy can be attempted.
	if !target.Mountable() {
		log.Error("attach skipped: storage account not configured")
		c.finish(false, start)
		return false
	}

	// Fast path. Avoids duplicate credential writes on repeat calls.
	if c.verifier.IsMounted(ctx, target.MountPath, "fast path") {
		log.Info("bucket already attached")
		c.finish(true, start)
		return true
	}

	for _, strategy := range c.strategies {
		if !strategy.Available(target) {
			log.Debug("strategy skipped", "strategy", strategy.Name())
			continue
		}

		log.Info("attempting attach strategy", "strategy", strategy.Name())
		outcome := strategy.Attempt(ctx, target)
		if c.collector != nil {
			c.collector.RecordStrategyAttempt(strategy.Name(), outcome.Status.String())
		}

		if outcome.Status != types.OutcomeSucceeded {
			log.Warn("attach strategy failed",
				"strategy", strategy.Name(), "class", string(outcome.Class), "error", outcome.Err)

			if outcome.Class == types.ClassAlreadyMounted {
				// The helper said "in use"; if the table agrees something is
				// attached, the error was misleading and this is a success.
				if c.verifier.IsMounted(ctx, target.MountPath, strategy.Name()+" conflict re-check") {
					log.Info("attach verified after conflict report", "strategy", strategy.Name())
					c.finish(true, start)
					return true
				}
			}
			if outcome.Class == types.ClassCapabilityUnavailable {
				// An environment limitation, not a transient fault. Logged
				// loudly because no retry will change it.
				log.Error("mount capability unavailable in this environment",
					"strategy", strategy.Name(), "error", outcome.Err)
			}
		}

		// A clean return does not by itself imply attachment; the table
		// decides, whether or not the strategy reported an error.
		if c.verifier.IsMounted(ctx, target.MountPath, strategy.Name()+" post-check") {
			log.Info("attach verified", "strategy", strategy.Name())
			c.finish(true, start)
			return true
		}

		if outcome.Status == types.OutcomeFailedFatal {
			log.Warn("aborting remaining strategies", "strategy", strategy.Name())
			break
		}
	}

	// A failed strategy can leave the bucket attached as a side effect.
	// One last look before giving up.
	mounted := c.verifier.IsMounted(ctx, target.MountPath, "final check")
	if mounted {
		log.Info("attach succeeded despite strategy errors")
	} else {
		log.Warn("all attach strategies exhausted", "elapsed", time.Since(start))
	}
	c.finish(mounted, start)
	return mounted
}

func (c *StrategyChain) finish(success bool, start time.Time) {
	if c.collector != nil {
		c.collector.RecordAttach(success, time.Since(start))
	}
}
