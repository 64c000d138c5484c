package startup

import (
	"context"
	"log/slog"

	"github.com/persistfs/persistfs/internal/config"
	"github.com/persistfs/persistfs/internal/flight"
	perrors "github.com/persistfs/persistfs/pkg/errors"
	"github.com/persistfs/persistfs/pkg/types"
)

// Guard keys. Mounting has its own key so a status-driven attach can be
// deduplicated independently of the full startup sequence.
const (
	KeyStartup = "startup"
	KeyMount   = "mount"
)

type attacher interface {
	Attach(ctx context.Context, target types.MountTarget) bool
}

type syncer interface {
	Sync(ctx context.Context, target types.MountTarget) types.SyncResult
}

// GuardedAttacher serializes every chain execution under the mount key.
// All attach entry points share one of these, so two strategy chains can
// never run concurrently no matter which path (startup, direct attach, or a
// sync re-attempt) triggered them; overlapping callers join the in-flight
// attempt and share its result.
type GuardedAttacher struct {
	guard *flight.Guard
	chain attacher
}

// NewGuardedAttacher wraps chain with the mount single-flight key.
func NewGuardedAttacher(guard *flight.Guard, chain attacher) *GuardedAttacher {
	return &GuardedAttacher{guard: guard, chain: chain}
}

// Attach runs the chain under the mount key. Concurrent callers share one
// execution.
func (a *GuardedAttacher) Attach(ctx context.Context, target types.MountTarget) bool {
	ok, _ := flight.Do(a.guard, KeyMount, func() (bool, error) {
		return a.chain.Attach(ctx, target), nil
	})
	return ok
}

// Orchestrator wraps the mount chain and the sync orchestrator under
// single-flight guards and feeds terminal failures into the ledger. Attach
// and sync failures degrade the worker to ephemeral storage; only a missing
// storage configuration at the very top is raised as an error.
type Orchestrator struct {
	cfg    *config.Configuration
	guard  *flight.Guard
	chain  attacher
	sync   syncer
	ledger *Ledger
	logger *slog.Logger
}

// New creates the orchestrator. All collaborators are required except the
// logger. The chain must already be serialized under the mount key (wrap it
// with NewGuardedAttacher); the orchestrator only adds the startup guard on
// top.
func New(cfg *config.Configuration, guard *flight.Guard, chain attacher, sync syncer, ledger *Ledger, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:    cfg,
		guard:  guard,
		chain:  chain,
		sync:   sync,
		ledger: ledger,
		logger: logger,
	}
}

// Run executes the startup sequence. Concurrent callers share one execution
// and its result. The returned error is non-nil only for the fatal
// configuration precondition; a failed attach or sync leaves the worker
// running without persistent storage and returns nil.
func (o *Orchestrator) Run(ctx context.Context) error {
	_, err := o.guard.Do(KeyStartup, func() (any, error) {
		o.ledger.Clear()

		if o.cfg.Storage.AccountID == "" {
			err := perrors.NewError(perrors.ErrCodeMissingAccountID,
				"no storage account configured").
				WithComponent("startup")
			o.ledger.Record(err.Message, "")
			o.logger.Error("startup precondition failed", "error", err)
			return nil, err
		}

		target := o.cfg.MountTarget()

		mounted := o.attach(ctx, target)
		if !mounted {
			o.logger.Warn("bucket not attached, continuing degraded")
		}

		result := o.sync.Sync(ctx, target)
		if !result.Success {
			o.logger.Warn("initial sync failed, continuing degraded",
				"error_kind", result.ErrorKind, "details", result.Details)
		} else {
			o.logger.Info("startup sync complete", "timestamp", result.LastSyncTimestamp)
		}
		return nil, nil
	})
	return err
}

// Attach mounts the bucket. Concurrent callers share one attempt through
// the guarded chain.
func (o *Orchestrator) Attach(ctx context.Context) bool {
	return o.attach(ctx, o.cfg.MountTarget())
}

func (o *Orchestrator) attach(ctx context.Context, target types.MountTarget) bool {
	return o.chain.Attach(ctx, target)
}

// Sync runs one reconciliation outside the startup sequence.
func (o *Orchestrator) Sync(ctx context.Context) types.SyncResult {
	return o.sync.Sync(ctx, o.cfg.MountTarget())
}

// CurrentStartupFailure exposes the ledger for the status endpoint.
func (o *Orchestrator) CurrentStartupFailure() *types.StartupFailure {
	return o.ledger.Current()
}
