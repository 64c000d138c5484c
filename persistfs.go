// Package persistfs attaches a remote object-storage bucket as persistent
// storage for a containerized worker and keeps the worker's configuration
// and workspace reconciled into it. The package wires the mount strategy
// chain, the sync orchestrator with its archive-upload fallback, and the
// startup sequence behind a single constructor.
package persistfs

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/persistfs/persistfs/internal/config"
	"github.com/persistfs/persistfs/internal/flight"
	"github.com/persistfs/persistfs/internal/metrics"
	"github.com/persistfs/persistfs/internal/mount"
	"github.com/persistfs/persistfs/internal/probe"
	"github.com/persistfs/persistfs/internal/reconcile"
	"github.com/persistfs/persistfs/internal/startup"
	"github.com/persistfs/persistfs/internal/storage/s3"
	"github.com/persistfs/persistfs/pkg/api"
	perrors "github.com/persistfs/persistfs/pkg/errors"
	"github.com/persistfs/persistfs/pkg/types"
)

// Config is re-exported so callers construct a Service without importing
// internal packages.
type Config = config.Configuration

// NewDefaultConfig returns the default configuration.
func NewDefaultConfig() *Config {
	return config.NewDefault()
}

// LoadConfig builds the effective configuration: defaults, then the optional
// file, then environment overrides, then validation.
func LoadConfig(path string) (*Config, error) {
	cfg := config.NewDefault()
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, perrors.Wrap(err, perrors.ErrCodeInvalidConfig, "configuration rejected")
	}
	return cfg, nil
}

// Service is the assembled orchestrator.
type Service struct {
	cfg       *config.Configuration
	logger    *slog.Logger
	collector *metrics.Collector
	verifier  *mount.TableVerifier
	orch      *startup.Orchestrator
}

// NewService wires the full stack from configuration. The storage client is
// only constructed when an account is configured; without one the backup
// fallback is disabled and sync reports failure instead.
func NewService(ctx context.Context, cfg *config.Configuration) (*Service, error) {
	logger := newLogger(cfg.Global.LogLevel)
	collector := metrics.NewCollector("persistfs")
	prober := probe.New(nil, logger, collector)

	verifier := mount.NewTableVerifier(prober, logger, cfg.Poll.Quick)
	attacher := mount.NewUtilityAttacher(prober, logger, cfg.Poll.Mount)
	credFile := mount.CredentialFile{Path: mount.DefaultCredentialFilePath}
	strategies := mount.DefaultStrategies(prober, attacher, logger, credFile, cfg.Poll.Mount)
	chain := mount.NewStrategyChain(verifier, strategies, logger, collector)

	// Every attach entry point shares this guarded chain; the sync path
	// re-attempting a mount must never race a direct attach.
	guard := flight.NewGuard(logger)
	guardedChain := startup.NewGuardedAttacher(guard, chain)

	var backup *reconcile.BindingBackup
	if cfg.Storage.AccountID != "" {
		store, err := s3.NewClient(ctx, s3.Config{
			Bucket:          cfg.Storage.Bucket,
			Endpoint:        cfg.Endpoint(),
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			UsePathStyle:    cfg.Storage.ForcePathStyle,
		}, logger)
		if err != nil {
			return nil, err
		}
		backup = reconcile.NewBindingBackup(cfg, prober, store, logger, collector)
	}

	sync := reconcile.NewSyncOrchestrator(cfg, guardedChain, prober, backup, logger, collector)
	ledger := startup.NewLedger()
	orch := startup.New(cfg, guard, guardedChain, sync, ledger, logger)

	return &Service{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		verifier:  verifier,
		orch:      orch,
	}, nil
}

// Run executes the startup sequence. See startup.Orchestrator.Run for the
// error contract.
func (s *Service) Run(ctx context.Context) error {
	return s.orch.Run(ctx)
}

// Attach mounts the bucket; concurrent callers share one attempt.
func (s *Service) Attach(ctx context.Context) bool {
	return s.orch.Attach(ctx)
}

// Sync runs one reconciliation.
func (s *Service) Sync(ctx context.Context) types.SyncResult {
	return s.orch.Sync(ctx)
}

// CurrentStartupFailure returns the last terminal startup failure, if any.
func (s *Service) CurrentStartupFailure() *types.StartupFailure {
	return s.orch.CurrentStartupFailure()
}

// IsMounted reports the bucket's attachment state from the mount table.
func (s *Service) IsMounted(ctx context.Context, path, label string) bool {
	return s.verifier.IsMounted(ctx, path, label)
}

// MetricsHandler exposes the Prometheus registry for the monitoring server.
func (s *Service) MetricsHandler() http.Handler {
	return s.collector.Handler()
}

// MonitoringAddress returns the configured listen address for the
// monitoring server.
func (s *Service) MonitoringAddress() string {
	return fmt.Sprintf("localhost:%d", s.cfg.Global.MetricsPort)
}

// MonitoringServer constructs the monitoring HTTP server bound to the
// configured metrics port. The caller owns its lifecycle.
func (s *Service) MonitoringServer() *api.Server {
	serverCfg := api.DefaultServerConfig()
	serverCfg.Address = s.MonitoringAddress()
	return api.NewServer(serverCfg, s, s, s.cfg.Storage.MountPath, s.collector.Handler(), s.logger)
}

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger {
	return s.logger
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
