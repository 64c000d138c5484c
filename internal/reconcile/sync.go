package reconcile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/persistfs/persistfs/internal/config"
	"github.com/persistfs/persistfs/internal/metrics"
	"github.com/persistfs/persistfs/internal/probe"
	"github.com/persistfs/persistfs/pkg/types"
)

// copyExcludes are transient file patterns never mirrored into the bucket.
var copyExcludes = []string{"*.lock", "*.log", "*.tmp"}

// bucketAttacher is the slice of the mount chain the orchestrator needs.
type bucketAttacher interface {
	Attach(ctx context.Context, target types.MountTarget) bool
}

// SyncOrchestrator mirrors the worker's source directories into the mounted
// bucket and verifies completion through the timestamp marker. When the
// target is not mountable, or attachment fails, it delegates to the backup
// path if one is configured.
type SyncOrchestrator struct {
	cfg       *config.Configuration
	attacher  bucketAttacher
	prober    *probe.Prober
	backup    *BindingBackup
	logger    *slog.Logger
	collector *metrics.Collector
	now       nowFunc
}

// NewSyncOrchestrator creates the orchestrator. backup may be nil, in which
// case an unmountable target is a sync failure rather than a fallback.
func NewSyncOrchestrator(cfg *config.Configuration, attacher bucketAttacher, prober *probe.Prober, backup *BindingBackup, logger *slog.Logger, collector *metrics.Collector) *SyncOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncOrchestrator{
		cfg:       cfg,
		attacher:  attacher,
		prober:    prober,
		backup:    backup,
		logger:    logger,
		collector: collector,
		now:       defaultNow,
	}
}

// Sync reconciles the source directories with the bucket. The marker file is
// the sole success criterion for the mount path; copy exit codes alone do
// not count.
func (o *SyncOrchestrator) Sync(ctx context.Context, target types.MountTarget) types.SyncResult {
	configDirs, extraDirs := sourceDirs(o.cfg)
	if len(configDirs) == 0 {
		o.logger.Warn("sync aborted, no recognized configuration file",
			"source_root", o.cfg.Sync.SourceRoot, "candidates", o.cfg.ConfigDirCandidates())
		return o.record("mount", types.SyncResult{
			Success:   false,
			ErrorKind: ErrKindNoConfigFile,
			Details:   "no settings file under " + o.cfg.Sync.SourceRoot,
		})
	}
	dirs := append(configDirs, extraDirs...)

	if !target.Mountable() || o.attacher == nil || !o.attacher.Attach(ctx, target) {
		if o.backup != nil {
			o.logger.Info("mount unavailable, falling back to archive backup")
			return o.backup.Backup(ctx, target)
		}
		return o.record("mount", types.SyncResult{
			Success:   false,
			ErrorKind: ErrKindCopyFailed,
			Details:   "bucket not mounted and no backup path configured",
		})
	}

	return o.record("mount", o.mirrorAndMark(ctx, target.MountPath, dirs))
}

func (o *SyncOrchestrator) mirrorAndMark(ctx context.Context, mountPath string, dirs []string) types.SyncResult {
	for _, dir := range dirs {
		src := filepath.Join(o.cfg.Sync.SourceRoot, dir) + "/"
		dst := filepath.Join(mountPath, dir) + "/"

		args := []string{"-a", "--delete"}
		for _, pat := range copyExcludes {
			args = append(args, "--exclude", pat)
		}
		args = append(args, src, dst)

		result, err := o.prober.Run(ctx, probe.Spec{
			Name: "rsync",
			Args: args,
			Poll: o.cfg.Poll.Copy,
		})
		if err != nil {
			o.logger.Warn("mirror copy failed",
				"dir", dir, "exit_code", result.ExitCode, "output", result.CombinedOutput())
			return types.SyncResult{
				Success:   false,
				ErrorKind: ErrKindCopyFailed,
				Details:   result.CombinedOutput(),
			}
		}
		o.logger.Debug("mirrored directory", "dir", dir, "elapsed", result.Duration)
	}

	timestamp := o.now().Format(markerTimeLayout)
	markerPath := filepath.Join(mountPath, o.cfg.Sync.MarkerFileName)
	if err := os.WriteFile(markerPath, []byte(timestamp), 0644); err != nil {
		return types.SyncResult{
			Success:   false,
			ErrorKind: ErrKindMarkerFailed,
			Details:   err.Error(),
		}
	}

	// Read the marker back through the mount. A write the filesystem silently
	// dropped must not count as a completed sync.
	readBack, err := os.ReadFile(markerPath)
	if err != nil || !markerDatePrefix.MatchString(strings.TrimSpace(string(readBack))) {
		details := "marker missing or malformed after write"
		if err != nil {
			details = err.Error()
		}
		o.logger.Warn("marker verification failed", "path", markerPath, "details", details)
		return types.SyncResult{
			Success:   false,
			ErrorKind: ErrKindMarkerFailed,
			Details:   details,
		}
	}

	ts := strings.TrimSpace(string(readBack))
	o.logger.Info("sync complete", "dirs", len(dirs), "timestamp", ts)
	return types.SyncResult{Success: true, LastSyncTimestamp: ts}
}

func (o *SyncOrchestrator) record(mode string, r types.SyncResult) types.SyncResult {
	if o.collector != nil {
		o.collector.RecordSync(mode, r.Success)
	}
	return r
}
