package reconcile

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/persistfs/persistfs/internal/config"
	"github.com/persistfs/persistfs/internal/metrics"
	"github.com/persistfs/persistfs/internal/probe"
	"github.com/persistfs/persistfs/pkg/types"
)

// ArchiveKey is the object key the backup archive is uploaded under.
const ArchiveKey = "backups/worker-state.tar.gz"

// BindingBackup is the fallback sync path: package the same sanity-checked
// directories with the container's archiver and upload the result through
// the storage API, no filesystem mount required. The archiver's binary
// output is captured through base64 because the probe captures text.
type BindingBackup struct {
	cfg       *config.Configuration
	prober    *probe.Prober
	store     types.ObjectPutter
	logger    *slog.Logger
	collector *metrics.Collector
	now       nowFunc
}

// NewBindingBackup creates the backup path.
func NewBindingBackup(cfg *config.Configuration, prober *probe.Prober, store types.ObjectPutter, logger *slog.Logger, collector *metrics.Collector) *BindingBackup {
	if logger == nil {
		logger = slog.Default()
	}
	return &BindingBackup{
		cfg:       cfg,
		prober:    prober,
		store:     store,
		logger:    logger,
		collector: collector,
		now:       defaultNow,
	}
}

// Backup packages and uploads the source directories. An empty or failed
// archive step is an outright failure; nothing is uploaded in that case.
func (b *BindingBackup) Backup(ctx context.Context, _ types.MountTarget) types.SyncResult {
	configDirs, extraDirs := sourceDirs(b.cfg)
	if len(configDirs) == 0 {
		b.logger.Warn("backup aborted, no recognized configuration file",
			"source_root", b.cfg.Sync.SourceRoot)
		return b.record(types.SyncResult{
			Success:   false,
			ErrorKind: ErrKindNoConfigFile,
			Details:   "no settings file under " + b.cfg.Sync.SourceRoot,
		})
	}
	dirs := append(configDirs, extraDirs...)

	archive, result, err := b.packageDirs(ctx, dirs)
	if err != nil {
		b.logger.Warn("archive step failed",
			"exit_code", result.ExitCode, "output", result.CombinedOutput())
		return b.record(types.SyncResult{
			Success:   false,
			ErrorKind: ErrKindArchiveFail,
			Details:   result.CombinedOutput(),
		})
	}
	if len(archive) == 0 {
		b.logger.Warn("archive step produced no output")
		return b.record(types.SyncResult{
			Success:   false,
			ErrorKind: ErrKindEmptyArchive,
			Details:   "archiver produced no output",
		})
	}

	timestamp := b.now().Format(markerTimeLayout)
	meta := map[string]string{"created-at": timestamp, "source": "binding-backup"}

	if err := b.store.PutObject(ctx, ArchiveKey, archive, meta); err != nil {
		return b.record(types.SyncResult{
			Success:   false,
			ErrorKind: ErrKindUploadFailed,
			Details:   err.Error(),
		})
	}
	if err := b.store.PutObject(ctx, b.cfg.Sync.MarkerFileName, []byte(timestamp), meta); err != nil {
		return b.record(types.SyncResult{
			Success:   false,
			ErrorKind: ErrKindUploadFailed,
			Details:   err.Error(),
		})
	}

	b.logger.Info("backup uploaded",
		"archive_key", ArchiveKey, "bytes", len(archive), "timestamp", timestamp)
	return b.record(types.SyncResult{Success: true, LastSyncTimestamp: timestamp})
}

// packageDirs runs tar through base64 and decodes the captured output.
func (b *BindingBackup) packageDirs(ctx context.Context, dirs []string) ([]byte, probe.Result, error) {
	script := fmt.Sprintf("tar czf - -C %s %s | base64",
		shellQuote(b.cfg.Sync.SourceRoot), quoteAll(dirs))

	result, err := b.prober.Run(ctx, probe.Spec{
		Name: "sh",
		Args: []string{"-c", script},
		Poll: b.cfg.Poll.Archive,
	})
	if err != nil {
		return nil, result, err
	}

	encoded := strings.Join(strings.Fields(result.Stdout), "")
	decoded, decErr := base64.StdEncoding.DecodeString(encoded)
	if decErr != nil {
		return nil, result, decErr
	}
	return decoded, result, nil
}

func (b *BindingBackup) record(r types.SyncResult) types.SyncResult {
	if b.collector != nil {
		b.collector.RecordSync("backup", r.Success)
	}
	return r
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = shellQuote(s)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
