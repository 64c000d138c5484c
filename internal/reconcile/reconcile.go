// Package reconcile copies the worker's configuration and workspace state
// into the bucket. The primary path mirrors directories through the mounted
// filesystem and proves completion with a timestamp marker; when no mount is
// available the backup path packages the same directories into an archive
// and uploads it through the storage API directly.
package reconcile

import (
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/persistfs/persistfs/internal/config"
)

// Error kinds surfaced in SyncResult.ErrorKind.
const (
	ErrKindNoConfigFile = "no config file found"
	ErrKindCopyFailed   = "copy failed"
	ErrKindMarkerFailed = "marker verification failed"
	ErrKindArchiveFail  = "archive failed"
	ErrKindEmptyArchive = "empty archive"
	ErrKindUploadFailed = "upload failed"
)

// markerTimeLayout renders timestamps with a numeric zone offset, matching
// what earlier deployments wrote into existing markers.
const markerTimeLayout = "2006-01-02T15:04:05-07:00"

// markerDatePrefix accepts any ISO-8601 date-time prefix when a marker is
// read back.
var markerDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T`)

// sourceDirs returns the directories under the source root eligible for
// reconciliation: every recognized configuration directory that actually
// holds the settings file, plus the workspace directory when present. The
// returned names are relative to the source root. An empty first slice means
// the sanity check failed and nothing should be copied.
func sourceDirs(cfg *config.Configuration) (configDirs, extraDirs []string) {
	for _, name := range cfg.ConfigDirCandidates() {
		settings := filepath.Join(cfg.Sync.SourceRoot, name, cfg.Sync.ConfigFileName)
		if info, err := os.Stat(settings); err == nil && info.Mode().IsRegular() {
			configDirs = append(configDirs, name)
		}
	}
	if cfg.Sync.WorkspaceDirName != "" {
		ws := filepath.Join(cfg.Sync.SourceRoot, cfg.Sync.WorkspaceDirName)
		if info, err := os.Stat(ws); err == nil && info.IsDir() {
			extraDirs = append(extraDirs, cfg.Sync.WorkspaceDirName)
		}
	}
	return configDirs, extraDirs
}

// nowFunc is the timestamp seam shared by both paths.
type nowFunc func() time.Time

func defaultNow() time.Time {
	return time.Now().UTC()
}
