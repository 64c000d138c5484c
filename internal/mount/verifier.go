package mount

import (
	"context"
	"log/slog"
	"strings"

	"github.com/persistfs/persistfs/internal/probe"
	"github.com/persistfs/persistfs/pkg/poll"
)

// FSTypeSignature is the filesystem-type tag the mount table shows for a
// bucket attached through the userspace mount helper.
const FSTypeSignature = "fuse.s3fs"

// TableVerifier answers "is the bucket currently attached at path P" by
// inspecting the OS mount table. This check is the only source of truth used
// anywhere in the system to decide whether storage is actually attached:
// attach calls have been observed to report success without attaching, and
// to report failure after attaching.
type TableVerifier struct {
	prober  *probe.Prober
	logger  *slog.Logger
	pollCfg poll.Config
}

// NewTableVerifier creates a verifier using the given prober. The poll
// config should be a quick-check preset; the mount table read is cheap.
func NewTableVerifier(prober *probe.Prober, logger *slog.Logger, pollCfg poll.Config) *TableVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TableVerifier{prober: prober, logger: logger, pollCfg: pollCfg}
}

// IsMounted reports whether path appears in the mount table with the
// expected filesystem-type signature. It never returns an error: any probe
// failure is treated as "not mounted" and logged with label for diagnosis.
// Safe to call at any time, including mid-failure.
func (v *TableVerifier) IsMounted(ctx context.Context, path, label string) bool {
	result, err := v.prober.Run(ctx, probe.Spec{
		Name: "mount",
		Poll: v.pollCfg,
	})
	if err != nil {
		v.logger.Warn("mount table probe failed, assuming not mounted",
			"label", label, "path", path, "error", err)
		return false
	}

	mounted := tableListsMount(result.Stdout, path)
	v.logger.Debug("mount table checked", "label", label, "path", path, "mounted", mounted)
	return mounted
}

// tableListsMount scans `mount` output for a line attaching something at
// path with the expected filesystem type, e.g.
//
//	s3fs on /mnt/persist type fuse.s3fs (rw,nosuid,nodev)
func tableListsMount(table, path string) bool {
	for _, line := range strings.Split(table, "\n") {
		if !strings.Contains(line, " on "+path+" ") {
			continue
		}
		if strings.Contains(line, "type "+FSTypeSignature) {
			return true
		}
	}
	return false
}
