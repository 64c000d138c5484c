package mount

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/persistfs/persistfs/internal/probe"
	perrors "github.com/persistfs/persistfs/pkg/errors"
	"github.com/persistfs/persistfs/pkg/poll"
	"github.com/persistfs/persistfs/pkg/types"
)

// UtilityAttacher implements types.Attacher by invoking the userspace mount
// helper. Its result is advisory: the helper has been observed to exit zero
// without attaching and to exit non-zero after attaching, so callers verify
// against the mount table either way.
type UtilityAttacher struct {
	prober  *probe.Prober
	logger  *slog.Logger
	pollCfg poll.Config
}

// NewUtilityAttacher creates an attacher using the given prober and mount
// operation poll preset.
func NewUtilityAttacher(prober *probe.Prober, logger *slog.Logger, pollCfg poll.Config) *UtilityAttacher {
	if logger == nil {
		logger = slog.Default()
	}
	return &UtilityAttacher{prober: prober, logger: logger, pollCfg: pollCfg}
}

// AttachBucket runs the mount helper for the target. With useCredentials the
// explicit key pair is passed through the helper's environment; without it
// the helper resolves ambient credentials on its own.
func (a *UtilityAttacher) AttachBucket(ctx context.Context, target types.MountTarget, useCredentials bool) error {
	args := []string{
		target.BucketName,
		target.MountPath,
		"-o", "url=" + target.Endpoint,
		"-o", "use_path_request_style",
		"-o", "allow_other",
	}

	var env []string
	if useCredentials {
		if !target.HasCredentials() {
			return perrors.NewError(perrors.ErrCodeCredentialsMissing,
				"explicit credentials requested but none configured").
				WithComponent("mount").WithOperation("attach")
		}
		env = []string{
			"AWSACCESSKEYID=" + target.Credentials.AccessKeyID,
			"AWSSECRETACCESSKEY=" + target.Credentials.SecretAccessKey,
		}
	}

	result, err := a.prober.Run(ctx, probe.Spec{
		Name: "s3fs",
		Args: args,
		Env:  env,
		Poll: a.pollCfg,
	})
	if err != nil {
		return perrors.Wrap(err, perrors.ErrCodeMountFailed,
			fmt.Sprintf("mount helper failed: %s", result.CombinedOutput())).
			WithComponent("mount").WithOperation("attach").
			WithContext("bucket", target.BucketName)
	}
	return nil
}
