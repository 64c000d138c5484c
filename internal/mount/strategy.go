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

// Strategy is one way of attaching the bucket. Strategies never verify their
// own success; the chain always consults the mount table afterwards.
type Strategy interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Available reports whether the strategy can be attempted for the
	// target at all. Unavailable strategies are skipped entirely, not
	// merely deprioritized.
	Available(target types.MountTarget) bool

	// Attempt tries to attach. Errors are classified, never escalated.
	Attempt(ctx context.Context, target types.MountTarget) types.StrategyOutcome
}

// managedStrategy delegates to the managed attach collaborator, with or
// without explicit credentials.
type managedStrategy struct {
	name           string
	attacher       types.Attacher
	useCredentials bool
}

// NewManagedStrategy wraps the managed attach call letting the storage layer
// auto-resolve ambient credentials.
func NewManagedStrategy(attacher types.Attacher) Strategy {
	return &managedStrategy{name: "managed-ambient", attacher: attacher}
}

// NewManagedCredentialStrategy wraps the managed attach call with the
// target's explicit credentials. Only available when credentials are
// configured.
func NewManagedCredentialStrategy(attacher types.Attacher) Strategy {
	return &managedStrategy{name: "managed-credentials", attacher: attacher, useCredentials: true}
}

func (s *managedStrategy) Name() string { return s.name }

func (s *managedStrategy) Available(target types.MountTarget) bool {
	if s.useCredentials {
		return target.HasCredentials()
	}
	return true
}

func (s *managedStrategy) Attempt(ctx context.Context, target types.MountTarget) types.StrategyOutcome {
	if err := s.attacher.AttachBucket(ctx, target, s.useCredentials); err != nil {
		return types.FailedRecoverable(Classify(err, ""), err)
	}
	return types.Succeeded()
}

// manualStrategy bypasses the managed layer: it writes the credential file
// itself and invokes the native mount utility directly. Last resort for
// environments where the managed path misbehaves.
type manualStrategy struct {
	prober   *probe.Prober
	logger   *slog.Logger
	credFile CredentialFile
	pollCfg  poll.Config
}

// NewManualStrategy creates the low-level attach strategy. Only available
// when explicit credentials are configured, because the credential file
// cannot be written without them.
func NewManualStrategy(prober *probe.Prober, logger *slog.Logger, credFile CredentialFile, pollCfg poll.Config) Strategy {
	if logger == nil {
		logger = slog.Default()
	}
	if credFile.Path == "" {
		credFile.Path = DefaultCredentialFilePath
	}
	return &manualStrategy{prober: prober, logger: logger, credFile: credFile, pollCfg: pollCfg}
}

func (s *manualStrategy) Name() string { return "manual" }

func (s *manualStrategy) Available(target types.MountTarget) bool {
	return target.HasCredentials()
}

func (s *manualStrategy) Attempt(ctx context.Context, target types.MountTarget) types.StrategyOutcome {
	if err := s.credFile.Write(target); err != nil {
		return types.FailedRecoverable(types.ClassCredentialsMissing, err)
	}

	result, err := s.prober.Run(ctx, probe.Spec{
		Name: "mount",
		Args: []string{
			"-t", FSTypeSignature,
			"s3fs#" + target.BucketName,
			target.MountPath,
			"-o", fmt.Sprintf("url=%s,passwd_file=%s,use_path_request_style,allow_other",
				target.Endpoint, s.credFile.Path),
		},
		Poll: s.pollCfg,
	})
	if err != nil {
		output := result.CombinedOutput()
		wrapped := perrors.Wrap(err, perrors.ErrCodeMountFailed,
			fmt.Sprintf("native mount failed: %s", output)).
			WithComponent("mount").WithOperation("manual-attach")
		return types.FailedRecoverable(Classify(err, output), wrapped)
	}
	return types.Succeeded()
}
