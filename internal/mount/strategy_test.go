package mount

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistfs/persistfs/internal/probe"
	"github.com/persistfs/persistfs/pkg/types"
)

type fakeAttacher struct {
	err          error
	calls        int
	lastUseCreds bool
}

func (a *fakeAttacher) AttachBucket(_ context.Context, _ types.MountTarget, useCredentials bool) error {
	a.calls++
	a.lastUseCreds = useCredentials
	return a.err
}

func TestManagedStrategySuccess(t *testing.T) {
	attacher := &fakeAttacher{}
	s := NewManagedStrategy(attacher)

	outcome := s.Attempt(context.Background(), mountableTarget())

	assert.Equal(t, types.OutcomeSucceeded, outcome.Status)
	assert.False(t, attacher.lastUseCreds)
}

func TestManagedCredentialStrategyPassesCredentials(t *testing.T) {
	attacher := &fakeAttacher{}
	s := NewManagedCredentialStrategy(attacher)

	target := mountableTarget()
	target.Credentials = &types.Credentials{AccessKeyID: "A", SecretAccessKey: "S"}
	outcome := s.Attempt(context.Background(), target)

	assert.Equal(t, types.OutcomeSucceeded, outcome.Status)
	assert.True(t, attacher.lastUseCreds)
}

func TestManagedStrategyClassifiesFailure(t *testing.T) {
	attacher := &fakeAttacher{err: fmt.Errorf("mountpoint is already in use")}
	s := NewManagedStrategy(attacher)

	outcome := s.Attempt(context.Background(), mountableTarget())

	assert.Equal(t, types.OutcomeFailedRecoverable, outcome.Status)
	assert.Equal(t, types.ClassAlreadyMounted, outcome.Class)
	assert.Error(t, outcome.Err)
}

func TestManualStrategyWritesCredentialFileThenMounts(t *testing.T) {
	fakeCommand(t, "exit 0")
	credPath := filepath.Join(t.TempDir(), "passwd-s3fs")

	s := NewManualStrategy(probe.New(nil, nil, nil), nil, CredentialFile{Path: credPath}, quickPoll())
	target := mountableTarget()
	target.Credentials = &types.Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"}

	outcome := s.Attempt(context.Background(), target)

	assert.Equal(t, types.OutcomeSucceeded, outcome.Status)
	data, err := os.ReadFile(credPath)
	require.NoError(t, err)
	assert.Equal(t, "workspace-data:AKID:SECRET\n", string(data))
}

func TestManualStrategyClassifiesMountFailure(t *testing.T) {
	fakeCommand(t, `echo "fuse: device not found, try 'modprobe fuse' first" >&2; exit 1`)

	s := NewManualStrategy(probe.New(nil, nil, nil), nil,
		CredentialFile{Path: filepath.Join(t.TempDir(), "passwd-s3fs")}, quickPoll())
	target := mountableTarget()
	target.Credentials = &types.Credentials{AccessKeyID: "A", SecretAccessKey: "S"}

	outcome := s.Attempt(context.Background(), target)

	assert.Equal(t, types.OutcomeFailedRecoverable, outcome.Status)
	assert.Equal(t, types.ClassCapabilityUnavailable, outcome.Class)
}

func TestUtilityAttacherRequiresCredentialsWhenAsked(t *testing.T) {
	a := NewUtilityAttacher(probe.New(nil, nil, nil), nil, quickPoll())

	err := a.AttachBucket(context.Background(), mountableTarget(), true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "CREDENTIALS_MISSING")
}

func TestUtilityAttacherSurfacesHelperOutput(t *testing.T) {
	fakeCommand(t, `echo "s3fs: unable to access MOUNTPOINT" >&2; exit 1`)

	a := NewUtilityAttacher(probe.New(nil, nil, nil), nil, quickPoll())
	err := a.AttachBucket(context.Background(), mountableTarget(), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to access MOUNTPOINT")
}
