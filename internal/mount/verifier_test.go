package mount

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/persistfs/persistfs/internal/probe"
	"github.com/persistfs/persistfs/pkg/poll"
)

const sampleMountTable = `proc on /proc type proc (rw,nosuid,nodev,noexec)
tmpfs on /dev/shm type tmpfs (rw,nosuid,nodev)
s3fs on /mnt/persist type fuse.s3fs (rw,nosuid,nodev,allow_other)
overlay on / type overlay (rw,relatime)`

func TestTableListsMount(t *testing.T) {
	tests := []struct {
		name  string
		table string
		path  string
		want  bool
	}{
		{"attached with signature", sampleMountTable, "/mnt/persist", true},
		{"path absent", sampleMountTable, "/mnt/other", false},
		{"path present wrong type", sampleMountTable, "/dev/shm", false},
		{"prefix must not match", sampleMountTable, "/mnt", false},
		{"empty table", "", "/mnt/persist", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tableListsMount(tt.table, tt.path))
		})
	}
}

// fakeCommand redirects the probe's command seam to a shell snippet.
func fakeCommand(t *testing.T, script string) {
	t.Helper()
	orig := probe.ExecCommand
	probe.ExecCommand = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
	t.Cleanup(func() { probe.ExecCommand = orig })
}

func quickPoll() poll.Config {
	return poll.Config{Interval: 5 * time.Millisecond, MaxAttempts: 200}
}

func TestIsMountedAgainstFakeTable(t *testing.T) {
	fakeCommand(t, `printf '%s\n' 's3fs on /mnt/persist type fuse.s3fs (rw)'`)

	v := NewTableVerifier(probe.New(nil, nil, nil), nil, quickPoll())
	assert.True(t, v.IsMounted(context.Background(), "/mnt/persist", "test"))
	assert.False(t, v.IsMounted(context.Background(), "/mnt/elsewhere", "test"))
}

func TestIsMountedProbeFailureMeansNotMounted(t *testing.T) {
	fakeCommand(t, `echo 'cannot read mount table' >&2; exit 1`)

	v := NewTableVerifier(probe.New(nil, nil, nil), nil, quickPoll())
	assert.False(t, v.IsMounted(context.Background(), "/mnt/persist", "failure path"))
}
