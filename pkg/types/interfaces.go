package types

import (
	"context"
)

// Attacher is the managed "attach bucket at path" collaborator. An
// implementation may report success without attaching or failure after
// attaching; callers must treat its result as advisory and verify against
// the mount table.
type Attacher interface {
	AttachBucket(ctx context.Context, target MountTarget, useCredentials bool) error
}

// ObjectPutter is the direct storage-object write capability used by the
// fallback reconciliation path. No filesystem mount is required.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, data []byte, metadata map[string]string) error
}

// MountVerifier answers "is the bucket currently attached at this path" from
// the OS mount table. It is the only source of truth for attachment state.
type MountVerifier interface {
	IsMounted(ctx context.Context, path, label string) bool
}
