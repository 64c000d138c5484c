package mount

import (
	"fmt"
	"os"

	perrors "github.com/persistfs/persistfs/pkg/errors"
	"github.com/persistfs/persistfs/pkg/types"
)

// DefaultCredentialFilePath is where the manual attach strategy writes the
// single-use credential entry for the mount helper.
const DefaultCredentialFilePath = "/etc/passwd-s3fs"

// CredentialFile manages the mount helper's credential file. The file is
// always written in overwrite mode, never append: repeated attempts, even
// across separate single-flight windows, must never accumulate stale
// entries, because a duplicate credential entry is itself a known mount
// failure cause. At most one entry per bucket ever exists after an attempt.
type CredentialFile struct {
	Path string
}

// Write replaces the file's contents with a single bucket-scoped entry.
func (f CredentialFile) Write(target types.MountTarget) error {
	if !target.HasCredentials() {
		return perrors.NewError(perrors.ErrCodeCredentialsMissing,
			"cannot write credential file without explicit credentials").
			WithComponent("mount").WithOperation("credfile")
	}

	entry := fmt.Sprintf("%s:%s:%s\n",
		target.BucketName,
		target.Credentials.AccessKeyID,
		target.Credentials.SecretAccessKey)

	if err := os.WriteFile(f.Path, []byte(entry), 0600); err != nil {
		return perrors.Wrap(err, perrors.ErrCodeMountFailed,
			fmt.Sprintf("failed to write credential file %s", f.Path)).
			WithComponent("mount").WithOperation("credfile")
	}
	return nil
}

// Remove deletes the credential file. Missing files are not an error.
func (f CredentialFile) Remove() error {
	err := os.Remove(f.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
