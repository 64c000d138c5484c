package mount

import (
	"strings"

	"github.com/persistfs/persistfs/pkg/types"
)

// Error strings from the mount helper are unreliable narrators: the same
// underlying state produces different messages across versions, and some
// messages describe a state that does not exist. Classification only decides
// which fallback to try next; it is never authoritative about whether the
// bucket is attached.

var credentialPatterns = []string{
	"no access key",
	"credentials",
	"passwd_file",
	"authentication",
	"invalidaccesskeyid",
	"signaturedoesnotmatch",
}

var conflictPatterns = []string{
	"already mounted",
	"already in use",
	"mountpoint is not empty",
	"device or resource busy",
	"mountpoint for itself",
}

var capabilityPatterns = []string{
	"/dev/fuse",
	"fuse device not found",
	"no such device",
	"kernel module",
	"modprobe",
	"operation not permitted",
	"fuse kernel",
}

// Classify buckets an attachment failure by matching the error text and any
// captured command output against known patterns.
func Classify(err error, output string) types.Classification {
	text := strings.ToLower(output)
	if err != nil {
		text += "\n" + strings.ToLower(err.Error())
	}

	for _, p := range conflictPatterns {
		if strings.Contains(text, p) {
			return types.ClassAlreadyMounted
		}
	}
	for _, p := range capabilityPatterns {
		if strings.Contains(text, p) {
			return types.ClassCapabilityUnavailable
		}
	}
	for _, p := range credentialPatterns {
		if strings.Contains(text, p) {
			return types.ClassCredentialsMissing
		}
	}
	return types.ClassOther
}
