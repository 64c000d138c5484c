package types

import (
	"time"
)

// Credentials holds an explicit access key pair for the storage endpoint.
type Credentials struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"-"`
}

// MountTarget describes one attachment attempt: which bucket to mount where,
// against which endpoint, with which credentials. Targets are constructed
// fresh from configuration for every attempt and never cached, because
// credentials may change between deployments.
type MountTarget struct {
	BucketName  string       `json:"bucket_name"`
	MountPath   string       `json:"mount_path"`
	Endpoint    string       `json:"endpoint"`
	Credentials *Credentials `json:"credentials,omitempty"`
}

// HasCredentials reports whether an explicit key pair is configured.
func (t MountTarget) HasCredentials() bool {
	return t.Credentials != nil &&
		t.Credentials.AccessKeyID != "" &&
		t.Credentials.SecretAccessKey != ""
}

// Mountable reports whether the target carries enough endpoint configuration
// for a filesystem attach to be attempted at all.
func (t MountTarget) Mountable() bool {
	return t.BucketName != "" && t.MountPath != "" && t.Endpoint != ""
}

// Classification buckets a failed attachment attempt into one of a small set
// of known causes. Classification drives whether the strategy chain proceeds
// to the next strategy or re-checks the mount table first.
type Classification string

const (
	// ClassCredentialsMissing indicates the strategy could not resolve any
	// usable credentials.
	ClassCredentialsMissing Classification = "credentials-missing"

	// ClassAlreadyMounted indicates the mount utility reported the target as
	// busy or already attached. The error may be misleading; the mount table
	// is re-checked before concluding failure.
	ClassAlreadyMounted Classification = "already-mounted-conflict"

	// ClassCapabilityUnavailable indicates an environment limitation (for
	// example a missing kernel module) that no retry will fix.
	ClassCapabilityUnavailable Classification = "capability-unavailable"

	// ClassOther covers everything else.
	ClassOther Classification = "other"
)

// OutcomeStatus is the coarse result of one attachment strategy attempt.
type OutcomeStatus int

const (
	// OutcomeSucceeded means the strategy completed and verification passed.
	OutcomeSucceeded OutcomeStatus = iota

	// OutcomeFailedRecoverable means the strategy failed in a way that allows
	// the chain to continue with the next strategy.
	OutcomeFailedRecoverable

	// OutcomeFailedFatal means the strategy failed in a way that makes
	// further strategies pointless within this attempt.
	OutcomeFailedFatal
)

// String returns the string representation of an outcome status.
func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailedRecoverable:
		return "failed-recoverable"
	case OutcomeFailedFatal:
		return "failed-fatal"
	default:
		return "unknown"
	}
}

// StrategyOutcome is the tagged result of one attachment strategy attempt.
type StrategyOutcome struct {
	Status OutcomeStatus  `json:"status"`
	Class  Classification `json:"class,omitempty"`
	Err    error          `json:"-"`
}

// Succeeded constructs a successful outcome.
func Succeeded() StrategyOutcome {
	return StrategyOutcome{Status: OutcomeSucceeded}
}

// FailedRecoverable constructs a recoverable failure with its classification.
func FailedRecoverable(class Classification, err error) StrategyOutcome {
	return StrategyOutcome{Status: OutcomeFailedRecoverable, Class: class, Err: err}
}

// FailedFatal constructs a fatal failure.
func FailedFatal(err error) StrategyOutcome {
	return StrategyOutcome{Status: OutcomeFailedFatal, Class: ClassOther, Err: err}
}

// SyncResult reports the outcome of one sync or backup invocation. Results
// are produced fresh per invocation and never mutated after return.
type SyncResult struct {
	Success           bool   `json:"success"`
	LastSyncTimestamp string `json:"last_sync_timestamp,omitempty"`
	ErrorKind         string `json:"error_kind,omitempty"`
	Details           string `json:"details,omitempty"`
}

// StartupFailure records the most recent unrecoverable startup failure for
// external observability.
type StartupFailure struct {
	Message         string    `json:"message"`
	RemediationHint string    `json:"remediation_hint,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}
