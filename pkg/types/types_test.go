package types

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds *Credentials
		want  bool
	}{
		{"nil", nil, false},
		{"empty pair", &Credentials{}, false},
		{"key without secret", &Credentials{AccessKeyID: "AKIA123"}, false},
		{"secret without key", &Credentials{SecretAccessKey: "s3cret"}, false},
		{"full pair", &Credentials{AccessKeyID: "AKIA123", SecretAccessKey: "s3cret"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := MountTarget{Credentials: tt.creds}
			assert.Equal(t, tt.want, target.HasCredentials())
		})
	}
}

func TestMountable(t *testing.T) {
	full := MountTarget{
		BucketName: "workspace-data",
		MountPath:  "/mnt/bucket",
		Endpoint:   "https://storage.example.com",
	}
	assert.True(t, full.Mountable())

	tests := []struct {
		name   string
		mutate func(*MountTarget)
	}{
		{"no bucket", func(t *MountTarget) { t.BucketName = "" }},
		{"no mount path", func(t *MountTarget) { t.MountPath = "" }},
		{"no endpoint", func(t *MountTarget) { t.Endpoint = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := full
			tt.mutate(&target)
			assert.False(t, target.Mountable())
		})
	}
}

func TestMountableIgnoresCredentials(t *testing.T) {
	target := MountTarget{
		BucketName: "workspace-data",
		MountPath:  "/mnt/bucket",
		Endpoint:   "https://storage.example.com",
	}
	assert.True(t, target.Mountable(), "ambient credentials are a strategy concern, not a precondition")
	assert.False(t, target.HasCredentials())
}

func TestOutcomeStatusString(t *testing.T) {
	assert.Equal(t, "succeeded", OutcomeSucceeded.String())
	assert.Equal(t, "failed-recoverable", OutcomeFailedRecoverable.String())
	assert.Equal(t, "failed-fatal", OutcomeFailedFatal.String())
	assert.Equal(t, "unknown", OutcomeStatus(42).String())
}

func TestOutcomeConstructors(t *testing.T) {
	ok := Succeeded()
	assert.Equal(t, OutcomeSucceeded, ok.Status)
	assert.Nil(t, ok.Err)

	cause := fmt.Errorf("exit status 1")
	rec := FailedRecoverable(ClassAlreadyMounted, cause)
	assert.Equal(t, OutcomeFailedRecoverable, rec.Status)
	assert.Equal(t, ClassAlreadyMounted, rec.Class)
	assert.Equal(t, cause, rec.Err)

	fatal := FailedFatal(cause)
	assert.Equal(t, OutcomeFailedFatal, fatal.Status)
	assert.Equal(t, ClassOther, fatal.Class)
	assert.Equal(t, cause, fatal.Err)
}
