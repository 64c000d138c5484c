package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewError(t *testing.T) {
	err := NewError(ErrCodeMountFailed, "attach did not verify")

	assert.Equal(t, ErrCodeMountFailed, err.Code)
	assert.Equal(t, CategoryMount, err.Category)
	assert.Equal(t, "attach did not verify", err.Message)
	assert.True(t, err.Retryable)
	assert.False(t, err.Timestamp.IsZero())
}

func TestErrorString(t *testing.T) {
	err := NewError(ErrCodeCredentialsMissing, "no access key resolved").
		WithComponent("mount").
		WithOperation("attach")

	assert.Equal(t, "[mount:attach] CREDENTIALS_MISSING: no access key resolved", err.Error())
}

func TestErrorStringWithoutComponent(t *testing.T) {
	err := NewError(ErrCodeNoConfigFile, "no config file found")
	assert.Equal(t, "NO_CONFIG_FILE: no config file found", err.Error())
}

func TestWrapUnwrap(t *testing.T) {
	cause := fmt.Errorf("exit status 1")
	err := Wrap(cause, ErrCodeCommandFailed, "mount utility failed")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError(ErrCodeCommandTimeout, "probe timed out")
	b := NewError(ErrCodeCommandTimeout, "different message")
	c := NewError(ErrCodeCommandFailed, "probe failed")

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestGetCategory(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		category ErrorCategory
	}{
		{ErrCodeInvalidConfig, CategoryConfiguration},
		{ErrCodeMissingAccountID, CategoryConfiguration},
		{ErrCodeMountConflict, CategoryMount},
		{ErrCodeCapabilityUnavailable, CategoryMount},
		{ErrCodeCredentialsMissing, CategoryAuth},
		{ErrCodeCommandTimeout, CategoryProbe},
		{ErrCodeNoConfigFile, CategorySync},
		{ErrCodeArchiveEmpty, CategorySync},
		{ErrCodeStorageWrite, CategoryStorage},
		{ErrCodeOutOfMemory, CategoryResource},
		{ErrCodeInternalError, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.category, GetCategory(tt.code))
		})
	}
}

func TestIsRetryableByDefault(t *testing.T) {
	assert.True(t, IsRetryableByDefault(ErrCodeCommandTimeout))
	assert.True(t, IsRetryableByDefault(ErrCodeMountFailed))
	assert.False(t, IsRetryableByDefault(ErrCodeCapabilityUnavailable))
	assert.False(t, IsRetryableByDefault(ErrCodeMissingAccountID))
}

func TestWithContext(t *testing.T) {
	err := NewError(ErrCodeMountFailed, "attach failed").
		WithContext("bucket", "workspace-data").
		WithContext("path", "/mnt/bucket")

	assert.Equal(t, "workspace-data", err.Context["bucket"])
	assert.Equal(t, "/mnt/bucket", err.Context["path"])
}

func TestJSONOmitsCause(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), ErrCodeStorageWrite, "put failed")
	out := err.JSON()

	assert.Contains(t, out, `"code":"STORAGE_WRITE"`)
	assert.NotContains(t, out, "boom")
}
