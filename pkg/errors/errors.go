// Package errors provides a structured error system for PersistFS with error codes, categories, and context.
package errors

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a structured error code for PersistFS operations.
type ErrorCode string

// Error code constants organized by category.
const (
	// Configuration Errors
	ErrCodeInvalidConfig    ErrorCode = "INVALID_CONFIG"
	ErrCodeMissingAccountID ErrorCode = "MISSING_ACCOUNT_ID"
	ErrCodeConfigLoad       ErrorCode = "CONFIG_LOAD"

	// Mount Errors
	ErrCodeMountFailed           ErrorCode = "MOUNT_FAILED"
	ErrCodeMountConflict         ErrorCode = "MOUNT_CONFLICT"
	ErrCodeMountVerifyFailed     ErrorCode = "MOUNT_VERIFY_FAILED"
	ErrCodeUnmountFailed         ErrorCode = "UNMOUNT_FAILED"
	ErrCodeCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"

	// Credential Errors
	ErrCodeCredentialsMissing ErrorCode = "CREDENTIALS_MISSING"

	// Probe Errors
	ErrCodeCommandTimeout ErrorCode = "COMMAND_TIMEOUT"
	ErrCodeCommandFailed  ErrorCode = "COMMAND_FAILED"

	// Sync Errors
	ErrCodeNoConfigFile  ErrorCode = "NO_CONFIG_FILE"
	ErrCodeCopyFailed    ErrorCode = "COPY_FAILED"
	ErrCodeMarkerInvalid ErrorCode = "MARKER_INVALID"
	ErrCodeArchiveEmpty  ErrorCode = "ARCHIVE_EMPTY"

	// Storage Backend Errors
	ErrCodeBucketNotFound ErrorCode = "BUCKET_NOT_FOUND"
	ErrCodeStorageWrite   ErrorCode = "STORAGE_WRITE"

	// Resource Errors
	ErrCodeOutOfMemory ErrorCode = "OUT_OF_MEMORY"

	// Internal System Errors
	ErrCodeStartupFailed ErrorCode = "STARTUP_FAILED"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryMount         ErrorCategory = "mount"
	CategoryAuth          ErrorCategory = "auth"
	CategoryProbe         ErrorCategory = "probe"
	CategorySync          ErrorCategory = "sync"
	CategoryStorage       ErrorCategory = "storage"
	CategoryResource      ErrorCategory = "resource"
	CategoryInternal      ErrorCategory = "internal"
)

// PersistError represents a structured error with context and metadata.
type PersistError struct {
	// Core error information
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`

	// Contextual information
	Context   map[string]string `json:"context,omitempty"`
	Cause     error             `json:"-"` // Not serialized to avoid circular refs
	Timestamp time.Time         `json:"timestamp"`

	// Operational metadata
	Component string `json:"component,omitempty"`
	Operation string `json:"operation,omitempty"`

	// Error handling hints
	Retryable bool `json:"retryable"`
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	if e.Component != "" {
		if e.Operation != "" {
			return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
		}
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *PersistError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error (for errors.Is compatibility).
func (e *PersistError) Is(target error) bool {
	if persistErr, ok := target.(*PersistError); ok {
		return e.Code == persistErr.Code
	}
	return false
}

// String returns a detailed string representation for logging.
func (e *PersistError) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("Code=%s", e.Code))
	parts = append(parts, fmt.Sprintf("Category=%s", e.Category))
	parts = append(parts, fmt.Sprintf("Message=%q", e.Message))

	if e.Component != "" {
		parts = append(parts, fmt.Sprintf("Component=%s", e.Component))
	}
	if e.Operation != "" {
		parts = append(parts, fmt.Sprintf("Operation=%s", e.Operation))
	}
	if e.Retryable {
		parts = append(parts, "Retryable=true")
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}

	return fmt.Sprintf("PersistError{%s}", strings.Join(parts, ", "))
}

// JSON returns the error as a JSON string.
func (e *PersistError) JSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal error: %s"}`, err.Error())
	}
	return string(data)
}

// NewError creates a new PersistFS error with default values.
func NewError(code ErrorCode, message string) *PersistError {
	return &PersistError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
		Retryable: IsRetryableByDefault(code),
	}
}

// Wrap creates a new PersistFS error with the given cause attached.
func Wrap(cause error, code ErrorCode, message string) *PersistError {
	err := NewError(code, message)
	err.Cause = cause
	return err
}

// GetCategory determines the category based on the error code.
func GetCategory(code ErrorCode) ErrorCategory {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INVALID_CONFIG") || strings.HasPrefix(codeStr, "MISSING_ACCOUNT") ||
		strings.HasPrefix(codeStr, "CONFIG_"):
		return CategoryConfiguration
	case strings.HasPrefix(codeStr, "MOUNT_") || strings.HasPrefix(codeStr, "UNMOUNT_") ||
		strings.HasPrefix(codeStr, "CAPABILITY_"):
		return CategoryMount
	case strings.HasPrefix(codeStr, "CREDENTIALS_"):
		return CategoryAuth
	case strings.HasPrefix(codeStr, "COMMAND_"):
		return CategoryProbe
	case strings.HasPrefix(codeStr, "NO_CONFIG_FILE") || strings.HasPrefix(codeStr, "COPY_") ||
		strings.HasPrefix(codeStr, "MARKER_") || strings.HasPrefix(codeStr, "ARCHIVE_"):
		return CategorySync
	case strings.HasPrefix(codeStr, "BUCKET_") || strings.HasPrefix(codeStr, "STORAGE_"):
		return CategoryStorage
	case strings.HasPrefix(codeStr, "OUT_OF_"):
		return CategoryResource
	default:
		return CategoryInternal
	}
}

// IsRetryableByDefault determines if an error is retryable by default.
func IsRetryableByDefault(code ErrorCode) bool {
	retryableCodes := map[ErrorCode]bool{
		ErrCodeCommandTimeout: true,
		ErrCodeCommandFailed:  true,
		ErrCodeMountFailed:    true,
		ErrCodeCopyFailed:     true,
		ErrCodeStorageWrite:   true,
		ErrCodeInternalError:  true,
	}
	return retryableCodes[code]
}

// WithContext adds contextual information to an error.
func (e *PersistError) WithContext(key, value string) *PersistError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithComponent sets the component for an error.
func (e *PersistError) WithComponent(component string) *PersistError {
	e.Component = component
	return e
}

// WithOperation sets the operation for an error.
func (e *PersistError) WithOperation(operation string) *PersistError {
	e.Operation = operation
	return e
}

// WithCause sets the underlying cause.
func (e *PersistError) WithCause(cause error) *PersistError {
	e.Cause = cause
	return e
}
