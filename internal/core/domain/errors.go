package domain

import (
	"errors"
	"fmt"
)

// DomainError represents an engine error with a structured error code.
// Codes use the format CS-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "CS-STOR-4040")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support; two DomainErrors match on code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Engine lifecycle errors (ENG)
// ============================================================================

var (
	// ErrNotInitialized indicates the engine has not been initialized.
	ErrNotInitialized = NewDomainError("CS-ENG-4001", "engine not initialized")

	// ErrAlreadyInitialized indicates Init was called twice.
	ErrAlreadyInitialized = NewDomainError("CS-ENG-4090", "engine already initialized")

	// ErrInvalidParameter indicates an invalid argument.
	ErrInvalidParameter = NewDomainError("CS-ARG-1001", "invalid parameter")
)

// ============================================================================
// Store errors (STOR)
// ============================================================================

var (
	// ErrNotFound indicates the key was not found in the namespace.
	ErrNotFound = NewDomainError("CS-STOR-4040", "key not found")

	// ErrAlreadyExists indicates the key already exists.
	ErrAlreadyExists = NewDomainError("CS-STOR-4090", "key already exists")

	// ErrTypeMismatch indicates the stored type differs from the requested one.
	ErrTypeMismatch = NewDomainError("CS-STOR-4001", "value type mismatch")

	// ErrKeyTooLong indicates the key exceeds the configured maximum length.
	ErrKeyTooLong = NewDomainError("CS-STOR-4002", "key too long")

	// ErrValueTooLarge indicates the value exceeds the configured maximum size.
	ErrValueTooLarge = NewDomainError("CS-STOR-4003", "value too large")

	// ErrBufferTooSmall indicates the destination buffer cannot hold the
	// value; the required size is reported in the details.
	ErrBufferTooSmall = NewDomainError("CS-STOR-4004", "buffer too small")

	// ErrOutOfSpace indicates the fixed entry table is full.
	ErrOutOfSpace = NewDomainError("CS-STOR-5070", "entry table full")
)

// ============================================================================
// Namespace errors (NS)
// ============================================================================

var (
	// ErrNamespaceNotFound indicates the named namespace does not exist.
	ErrNamespaceNotFound = NewDomainError("CS-NS-4040", "namespace not found")

	// ErrNamespaceTableFull indicates the fixed namespace table is full.
	ErrNamespaceTableFull = NewDomainError("CS-NS-5070", "namespace table full")

	// ErrInvalidHandle indicates a stale or never-issued pool handle.
	ErrInvalidHandle = NewDomainError("CS-HDL-4010", "invalid handle")

	// ErrHandlePoolExhausted indicates the fixed handle pool is full.
	ErrHandlePoolExhausted = NewDomainError("CS-HDL-5070", "handle pool exhausted")
)

// ============================================================================
// Callback errors (CB)
// ============================================================================

var (
	// ErrCallbackTableFull indicates the fixed callback table is full.
	ErrCallbackTableFull = NewDomainError("CS-CB-5070", "callback table full")
)

// ============================================================================
// Persistence errors (PERS)
// ============================================================================

var (
	// ErrReadFailure indicates the persistence backend failed to load.
	ErrReadFailure = NewDomainError("CS-PERS-5001", "persistence read failure")

	// ErrWriteFailure indicates the persistence backend failed to commit.
	ErrWriteFailure = NewDomainError("CS-PERS-5002", "persistence write failure")
)

// ============================================================================
// Format errors (FMT)
// ============================================================================

var (
	// ErrInvalidFormat indicates malformed import data.
	ErrInvalidFormat = NewDomainError("CS-FMT-4000", "invalid format")
)

// ============================================================================
// Crypto errors (CRYP)
// ============================================================================

var (
	// ErrNoEncryptionKey indicates no encryption key has been set.
	ErrNoEncryptionKey = NewDomainError("CS-CRYP-4010", "no encryption key set")

	// ErrCryptoFailure indicates a decrypt failure (bad padding, wrong key,
	// or corrupted ciphertext).
	ErrCryptoFailure = NewDomainError("CS-CRYP-5000", "crypto failure")
)
