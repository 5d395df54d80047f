package vault

import (
	"errors"
	"fmt"
	"net/http"

	vaultapi "github.com/hashicorp/vault/api"
)

// Common errors for token lifecycle operations.
var (
	// ErrEmptyAuthResponse indicates the store returned a response without auth data.
	ErrEmptyAuthResponse = errors.New("vault: empty auth response")

	// ErrEmptyUnwrapResponse indicates the unwrap response carried no payload.
	ErrEmptyUnwrapResponse = errors.New("vault: empty unwrap response")
)

// ConfigurationError indicates a fatal configuration problem. It is never
// recovered from at this layer; upstream configuration must be fixed.
type ConfigurationError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("vault configuration error in %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("vault configuration error: %s", e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// NewConfigurationErrorWithCause creates a new ConfigurationError wrapping a cause.
func NewConfigurationErrorWithCause(field, message string, cause error) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message, Cause: cause}
}

// StoreError represents a failure of a secret-store operation.
type StoreError struct {
	Op   string // operation that failed
	Err  error  // underlying error
	Code int    // HTTP status code if known
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("vault %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError, extracting the HTTP status code
// from the Vault API response error when present.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err, Code: statusCode(err)}
}

// statusCode extracts the HTTP status code from a Vault API error chain.
func statusCode(err error) int {
	var respErr *vaultapi.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// IsForbidden returns true if the error is a 403 response from the store.
// A forbidden self-lookup means the token is no longer valid; the lifecycle
// manager treats it as a state transition, not a failure.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr.Code == http.StatusForbidden {
		return true
	}

	return statusCode(err) == http.StatusForbidden
}
