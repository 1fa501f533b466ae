package api

import "fmt"

// StorageError represents a structured error from the storage API.
type StorageError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StorageError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("[%d] %s", e.StatusCode, e.Code)
}

// IsAuth returns true if the request was rejected for credentials.
func (e *StorageError) IsAuth() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsRetryable returns true if the error can be resolved by waiting and
// retrying.
func (e *StorageError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode == 503
}
