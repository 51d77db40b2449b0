package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// ErrNodeNotFound is returned by the tree index when an id is absent from the tree.
	ErrNodeNotFound = fmt.Errorf("folder node %w", ErrNotFound)

	// ErrSessionNotFound is returned when an explorer session does not exist or expired.
	ErrSessionNotFound = fmt.Errorf("explorer session %w", ErrNotFound)
)

type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (document, folder, portfolio)
	ResourceID   string // ID of the existing/conflicting resource
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// FolderNotFoundError is returned when a navigation target is absent from the tree.
// It is local and not retryable; the explorer state is left untouched.
type FolderNotFoundError struct {
	FolderID string
}

func (e *FolderNotFoundError) Error() string {
	return fmt.Sprintf("folder %q not found in portfolio", e.FolderID)
}

func (e *FolderNotFoundError) StatusCode() int { return http.StatusNotFound }

func (e *FolderNotFoundError) Is(target error) bool {
	return target == ErrNotFound || target == ErrNodeNotFound
}

// NetworkError wraps a failed call to the directory service (tree fetch, document
// fetch or upload). Re-invoking the same operation may succeed.
type NetworkError struct {
	Op  string // e.g. "get_documents", "get_structure", "upload_document"
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) StatusCode() int { return http.StatusBadGateway }

// Retryable is always true; the caller decides whether to retry.
func (e *NetworkError) Retryable() bool { return true }

// AsNetworkError wraps err as a NetworkError for op, unless it already is one.
// Not-found and conflict errors from the directory service are passed through.
func AsNetworkError(op string, err error) error {
	if err == nil {
		return nil
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrValidation) {
		return err
	}
	return &NetworkError{Op: op, Err: err}
}

// RejectionReason explains why the upload validator refused a file.
type RejectionReason string

const (
	UnsupportedFormat RejectionReason = "unsupported_format"
	FileTooLarge      RejectionReason = "file_too_large"
)

// UploadRejectedError is a local validation failure; it never reaches the network.
type UploadRejectedError struct {
	File   string
	Reason RejectionReason
	Detail string
}

func (e *UploadRejectedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s rejected (%s): %s", e.File, e.Reason, e.Detail)
	}
	return fmt.Sprintf("%s rejected (%s)", e.File, e.Reason)
}

func (e *UploadRejectedError) StatusCode() int { return http.StatusUnprocessableEntity }

func (e *UploadRejectedError) Is(target error) bool { return target == ErrValidation }
