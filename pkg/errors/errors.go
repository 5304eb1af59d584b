package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrorType classifies every error the core can surface.
type ErrorType string

const (
	// Identity / addressing errors
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeAlreadyExists ErrorType = "ALREADY_EXISTS"

	// Store lifecycle errors
	ErrorTypeAlreadyOpenElsewhere ErrorType = "ALREADY_OPEN_ELSEWHERE"
	ErrorTypeStoreNotOpen         ErrorType = "STORE_NOT_OPEN"
	ErrorTypeStoreClosing         ErrorType = "STORE_CLOSING"

	// Data errors
	ErrorTypeStructuralViolation ErrorType = "STRUCTURAL_VIOLATION"
	ErrorTypeDecode              ErrorType = "DECODE_ERROR"
	ErrorTypeVersionMismatch     ErrorType = "VERSION_MISMATCH"

	// Infrastructure / boundary errors
	ErrorTypeIO         ErrorType = "IO_ERROR"
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// Error codes refining a type where callers need to branch.
const (
	CodeHasChildren   = "HAS_CHILDREN"
	CodeCycleDetected = "CYCLE_DETECTED"
	CodeRootDelete    = "ROOT_DELETE"
)

// AppError is the single error representation used across the core.
type AppError struct {
	Type       ErrorType              `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithDetails adds error details
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := ""
	for {
		frame, more := frames.Next()
		stack += fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return stack
}

// Constructor functions for the core's error kinds

// NewNotFoundError creates a not found error for a store or node.
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		StackTrace: captureStackTrace(),
	}
}

// NewAlreadyExistsError reports a create on a non-empty location.
func NewAlreadyExistsError(location string) *AppError {
	return &AppError{
		Type:       ErrorTypeAlreadyExists,
		Message:    fmt.Sprintf("location %q already exists", location),
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewAlreadyOpenError reports lock contention on a store directory.
func NewAlreadyOpenError(location, holder string) *AppError {
	return &AppError{
		Type:       ErrorTypeAlreadyOpenElsewhere,
		Message:    fmt.Sprintf("store at %q is already open by %s", location, holder),
		HTTPStatus: http.StatusLocked,
		StackTrace: captureStackTrace(),
	}
}

// NewStoreNotOpenError reports an operation on a store that is not open.
func NewStoreNotOpenError(storeID string) *AppError {
	return &AppError{
		Type:       ErrorTypeStoreNotOpen,
		Message:    fmt.Sprintf("store %s is not open", storeID),
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewStoreClosingError reports an operation rejected while a store drains.
func NewStoreClosingError(storeID string) *AppError {
	return &AppError{
		Type:       ErrorTypeStoreClosing,
		Message:    fmt.Sprintf("store %s is closing", storeID),
		HTTPStatus: http.StatusServiceUnavailable,
		StackTrace: captureStackTrace(),
	}
}

// NewStructuralViolationError reports a tree-invariant breach.
func NewStructuralViolationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeStructuralViolation,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		StackTrace: captureStackTrace(),
	}
}

// NewHasChildrenError reports a non-recursive delete of a populated node.
func NewHasChildrenError(nodeID string, childCount int) *AppError {
	return NewStructuralViolationError(
		fmt.Sprintf("node %s has %d children; delete requires recursive", nodeID, childCount),
	).WithCode(CodeHasChildren)
}

// NewDecodeError reports unreadable bytes, isolated to one subject.
func NewDecodeError(subject string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeDecode,
		Message:    fmt.Sprintf("failed to decode %s", subject),
		Cause:      err,
		HTTPStatus: http.StatusUnprocessableEntity,
		StackTrace: captureStackTrace(),
	}
}

// NewVersionMismatchError reports a manifest schema newer than supported.
func NewVersionMismatchError(found, supported int) *AppError {
	return &AppError{
		Type:       ErrorTypeVersionMismatch,
		Message:    fmt.Sprintf("schema version %d is newer than supported version %d", found, supported),
		HTTPStatus: http.StatusConflict,
		StackTrace: captureStackTrace(),
	}
}

// NewIOError reports an underlying storage failure.
func NewIOError(operation string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeIO,
		Message:    fmt.Sprintf("storage operation %q failed", operation),
		Cause:      err,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		StackTrace: captureStackTrace(),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		StackTrace: captureStackTrace(),
	}
}

// Helper functions

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsAlreadyExists checks if an error is an already-exists error
func IsAlreadyExists(err error) bool {
	return IsType(err, ErrorTypeAlreadyExists)
}

// IsAlreadyOpenElsewhere checks for lock contention errors
func IsAlreadyOpenElsewhere(err error) bool {
	return IsType(err, ErrorTypeAlreadyOpenElsewhere)
}

// IsStoreNotOpen checks if an error reports a store outside the open state
func IsStoreNotOpen(err error) bool {
	return IsType(err, ErrorTypeStoreNotOpen)
}

// IsStoreClosing checks if an error reports a draining store
func IsStoreClosing(err error) bool {
	return IsType(err, ErrorTypeStoreClosing)
}

// IsStructuralViolation checks if an error reports a tree-invariant breach
func IsStructuralViolation(err error) bool {
	return IsType(err, ErrorTypeStructuralViolation)
}

// IsHasChildren checks for the non-recursive-delete refusal specifically
func IsHasChildren(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeStructuralViolation && appErr.Code == CodeHasChildren
}

// IsDecode checks if an error reports unreadable bytes
func IsDecode(err error) bool {
	return IsType(err, ErrorTypeDecode)
}

// IsVersionMismatch checks if an error reports an unsupported schema version
func IsVersionMismatch(err error) bool {
	return IsType(err, ErrorTypeVersionMismatch)
}

// IsIO checks if an error reports a storage failure
func IsIO(err error) bool {
	return IsType(err, ErrorTypeIO)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// Wrap wraps an error with additional context, preserving its type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// Keep the original classification, prepend the context.
	if appErr := GetAppError(err); appErr != nil {
		wrapped := *appErr
		wrapped.Message = fmt.Sprintf("%s: %s", message, appErr.Message)
		return &wrapped
	}

	return NewInternalError(message).WithCause(err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}
