package models

import (
	"errors"
	"net/http"
)

// ErrorKind classifies a domain error for the HTTP boundary.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_error"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindNotFound         ErrorKind = "not_found"
	KindConflict         ErrorKind = "conflict"
	KindExternalService  ErrorKind = "external_service_unavailable"
)

// AppError is a domain error that is safe to show to the user.
type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// NewValidationError returns a validation error with the given message.
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// NewNotFoundError returns a not-found error with the given message.
func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// NewConflictError returns a conflict error with the given message.
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

var (
	ErrTaskNotFound         = NewNotFoundError("task not found")
	ErrPlanNotFound         = NewNotFoundError("study plan not found")
	ErrTeamNotFound         = NewNotFoundError("team not found")
	ErrUserNotFound         = NewNotFoundError("User with this email does not exist.")
	ErrNoPendingTasks       = NewNotFoundError("no pending tasks")
	ErrPermissionDenied     = &AppError{Kind: KindPermissionDenied, Message: "you do not have permission to perform this action"}
	ErrActiveTaskExists     = NewConflictError("another task is already active")
	ErrTaskNotOpen          = NewConflictError("task is already completed")
	ErrTaskNotInbox         = NewConflictError("only inbox tasks can be activated")
	ErrAlreadyMember        = NewConflictError("user is already a member of this team")
	ErrTimerNotStarted      = NewValidationError("timer has not been started")
	ErrPlanGenerationFailed = &AppError{Kind: KindExternalService, Message: "could not generate a plan"}
)

// KindOf returns the kind of err, or "" when err is not an AppError.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// StatusCode maps err to an HTTP status.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExternalService:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
