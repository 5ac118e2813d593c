package apperrors

import (
	"errors"
	"maps"
)

// Generic outcomes shared by every service
var (
	ErrResourceNotFound      = errors.New("resource not found")
	ErrResourceAlreadyExists = errors.New("resource already exists")
	ErrConflict              = errors.New("conflict")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrValidationFailed      = errors.New("validation failed")
	ErrBadRequest            = errors.New("bad request")
)

// Identity
var (
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenInvalid          = errors.New("invalid token")
	ErrTokenNotFound         = errors.New("token not found")
	ErrTokenRevoked          = errors.New("token revoked")
	ErrAccountDisabled       = errors.New("account is disabled")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")
)

// Action registry
var (
	ErrActionNotFound = errors.New("action not found")
	ErrActionOccurred = errors.New("action has already taken place")
	ErrNotYetOccurred = errors.New("action has not taken place yet")
)

// Application ledger
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrActionFull          = errors.New("action has reached its capacity")
	ErrOwnAction           = errors.New("organizers cannot apply to their own action")
	ErrAlreadyApplied      = errors.New("already applied to this action")
	ErrInvalidTransition   = errors.New("invalid application status transition")
)

// Notification outbox
var ErrNotificationNotFound = errors.New("notification not found")

// CustomError attaches a human readable message, and for validation failures the
// per-field messages, to one of the sentinels above. errors.Is sees the sentinel.
type CustomError struct {
	Err     error
	Message string
	Fields  map[string]string
}

func (e *CustomError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *CustomError) Unwrap() error { return e.Err }

func wrap(sentinel error, message string) error {
	return &CustomError{Err: sentinel, Message: message}
}

func NewResourceNotFoundError(message string) error { return wrap(ErrResourceNotFound, message) }
func NewConflictError(message string) error         { return wrap(ErrConflict, message) }
func NewForbiddenError(message string) error        { return wrap(ErrPermissionDenied, message) }
func NewBadRequestError(message string) error       { return wrap(ErrBadRequest, message) }

// NewValidationError reports invalid input keyed by field name
func NewValidationError(fields map[string]string) error {
	return &CustomError{Err: ErrValidationFailed, Message: "validation failed", Fields: maps.Clone(fields)}
}

// Is reports whether err matches target or any of others
func Is(err, target error, others ...error) bool {
	if errors.Is(err, target) {
		return true
	}
	for _, o := range others {
		if errors.Is(err, o) {
			return true
		}
	}
	return false
}

// FieldErrors returns a copy of the per-field messages of a validation error, or nil
func FieldErrors(err error) map[string]string {
	var ce *CustomError
	if !errors.As(err, &ce) || !errors.Is(ce.Err, ErrValidationFailed) {
		return nil
	}
	return maps.Clone(ce.Fields)
}

// UserMessage is the message attached to err, falling back to err's text
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ce *CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return err.Error()
}
