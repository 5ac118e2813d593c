package dto

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/communitylink/communitylink/internal/app/models"
)

// ErrorCode is the stable, machine readable part of an error response
type ErrorCode string

const (
	ErrorCodeInvalidCredentials ErrorCode = "AUTH_001"
	ErrorCodeAccountDisabled    ErrorCode = "AUTH_004"
	ErrorCodeInvalidToken       ErrorCode = "AUTH_005"
	ErrorCodeExpiredToken       ErrorCode = "AUTH_006"
	ErrorCodeTokenNotFound      ErrorCode = "AUTH_007"
	ErrorCodeUnauthorized       ErrorCode = "AUTH_008"

	ErrorCodeForbidden ErrorCode = "FORBIDDEN"

	ErrorCodeResourceNotFound      ErrorCode = "RES_001"
	ErrorCodeResourceAlreadyExists ErrorCode = "RES_002"
	ErrorCodeConflict              ErrorCode = "RES_004"

	ErrorCodeActionOccurred    ErrorCode = "ACTION_OCCURRED"
	ErrorCodeActionNotOccurred ErrorCode = "ACTION_NOT_OCCURRED"
	ErrorCodeActionFull        ErrorCode = "ACTION_FULL"
	ErrorCodeOwnAction         ErrorCode = "OWN_ACTION"
	ErrorCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	ErrorCodeValidationFailed ErrorCode = "VAL_001"
	ErrorCodeBadRequest       ErrorCode = "BAD_REQUEST"

	ErrorCodeInternalServer ErrorCode = "SRV_001"
)

// ErrorSeverity tells clients whether the failure was their input or the server
type ErrorSeverity string

const (
	ErrorSeverityWarning ErrorSeverity = "WARNING"
	ErrorSeverityError   ErrorSeverity = "ERROR"
)

// ErrorDetail is the "error" member of the response envelope. Details holds
// field messages for VAL_001 and a free-form explanation otherwise.
type ErrorDetail struct {
	Code     ErrorCode     `json:"code" example:"RES_001"`
	Message  string        `json:"message" example:"Action not found"`
	Field    string        `json:"field,omitempty" example:"id"`
	Severity ErrorSeverity `json:"severity" example:"ERROR"`
	Details  interface{}   `json:"details,omitempty"`
}

func NewErrorDetail(code ErrorCode, message string) *ErrorDetail {
	return &ErrorDetail{Code: code, Message: message, Severity: ErrorSeverityError}
}

func (e *ErrorDetail) WithField(field string) *ErrorDetail {
	e.Field = field
	return e
}

func (e *ErrorDetail) WithSeverity(severity ErrorSeverity) *ErrorDetail {
	e.Severity = severity
	return e
}

func (e *ErrorDetail) WithDetails(details interface{}) *ErrorDetail {
	e.Details = details
	return e
}

// NewErrorResponse wraps detail in the response envelope
func NewErrorResponse(detail *ErrorDetail) APIResponse {
	return APIResponse{Error: detail}
}

// ValidationFailed builds a VAL_001 detail from per-field messages
func ValidationFailed(fields map[string]string) *ErrorDetail {
	return NewErrorDetail(ErrorCodeValidationFailed, "Validation failed").
		WithSeverity(ErrorSeverityWarning).
		WithDetails(fields)
}

// HandleValidationError turns a binding error into VAL_001. Validator errors are
// reported per field, anything else (malformed JSON, wrong types) as a whole.
func HandleValidationError(err error) *ErrorDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewErrorDetail(ErrorCodeValidationFailed, "Invalid request format").
			WithSeverity(ErrorSeverityWarning).
			WithDetails(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldError(fe)
	}
	return ValidationFailed(fields)
}

var (
	categoryNames = joinValues(models.Categories())
	roleNames     = joinValues([]models.RoleType{models.RoleOrganizer, models.RoleVolunteer})
)

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, " ")
}

func fieldError(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return name + " is required"
	case "min":
		return name + " must be at least " + fe.Param()
	case "max":
		return name + " must be at most " + fe.Param()
	case "email":
		return name + " must be a valid email address"
	case "oneof":
		return name + " must be one of: " + fe.Param()
	case "category":
		return name + " must be one of: " + categoryNames
	case "role":
		return name + " must be one of: " + roleNames
	case "username":
		return name + " may contain only letters, digits and @/./+/-/_ (3 to 150 characters)"
	}
	return name + " failed the " + fe.Tag() + " check"
}
