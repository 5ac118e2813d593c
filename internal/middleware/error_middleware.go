package middleware

import (
	"errors"
	"net/http"

	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// errorMapping ties a sentinel to its HTTP status and error code
type errorMapping struct {
	target  error
	status  int
	code    dto.ErrorCode
	message string
}

// First match wins, so specific sentinels come before the generic ones they wrap
var errorMappings = []errorMapping{
	{apperrors.ErrValidationFailed, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"},
	{apperrors.ErrBadRequest, http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"},

	{apperrors.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, dto.ErrorCodeInvalidCredentials, "Invalid credentials"},
	{apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken, "Token expired"},
	{apperrors.ErrTokenInvalid, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Invalid token"},
	{apperrors.ErrTokenNotFound, http.StatusUnauthorized, dto.ErrorCodeTokenNotFound, "Token not found"},
	{apperrors.ErrTokenRevoked, http.StatusUnauthorized, dto.ErrorCodeInvalidToken, "Token revoked"},
	{apperrors.ErrAccountDisabled, http.StatusForbidden, dto.ErrorCodeAccountDisabled, "Account is disabled"},

	{apperrors.ErrPermissionDenied, http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"},

	{apperrors.ErrActionNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Action not found"},
	{apperrors.ErrApplicationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Application not found"},
	{apperrors.ErrNotificationNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Notification not found"},
	{apperrors.ErrUserNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "User not found"},
	{apperrors.ErrResourceNotFound, http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"},

	{apperrors.ErrActionOccurred, http.StatusConflict, dto.ErrorCodeActionOccurred, "This action has already taken place"},
	{apperrors.ErrNotYetOccurred, http.StatusConflict, dto.ErrorCodeActionNotOccurred, "This action has not taken place yet"},
	{apperrors.ErrActionFull, http.StatusConflict, dto.ErrorCodeActionFull, "This action has reached its capacity"},
	{apperrors.ErrOwnAction, http.StatusConflict, dto.ErrorCodeOwnAction, "You cannot apply to your own action"},
	{apperrors.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition, "This change is not allowed in the current state"},
	{apperrors.ErrAlreadyApplied, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "You already applied to this action"},
	{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Email already exists"},
	{apperrors.ErrUsernameAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Username already exists"},
	{apperrors.ErrResourceAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"},
	{apperrors.ErrConflict, http.StatusConflict, dto.ErrorCodeConflict, "Conflict"},
}

// StatusFor returns the HTTP status and error detail for err
func StatusFor(err error) (int, *dto.ErrorDetail) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.target == apperrors.ErrValidationFailed {
			if fields := apperrors.FieldErrors(err); len(fields) > 0 {
				return m.status, dto.ValidationFailed(fields)
			}
		}
		detail := dto.NewErrorDetail(m.code, m.message)
		var ce *apperrors.CustomError
		if errors.As(err, &ce) {
			detail = detail.WithDetails(apperrors.UserMessage(err))
		}
		if m.status < http.StatusInternalServerError && m.status != http.StatusUnauthorized {
			detail = detail.WithSeverity(dto.ErrorSeverityWarning)
		}
		return m.status, detail
	}
	return http.StatusInternalServerError, dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")
}

// HandleAPIError writes the error envelope for err
func HandleAPIError(c *gin.Context, err error) {
	status, detail := StatusFor(err)
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}
