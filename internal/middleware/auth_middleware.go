package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	pkgAuth "github.com/communitylink/communitylink/internal/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Context keys set by ResolveActor
const (
	ActorKey     = "actor"
	UserIDKey    = "userID"
	authErrorKey = "authError"
)

// AuthMiddleware resolves the caller from a bearer token or the session cookie
type AuthMiddleware struct {
	jwtService *pkgAuth.JWTService
	authz      *auth.AuthorizationService
	cookieName string
	logger     zerolog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *pkgAuth.JWTService, authz *auth.AuthorizationService, cookieName string, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		authz:      authz,
		cookieName: cookieName,
		logger:     logger,
	}
}

// tokenFromRequest reads the Authorization header first and falls back to the session cookie
func (m *AuthMiddleware) tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		token, err := pkgAuth.ExtractBearerToken(header)
		if err == nil {
			return strings.Trim(token, "\"'")
		}
	}
	if m.cookieName != "" {
		if cookie, err := c.Cookie(m.cookieName); err == nil {
			return cookie
		}
	}
	return ""
}

// ResolveActor puts the caller into the context. Anonymous requests pass through with
// the zero Actor; a bad token is remembered so JWTAuth can explain the 401.
func (m *AuthMiddleware) ResolveActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := auth.Actor{}
		if token := m.tokenFromRequest(c); token != "" {
			claims, err := m.jwtService.ValidateAndExtractClaims(token)
			switch {
			case err != nil:
				c.Set(authErrorKey, err)
			default:
				resolved, err := m.authz.ResolveActor(c.Request.Context(), claims.UserID)
				if err != nil {
					m.logger.Debug().Err(err).Int64("userID", claims.UserID).Msg("Token subject could not be resolved")
					c.Set(authErrorKey, err)
				} else {
					actor = resolved
				}
			}
		}
		c.Set(ActorKey, actor)
		if actor.Authenticated() {
			c.Set(UserIDKey, actor.UserID)
		}
		c.Next()
	}
}

// JWTAuth rejects requests without an authenticated actor. It must run after ResolveActor.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ActorFrom(c).Authenticated() {
			c.Next()
			return
		}

		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		if v, ok := c.Get(authErrorKey); ok {
			err, _ := v.(error)
			switch {
			case errors.Is(err, pkgAuth.ErrExpiredToken), errors.Is(err, apperrors.ErrTokenExpired):
				errorDetail = dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Authentication failed").WithDetails("Token has expired")
			case errors.Is(err, apperrors.ErrAccountDisabled):
				errorDetail = dto.NewErrorDetail(dto.ErrorCodeAccountDisabled, "Account is disabled")
			default:
				errorDetail = dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Authentication failed").WithDetails("Invalid token")
			}
		} else {
			errorDetail = errorDetail.WithDetails("Authorization header missing")
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
	}
}

// ActorFrom returns the actor resolved for this request, or the anonymous Actor
func ActorFrom(c *gin.Context) auth.Actor {
	if v, ok := c.Get(ActorKey); ok {
		if actor, ok := v.(auth.Actor); ok {
			return actor
		}
	}
	return auth.Actor{}
}
