package controllers

import (
	"errors"
	"net/http"

	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/services"
	"github.com/communitylink/communitylink/internal/middleware"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthController exposes sign-up, sign-in and token rotation
type AuthController struct {
	auth   *services.AuthService
	logger zerolog.Logger
}

func NewAuthController(auth *services.AuthService, logger zerolog.Logger) *AuthController {
	return &AuthController{auth: auth, logger: logger}
}

// Register godoc
// @Summary Create an account
// @Description Creates an organizer or volunteer account with an empty profile and signs it in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Account to create"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse} "Account created"
// @Failure 400 {object} dto.APIResponse "Validation failed, including duplicate e-mail or username"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.auth.Register(ctx.Request.Context(), &req)
	respond(ctx, http.StatusCreated, resp, err)
}

// Login godoc
// @Summary Sign in
// @Description Authenticates with a username or e-mail address and returns an access and refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Signed in"
// @Failure 400 {object} dto.APIResponse "Invalid request format"
// @Failure 401 {object} dto.APIResponse "Invalid credentials"
// @Failure 403 {object} dto.APIResponse "Account disabled"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.auth.Login(ctx.Request.Context(), &req)
	if errors.Is(err, apperrors.ErrInvalidCredentials) {
		c.logger.Info().Str("clientIP", ctx.ClientIP()).Msg("Failed sign-in attempt")
	}
	respond(ctx, http.StatusOK, resp, err)
}

// RefreshToken godoc
// @Summary Rotate tokens
// @Description Revokes the given refresh token and issues a new access and refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "New tokens"
// @Failure 400 {object} dto.APIResponse "Invalid request format"
// @Failure 401 {object} dto.APIResponse "Invalid, expired or revoked token"
// @Router /auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	resp, err := c.auth.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	respond(ctx, http.StatusOK, resp, err)
}

// Logout godoc
// @Summary Sign out
// @Description Revokes the refresh token; unknown tokens are ignored
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Signed out"
// @Failure 400 {object} dto.APIResponse "Invalid request format"
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	err := c.auth.Logout(ctx.Request.Context(), req.RefreshToken)
	respond(ctx, http.StatusOK, dto.SuccessResponse{Message: "Logged out"}, err)
}

// Me godoc
// @Summary Current user
// @Description Returns the authenticated user with its capabilities
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse} "Current user"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	resp, err := c.auth.CurrentUser(ctx.Request.Context(), middleware.ActorFrom(ctx))
	respond(ctx, http.StatusOK, resp, err)
}
