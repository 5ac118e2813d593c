package dto

import (
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
)

// TokenTypeBearer is the scheme clients put in the Authorization header
const TokenTypeBearer = "Bearer"

// RegisterRequest creates an organizer or volunteer account
type RegisterRequest struct {
	Username  string          `json:"username" form:"username" binding:"required,username" example:"maria.silva"`
	Email     string          `json:"email" form:"email" binding:"required,email,max=255" example:"maria@example.org"`
	Password  string          `json:"password" form:"password" binding:"required,min=8,max=72" example:"correct-horse"`
	FirstName string          `json:"firstName" form:"firstName" binding:"max=150" example:"Maria"`
	LastName  string          `json:"lastName" form:"lastName" binding:"max=150" example:"Silva"`
	RoleType  models.RoleType `json:"roleType" form:"roleType" binding:"required,role" example:"VOLUNTEER"`
}

// LoginRequest signs in with a username or an e-mail address
type LoginRequest struct {
	Login    string `json:"login" form:"login" binding:"required" example:"maria.silva"`
	Password string `json:"password" form:"password" binding:"required" example:"correct-horse"`
}

// RefreshTokenRequest carries the refresh token to rotate or revoke
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required" example:"6f1c1f4e-8a8e-4a57-9d0b-2f54a3b8c1aa"`
}

// TokenResponse is an issued access token and its refresh token; lifetimes are in seconds
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn" example:"3600"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty" example:"2592000"`
}

// NewBearerTokens builds a TokenResponse from the issued tokens and their lifetimes
func NewBearerTokens(access, refresh string, accessTTL, refreshTTL time.Duration) *TokenResponse {
	return &TokenResponse{
		AccessToken:           access,
		TokenType:             TokenTypeBearer,
		ExpiresIn:             int64(accessTTL / time.Second),
		RefreshToken:          refresh,
		RefreshTokenExpiresIn: int64(refreshTTL / time.Second),
	}
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token TokenResponse `json:"token"`
	User  UserResponse  `json:"user"`
}
