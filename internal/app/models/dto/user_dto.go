package dto

import (
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
)

// UserResponse represents basic user information
type UserResponse struct {
	ID           int64             `json:"id" example:"1"`
	Username     string            `json:"username" example:"maria.silva"`
	Email        string            `json:"email" example:"maria@example.org"`
	FirstName    string            `json:"firstName" example:"Maria"`
	LastName     string            `json:"lastName" example:"Silva"`
	RoleType     models.RoleType   `json:"roleType" example:"VOLUNTEER"`
	Capabilities auth.Capabilities `json:"capabilities"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// FromUser converts a user model to its response
func FromUser(u *models.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		RoleType:     u.RoleType,
		Capabilities: auth.ResolveCapabilities(u),
		CreatedAt:    u.CreatedAt,
	}
}

// ProfileResponse combines the user's identity with the profile settings
type ProfileResponse struct {
	User        UserResponse      `json:"user"`
	Address     string            `json:"address" example:"Rua das Flores 10, Porto"`
	Preferences []models.Category `json:"preferences" example:"ENVIRONMENT,ANIMALS"`
}

// FromProfile builds the profile response
func FromProfile(u *models.User, p *models.Profile) ProfileResponse {
	return ProfileResponse{
		User:        FromUser(u),
		Address:     p.Address,
		Preferences: p.PreferenceList(),
	}
}

// UpdateProfileRequest represents profile update data
type UpdateProfileRequest struct {
	FirstName   string            `json:"firstName" form:"firstName" binding:"max=150"`
	LastName    string            `json:"lastName" form:"lastName" binding:"max=150"`
	Email       string            `json:"email" form:"email" binding:"required,email,max=255"`
	Address     string            `json:"address" form:"address" binding:"max=1000"`
	Preferences []models.Category `json:"preferences" form:"preferences" binding:"dive,category"`
}
