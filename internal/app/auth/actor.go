package auth

import "github.com/communitylink/communitylink/internal/app/models"

// Capabilities are the role flags resolved once per request
type Capabilities struct {
	IsOrganizer bool `json:"isOrganizer"`
	IsVolunteer bool `json:"isVolunteer"`
	IsAdmin     bool `json:"isAdmin"`
}

// Actor is the authenticated caller passed explicitly into every service operation
type Actor struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Capabilities
}

// ResolveCapabilities derives the capability flags from the stored user
func ResolveCapabilities(user *models.User) Capabilities {
	if user == nil {
		return Capabilities{}
	}
	return Capabilities{
		IsOrganizer: user.RoleType == models.RoleOrganizer,
		IsVolunteer: user.RoleType == models.RoleVolunteer,
		IsAdmin:     user.IsSuperuser,
	}
}

// NewActor builds the actor for a loaded user
func NewActor(user *models.User) Actor {
	return Actor{
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Capabilities: ResolveCapabilities(user),
	}
}

// Authenticated reports whether the actor represents a logged in user
func (a Actor) Authenticated() bool {
	return a.UserID > 0
}

// Owns reports whether the actor is the given owner
func (a Actor) Owns(ownerID int64) bool {
	return a.Authenticated() && a.UserID == ownerID
}

// CanOrganize reports whether the actor may publish actions
func (a Actor) CanOrganize() bool {
	return a.IsOrganizer || a.IsAdmin
}
