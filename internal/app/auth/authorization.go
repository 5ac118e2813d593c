package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/rs/zerolog"
)

// UserLookup is the part of the user store the authorization service needs
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// AuthorizationService resolves actors and answers ownership questions
type AuthorizationService struct {
	users  UserLookup
	logger zerolog.Logger
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(users UserLookup, logger zerolog.Logger) *AuthorizationService {
	return &AuthorizationService{
		users:  users,
		logger: logger,
	}
}

// ResolveActor loads the user and computes its capabilities
func (s *AuthorizationService) ResolveActor(ctx context.Context, userID int64) (Actor, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return Actor{}, apperrors.ErrUnauthenticated
		}
		s.logger.Error().Err(err).Int64("userID", userID).Msg("Error loading user for actor resolution")
		return Actor{}, fmt.Errorf("failed to resolve actor: %w", err)
	}
	if !user.IsActive {
		return Actor{}, apperrors.ErrAccountDisabled
	}
	return NewActor(user), nil
}

// CanManageAction checks if the actor may edit, delete or decide on an action
func CanManageAction(actor Actor, action *models.Action) bool {
	return actor.IsAdmin || actor.Owns(action.OwnerID)
}

// ValidateActionManagement returns a forbidden error unless the actor manages the action
func ValidateActionManagement(actor Actor, action *models.Action) error {
	if !CanManageAction(actor, action) {
		return apperrors.NewForbiddenError("You can only manage actions you organize.")
	}
	return nil
}

// ValidateOrganizer returns a forbidden error unless the actor may publish actions
func ValidateOrganizer(actor Actor) error {
	if !actor.CanOrganize() {
		return apperrors.NewForbiddenError("Only organizers can create actions.")
	}
	return nil
}

// CanSeeApplication reports whether the application lies inside the actor's scope
func CanSeeApplication(actor Actor, application *models.Application) bool {
	return actor.IsAdmin || actor.Owns(application.VolunteerID)
}
