package services

import (
	"context"
	"errors"
	"strings"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	"github.com/rs/zerolog"
)

// ProfileService defines the profile operations
type ProfileService interface {
	Get(ctx context.Context, actor auth.Actor) (*dto.ProfileResponse, error)
	Update(ctx context.Context, actor auth.Actor, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
}

type profileServiceImpl struct {
	store  repositories.Store
	logger zerolog.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(store repositories.Store, logger zerolog.Logger) ProfileService {
	return &profileServiceImpl{store: store, logger: logger}
}

// loadProfile returns the user's profile, creating it for accounts made before profiles existed
func loadProfile(ctx context.Context, tx repositories.Store, userID int64) (*models.Profile, error) {
	p, err := tx.Profiles().GetByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, err
	}
	p = &models.Profile{UserID: userID}
	if err := tx.Profiles().Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *profileServiceImpl) Get(ctx context.Context, actor auth.Actor) (*dto.ProfileResponse, error) {
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}
	user, err := s.store.Users().GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	p, err := loadProfile(ctx, s.store, actor.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("userID", actor.UserID).Msg("Failed to load profile")
		return nil, err
	}
	resp := dto.FromProfile(user, p)
	return &resp, nil
}

func (s *profileServiceImpl) Update(ctx context.Context, actor auth.Actor, req *dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}
	email := models.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError(map[string]string{"email": "A valid e-mail address is required"})
	}
	for _, c := range req.Preferences {
		if !c.Valid() {
			return nil, apperrors.NewValidationError(map[string]string{"preferences": "Unknown category " + string(c)})
		}
	}

	err := s.store.InTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		taken, err := tx.Users().EmailExists(ctx, email, actor.UserID)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.NewValidationError(map[string]string{"email": "This e-mail is already registered"})
		}
		current, err := tx.Users().GetByID(ctx, actor.UserID)
		if err != nil {
			return err
		}
		// a changed sign-in e-mail ends every refresh session of the account
		if current.Email != email {
			if err := tx.Tokens().RevokeAllForUser(ctx, actor.UserID); err != nil {
				return err
			}
		}
		if err := tx.Users().UpdateProfile(ctx, actor.UserID, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), email); err != nil {
			if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
				return apperrors.NewValidationError(map[string]string{"email": "This e-mail is already registered"})
			}
			return err
		}
		p, err := loadProfile(ctx, tx, actor.UserID)
		if err != nil {
			return err
		}
		p.Address = strings.TrimSpace(req.Address)
		p.SetPreferences(req.Preferences)
		return tx.Profiles().Update(ctx, p)
	})
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error().Err(err).Int64("userID", actor.UserID).Msg("Failed to update profile")
		}
		return nil, err
	}
	s.logger.Debug().Int64("userID", actor.UserID).Msg("Profile updated")
	return s.Get(ctx, actor)
}
