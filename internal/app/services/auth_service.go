package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	pkgAuth "github.com/communitylink/communitylink/internal/pkg/auth"
	"github.com/communitylink/communitylink/internal/pkg/validation"
	"github.com/rs/zerolog"
)

// UserCreatedHook runs inside the registration transaction right after the user row is written
type UserCreatedHook func(ctx context.Context, tx repositories.Store, user *models.User) error

// CreateProfileHook gives every new user an empty profile
func CreateProfileHook(ctx context.Context, tx repositories.Store, user *models.User) error {
	if err := tx.Profiles().Create(ctx, &models.Profile{UserID: user.ID}); err != nil {
		return fmt.Errorf("profile creation error: %w", err)
	}
	return nil
}

// AuthService handles authentication operations
type AuthService struct {
	store         repositories.Store
	jwtService    *pkgAuth.JWTService
	onUserCreated []UserCreatedHook
	logger        zerolog.Logger
}

// NewAuthService creates a new AuthService. The profile hook is always installed first.
func NewAuthService(
	store repositories.Store,
	jwtService *pkgAuth.JWTService,
	logger zerolog.Logger,
	hooks ...UserCreatedHook,
) *AuthService {
	return &AuthService{
		store:         store,
		jwtService:    jwtService,
		onUserCreated: append([]UserCreatedHook{CreateProfileHook}, hooks...),
		logger:        logger,
	}
}

// validateRegistration validates what the binding tags cannot be trusted with
// when the service is called directly
func (s *AuthService) validateRegistration(req *dto.RegisterRequest) error {
	fields := map[string]string{}
	if !validation.ValidUsername(req.Username) {
		fields["username"] = "Username must be 3-150 characters: letters, digits and @/./+/-/_"
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fields["email"] = "A valid e-mail address is required"
	}
	switch {
	case len(req.Password) < pkgAuth.MinPasswordLength:
		fields["password"] = fmt.Sprintf("Password must be at least %d characters", pkgAuth.MinPasswordLength)
	case len(req.Password) > pkgAuth.MaxPasswordLength:
		fields["password"] = fmt.Sprintf("Password must be at most %d bytes", pkgAuth.MaxPasswordLength)
	}
	if !req.RoleType.Valid() {
		fields["roleType"] = "Choose ORGANIZER or VOLUNTEER"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

// Register creates the user and its profile and signs the user in
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = models.NormalizeEmail(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if err := s.validateRegistration(req); err != nil {
		return nil, err
	}

	hashed, err := pkgAuth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		Password:  hashed,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleType:  req.RoleType,
		IsActive:  true,
	}
	err = s.store.InTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		for _, hook := range s.onUserCreated {
			if err := hook(ctx, tx, user); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEmailAlreadyExists):
			return nil, apperrors.NewValidationError(map[string]string{"email": "This e-mail is already registered"})
		case errors.Is(err, apperrors.ErrUsernameAlreadyExists):
			return nil, apperrors.NewValidationError(map[string]string{"username": "This username is already taken"})
		}
		s.logger.Error().Err(err).Str("username", req.Username).Msg("Failed to register user")
		return nil, fmt.Errorf("user creation error: %w", err)
	}
	s.logger.Info().Int64("userID", user.ID).Str("role", string(user.RoleType)).Msg("User registered")

	return s.authResponse(ctx, user)
}

// Login signs in with a username or an e-mail address
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.store.Users().GetByUsername(ctx, login)
	if errors.Is(err, apperrors.ErrUserNotFound) && strings.Contains(login, "@") {
		user, err = s.store.Users().GetByEmail(ctx, login)
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !pkgAuth.CheckPassword(user.Password, req.Password) {
		s.logger.Debug().Str("login", login).Msg("Login with wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if err := s.store.Users().UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Could not record last login")
	}
	return s.authResponse(ctx, user)
}

// RefreshToken rotates a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}
	stored, err := s.store.Tokens().Get(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if stored.Revoked {
		return nil, apperrors.ErrTokenRevoked
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, apperrors.ErrTokenExpired
	}

	user, err := s.store.Users().GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}
	// the conditional revoke decides a concurrent rotation of the same token
	if err := s.store.Tokens().Revoke(ctx, refreshToken); err != nil {
		if errors.Is(err, apperrors.ErrTokenRevoked) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to revoke old token: %w", err)
	}
	return s.generateTokenResponse(ctx, user)
}

// Logout revokes the refresh token; an unknown token is not an error
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.store.Tokens().Revoke(ctx, refreshToken)
	if err != nil && !errors.Is(err, apperrors.ErrTokenNotFound) && !errors.Is(err, apperrors.ErrTokenRevoked) {
		return err
	}
	return nil
}

// CurrentUser returns the actor's account
func (s *AuthService) CurrentUser(ctx context.Context, actor auth.Actor) (*dto.UserResponse, error) {
	if !actor.Authenticated() {
		return nil, apperrors.ErrUnauthenticated
	}
	user, err := s.store.Users().GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	resp := dto.FromUser(user)
	return &resp, nil
}

func (s *AuthService) authResponse(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	token, err := s.generateTokenResponse(ctx, user)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: *token, User: dto.FromUser(user)}, nil
}

// generateTokenResponse creates the token pair and stores the refresh token
func (s *AuthService) generateTokenResponse(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}
	if err := s.store.Tokens().Create(ctx, pair.RefreshToken, user.ID, s.jwtService.GetRefreshTokenExpiry()); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}
	return dto.NewBearerTokens(pair.AccessToken, pair.RefreshToken,
		time.Duration(pair.ExpiresIn)*time.Second,
		time.Duration(pair.RefreshExpiresIn)*time.Second), nil
}
