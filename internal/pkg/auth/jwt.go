package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidFormat = errors.New("invalid token format")
)

const bearerPrefix = "Bearer "

// clockSkew is tolerated on exp, nbf and iat
const clockSkew = 30 * time.Second

// JWTConfig holds the signing secret, issuer and token lifetimes
type JWTConfig struct {
	SecretKey       string
	AccessTokenExp  time.Duration
	RefreshTokenExp time.Duration
	TokenIssuer     string
}

// JWTService signs HS256 access tokens and mints opaque refresh tokens
type JWTService struct {
	config JWTConfig
	key    []byte
	parser *jwt.Parser
}

// NewJWTService builds a service for config
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{
		config: config,
		key:    []byte(config.SecretKey),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(config.TokenIssuer),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// Claims is the access token payload
type Claims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	RoleType string `json:"roleType"`
	IsAdmin  bool   `json:"isAdmin,omitempty"`
	jwt.RegisteredClaims
}

// TokenPair is what a sign-in hands back; lifetimes are in seconds
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int
	RefreshExpiresIn int
}

func (s *JWTService) claimsFor(user *models.User, issuedAt time.Time) *Claims {
	return &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		RoleType: string(user.RoleType),
		IsAdmin:  user.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.config.TokenIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExp)),
		},
	}
}

// GenerateTokenPair signs an access token for user and pairs it with a fresh
// refresh token. The refresh token is a random UUID the caller must persist.
func (s *JWTService) GenerateTokenPair(user *models.User) (*TokenPair, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, s.claimsFor(user, time.Now())).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	return &TokenPair{
		AccessToken:      signed,
		RefreshToken:     uuid.NewString(),
		ExpiresIn:        int(s.config.AccessTokenExp / time.Second),
		RefreshExpiresIn: int(s.config.RefreshTokenExp / time.Second),
	}, nil
}

// ValidateToken checks signature, algorithm, issuer and time claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, err := s.parser.ParseWithClaims(tokenString, claims, s.keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func (s *JWTService) keyFunc(*jwt.Token) (interface{}, error) {
	return s.key, nil
}

// ValidateAndExtractClaims is ValidateToken plus a check that the token names a user
func (s *JWTService) ValidateAndExtractClaims(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.UserID <= 0 || claims.Username == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetRefreshTokenExpiry is the expiry for a refresh token minted now
func (s *JWTService) GetRefreshTokenExpiry() time.Time {
	return time.Now().Add(s.config.RefreshTokenExp)
}

// AccessTokenTTL is the lifetime of access tokens
func (s *JWTService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenExp
}

// ExtractBearerToken strips an optional "Bearer " prefix from an Authorization header
func ExtractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrInvalidFormat
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	if token == "" {
		return "", ErrInvalidFormat
	}
	return token, nil
}
