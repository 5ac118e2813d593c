package auth

import (
	"testing"
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTService(exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  exp,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "communitylink-test",
	})
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := testJWTService(time.Minute)
	user := &models.User{ID: 7, Username: "rita", Email: "rita@example.org", RoleType: models.RoleOrganizer, IsSuperuser: true}

	pair, err := svc.GenerateTokenPair(user)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 60, pair.ExpiresIn)

	claims, err := svc.ValidateAndExtractClaims(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "rita", claims.Username)
	assert.Equal(t, "ORGANIZER", claims.RoleType)
	assert.True(t, claims.IsAdmin)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := testJWTService(-time.Minute)
	pair, err := svc.GenerateTokenPair(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Minute, TokenIssuer: "communitylink-test"})
	fresh, err := testJWTService(time.Minute).GenerateTokenPair(&models.User{ID: 1, Username: "a"})
	require.NoError(t, err)
	_, err = other.ValidateToken(fresh.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateAndExtractClaims("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = ExtractBearerToken("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", tok)

	_, err = ExtractBearerToken("  ")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
