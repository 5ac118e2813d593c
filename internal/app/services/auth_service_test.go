package services

import (
	"context"
	"testing"
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/app/repositories"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	pkgAuth "github.com/communitylink/communitylink/internal/pkg/auth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(e *testEnv) *AuthService {
	jwt := pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "communitylink-test",
	})
	return NewAuthService(e.store, jwt, zerolog.Nop())
}

func registration(username, email string) *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Username:  username,
		Email:     email,
		Password:  "correct-horse",
		FirstName: " Maria ",
		LastName:  "Silva",
		RoleType:  models.RoleOrganizer,
	}
}

func TestRegister_CreatesUserAndProfile(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(e)

	res, err := svc.Register(ctx, registration("maria", "Maria@Example.org"))
	require.NoError(t, err)
	assert.Equal(t, "maria@example.org", res.User.Email)
	assert.Equal(t, "Maria", res.User.FirstName)
	assert.True(t, res.User.Capabilities.IsOrganizer)
	assert.NotEmpty(t, res.Token.AccessToken)
	assert.NotEmpty(t, res.Token.RefreshToken)

	p, err := e.store.Profiles().GetByUserID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Empty(t, p.PreferenceList())
}

func TestRegister_Rejections(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(e)
	_, err := svc.Register(ctx, registration("maria", "maria@example.org"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registration("other", "MARIA@example.org"))
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Contains(t, apperrors.FieldErrors(err), "email")

	_, err = svc.Register(ctx, registration("maria", "new@example.org"))
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	assert.Contains(t, apperrors.FieldErrors(err), "username")

	bad := registration("no spaces allowed", "x@example.org")
	bad.Password = "short"
	bad.RoleType = "ADMIN"
	_, err = svc.Register(ctx, bad)
	require.ErrorIs(t, err, apperrors.ErrValidationFailed)
	fields := apperrors.FieldErrors(err)
	assert.Contains(t, fields, "username")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "roleType")
}

func TestLogin_UsernameOrEmail(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(e)
	_, err := svc.Register(ctx, registration("maria", "maria@example.org"))
	require.NoError(t, err)

	res, err := svc.Login(ctx, &dto.LoginRequest{Login: "maria", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "maria", res.User.Username)

	res, err = svc.Login(ctx, &dto.LoginRequest{Login: "MARIA@example.org", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "maria", res.User.Username)

	_, err = svc.Login(ctx, &dto.LoginRequest{Login: "maria", Password: "wrong-horse"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	_, err = svc.Login(ctx, &dto.LoginRequest{Login: "nobody", Password: "correct-horse"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRefreshToken_RotatesAndRevokes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(e)
	res, err := svc.Register(ctx, registration("maria", "maria@example.org"))
	require.NoError(t, err)
	first := res.Token.RefreshToken

	rotated, err := svc.RefreshToken(ctx, first)
	require.NoError(t, err)
	assert.NotEqual(t, first, rotated.RefreshToken)

	_, err = svc.RefreshToken(ctx, first)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)
	_, err = svc.RefreshToken(ctx, "unknown")
	assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)

	require.NoError(t, svc.Logout(ctx, rotated.RefreshToken))
	require.NoError(t, svc.Logout(ctx, "unknown"))
	_, err = svc.RefreshToken(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)
}

// lateTokens returns every token as still live, the state a rotation saw
// when a concurrent one revoked the token right after its read
type lateTokens struct{ repositories.TokenStore }

func (l lateTokens) Get(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, err := l.TokenStore.Get(ctx, token)
	if err == nil {
		t.Revoked = false
	}
	return t, err
}

type lateStore struct{ repositories.Store }

func (l lateStore) Tokens() repositories.TokenStore { return lateTokens{l.Store.Tokens()} }

func TestRefreshToken_SecondRotationLosesRace(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(e)
	res, err := svc.Register(ctx, registration("maria", "maria@example.org"))
	require.NoError(t, err)

	svc.store = lateStore{e.store}

	_, err = svc.RefreshToken(ctx, res.Token.RefreshToken)
	require.NoError(t, err)
	_, err = svc.RefreshToken(ctx, res.Token.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)
}

func TestCurrentUser(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	svc := newAuthService(e)
	u, actor := e.user(t, "ana", models.RoleVolunteer)

	me, err := svc.CurrentUser(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)
	assert.False(t, me.Capabilities.IsOrganizer)

	_, err = svc.CurrentUser(ctx, auth.Actor{})
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}
