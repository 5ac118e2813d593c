package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/communitylink/communitylink/internal/app/auth"
	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
	"github.com/communitylink/communitylink/internal/pkg/apperrors"
	pkgAuth "github.com/communitylink/communitylink/internal/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userMap map[int64]*models.User

func (m userMap) GetByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func newJWT(ttl time.Duration) *pkgAuth.JWTService {
	return pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  ttl,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "test",
	})
}

func setupRouter(jwt *pkgAuth.JWTService, users userMap) *gin.Engine {
	gin.SetMode(gin.TestMode)
	m := NewAuthMiddleware(jwt, auth.NewAuthorizationService(users, zerolog.Nop()), "session", zerolog.Nop())
	r := gin.New()
	r.Use(m.ResolveActor())
	r.GET("/open", func(c *gin.Context) {
		c.JSON(http.StatusOK, ActorFrom(c))
	})
	r.GET("/closed", m.JWTAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetInt64(UserIDKey)})
	})
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorDetail {
	t.Helper()
	var body struct {
		Error dto.ErrorDetail `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestAuthMiddleware(t *testing.T) {
	organizer := &models.User{ID: 1, Username: "org", RoleType: models.RoleOrganizer, IsActive: true}
	disabled := &models.User{ID: 2, Username: "gone", RoleType: models.RoleVolunteer}
	users := userMap{1: organizer, 2: disabled}
	jwt := newJWT(time.Hour)
	r := setupRouter(jwt, users)

	token := func(u *models.User) string {
		pair, err := jwt.GenerateTokenPair(u)
		require.NoError(t, err)
		return pair.AccessToken
	}

	t.Run("bearer header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/closed", nil)
		req.Header.Set("Authorization", "Bearer "+token(organizer))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"userID":1}`, w.Body.String())
	})

	t.Run("session cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: token(organizer)})
		r.ServeHTTP(w, req)
		var actor auth.Actor
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actor))
		assert.Equal(t, int64(1), actor.UserID)
		assert.True(t, actor.IsOrganizer)
	})

	t.Run("anonymous passes open routes", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/closed", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeUnauthorized, decodeError(t, w).Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/closed", nil)
		req.Header.Set("Authorization", "Bearer nope")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeInvalidToken, decodeError(t, w).Code)
	})

	t.Run("disabled account", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/closed", nil)
		req.Header.Set("Authorization", "Bearer "+token(disabled))
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeAccountDisabled, decodeError(t, w).Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := newJWT(-time.Minute)
		pair, err := expired.GenerateTokenPair(organizer)
		require.NoError(t, err)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/closed", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrorCodeExpiredToken, decodeError(t, w).Code)
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   dto.ErrorCode
	}{
		{apperrors.NewValidationError(map[string]string{"title": "required"}), http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{apperrors.ErrUnauthenticated, http.StatusUnauthorized, dto.ErrorCodeUnauthorized},
		{apperrors.NewForbiddenError("not yours"), http.StatusForbidden, dto.ErrorCodeForbidden},
		{fmt.Errorf("lookup: %w", apperrors.ErrApplicationNotFound), http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{apperrors.ErrActionFull, http.StatusConflict, dto.ErrorCodeActionFull},
		{apperrors.ErrActionOccurred, http.StatusConflict, dto.ErrorCodeActionOccurred},
		{apperrors.ErrOwnAction, http.StatusConflict, dto.ErrorCodeOwnAction},
		{apperrors.ErrInvalidTransition, http.StatusConflict, dto.ErrorCodeInvalidTransition},
		{apperrors.ErrEmailAlreadyExists, http.StatusConflict, dto.ErrorCodeResourceAlreadyExists},
		{fmt.Errorf("boom"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, detail := StatusFor(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, detail.Code)
		})
	}

	_, detail := StatusFor(apperrors.NewValidationError(map[string]string{"title": "Title is required"}))
	assert.Equal(t, map[string]string{"title": "Title is required"}, detail.Details)

	_, detail = StatusFor(apperrors.NewForbiddenError("You can only manage actions you organize."))
	assert.Equal(t, "You can only manage actions you organize.", detail.Details)
}

func TestParseIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/actions/:id", func(c *gin.Context) {
		id, ok := ParseIDParam(c, "id")
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/actions/12", nil))
	assert.JSONEq(t, `{"id":12}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/actions/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
