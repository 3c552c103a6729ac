package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clearview-consulting/backend/auth"
	"github.com/clearview-consulting/backend/cache"
	"github.com/clearview-consulting/backend/config"
	"github.com/clearview-consulting/backend/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	// Every sqlite :memory: connection is its own database; pin the pool
	// to a single connection so all queries see the same data.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func newTestEnv() *config.Env {
	return &config.Env{
		AdminEmail:         "admin@clearview-consulting.com",
		CookiePath:         "/",
		AccessTokenTTL:     15 * time.Minute,
		SessionLifetime:    30 * time.Minute,
		MassLogoutDuration: 24 * time.Hour,
	}
}

func TestRefreshRotatesAndRejectsReusedCredential(t *testing.T) {
	db := newTestDB(t)
	env := newTestEnv()
	tokens := auth.NewTokenManager("test-secret", env.AccessTokenTTL, env.SessionLifetime)

	user := models.User{Email: "eva@example.com", Role: models.RoleUser, IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	pair, err := tokens.IssuePair(&user, time.Now())
	require.NoError(t, err)
	require.NoError(t, db.Model(&user).Update("refresh_token_id", pair.RefreshTokenID).Error)

	ac := NewAuthController(db, env, tokens, auth.NewMemoryThrottle(5, 15*time.Minute), cache.NewMemoryStore(time.Minute))
	router := gin.New()
	router.POST("/auth/refresh", ac.Refresh)

	doRefresh := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
		req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: token})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := doRefresh(pair.RefreshToken)
	require.Equal(t, http.StatusOK, first.Code)

	var rotated models.User
	require.NoError(t, db.First(&rotated, user.ID).Error)
	require.NotEmpty(t, rotated.RefreshTokenID)
	require.NotEqual(t, pair.RefreshTokenID, rotated.RefreshTokenID)

	// The pre-rotation credential no longer matches the stored jti.
	second := doRefresh(pair.RefreshToken)
	require.Equal(t, http.StatusUnauthorized, second.Code)

	var body AuthResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, true, data["session_expired"])

	// The credential minted by the first rotation is still current.
	var next string
	for _, ck := range first.Result().Cookies() {
		if ck.Name == auth.RefreshCookie {
			next = ck.Value
		}
	}
	require.NotEmpty(t, next)
	require.Equal(t, http.StatusOK, doRefresh(next).Code)
}

func TestRefreshRejectsClearedCredential(t *testing.T) {
	db := newTestDB(t)
	env := newTestEnv()
	tokens := auth.NewTokenManager("test-secret", env.AccessTokenTTL, env.SessionLifetime)

	user := models.User{Email: "eva@example.com", Role: models.RoleUser, IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	pair, err := tokens.IssuePair(&user, time.Now())
	require.NoError(t, err)
	// Logout clears the stored jti; a credential issued before that must
	// not bring the session back.
	require.NoError(t, db.Model(&user).Update("refresh_token_id", "").Error)

	ac := NewAuthController(db, env, tokens, auth.NewMemoryThrottle(5, 15*time.Minute), cache.NewMemoryStore(time.Minute))
	router := gin.New()
	router.POST("/auth/refresh", ac.Refresh)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: auth.RefreshCookie, Value: pair.RefreshToken})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}
