package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearview-consulting/backend/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type errorEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   struct {
		Code    string         `json:"code"`
		Context map[string]any `json:"context"`
	} `json:"error"`
}

func guardRequest(t *testing.T, tm *TokenManager, token string, extraRoles ...string) (*httptest.ResponseRecorder, *errorEnvelope) {
	t.Helper()

	router := gin.New()
	handlers := []gin.HandlerFunc{RequireAuth(tm)}
	if len(extraRoles) > 0 {
		handlers = append(handlers, RequireRole(extraRoles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"uid": claims.UserID, "email": claims.Email, "role": claims.Role})
	})
	router.GET("/protected", handlers...)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: AccessCookie, Value: token})
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, &env
}

func TestRequireAuthNoCredential(t *testing.T) {
	tm, _ := newTestTokenManager()
	w, env := guardRequest(t, tm, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeSessionInvalid, env.Error.Code)
	assert.Equal(t, "Authentication required", env.Message)
}

func TestRequireAuthInvalidSignature(t *testing.T) {
	tm, now := newTestTokenManager()
	forger := NewTokenManager("attacker-secret", 15*time.Minute, 30*time.Minute)
	forger.now = tm.now
	pair, err := forger.IssuePair(testUser(), *now)
	require.NoError(t, err)

	w, env := guardRequest(t, tm, pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeTokenInvalid, env.Error.Code)
}

func TestRequireAuthExpired(t *testing.T) {
	tm, now := newTestTokenManager()
	pair, err := tm.IssuePair(testUser(), *now)
	require.NoError(t, err)

	*now = now.Add(16 * time.Minute)
	w, env := guardRequest(t, tm, pair.AccessToken)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeTokenExpired, env.Error.Code)
	assert.Equal(t, true, env.Error.Context["requiresRefresh"])
}

func TestRequireAuthInactiveSnapshot(t *testing.T) {
	tm, now := newTestTokenManager()
	user := testUser()
	user.IsActive = false
	pair, err := tm.IssuePair(user, *now)
	require.NoError(t, err)

	w, env := guardRequest(t, tm, pair.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, CodeAccountDisabled, env.Error.Code)
	assert.Equal(t, true, env.Error.Context["requiresAdmin"])
}

func TestRequireAuthWrongTokenType(t *testing.T) {
	tm, now := newTestTokenManager()
	pair, err := tm.IssuePair(testUser(), *now)
	require.NoError(t, err)

	// The refresh credential must not authorize requests.
	w, env := guardRequest(t, tm, pair.RefreshToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, CodeWrongTokenType, env.Error.Code)
}

func TestRequireAuthValidAttachesClaims(t *testing.T) {
	tm, now := newTestTokenManager()
	pair, err := tm.IssuePair(testUser(), *now)
	require.NoError(t, err)

	w, _ := guardRequest(t, tm, pair.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(42), body["uid"])
	assert.Equal(t, "a@b.com", body["email"])
	assert.Equal(t, models.RoleUser, body["role"])
}

func TestRequireAuthBearerFallback(t *testing.T) {
	tm, now := newTestTokenManager()
	pair, err := tm.IssuePair(testUser(), *now)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/protected", RequireAuth(tm), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleDeniesStandardUser(t *testing.T) {
	tm, now := newTestTokenManager()
	pair, err := tm.IssuePair(testUser(), *now)
	require.NoError(t, err)

	w, env := guardRequest(t, tm, pair.AccessToken, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, CodeInsufficientRole, env.Error.Code)
}

func TestRequireRoleAllowsMatchingRole(t *testing.T) {
	tm, now := newTestTokenManager()
	admin := testUser()
	admin.Role = models.RoleAdmin
	pair, err := tm.IssuePair(admin, *now)
	require.NoError(t, err)

	w, _ := guardRequest(t, tm, pair.AccessToken, models.RoleAdmin)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleEmptySetAllows(t *testing.T) {
	router := gin.New()
	router.GET("/open", RequireRole(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoleWithoutIdentityDenies(t *testing.T) {
	router := gin.New()
	router.GET("/admin", RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
