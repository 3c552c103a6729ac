package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/clearview-consulting/backend/auth"
	"github.com/clearview-consulting/backend/cache"
	"github.com/clearview-consulting/backend/config"
	"github.com/clearview-consulting/backend/models"
	"github.com/clearview-consulting/backend/utils"
	"github.com/clearview-consulting/backend/validators"
)

type AuthController struct {
	db       *gorm.DB
	env      *config.Env
	tokens   *auth.TokenManager
	throttle auth.Throttle
	cache    cache.Store
}

type AuthResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

func NewAuthController(db *gorm.DB, env *config.Env, tokens *auth.TokenManager, throttle auth.Throttle, store cache.Store) *AuthController {
	return &AuthController{
		db:       db,
		env:      env,
		tokens:   tokens,
		throttle: throttle,
		cache:    store,
	}
}

// sendResponse is a helper function to send consistent JSON responses
func sendResponse(c *gin.Context, status int, message string, data interface{}, err interface{}) {
	c.JSON(status, AuthResponse{
		Status:  status,
		Message: message,
		Data:    data,
		Error:   err,
	})
}

// sendAuthError serializes a coded auth error in the standard envelope.
func sendAuthError(c *gin.Context, message string, err *auth.Error) {
	c.JSON(err.Status, AuthResponse{
		Status:  err.Status,
		Message: message,
		Error:   err,
	})
}

// Register handles user registration
func (ac *AuthController) Register(c *gin.Context) {
	req, ok := validators.ValidateRegisterRequest(c)
	if !ok {
		return
	}

	email := strings.ToLower(req.Email)

	tx := ac.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var existingUser models.User
	if err := tx.Where("email = ?", email).First(&existingUser).Error; err == nil {
		tx.Rollback()
		sendResponse(c, http.StatusConflict, "Registration failed", nil, map[string]string{
			"field":   "email",
			"message": "A user with this email already exists",
		})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Internal server error", nil, "Database error")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Registration failed", nil, "Failed to process password")
		return
	}

	user := models.User{
		Email:        email,
		FullName:     req.FullName,
		Phone:        req.Phone,
		PasswordHash: string(hashedPassword),
		Role:         models.RoleUser,
		IsActive:     true,
	}

	if err := models.EnsureAdminInvariant(&user, ac.env.AdminEmail, models.AdminMutation{}); err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusConflict, "Registration failed", nil, "This email address is reserved")
		return
	}

	if err := tx.Create(&user).Error; err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Registration failed", nil, "Failed to create user")
		return
	}

	if err := tx.Commit().Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Registration failed", nil, "Failed to commit transaction")
		return
	}

	ac.cache.InvalidateAggregates(c.Request.Context())

	sendResponse(c, http.StatusCreated, "User registered successfully", map[string]interface{}{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
	}, nil)
}

// verifyCredentials looks up the identity by email and checks the password
// plus account state. The privileged account bypasses every check except
// invalid credentials. No side effects; the caller updates login bookkeeping.
func (ac *AuthController) verifyCredentials(tx *gorm.DB, email, password string) (*models.User, *auth.Error) {
	var user models.User
	if err := tx.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidCredentials()
		}
		return nil, &auth.Error{
			Code:    "INTERNAL",
			Message: "Database error",
			Status:  http.StatusInternalServerError,
		}
	}

	if user.Role == models.RoleAdmin {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return nil, auth.ErrInvalidCredentials()
		}
		return &user, nil
	}

	// Provisioned accounts have no password yet; they must go through the
	// reset flow before the hash comparison can mean anything.
	if user.PasswordHash == "" {
		return nil, auth.ErrPasswordResetRequired()
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, auth.ErrInvalidCredentials()
	}

	if !user.IsActive {
		return nil, auth.ErrAccountDisabled()
	}

	now := time.Now()
	if user.IsLockedOut(now) {
		return nil, auth.ErrLockedOut(user.LockedUntil.Sub(now))
	}

	if ac.env.MaintenanceMode() {
		return nil, auth.ErrMaintenanceMode()
	}

	return &user, nil
}

// Login handles user authentication
func (ac *AuthController) Login(c *gin.Context) {
	req, ok := validators.ValidateLoginRequest(c)
	if !ok {
		return
	}

	email := strings.ToLower(req.Email)

	// Throttle gates verification; allowed attempts are counted up front
	// and the counter only resets on success.
	if err := ac.throttle.Attempt(c.Request.Context(), email); err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			sendAuthError(c, "Login failed", authErr)
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Throttle error")
		return
	}

	tx := ac.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	user, authErr := ac.verifyCredentials(tx, email, req.Password)
	if authErr != nil {
		tx.Rollback()
		sendAuthError(c, "Login failed", authErr)
		return
	}

	sessionStart := time.Now()
	pair, err := ac.tokens.IssuePair(user, sessionStart)
	if err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to issue tokens")
		return
	}

	if err := tx.Model(user).Updates(map[string]interface{}{
		"last_login":       sessionStart,
		"login_count":      gorm.Expr("login_count + 1"),
		"refresh_token_id": pair.RefreshTokenID,
	}).Error; err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to update user")
		return
	}

	event := models.LoginEvent{
		UserID:    user.ID,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Location:  utils.GetIPLocation(c.ClientIP()),
	}
	if err := tx.Create(&event).Error; err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to record login")
		return
	}

	if err := tx.Commit().Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Login failed", nil, "Failed to commit transaction")
		return
	}

	ac.throttle.Reset(c.Request.Context(), email)
	ac.cache.Invalidate(c.Request.Context(), user.ID)

	auth.SetAuthCookies(c, pair, ac.env.CookiePath)

	sendResponse(c, http.StatusOK, "Login successful", map[string]interface{}{
		"user": map[string]interface{}{
			"id":        user.ID,
			"email":     user.Email,
			"full_name": user.FullName,
			"role":      user.Role,
		},
		"expires_at": pair.AccessExpiresAt,
	}, nil)
}

// Refresh rotates the credential pair. Any failure clears both cookies and
// reports session_expired so the client re-authenticates cleanly.
func (ac *AuthController) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(auth.RefreshCookie)
	if err != nil || refreshToken == "" {
		ac.expireSession(c, "No refresh token")
		return
	}

	claims, err := ac.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		ac.expireSession(c, "Session expired")
		return
	}

	var user models.User
	if err := ac.db.First(&user, claims.UserID).Error; err != nil {
		ac.expireSession(c, "Session expired")
		return
	}

	sessionStart := time.Unix(claims.SessionStart, 0)
	pair, err := ac.tokens.IssuePair(&user, sessionStart)
	if err != nil {
		ac.expireSession(c, "Session expired")
		return
	}

	// Single-use rotation: swap the stored jti only if the presented
	// credential is still the current one. Two concurrent refreshes with
	// the same credential race on this update; exactly one wins.
	result := ac.db.Model(&models.User{}).
		Where("id = ? AND refresh_token_id = ?", user.ID, claims.ID).
		Update("refresh_token_id", pair.RefreshTokenID)
	if result.Error != nil || result.RowsAffected == 0 {
		slog.Warn("refresh token replay or conflict", "user_id", user.ID)
		ac.expireSession(c, "Session expired")
		return
	}

	auth.SetAuthCookies(c, pair, ac.env.CookiePath)

	sendResponse(c, http.StatusOK, "Token refreshed", map[string]interface{}{
		"expires_at": pair.AccessExpiresAt,
	}, nil)
}

func (ac *AuthController) expireSession(c *gin.Context, message string) {
	auth.ClearAuthCookies(c, ac.env.CookiePath)
	c.JSON(http.StatusUnauthorized, AuthResponse{
		Status:  http.StatusUnauthorized,
		Message: message,
		Data:    map[string]interface{}{"session_expired": true},
	})
}

// Logout records the logout event and tells the client to drop both
// cookies. The stored refresh jti is cleared, so the session cannot be
// extended; an unexpired access token stays valid until its own expiry.
func (ac *AuthController) Logout(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		sendResponse(c, http.StatusUnauthorized, "Logout failed", nil, "No session found")
		return
	}

	txID := uuid.New().String()
	now := time.Now()

	result := ac.db.Model(&models.User{}).
		Where("id = ?", claims.UserID).
		Updates(map[string]interface{}{
			"last_logout":           now,
			"logout_count":          gorm.Expr("logout_count + 1"),
			"logout_reason":         "user_logout",
			"logout_transaction_id": txID,
			"refresh_token_id":      "",
		})
	if result.Error != nil {
		sendResponse(c, http.StatusInternalServerError, "Logout failed", nil, "Failed to record logout")
		return
	}
	if result.RowsAffected == 0 {
		sendResponse(c, http.StatusBadRequest, "Logout failed", nil, "Invalid session")
		return
	}

	ac.cache.Invalidate(c.Request.Context(), claims.UserID)
	auth.ClearAuthCookies(c, ac.env.CookiePath)

	sendResponse(c, http.StatusOK, "Logged out successfully", map[string]interface{}{
		"transaction_id": txID,
	}, nil)
}
