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

type UserController struct {
	db     *gorm.DB
	env    *config.Env
	cache  cache.Store
	mailer utils.Mailer
}

func NewUserController(db *gorm.DB, env *config.Env, store cache.Store, mailer utils.Mailer) *UserController {
	return &UserController{
		db:     db,
		env:    env,
		cache:  store,
		mailer: mailer,
	}
}

const resetTokenTTL = time.Hour

// GetCurrentUser returns the authenticated user's profile, read through the
// identity cache.
func (uc *UserController) GetCurrentUser(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		sendResponse(c, http.StatusUnauthorized, "Not authenticated", nil, "User not found in context")
		return
	}

	key := cache.UserKey(claims.UserID)
	if cached, ok := uc.cache.Get(c.Request.Context(), key); ok {
		sendResponse(c, http.StatusOK, "User details retrieved", cached, nil)
		return
	}

	var user models.User
	if err := uc.db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendResponse(c, http.StatusNotFound, "User not found", nil, "User does not exist")
			return
		}
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch user", nil, "Database error")
		return
	}

	payload := map[string]interface{}{
		"id":          user.ID,
		"email":       user.Email,
		"full_name":   user.FullName,
		"phone":       user.Phone,
		"role":        user.Role,
		"active":      user.IsActive,
		"last_login":  user.LastLogin,
		"login_count": user.LoginCount,
		"created_at":  user.CreatedAt,
	}
	uc.cache.Set(c.Request.Context(), key, payload)

	sendResponse(c, http.StatusOK, "User details retrieved", payload, nil)
}

// UpdatePassword changes the password after re-verifying the current one.
func (uc *UserController) UpdatePassword(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		sendResponse(c, http.StatusUnauthorized, "Not authenticated", nil, "User not found in context")
		return
	}

	var req validators.UpdatePasswordRequest
	if !validators.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := uc.db.First(&user, claims.UserID).Error; err != nil {
		sendResponse(c, http.StatusNotFound, "User not found", nil, "User does not exist")
		return
	}

	if user.PasswordHash == "" {
		sendAuthError(c, "Password update failed", auth.ErrPasswordResetRequired())
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		sendAuthError(c, "Password update failed", auth.ErrInvalidCredentials())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Password update failed", nil, "Failed to process password")
		return
	}

	if err := uc.db.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Password update failed", nil, "Database error")
		return
	}

	uc.cache.Invalidate(c.Request.Context(), user.ID)

	sendResponse(c, http.StatusOK, "Password updated successfully", nil, nil)
}

// ForgotPassword issues a reset token and mails it. The response is the
// same whether or not the address exists.
func (uc *UserController) ForgotPassword(c *gin.Context) {
	var req validators.ForgotPasswordRequest
	if !validators.BindAndValidate(c, &req) {
		return
	}

	email := strings.ToLower(req.Email)

	var user models.User
	if err := uc.db.Where("email = ?", email).First(&user).Error; err == nil {
		token := uuid.New().String()
		expires := time.Now().Add(resetTokenTTL)

		if err := uc.db.Model(&user).Updates(map[string]interface{}{
			"reset_token":            token,
			"reset_token_expires_at": expires,
		}).Error; err == nil {
			uc.cache.Invalidate(c.Request.Context(), user.ID)
			if err := uc.mailer.SendPasswordResetEmail(user.Email, token); err != nil {
				slog.Error("failed to send password reset email", "email", user.Email, "error", err)
			}
		}
	}

	sendResponse(c, http.StatusOK, "If that email address exists, a reset link has been sent", nil, nil)
}

// ResetPassword completes the reset flow and sets a new password. Also the
// only way for admin-provisioned accounts to obtain their first password.
func (uc *UserController) ResetPassword(c *gin.Context) {
	var req validators.ResetPasswordRequest
	if !validators.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := uc.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		sendResponse(c, http.StatusBadRequest, "Password reset failed", nil, "Invalid or expired reset token")
		return
	}

	if user.ResetToken == "" || user.ResetToken != req.Token ||
		user.ResetTokenExpiresAt == nil || user.ResetTokenExpiresAt.Before(time.Now()) {
		sendResponse(c, http.StatusBadRequest, "Password reset failed", nil, "Invalid or expired reset token")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		sendResponse(c, http.StatusInternalServerError, "Password reset failed", nil, "Failed to process password")
		return
	}

	if err := uc.db.Model(&user).Updates(map[string]interface{}{
		"password_hash":          string(hash),
		"reset_token":            "",
		"reset_token_expires_at": nil,
		"refresh_token_id":       "",
	}).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Password reset failed", nil, "Database error")
		return
	}

	uc.cache.Invalidate(c.Request.Context(), user.ID)

	sendResponse(c, http.StatusOK, "Password has been reset. You can now log in", nil, nil)
}
