package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/clearview-consulting/backend/cache"
	"github.com/clearview-consulting/backend/config"
	"github.com/clearview-consulting/backend/models"
	"github.com/clearview-consulting/backend/validators"
)

type AdminController struct {
	db    *gorm.DB
	env   *config.Env
	cache cache.Store
}

func NewAdminController(db *gorm.DB, env *config.Env, store cache.Store) *AdminController {
	return &AdminController{
		db:    db,
		env:   env,
		cache: store,
	}
}

// LogoutAll locks out every non-privileged identity in one bulk update. The
// admin account is excluded by the WHERE predicate, never touched.
func (adc *AdminController) LogoutAll(c *gin.Context) {
	lockedUntil := time.Now().Add(adc.env.MassLogoutDuration)
	txID := uuid.New().String()

	tx := adc.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var emails []string
	if err := tx.Model(&models.User{}).
		Where("role <> ?", models.RoleAdmin).
		Pluck("email", &emails).Error; err != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Mass logout failed", nil, "Database error")
		return
	}

	result := tx.Model(&models.User{}).
		Where("role <> ?", models.RoleAdmin).
		Updates(map[string]interface{}{
			"locked_until":          lockedUntil,
			"last_logout":           time.Now(),
			"logout_count":          gorm.Expr("logout_count + 1"),
			"logout_reason":         "admin_mass_logout",
			"logout_transaction_id": txID,
			"refresh_token_id":      "",
		})
	if result.Error != nil {
		tx.Rollback()
		sendResponse(c, http.StatusInternalServerError, "Mass logout failed", nil, "Database error")
		return
	}

	if err := tx.Commit().Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Mass logout failed", nil, "Failed to commit transaction")
		return
	}

	adc.cache.InvalidateAggregates(c.Request.Context())

	slog.Info("administrative mass logout",
		"affected", result.RowsAffected, "locked_until", lockedUntil, "transaction_id", txID)

	sendResponse(c, http.StatusOK, "All users logged out", map[string]interface{}{
		"affected_users": result.RowsAffected,
		"duration":       adc.env.MassLogoutDuration.String(),
		"locked_until":   lockedUntil,
		"timestamp":      time.Now(),
		"transaction_id": txID,
		"emails":         emails,
	}, nil)
}

// ListUsers returns all identities, read through the aggregate cache.
func (adc *AdminController) ListUsers(c *gin.Context) {
	if cached, ok := adc.cache.Get(c.Request.Context(), cache.UsersListKey); ok {
		sendResponse(c, http.StatusOK, "Users retrieved", cached, nil)
		return
	}

	var users []models.User
	if err := adc.db.Order("created_at DESC").Find(&users).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch users", nil, "Database error")
		return
	}

	list := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		list = append(list, map[string]interface{}{
			"id":           u.ID,
			"email":        u.Email,
			"full_name":    u.FullName,
			"role":         u.Role,
			"active":       u.IsActive,
			"locked_until": u.LockedUntil,
			"last_login":   u.LastLogin,
			"login_count":  u.LoginCount,
			"created_at":   u.CreatedAt,
		})
	}

	payload := map[string]interface{}{"users": list, "total": len(list)}
	adc.cache.Set(c.Request.Context(), cache.UsersListKey, payload)

	sendResponse(c, http.StatusOK, "Users retrieved", payload, nil)
}

// GetStats returns aggregate identity counts, read through the cache.
func (adc *AdminController) GetStats(c *gin.Context) {
	if cached, ok := adc.cache.Get(c.Request.Context(), cache.UsersStatsKey); ok {
		sendResponse(c, http.StatusOK, "Stats retrieved", cached, nil)
		return
	}

	var total, active, locked int64
	if err := adc.db.Model(&models.User{}).Count(&total).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch stats", nil, "Database error")
		return
	}
	adc.db.Model(&models.User{}).Where("is_active = ?", true).Count(&active)
	adc.db.Model(&models.User{}).Where("locked_until > ?", time.Now()).Count(&locked)

	payload := map[string]interface{}{
		"total_users":  total,
		"active_users": active,
		"locked_users": locked,
		"generated_at": time.Now(),
	}
	adc.cache.Set(c.Request.Context(), cache.UsersStatsKey, payload)

	sendResponse(c, http.StatusOK, "Stats retrieved", payload, nil)
}

// CreateUser provisions an account without a password. The user completes
// setup through the password reset flow; until then login reports that a
// reset is required.
func (adc *AdminController) CreateUser(c *gin.Context) {
	var req validators.CreateUserRequest
	if !validators.BindAndValidate(c, &req) {
		return
	}

	user := models.User{
		Email:    strings.ToLower(req.Email),
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     models.RoleUser,
		IsActive: true,
	}

	if err := models.EnsureAdminInvariant(&user, adc.env.AdminEmail, models.AdminMutation{}); err != nil {
		sendResponse(c, http.StatusConflict, "User creation failed", nil, "This email address is reserved")
		return
	}

	if err := adc.db.Create(&user).Error; err != nil {
		sendResponse(c, http.StatusConflict, "User creation failed", nil, "A user with this email may already exist")
		return
	}

	adc.cache.InvalidateAggregates(c.Request.Context())

	sendResponse(c, http.StatusCreated, "User provisioned", map[string]interface{}{
		"id":                      user.ID,
		"email":                   user.Email,
		"requires_password_reset": true,
	}, nil)
}

// SetUserStatus toggles the active flag. Rejected for the admin account.
func (adc *AdminController) SetUserStatus(c *gin.Context) {
	user, ok := adc.findUserParam(c)
	if !ok {
		return
	}

	var req validators.StatusChangeRequest
	if !validators.BindAndValidate(c, &req) {
		return
	}

	m := models.AdminMutation{Deactivate: !*req.Active}
	if err := models.EnsureAdminInvariant(user, adc.env.AdminEmail, m); err != nil {
		sendResponse(c, http.StatusForbidden, "Status change rejected", nil, err.Error())
		return
	}

	if err := adc.db.Model(user).Update("is_active", *req.Active).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Status change failed", nil, "Database error")
		return
	}

	adc.cache.Invalidate(c.Request.Context(), user.ID)

	sendResponse(c, http.StatusOK, "User status updated", map[string]interface{}{
		"id":     user.ID,
		"active": *req.Active,
	}, nil)
}

// SetUserRole changes the role. Demoting the admin or promoting a second
// account to admin is rejected by the invariant validator.
func (adc *AdminController) SetUserRole(c *gin.Context) {
	user, ok := adc.findUserParam(c)
	if !ok {
		return
	}

	var req validators.RoleChangeRequest
	if !validators.BindAndValidate(c, &req) {
		return
	}

	if err := models.EnsureAdminInvariant(user, adc.env.AdminEmail, models.AdminMutation{NewRole: req.Role}); err != nil {
		sendResponse(c, http.StatusForbidden, "Role change rejected", nil, err.Error())
		return
	}

	if err := adc.db.Model(user).Update("role", req.Role).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Role change failed", nil, "Database error")
		return
	}

	adc.cache.Invalidate(c.Request.Context(), user.ID)

	sendResponse(c, http.StatusOK, "User role updated", map[string]interface{}{
		"id":   user.ID,
		"role": req.Role,
	}, nil)
}

// DeleteUser removes an account. Always rejected for the admin account.
func (adc *AdminController) DeleteUser(c *gin.Context) {
	user, ok := adc.findUserParam(c)
	if !ok {
		return
	}

	if err := models.EnsureAdminInvariant(user, adc.env.AdminEmail, models.AdminMutation{Delete: true}); err != nil {
		sendResponse(c, http.StatusForbidden, "Deletion rejected", nil, err.Error())
		return
	}

	if err := adc.db.Delete(user).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Deletion failed", nil, "Database error")
		return
	}

	adc.cache.Invalidate(c.Request.Context(), user.ID)

	sendResponse(c, http.StatusOK, "User deleted", map[string]interface{}{"id": user.ID}, nil)
}

// SetMaintenance toggles maintenance mode. While enabled, standard-role
// logins are rejected; the admin can still authenticate.
func (adc *AdminController) SetMaintenance(c *gin.Context) {
	var req validators.MaintenanceRequest
	if !validators.BindAndValidate(c, &req) {
		return
	}

	adc.env.SetMaintenanceMode(*req.Enabled)
	slog.Info("maintenance mode changed", "enabled", *req.Enabled)

	sendResponse(c, http.StatusOK, "Maintenance mode updated", map[string]interface{}{
		"enabled": *req.Enabled,
	}, nil)
}

func (adc *AdminController) findUserParam(c *gin.Context) (*models.User, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		sendResponse(c, http.StatusBadRequest, "Invalid user id", nil, "id must be numeric")
		return nil, false
	}

	var user models.User
	if err := adc.db.First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sendResponse(c, http.StatusNotFound, "User not found", nil, "User does not exist")
			return nil, false
		}
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch user", nil, "Database error")
		return nil, false
	}

	return &user, true
}
