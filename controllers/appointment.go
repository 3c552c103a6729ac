package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clearview-consulting/backend/auth"
	"github.com/clearview-consulting/backend/cache"
	"github.com/clearview-consulting/backend/models"
	"github.com/clearview-consulting/backend/validators"
)

type AppointmentController struct {
	db    *gorm.DB
	cache cache.Store
}

func NewAppointmentController(db *gorm.DB, store cache.Store) *AppointmentController {
	return &AppointmentController{db: db, cache: store}
}

// Create books a consultation slot for the authenticated user.
func (apc *AppointmentController) Create(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		sendResponse(c, http.StatusUnauthorized, "Not authenticated", nil, "User not found in context")
		return
	}

	var req validators.AppointmentRequest
	if !validators.BindAndValidate(c, &req) {
		return
	}

	slot, err := time.Parse(time.RFC3339, req.SlotTime)
	if err != nil {
		sendResponse(c, http.StatusBadRequest, "Booking failed", nil, "slot_time must be RFC3339")
		return
	}
	if !slot.After(time.Now()) {
		sendResponse(c, http.StatusBadRequest, "Booking failed", nil, "slot_time must be in the future")
		return
	}

	appt := models.Appointment{
		UserID:   claims.UserID,
		SlotTime: slot,
		Topic:    req.Topic,
		Notes:    req.Notes,
		Status:   models.AppointmentPending,
	}

	if err := apc.db.Create(&appt).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Booking failed", nil, "Database error")
		return
	}

	apc.cache.Invalidate(c.Request.Context(), claims.UserID)

	sendResponse(c, http.StatusCreated, "Appointment booked", map[string]interface{}{
		"id":        appt.ID,
		"slot_time": appt.SlotTime,
		"topic":     appt.Topic,
		"status":    appt.Status,
	}, nil)
}

// ListMine returns the authenticated user's appointments, read through the
// cache.
func (apc *AppointmentController) ListMine(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		sendResponse(c, http.StatusUnauthorized, "Not authenticated", nil, "User not found in context")
		return
	}

	key := cache.AppointmentsKey(claims.UserID)
	if cached, ok := apc.cache.Get(c.Request.Context(), key); ok {
		sendResponse(c, http.StatusOK, "Appointments retrieved", cached, nil)
		return
	}

	var appts []models.Appointment
	if err := apc.db.Where("user_id = ?", claims.UserID).
		Order("slot_time ASC").Find(&appts).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch appointments", nil, "Database error")
		return
	}

	list := make([]map[string]interface{}, 0, len(appts))
	for _, a := range appts {
		list = append(list, map[string]interface{}{
			"id":        a.ID,
			"slot_time": a.SlotTime,
			"topic":     a.Topic,
			"notes":     a.Notes,
			"status":    a.Status,
		})
	}

	payload := map[string]interface{}{"appointments": list, "total": len(list)}
	apc.cache.Set(c.Request.Context(), key, payload)

	sendResponse(c, http.StatusOK, "Appointments retrieved", payload, nil)
}

// Cancel marks one of the user's own appointments cancelled.
func (apc *AppointmentController) Cancel(c *gin.Context) {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		sendResponse(c, http.StatusUnauthorized, "Not authenticated", nil, "User not found in context")
		return
	}

	result := apc.db.Model(&models.Appointment{}).
		Where("id = ? AND user_id = ? AND status <> ?", c.Param("id"), claims.UserID, models.AppointmentCancelled).
		Update("status", models.AppointmentCancelled)
	if result.Error != nil {
		sendResponse(c, http.StatusInternalServerError, "Cancellation failed", nil, "Database error")
		return
	}
	if result.RowsAffected == 0 {
		sendResponse(c, http.StatusNotFound, "Cancellation failed", nil, "Appointment not found")
		return
	}

	apc.cache.Invalidate(c.Request.Context(), claims.UserID)

	sendResponse(c, http.StatusOK, "Appointment cancelled", nil, nil)
}
