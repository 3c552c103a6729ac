package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clearview-consulting/backend/models"
	"github.com/clearview-consulting/backend/validators"
)

type ContactController struct {
	db *gorm.DB
}

func NewContactController(db *gorm.DB) *ContactController {
	return &ContactController{db: db}
}

// Submit accepts a contact-form message. Public, no authentication.
func (cc *ContactController) Submit(c *gin.Context) {
	var req validators.ContactRequest
	if !validators.BindAndValidate(c, &req) {
		return
	}

	msg := models.ContactMessage{
		Name:    req.Name,
		Email:   strings.ToLower(req.Email),
		Subject: req.Subject,
		Message: req.Message,
	}

	if err := cc.db.Create(&msg).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to submit message", nil, "Database error")
		return
	}

	sendResponse(c, http.StatusCreated, "Message received. We will get back to you shortly", map[string]interface{}{
		"id": msg.ID,
	}, nil)
}

// List returns all contact messages, newest first. Admin only.
func (cc *ContactController) List(c *gin.Context) {
	var msgs []models.ContactMessage
	if err := cc.db.Order("created_at DESC").Find(&msgs).Error; err != nil {
		sendResponse(c, http.StatusInternalServerError, "Failed to fetch messages", nil, "Database error")
		return
	}

	sendResponse(c, http.StatusOK, "Messages retrieved", map[string]interface{}{
		"messages": msgs,
		"total":    len(msgs),
	}, nil)
}

// MarkHandled flags a message as dealt with. Admin only.
func (cc *ContactController) MarkHandled(c *gin.Context) {
	result := cc.db.Model(&models.ContactMessage{}).
		Where("id = ?", c.Param("id")).
		Update("handled", true)
	if result.Error != nil {
		sendResponse(c, http.StatusInternalServerError, "Update failed", nil, "Database error")
		return
	}
	if result.RowsAffected == 0 {
		sendResponse(c, http.StatusNotFound, "Update failed", nil, "Message not found")
		return
	}

	sendResponse(c, http.StatusOK, "Message marked as handled", nil, nil)
}
