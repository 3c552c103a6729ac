package validators

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
}

type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

type ValidationResponse struct {
	Errors []ValidationError `json:"errors"`
}

func Validate(data interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := validate.Struct(data)
	if err != nil {
		if errors, ok := err.(validator.ValidationErrors); ok {
			for _, e := range errors {
				validationErrors = append(validationErrors, ValidationError{
					Field: e.Field(),
					Tag:   e.Tag(),
					Value: e.Param(),
				})
			}
		}
	}

	return validationErrors
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email" binding:"required,email"`
	Password string `json:"password" validate:"required,min=8" binding:"required,min=8"`
	FullName string `json:"full_name" validate:"required" binding:"required"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" binding:"required,email"`
	Password string `json:"password" validate:"required" binding:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required" binding:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8" binding:"required,min=8"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email" binding:"required,email"`
	Token       string `json:"token" validate:"required" binding:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8" binding:"required,min=8"`
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email" binding:"required,email"`
	FullName string `json:"full_name" validate:"required" binding:"required"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
}

type StatusChangeRequest struct {
	Active *bool `json:"active" validate:"required" binding:"required"`
}

type RoleChangeRequest struct {
	Role string `json:"role" validate:"required,oneof=admin user" binding:"required,oneof=admin user"`
}

type MaintenanceRequest struct {
	Enabled *bool `json:"enabled" validate:"required" binding:"required"`
}

type AppointmentRequest struct {
	SlotTime string `json:"slot_time" validate:"required" binding:"required"`
	Topic    string `json:"topic" validate:"required,max=200" binding:"required,max=200"`
	Notes    string `json:"notes" validate:"omitempty,max=2000"`
}

type ContactRequest struct {
	Name    string `json:"name" validate:"required,max=100" binding:"required,max=100"`
	Email   string `json:"email" validate:"required,email" binding:"required,email"`
	Subject string `json:"subject" validate:"omitempty,max=200"`
	Message string `json:"message" validate:"required,max=5000" binding:"required,max=5000"`
}

// BindAndValidate binds the JSON body into req and runs struct validation,
// writing the error response itself on failure.
func BindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request payload",
		})
		return false
	}

	if errs := Validate(req); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, ValidationResponse{
			Errors: errs,
		})
		return false
	}

	return true
}

func ValidateRegisterRequest(c *gin.Context) (*RegisterRequest, bool) {
	var req RegisterRequest
	if !BindAndValidate(c, &req) {
		return nil, false
	}
	return &req, true
}

func ValidateLoginRequest(c *gin.Context) (*LoginRequest, bool) {
	var req LoginRequest
	if !BindAndValidate(c, &req) {
		return nil, false
	}
	return &req, true
}
