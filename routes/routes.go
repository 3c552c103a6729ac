package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/clearview-consulting/backend/auth"
	"github.com/clearview-consulting/backend/controllers"
	"github.com/clearview-consulting/backend/models"
)

// Controllers bundles everything SetupRoutes wires up.
type Controllers struct {
	Auth         *controllers.AuthController
	User         *controllers.UserController
	Admin        *controllers.AdminController
	Appointments *controllers.AppointmentController
	Contact      *controllers.ContactController
}

func SetupRoutes(router *gin.Engine, tm *auth.TokenManager, ctrl Controllers) {
	requireAuth := auth.RequireAuth(tm)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", ctrl.Auth.Register)
		authGroup.POST("/login", ctrl.Auth.Login)
		authGroup.POST("/refresh", ctrl.Auth.Refresh)
		authGroup.POST("/logout", requireAuth, ctrl.Auth.Logout)
		authGroup.GET("/me", requireAuth, ctrl.User.GetCurrentUser)
		authGroup.POST("/update-password", requireAuth, ctrl.User.UpdatePassword)
		authGroup.POST("/forgot-password", ctrl.User.ForgotPassword)
		authGroup.POST("/reset-password", ctrl.User.ResetPassword)
	}

	admin := router.Group("/admin", requireAuth, adminOnly)
	{
		admin.POST("/logout-all", ctrl.Admin.LogoutAll)
		admin.GET("/users", ctrl.Admin.ListUsers)
		admin.GET("/stats", ctrl.Admin.GetStats)
		admin.POST("/users", ctrl.Admin.CreateUser)
		admin.PATCH("/users/:id/status", ctrl.Admin.SetUserStatus)
		admin.PATCH("/users/:id/role", ctrl.Admin.SetUserRole)
		admin.DELETE("/users/:id", ctrl.Admin.DeleteUser)
		admin.PUT("/maintenance", ctrl.Admin.SetMaintenance)
		admin.GET("/contact-messages", ctrl.Contact.List)
		admin.PATCH("/contact-messages/:id", ctrl.Contact.MarkHandled)
	}

	appointments := router.Group("/appointments", requireAuth)
	{
		appointments.POST("", ctrl.Appointments.Create)
		appointments.GET("", ctrl.Appointments.ListMine)
		appointments.POST("/:id/cancel", ctrl.Appointments.Cancel)
	}

	router.POST("/contact", ctrl.Contact.Submit)
}
