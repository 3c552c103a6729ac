package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/clearview-consulting/backend/auth"
	"github.com/clearview-consulting/backend/cache"
	"github.com/clearview-consulting/backend/config"
	"github.com/clearview-consulting/backend/controllers"
	"github.com/clearview-consulting/backend/database"
	"github.com/clearview-consulting/backend/routes"
	"github.com/clearview-consulting/backend/utils"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal("Error loading .env:", err)
	}

	pgClient, err := database.NewPostgresClient(env.DBHost, env.DBUser, env.DBPassword, env.DBName, env.DBPort)
	if err != nil {
		log.Fatal("Error connecting to database:", err)
	}

	if err := database.SeedAdmin(pgClient, env.AdminEmail, env.AdminPassword); err != nil {
		log.Fatal("Error seeding admin account:", err)
	}

	// Process-local stores by default; redis-backed when REDIS_ADDR is set
	// so multiple instances share throttle and cache state.
	var throttle auth.Throttle = auth.NewMemoryThrottle(env.MaxLoginAttempts, env.ThrottleWindow)
	var store cache.Store = cache.NewMemoryStore(cache.DefaultTTL)
	if env.RedisAddr != "" {
		redisClient, err := database.GetRedisClient(env.RedisAddr, env.RedisPass, env.RedisDB)
		if err != nil {
			log.Fatal("Error connecting to redis:", err)
		}
		throttle = auth.NewRedisThrottle(redisClient, env.MaxLoginAttempts, env.ThrottleWindow)
		store = cache.NewRedisStore(redisClient, cache.DefaultTTL)
	}

	tokenManager := auth.NewTokenManager(env.JWTSecret, env.AccessTokenTTL, env.SessionLifetime)

	var mailer utils.Mailer = utils.LogMailer{}
	if env.SMTPHost != "" {
		mailer = utils.NewSMTPMailer(env.SMTPHost, env.SMTPPort, env.SMTPFrom, env.SMTPPass)
	}

	ctrl := routes.Controllers{
		Auth:         controllers.NewAuthController(pgClient, env, tokenManager, throttle, store),
		User:         controllers.NewUserController(pgClient, env, store, mailer),
		Admin:        controllers.NewAdminController(pgClient, env, store),
		Appointments: controllers.NewAppointmentController(pgClient, store),
		Contact:      controllers.NewContactController(pgClient),
	}

	r := gin.Default()
	routes.SetupRoutes(r, tokenManager, ctrl)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if err := r.Run(":" + env.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
