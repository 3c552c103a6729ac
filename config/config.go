package config

import (
	"fmt"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
)

// Env holds all runtime settings, loaded once at startup.
type Env struct {
	Port       string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr string
	RedisPass string
	RedisDB   int

	// JWTSecret signs both access and refresh credentials (HS256).
	JWTSecret string

	// AdminEmail is the reserved address of the single privileged account.
	// The account is seeded at startup and can never be deleted, disabled
	// or locked out.
	AdminEmail    string
	AdminPassword string

	AccessTokenTTL  time.Duration
	SessionLifetime time.Duration
	CookiePath      string

	MaxLoginAttempts int
	ThrottleWindow   time.Duration

	MassLogoutDuration time.Duration

	SMTPHost string
	SMTPPort string
	SMTPFrom string
	SMTPPass string

	maintenance atomic.Bool
}

// MaintenanceMode reports whether the service currently rejects
// standard-role logins.
func (e *Env) MaintenanceMode() bool {
	return e.maintenance.Load()
}

// SetMaintenanceMode toggles the maintenance flag. Safe for concurrent use.
func (e *Env) SetMaintenanceMode(on bool) {
	e.maintenance.Store(on)
}

// LoadEnv reads .env (if present) and the process environment into an Env.
// Missing optional values fall back to development defaults; DB credentials
// and the JWT secret are required.
func LoadEnv() (*Env, error) {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	env := &Env{
		Port:       getEnv("PORT", "3000"),
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     getEnv("DB_PORT", "5432"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@clearview-consulting.com"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		SessionLifetime: getDuration("SESSION_LIFETIME", 30*time.Minute),
		CookiePath:      getEnv("COOKIE_PATH", "/"),

		MaxLoginAttempts: getInt("MAX_LOGIN_ATTEMPTS", 5),
		ThrottleWindow:   getDuration("THROTTLE_WINDOW", 15*time.Minute),

		MassLogoutDuration: getDuration("MASS_LOGOUT_DURATION", 24*time.Hour),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPFrom: os.Getenv("SMTP_FROM"),
		SMTPPass: os.Getenv("SMTP_PASSWORD"),
	}
	env.RedisDB = getInt("REDIS_DB", 0)
	env.maintenance.Store(getBool("MAINTENANCE_MODE", false))

	if env.DBHost == "" || env.DBUser == "" || env.DBName == "" {
		return nil, fmt.Errorf("database configuration incomplete (DB_HOST, DB_USER, DB_NAME required)")
	}
	if env.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return env, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
