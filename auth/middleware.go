package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	ContextClaims = "authClaims"
	ContextUserID = "userID"
)

// AccessCookie and RefreshCookie are the transport cookie names. The access
// cookie is readable by client script; the refresh cookie is http-only.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

func abortWith(c *gin.Context, err *Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{
		"status":  err.Status,
		"message": err.Message,
		"error":   err,
	})
}

// RequireAuth validates the inbound access credential and attaches its
// claims to the request context. It never hits the identity store: the
// active/role snapshot inside the credential is trusted as-is, so
// administrative state changes take effect on the next issuance.
func RequireAuth(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			abortWith(c, ErrSessionInvalid())
			return
		}

		claims, err := tm.Parse(tokenString)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWith(c, ErrTokenExpired())
				return
			}
			abortWith(c, ErrTokenInvalid())
			return
		}

		if !claims.Active {
			abortWith(c, ErrAccountDisabled())
			return
		}

		if claims.Type != TokenTypeAccess {
			abortWith(c, ErrWrongTokenType())
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// RequireRole authorizes the request against the declared role set. An
// empty set allows everyone who passed RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(roles) == 0 {
			c.Next()
			return
		}

		claims := ClaimsFrom(c)
		if claims == nil {
			slog.Warn("role check denied: no identity on request", "path", c.FullPath())
			abortWith(c, ErrSessionInvalid())
			return
		}

		for _, role := range roles {
			if claims.Role == role {
				slog.Debug("role check allowed", "path", c.FullPath(), "role", claims.Role)
				c.Next()
				return
			}
		}

		slog.Warn("role check denied",
			"path", c.FullPath(), "role", claims.Role, "required", strings.Join(roles, ","))
		abortWith(c, ErrInsufficientRole())
	}
}

// ClaimsFrom returns the claims RequireAuth attached, or nil.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil
	}
	claims, ok := v.(*Claims)
	if !ok {
		return nil
	}
	return claims
}

// extractToken reads the access credential from the cookie, falling back to
// a bearer Authorization header for non-browser clients.
func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// SetAuthCookies writes both credential cookies. The refresh cookie is
// http-only and scoped to path; the access cookie stays readable by client
// script. Both are Secure and cross-site eligible.
func SetAuthCookies(c *gin.Context, pair *TokenPair, path string) {
	c.SetSameSite(http.SameSiteNoneMode)

	now := time.Now()
	accessMaxAge := int(pair.AccessExpiresAt.Sub(now).Seconds())
	refreshMaxAge := int(pair.RefreshExpiresAt.Sub(now).Seconds())

	c.SetCookie(AccessCookie, pair.AccessToken, accessMaxAge, path, "", true, false)
	c.SetCookie(RefreshCookie, pair.RefreshToken, refreshMaxAge, path, "", true, true)
}

// ClearAuthCookies instructs the client to drop both credentials.
func ClearAuthCookies(c *gin.Context, path string) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(AccessCookie, "", -1, path, "", true, false)
	c.SetCookie(RefreshCookie, "", -1, path, "", true, true)
}
