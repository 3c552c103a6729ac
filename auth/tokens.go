package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clearview-consulting/backend/models"
)

// Token types carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the full claim set for both access and refresh credentials.
// Access credentials are pure snapshots: the guard layer trusts Role and
// Active without a store lookup, so administrative changes only apply once
// the subject's next credential is issued.
type Claims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
	Type   string `json:"typ"`
	// SessionStart anchors the absolute session lifetime. Rotation
	// carries it forward unchanged; no refresh can extend a session past
	// SessionStart + SessionLifetime.
	SessionStart int64 `json:"session_start"`
	jwt.RegisteredClaims
}

// TokenPair is one issued access+refresh credential set.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshTokenID   string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	SessionStart     time.Time
}

// TokenManager issues, parses and rotates signed credentials (HS256).
type TokenManager struct {
	secret          []byte
	accessTTL       time.Duration
	sessionLifetime time.Duration

	now func() time.Time
}

func NewTokenManager(secret string, accessTTL, sessionLifetime time.Duration) *TokenManager {
	return &TokenManager{
		secret:          []byte(secret),
		accessTTL:       accessTTL,
		sessionLifetime: sessionLifetime,
		now:             time.Now,
	}
}

// AccessTTL returns the configured access-credential lifetime.
func (tm *TokenManager) AccessTTL() time.Duration { return tm.accessTTL }

// SessionLifetime returns the absolute session ceiling.
func (tm *TokenManager) SessionLifetime() time.Duration { return tm.sessionLifetime }

// IssuePair mints a fresh access+refresh pair for the user. sessionStart is
// the moment the session began: time of login for a new session, or the
// original login time when rotating. The refresh credential never outlives
// sessionStart + the session lifetime.
func (tm *TokenManager) IssuePair(user *models.User, sessionStart time.Time) (*TokenPair, error) {
	now := tm.now()
	ceiling := sessionStart.Add(tm.sessionLifetime)
	if !ceiling.After(now) {
		return nil, ErrSessionExpired
	}

	accessExp := now.Add(tm.accessTTL)
	if accessExp.After(ceiling) {
		accessExp = ceiling
	}

	access, err := tm.sign(user, TokenTypeAccess, sessionStart, accessExp, "")
	if err != nil {
		return nil, err
	}

	jti := uuid.New().String()
	refresh, err := tm.sign(user, TokenTypeRefresh, sessionStart, ceiling, jti)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshTokenID:   jti,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: ceiling,
		SessionStart:     sessionStart,
	}, nil
}

func (tm *TokenManager) sign(user *models.User, typ string, sessionStart, expiresAt time.Time, jti string) (string, error) {
	now := tm.now()
	claims := Claims{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		Active:       user.IsActive,
		Type:         typ,
		SessionStart: sessionStart.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// ErrSessionExpired signals that the absolute session lifetime has elapsed
// and the client must re-authenticate.
var ErrSessionExpired = errors.New("session expired")

// Parse validates a credential's signature and expiry and returns its
// claims. Expired credentials return the claims alongside jwt.ErrTokenExpired
// so callers can distinguish expiry from forgery.
func (tm *TokenManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return tm.secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, jwt.ErrTokenExpired
		}
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// ValidateRefresh parses a refresh credential and checks both its own
// expiry and the absolute session ceiling. Returns ErrSessionExpired when
// the session can no longer be extended, for any reason.
func (tm *TokenManager) ValidateRefresh(tokenString string) (*Claims, error) {
	claims, err := tm.Parse(tokenString)
	if err != nil {
		return nil, ErrSessionExpired
	}
	if claims.Type != TokenTypeRefresh {
		return nil, ErrSessionExpired
	}

	sessionStart := time.Unix(claims.SessionStart, 0)
	if tm.now().After(sessionStart.Add(tm.sessionLifetime)) {
		return nil, ErrSessionExpired
	}
	return claims, nil
}
