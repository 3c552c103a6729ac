package models

import (
	"errors"
	"time"
)

// Roles. Exactly two exist: the single privileged admin and standard users.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           uint   `gorm:"primarykey"`
	Email        string `gorm:"unique;not null"`
	FullName     string
	Phone        string
	PasswordHash string // empty when the account was provisioned without a password
	Role         string `gorm:"not null;default:user"`
	IsActive     bool   `gorm:"default:true"`
	LockedUntil  *time.Time

	LastLogin  *time.Time
	LoginCount int `gorm:"default:0"`

	LastLogout          *time.Time
	LogoutCount         int `gorm:"default:0"`
	LogoutReason        string
	LogoutTransactionID string

	// RefreshTokenID holds the jti of the currently valid refresh
	// credential. Rotation swaps it; a stale jti can no longer refresh.
	RefreshTokenID string

	ResetToken          string
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLockedOut reports whether the lockout window is still open at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// ErrAdminImmutable is returned by EnsureAdminInvariant when an operation
// would delete, disable, lock out or demote the privileged account.
var ErrAdminImmutable = errors.New("the privileged account cannot be modified this way")

// AdminMutation describes what an identity-mutating operation is about to
// do, for invariant checking.
type AdminMutation struct {
	Delete     bool
	Deactivate bool
	Lockout    bool
	NewRole    string // "" = role unchanged
}

// EnsureAdminInvariant is the single checkpoint for the one-admin rule:
// the privileged account is never deleted, deactivated, locked out or
// demoted, and no other account may take the admin role. Call it on every
// create/update/status/role/delete path before writing.
func EnsureAdminInvariant(target *User, adminEmail string, m AdminMutation) error {
	// The reserved address belongs to the admin role alone: creating or
	// keeping a standard account under it is rejected outright, which also
	// covers registration before the admin row has been seeded.
	if target.Email == adminEmail && target.Role != RoleAdmin {
		return ErrAdminImmutable
	}
	if target.Email == adminEmail || target.Role == RoleAdmin {
		if m.Delete || m.Deactivate || m.Lockout {
			return ErrAdminImmutable
		}
		if m.NewRole != "" && m.NewRole != RoleAdmin {
			return ErrAdminImmutable
		}
		return nil
	}
	if m.NewRole == RoleAdmin {
		return ErrAdminImmutable
	}
	return nil
}
