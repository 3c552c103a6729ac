package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminEmail = "admin@clearview-consulting.com"

func TestEnsureAdminInvariantProtectsAdmin(t *testing.T) {
	admin := &User{Email: adminEmail, Role: RoleAdmin}

	require.Error(t, EnsureAdminInvariant(admin, adminEmail, AdminMutation{Delete: true}))
	require.Error(t, EnsureAdminInvariant(admin, adminEmail, AdminMutation{Deactivate: true}))
	require.Error(t, EnsureAdminInvariant(admin, adminEmail, AdminMutation{Lockout: true}))
	require.Error(t, EnsureAdminInvariant(admin, adminEmail, AdminMutation{NewRole: RoleUser}))

	assert.NoError(t, EnsureAdminInvariant(admin, adminEmail, AdminMutation{}))
	assert.NoError(t, EnsureAdminInvariant(admin, adminEmail, AdminMutation{NewRole: RoleAdmin}))
}

func TestEnsureAdminInvariantRejectsSecondAdmin(t *testing.T) {
	user := &User{Email: "user@b.com", Role: RoleUser}

	err := EnsureAdminInvariant(user, adminEmail, AdminMutation{NewRole: RoleAdmin})
	require.ErrorIs(t, err, ErrAdminImmutable)
}

func TestEnsureAdminInvariantAllowsStandardMutations(t *testing.T) {
	user := &User{Email: "user@b.com", Role: RoleUser}

	assert.NoError(t, EnsureAdminInvariant(user, adminEmail, AdminMutation{Delete: true}))
	assert.NoError(t, EnsureAdminInvariant(user, adminEmail, AdminMutation{Deactivate: true}))
	assert.NoError(t, EnsureAdminInvariant(user, adminEmail, AdminMutation{Lockout: true}))
	assert.NoError(t, EnsureAdminInvariant(user, adminEmail, AdminMutation{NewRole: RoleUser}))
}

func TestEnsureAdminInvariantRejectsReservedEmailOnCreate(t *testing.T) {
	// Creating a standard account under the reserved address must fail at
	// the invariant, not at the unique constraint — and it must fail even
	// before the admin row has been seeded.
	target := &User{Email: adminEmail, Role: RoleUser}

	err := EnsureAdminInvariant(target, adminEmail, AdminMutation{})
	require.ErrorIs(t, err, ErrAdminImmutable)

	// Any mutation of such a row is rejected the same way.
	require.Error(t, EnsureAdminInvariant(target, adminEmail, AdminMutation{Delete: true}))
	require.Error(t, EnsureAdminInvariant(target, adminEmail, AdminMutation{NewRole: RoleUser}))
}

func TestIsLockedOut(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	u := &User{}
	assert.False(t, u.IsLockedOut(now), "nil lockout means not locked")

	past := now.Add(-time.Hour)
	u.LockedUntil = &past
	assert.False(t, u.IsLockedOut(now))

	future := now.Add(2 * time.Hour)
	u.LockedUntil = &future
	assert.True(t, u.IsLockedOut(now))
}
