package services

import (
	"context"
	"testing"

	"legal_matter_engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	store := NewStore(setupTestDB(t), 0)

	t.Run("Normalizes and stores the user", func(t *testing.T) {
		user, err := RegisterUser(ctx, store, "  Ana Ruiz ", "Ana@Example.com", "Lawyer")
		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "ana@example.com", user.Email)
		assert.Equal(t, models.RoleLawyer, user.Role)

		stored, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsAttorney())
	})

	t.Run("Rejects bad input", func(t *testing.T) {
		_, err := RegisterUser(ctx, store, "", "x@example.com", models.RoleStaff)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = RegisterUser(ctx, store, "X", "not-an-email", models.RoleStaff)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = RegisterUser(ctx, store, "X", "x@example.com", "superadmin")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Duplicate email is a constraint violation", func(t *testing.T) {
		_, err := RegisterUser(ctx, store, "Other", "ana@example.com", models.RoleClient)
		assert.ErrorIs(t, err, ErrConstraintViolation)
	})
}

func TestSeedAdminFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Run("Skips when ADMIN_EMAIL is unset", func(t *testing.T) {
		t.Setenv("ADMIN_EMAIL", "")
		store := NewStore(setupTestDB(t), 0)
		user, err := SeedAdminFromEnv(ctx, store)
		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("Creates the admin once", func(t *testing.T) {
		t.Setenv("ADMIN_EMAIL", "admin@example.com")
		t.Setenv("ADMIN_NAME", "Root")
		store := NewStore(setupTestDB(t), 0)

		user, err := SeedAdminFromEnv(ctx, store)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "Root", user.Name)
		assert.Equal(t, models.RoleAdmin, user.Role)

		again, err := SeedAdminFromEnv(ctx, store)
		assert.NoError(t, err)
		assert.Nil(t, again)

		count, err := store.CountUsersByRole(ctx, models.RoleAdmin)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("Existing email is skipped", func(t *testing.T) {
		t.Setenv("ADMIN_EMAIL", "taken@example.com")
		conn := setupTestDB(t)
		createTestUser(t, conn, "Staffer", "taken@example.com", models.RoleStaff)

		user, err := SeedAdminFromEnv(ctx, NewStore(conn, 0))
		assert.NoError(t, err)
		assert.Nil(t, user)
	})
}
