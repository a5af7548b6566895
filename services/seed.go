package services

import (
	"context"
	"errors"
	"log"
	"net/mail"
	"os"
	"strings"

	"legal_matter_engine/models"
)

var validRoles = map[string]bool{
	models.RoleAdmin:  true,
	models.RoleLawyer: true,
	models.RoleStaff:  true,
	models.RoleClient: true,
}

// RegisterUser validates and stores a new engine user. The engine never
// authenticates users itself; the ID returned here is what callers send as
// their actor identity.
func RegisterUser(ctx context.Context, store *Store, name, email, role string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	role = strings.ToLower(strings.TrimSpace(role))

	if name == "" {
		return nil, validationError("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, validationError("invalid email %q", email)
	}
	if !validRoles[role] {
		return nil, validationError("unknown role %q", role)
	}

	user := &models.User{Name: name, Email: email, Role: role, IsActive: true}
	if err := store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SeedAdminFromEnv creates an admin user from ADMIN_EMAIL and ADMIN_NAME.
// It does nothing when ADMIN_EMAIL is unset or an admin already exists.
func SeedAdminFromEnv(ctx context.Context, store *Store) (*models.User, error) {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		return nil, nil
	}
	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "Administrator"
	}

	count, err := store.CountUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		log.Println("[SEED] Admin user already exists, skipping seed")
		return nil, nil
	}

	user, err := RegisterUser(ctx, store, name, email, models.RoleAdmin)
	if errors.Is(err, ErrConstraintViolation) {
		log.Printf("[SEED] User with email %s already exists, skipping admin seed", email)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[SEED] Created admin user %s (%s)", user.Email, user.ID)
	return user, nil
}
