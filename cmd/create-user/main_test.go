package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"legal_matter_engine/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCreateUser(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestCreateUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "users.db")

	out, err := runCreateUser(t, "--db", dbPath, "--name", "Ana Ruiz", "--email", "ana@example.com", "--role", "lawyer")
	require.NoError(t, err)
	assert.Contains(t, out, "User created")
	assert.Contains(t, out, "ana@example.com")
	assert.Contains(t, out, "lawyer")

	_, err = runCreateUser(t, "--db", dbPath, "--name", "Ana Again", "--email", "ana@example.com")
	assert.ErrorIs(t, err, services.ErrConstraintViolation)

	_, err = runCreateUser(t, "--db", dbPath, "--name", "Bad", "--email", "bad@example.com", "--role", "owner")
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = runCreateUser(t, "--db", dbPath, "--email", "noname@example.com")
	assert.Error(t, err)
}
