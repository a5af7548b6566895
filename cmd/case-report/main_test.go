package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"legal_matter_engine/db"
	"legal_matter_engine/models"
	"legal_matter_engine/services"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

// seedCase creates a database with one immigration case and returns its path
// and case number
func seedCase(t *testing.T) (string, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "engine.db")
	conn, err := db.Open(db.DSN(dbPath), logger.Silent)
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(conn))

	client := &models.User{Name: "Ana Client", Email: "ana@client.com", Role: models.RoleClient, IsActive: true}
	require.NoError(t, conn.Create(client).Error)

	cases := services.NewCaseService(services.NewStore(conn, 5*time.Second), nil, nil, nil, services.CaseServiceConfig{})
	c, err := cases.CreateCase(context.Background(), services.CreateCaseInput{
		ClientID:     client.ID,
		PracticeArea: models.PracticeAreaImmigration,
		Title:        "Visa renewal",
		CreatedBy:    client.ID,
	})
	require.NoError(t, err)
	return dbPath, c.CaseNumber
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	root := newRootCmd()
	subs := make(map[string]*cobra.Command)
	for _, sub := range root.Commands() {
		subs[sub.Name()] = sub
	}
	require.Contains(t, subs, "case")
	require.Contains(t, subs, "stats")

	for _, flag := range []string{"db", "format", "out", "archive"} {
		assert.NotNil(t, subs["case"].Flags().Lookup(flag), flag)
	}
	assert.Equal(t, services.ReportFormatHTML, subs["case"].Flags().Lookup("format").DefValue)
}

func TestCaseCommand(t *testing.T) {
	t.Setenv("UPLOAD_DIR", t.TempDir())
	dbPath, caseNumber := seedCase(t)
	outDir := t.TempDir()

	t.Run("HTMLByNumber", func(t *testing.T) {
		out, err := run(t, "case", caseNumber, "--db", dbPath, "--out", outDir)
		require.NoError(t, err, out)
		assert.Contains(t, out, "Wrote")

		body, err := os.ReadFile(filepath.Join(outDir, caseNumber+"-report.html"))
		require.NoError(t, err)
		assert.Contains(t, string(body), caseNumber)
		assert.Contains(t, string(body), "Visa renewal")
	})

	t.Run("XLSXWithArchive", func(t *testing.T) {
		out, err := run(t, "case", caseNumber, "--db", dbPath, "--out", outDir, "-f", "xlsx", "--archive")
		require.NoError(t, err, out)
		assert.Contains(t, out, "Archived as reports/"+caseNumber+"/")

		body, err := os.ReadFile(filepath.Join(outDir, caseNumber+"-report.xlsx"))
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(body, []byte("PK")))
	})

	t.Run("UnknownCase", func(t *testing.T) {
		_, err := run(t, "case", "IMM-1999-0001", "--db", dbPath, "--out", outDir)
		assert.ErrorIs(t, err, services.ErrNotFound)
	})

	t.Run("BadFormat", func(t *testing.T) {
		_, err := run(t, "case", caseNumber, "--db", dbPath, "--out", outDir, "-f", "docx")
		assert.ErrorIs(t, err, services.ErrValidation)
	})

	t.Run("RequiresArgument", func(t *testing.T) {
		_, err := run(t, "case", "--db", dbPath)
		assert.Error(t, err)
	})
}

func TestStatsCommand(t *testing.T) {
	t.Setenv("UPLOAD_DIR", t.TempDir())
	dbPath, _ := seedCase(t)
	outDir := t.TempDir()

	out, err := run(t, "stats", "--db", dbPath, "--out", outDir)
	require.NoError(t, err, out)

	matches, err := filepath.Glob(filepath.Join(outDir, "case-statistics-*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
