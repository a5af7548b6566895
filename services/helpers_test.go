package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"legal_matter_engine/db"
	"legal_matter_engine/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a migrated sqlite file in the test's temp dir
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(db.DSN(filepath.Join(t.TempDir(), "engine.db")), logger.Silent)
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(conn))
	return conn
}

func createTestUser(t *testing.T, conn *gorm.DB, name, email, role string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New().String(),
		Name:     name,
		Email:    email,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func stringPtr(s string) *string {
	return &s
}

// recordingDispatcher keeps every dispatched event in memory
type recordingDispatcher struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingDispatcher) Dispatch(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingDispatcher) ofType(eventType EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, evt := range r.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

// testClock is a settable clock for services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now.UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db         *gorm.DB
	store      *Store
	service    *CaseService
	dispatcher *recordingDispatcher
	clock      *testClock
	client     *models.User
	attorney   *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := setupTestDB(t)
	store := NewStore(conn, 5*time.Second)
	dispatcher := &recordingDispatcher{}
	clock := newTestClock(time.Now())
	service := NewCaseService(store, NewCache[*CaseDetails](64, time.Minute), dispatcher, nil, CaseServiceConfig{
		CacheTTL: time.Minute,
		Now:      clock.Now,
	})
	return &testEnv{
		db:         conn,
		store:      store,
		service:    service,
		dispatcher: dispatcher,
		clock:      clock,
		client:     createTestUser(t, conn, "Ana Client", "ana@client.com", models.RoleClient),
		attorney:   createTestUser(t, conn, "Luis Lawyer", "luis@firm.com", models.RoleLawyer),
	}
}

func (e *testEnv) createCase(t *testing.T, area, title string) *models.Case {
	t.Helper()
	c, err := e.service.CreateCase(context.Background(), CreateCaseInput{
		ClientID:     e.client.ID,
		PracticeArea: area,
		Title:        title,
		AttorneyID:   &e.attorney.ID,
		CreatedBy:    e.attorney.ID,
	})
	require.NoError(t, err)
	return c
}
