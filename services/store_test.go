package services

import (
	"context"
	"testing"
	"time"

	"legal_matter_engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_NotFoundAndConstraints(t *testing.T) {
	conn := setupTestDB(t)
	store := NewStore(conn, 5*time.Second)
	ctx := context.Background()
	client := createTestUser(t, conn, "Ana", "ana@client.com", models.RoleClient)

	_, err := store.GetCase(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.UpdateCase(ctx, "missing", map[string]interface{}{"title": "x"}), ErrNotFound)
	assert.ErrorIs(t, store.DeleteDocument(ctx, "missing"), ErrNotFound)

	c := &models.Case{CaseNumber: "FL-2026-0001", PracticeArea: models.PracticeAreaFamilyLaw, Status: models.CaseStatusOpen, Title: "Custody", ClientID: client.ID}
	require.NoError(t, store.CreateCase(ctx, c))

	dup := &models.Case{CaseNumber: "FL-2026-0001", PracticeArea: models.PracticeAreaFamilyLaw, Status: models.CaseStatusOpen, Title: "Other", ClientID: client.ID}
	assert.ErrorIs(t, store.CreateCase(ctx, dup), ErrConstraintViolation)

	got, err := store.GetCase(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Client)
	assert.Equal(t, "Ana", got.Client.Name)

	byNumber, err := store.GetCaseByNumber(ctx, "FL-2026-0001")
	require.NoError(t, err)
	assert.Equal(t, c.ID, byNumber.ID)
	_, err = store.GetCaseByNumber(ctx, "FL-2026-0002")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_TimeoutMapsToStorageUnavailable(t *testing.T) {
	conn := setupTestDB(t)
	store := NewStore(conn, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := store.ListCases(ctx, CaseFilter{})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestStore_ListOverdueTasks(t *testing.T) {
	conn := setupTestDB(t)
	store := NewStore(conn, 5*time.Second)
	ctx := context.Background()
	lawyer := createTestUser(t, conn, "Luis", "luis@firm.com", models.RoleLawyer)
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tasks := []models.Task{
		{Title: "overdue", Status: models.TaskStatusPending, AssignedToID: &lawyer.ID, DueDate: &past},
		{Title: "done", Status: models.TaskStatusCompleted, AssignedToID: &lawyer.ID, DueDate: &past},
		{Title: "not due", Status: models.TaskStatusInProgress, AssignedToID: &lawyer.ID, DueDate: &future},
		{Title: "unassigned", Status: models.TaskStatusPending, DueDate: &past},
		{Title: "reminded", Status: models.TaskStatusPending, AssignedToID: &lawyer.ID, DueDate: &past, ReminderSentAt: &past},
	}
	require.NoError(t, store.CreateTasks(ctx, tasks))

	overdue, err := store.ListOverdueTasks(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "overdue", overdue[0].Title)
}

func TestStore_ListOverdueTasks_MixedOffsets(t *testing.T) {
	conn := setupTestDB(t)
	store := NewStore(conn, 5*time.Second)
	ctx := context.Background()
	lawyer := createTestUser(t, conn, "Luis", "luis@firm.com", models.RoleLawyer)
	now := time.Now().UTC()
	east := time.FixedZone("UTC+5", 5*60*60)
	west := time.FixedZone("UTC-7", -7*60*60)

	pastEast := now.Add(-2 * time.Hour).In(east)
	futureWest := now.Add(2 * time.Hour).In(west)
	tasks := []models.Task{
		{Title: "overdue east", Status: models.TaskStatusPending, AssignedToID: &lawyer.ID, DueDate: &pastEast},
		{Title: "upcoming west", Status: models.TaskStatusPending, AssignedToID: &lawyer.ID, DueDate: &futureWest},
	}
	require.NoError(t, store.CreateTasks(ctx, tasks))

	overdue, err := store.ListOverdueTasks(ctx, now.In(west), 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "overdue east", overdue[0].Title)

	require.NoError(t, store.UpdateTask(ctx, overdue[0].ID, map[string]interface{}{"reminder_sent_at": now.In(east)}))
	reloaded, err := store.GetTask(ctx, overdue[0].ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ReminderSentAt)
	assert.True(t, reloaded.ReminderSentAt.Equal(now))
}
