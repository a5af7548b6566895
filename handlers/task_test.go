package handlers

import (
	"net/http"
	"testing"
	"time"

	"legal_matter_engine/models"
	"legal_matter_engine/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testServer) caseTasks(t *testing.T, caseID string) []models.Task {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/cases/"+caseID, s.attorney, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var details services.CaseDetails
	decode(t, rec, &details)
	return details.Tasks
}

func TestUpdateTaskStatusHandler(t *testing.T) {
	s := newTestServer(t)
	c := s.createCase(t, "H-1B transfer")

	var consultation models.Task
	for _, task := range s.caseTasks(t, c.ID) {
		if task.Title == "Initial Consultation" {
			consultation = task
		}
	}
	require.NotEmpty(t, consultation.ID)
	path := "/api/tasks/" + consultation.ID + "/status"

	rec := s.do(t, http.MethodPut, path, s.attorney, map[string]string{"status": models.TaskStatusCompleted})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Task      models.Task   `json:"task"`
		FollowOns []models.Task `json:"follow_ons"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, models.TaskStatusCompleted, resp.Task.Status)
	assert.NotNil(t, resp.Task.CompletedAt)
	require.Len(t, resp.FollowOns, 1)
	assert.Equal(t, "Send Consultation Summary", resp.FollowOns[0].Title)

	// completed is terminal
	rec = s.do(t, http.MethodPut, path, s.attorney, map[string]string{"status": models.TaskStatusInProgress})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPut, path, s.attorney, map[string]string{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/tasks/00000000-0000-0000-0000-000000000000/status", s.attorney, map[string]string{"status": models.TaskStatusCompleted})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPut, path, s.client, map[string]string{"status": models.TaskStatusCompleted})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateAndAssignTaskHandlers(t *testing.T) {
	s := newTestServer(t)
	c := s.createCase(t, "Visa interview prep")
	due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)

	rec := s.do(t, http.MethodPost, "/api/tasks", s.staff, map[string]interface{}{
		"case_id":  c.ID,
		"title":    "Book interpreter",
		"priority": models.TaskPriorityHigh,
		"due_date": due,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task models.Task
	decode(t, rec, &task)
	assert.Equal(t, models.TaskTypeOther, task.Type)
	assert.Equal(t, s.staff.ID, task.CreatedByID)
	require.NotNil(t, task.DueDate)
	assert.True(t, due.Equal(*task.DueDate))

	rec = s.do(t, http.MethodPut, "/api/tasks/"+task.ID+"/assignee", s.staff, map[string]string{"assignee_id": s.attorney.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &task)
	require.NotNil(t, task.AssignedToID)
	assert.Equal(t, s.attorney.ID, *task.AssignedToID)

	rec = s.do(t, http.MethodPost, "/api/tasks", s.staff, map[string]interface{}{"title": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
