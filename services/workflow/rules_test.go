package workflow

import (
	"testing"
	"time"

	"legal_matter_engine/models"

	"github.com/stretchr/testify/assert"
)

func TestSeedTasksFor(t *testing.T) {
	tests := []struct {
		area      string
		wantCount int
		wantFirst string
	}{
		{models.PracticeAreaImmigration, 3, "Initial Consultation"},
		{models.PracticeAreaPersonalInjury, 4, "Initial Consultation"},
		{models.PracticeAreaWorkersCompensation, 3, "Initial Consultation"},
		{models.PracticeAreaCriminalDefense, 3, "Initial Consultation"},
		{models.PracticeAreaFamilyLaw, 3, "Initial Consultation"},
		{models.PracticeAreaTraffic, 3, "Initial Consultation"},
	}

	for _, tt := range tests {
		t.Run(tt.area, func(t *testing.T) {
			tasks := SeedTasksFor(tt.area)
			assert.Len(t, tasks, tt.wantCount)
			assert.Equal(t, tt.wantFirst, tasks[0].Title)
			for _, task := range tasks {
				assert.True(t, models.IsValidTaskType(task.Type), task.Title)
				assert.True(t, models.IsValidTaskPriority(task.Priority), task.Title)
			}
		})
	}
}

func TestSeedTasksFor_EveryPracticeAreaHasRules(t *testing.T) {
	for _, area := range models.PracticeAreas() {
		assert.NotEmpty(t, SeedTasksFor(area), area)
	}
}

func TestSeedTasksFor_Pure(t *testing.T) {
	first := SeedTasksFor(models.PracticeAreaImmigration)
	second := SeedTasksFor(models.PracticeAreaImmigration)
	assert.Equal(t, first, second)

	// Mutating a result must not leak into later calls
	first[0].Title = "changed"
	assert.Equal(t, "Initial Consultation", SeedTasksFor(models.PracticeAreaImmigration)[0].Title)
}

func TestSeedTasksFor_UnknownArea(t *testing.T) {
	assert.Empty(t, SeedTasksFor("maritime"))
}

func TestFollowOnTasksFor(t *testing.T) {
	parent := "parent-task"

	tests := []struct {
		name  string
		task  models.Task
		want  string
		empty bool
	}{
		{"initial consultation", models.Task{Title: "Initial Consultation", Type: models.TaskTypeClientCommunication}, "Send Consultation Summary", false},
		{"title match is case-insensitive", models.Task{Title: "INITIAL CONSULTATION with client", Type: models.TaskTypeOther}, "Send Consultation Summary", false},
		{"court filing by type", models.Task{Title: "File Discovery Request", Type: models.TaskTypeCourtFiling}, "Confirm Filing Receipt with Court", false},
		{"demand letter", models.Task{Title: "Send Demand Letter to Insurer", Type: models.TaskTypeDocumentPrep}, "Follow Up on Insurer Response", false},
		{"no rule", models.Task{Title: "Request Medical Records", Type: models.TaskTypeDocumentPrep}, "", true},
		{"follow-ons never cascade", models.Task{Title: "Initial Consultation", Type: models.TaskTypeCourtFiling, ParentTaskID: &parent}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FollowOnTasksFor(tt.task)
			if tt.empty {
				assert.Empty(t, got)
				return
			}
			assert.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Title)
		})
	}
}

func TestFollowOnTasksFor_ConsultationDueIn24Hours(t *testing.T) {
	got := FollowOnTasksFor(models.Task{Title: "Initial Consultation"})
	assert.Len(t, got, 1)
	assert.Equal(t, 24*time.Hour, got[0].DueIn)
}

func TestTaskTemplate_Instantiate(t *testing.T) {
	caseID := "case-1"
	from := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	task := TaskTemplate{Title: "Draft", Type: models.TaskTypeDocumentPrep, Priority: models.TaskPriorityLow, DueIn: 48 * time.Hour}.
		Instantiate(&caseID, "user-1", from)

	assert.Equal(t, "Draft", task.Title)
	assert.Equal(t, models.TaskStatusPending, task.Status)
	assert.Equal(t, "user-1", task.CreatedByID)
	assert.Equal(t, &caseID, task.CaseID)
	if assert.NotNil(t, task.DueDate) {
		assert.Equal(t, from.Add(48*time.Hour), *task.DueDate)
	}

	noDue := TaskTemplate{Title: "Whenever"}.Instantiate(nil, "user-1", from)
	assert.Nil(t, noDue.DueDate)
}
