// Package workflow holds the static practice-area rules that seed new cases
// with work items and derive follow-on tasks from completed ones.
package workflow

import (
	"strings"
	"time"

	"legal_matter_engine/models"
)

// TaskTemplate describes a task to be created by a rule
type TaskTemplate struct {
	Title    string
	Type     string
	Priority string
	// DueIn is the offset from creation (or completion, for follow-ons).
	// Zero means no due date.
	DueIn time.Duration
}

type seedRule struct {
	practiceArea string
	tasks        []TaskTemplate
}

const day = 24 * time.Hour

// seedRules is the ordered task list per practice area
var seedRules = []seedRule{
	{
		practiceArea: models.PracticeAreaImmigration,
		tasks: []TaskTemplate{
			{Title: "Initial Consultation", Type: models.TaskTypeClientCommunication, Priority: models.TaskPriorityHigh, DueIn: 3 * day},
			{Title: "Collect Identity and Immigration Documents", Type: models.TaskTypeDocumentPrep, Priority: models.TaskPriorityHigh, DueIn: 14 * day},
			{Title: "Prepare and File USCIS Petition", Type: models.TaskTypeCourtFiling, Priority: models.TaskPriorityMedium, DueIn: 30 * day},
		},
	},
	{
		practiceArea: models.PracticeAreaPersonalInjury,
		tasks: []TaskTemplate{
			{Title: "Initial Consultation", Type: models.TaskTypeClientCommunication, Priority: models.TaskPriorityHigh, DueIn: 2 * day},
			{Title: "Request Medical Records", Type: models.TaskTypeDocumentPrep, Priority: models.TaskPriorityHigh, DueIn: 7 * day},
			{Title: "Gather Accident Evidence and Witness Statements", Type: models.TaskTypeResearch, Priority: models.TaskPriorityMedium, DueIn: 14 * day},
			{Title: "Send Demand Letter to Insurer", Type: models.TaskTypeDocumentPrep, Priority: models.TaskPriorityMedium, DueIn: 45 * day},
		},
	},
	{
		practiceArea: models.PracticeAreaWorkersCompensation,
		tasks: []TaskTemplate{
			{Title: "Initial Consultation", Type: models.TaskTypeClientCommunication, Priority: models.TaskPriorityHigh, DueIn: 2 * day},
			{Title: "Obtain Employer Incident Report", Type: models.TaskTypeDocumentPrep, Priority: models.TaskPriorityHigh, DueIn: 7 * day},
			{Title: "File Workers' Compensation Claim", Type: models.TaskTypeCourtFiling, Priority: models.TaskPriorityUrgent, DueIn: 10 * day},
		},
	},
	{
		practiceArea: models.PracticeAreaCriminalDefense,
		tasks: []TaskTemplate{
			{Title: "Initial Consultation", Type: models.TaskTypeClientCommunication, Priority: models.TaskPriorityUrgent, DueIn: 1 * day},
			{Title: "Review Charging Documents and Police Report", Type: models.TaskTypeResearch, Priority: models.TaskPriorityHigh, DueIn: 3 * day},
			{Title: "File Discovery Request", Type: models.TaskTypeCourtFiling, Priority: models.TaskPriorityHigh, DueIn: 10 * day},
		},
	},
	{
		practiceArea: models.PracticeAreaFamilyLaw,
		tasks: []TaskTemplate{
			{Title: "Initial Consultation", Type: models.TaskTypeClientCommunication, Priority: models.TaskPriorityHigh, DueIn: 3 * day},
			{Title: "Prepare Financial Disclosure", Type: models.TaskTypeDocumentPrep, Priority: models.TaskPriorityMedium, DueIn: 21 * day},
			{Title: "File Petition with Family Court", Type: models.TaskTypeCourtFiling, Priority: models.TaskPriorityMedium, DueIn: 30 * day},
		},
	},
	{
		practiceArea: models.PracticeAreaTraffic,
		tasks: []TaskTemplate{
			{Title: "Initial Consultation", Type: models.TaskTypeClientCommunication, Priority: models.TaskPriorityMedium, DueIn: 2 * day},
			{Title: "Review Citation and Driving Record", Type: models.TaskTypeResearch, Priority: models.TaskPriorityMedium, DueIn: 5 * day},
			{Title: "Enter Plea or Request Hearing", Type: models.TaskTypeCourtFiling, Priority: models.TaskPriorityHigh, DueIn: 14 * day},
		},
	},
}

type followOnRule struct {
	// matches when the completed task's title contains titleContains
	// (case-insensitive), or its type equals taskType when titleContains is empty
	titleContains string
	taskType      string
	followOn      TaskTemplate
}

// followOnRules are checked in order; the first match wins
var followOnRules = []followOnRule{
	{
		titleContains: "initial consultation",
		followOn:      TaskTemplate{Title: "Send Consultation Summary", Type: models.TaskTypeClientCommunication, Priority: models.TaskPriorityHigh, DueIn: 24 * time.Hour},
	},
	{
		taskType: models.TaskTypeCourtFiling,
		followOn: TaskTemplate{Title: "Confirm Filing Receipt with Court", Type: models.TaskTypeOther, Priority: models.TaskPriorityMedium, DueIn: 3 * day},
	},
	{
		titleContains: "demand letter",
		followOn:      TaskTemplate{Title: "Follow Up on Insurer Response", Type: models.TaskTypeClientCommunication, Priority: models.TaskPriorityMedium, DueIn: 30 * day},
	},
}

// SeedTasksFor returns the ordered seed tasks for a practice area.
// Unknown areas get no tasks. The result is a fresh copy on every call.
func SeedTasksFor(practiceArea string) []TaskTemplate {
	for _, rule := range seedRules {
		if rule.practiceArea == practiceArea {
			out := make([]TaskTemplate, len(rule.tasks))
			copy(out, rule.tasks)
			return out
		}
	}
	return []TaskTemplate{}
}

// FollowOnTasksFor returns the tasks to create when task is completed.
// Follow-on tasks never produce follow-ons of their own.
func FollowOnTasksFor(task models.Task) []TaskTemplate {
	if task.ParentTaskID != nil {
		return []TaskTemplate{}
	}
	title := strings.ToLower(task.Title)
	for _, rule := range followOnRules {
		if rule.titleContains != "" {
			if strings.Contains(title, rule.titleContains) {
				return []TaskTemplate{rule.followOn}
			}
			continue
		}
		if rule.taskType != "" && task.Type == rule.taskType {
			return []TaskTemplate{rule.followOn}
		}
	}
	return []TaskTemplate{}
}

// Instantiate turns a template into a pending task anchored at from
func (t TaskTemplate) Instantiate(caseID *string, createdByID string, from time.Time) models.Task {
	task := models.Task{
		CaseID:      caseID,
		Title:       t.Title,
		Type:        t.Type,
		Priority:    t.Priority,
		Status:      models.TaskStatusPending,
		CreatedByID: createdByID,
	}
	if t.DueIn > 0 {
		due := from.Add(t.DueIn)
		task.DueDate = &due
	}
	return task
}
