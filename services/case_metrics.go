package services

import (
	"context"
	"fmt"
	"maps"
	"math"
	"slices"
	"sort"
	"time"

	"legal_matter_engine/models"
)

// CaseMetrics are derived from the current task, document and appointment rows
type CaseMetrics struct {
	TaskCompletionPct    int `json:"task_completion_pct"`
	TotalTasks           int `json:"total_tasks"`
	CompletedTasks       int `json:"completed_tasks"`
	OverdueTasks         int `json:"overdue_tasks"`
	TotalDocuments       int `json:"total_documents"`
	UpcomingAppointments int `json:"upcoming_appointments"`
}

// CaseDetails is the composite read served through the cache
type CaseDetails struct {
	Case         *models.Case         `json:"case"`
	Tasks        []models.Task        `json:"tasks"`
	Documents    []models.Document    `json:"documents"`
	Appointments []models.Appointment `json:"appointments"`
	Metrics      CaseMetrics          `json:"metrics"`
	LoadedAt     time.Time            `json:"loaded_at"`
}

// Timeline event types
const (
	TimelineCaseCreated = "case_created"
	TimelineTask        = "task"
	TimelineAppointment = "appointment"
	TimelineDocument    = "document"
	TimelineNote        = "note"
)

// TimelineEvent is one entry of a case timeline
type TimelineEvent struct {
	Type            string    `json:"type"`
	Timestamp       time.Time `json:"timestamp"`
	Description     string    `json:"description"`
	ActorOrAssignee string    `json:"actor_or_assignee,omitempty"`
	Private         bool      `json:"private,omitempty"`
}

// CaseStatistics aggregates a filtered set of cases
type CaseStatistics struct {
	TotalCases              int64            `json:"total_cases"`
	StatusBreakdown         map[string]int64 `json:"status_breakdown"`
	PracticeAreaBreakdown   map[string]int64 `json:"practice_area_breakdown"`
	AverageCaseDurationDays float64          `json:"average_case_duration_days"`
}

// ComputeMetrics derives case metrics at now
func ComputeMetrics(tasks []models.Task, docs []models.Document, appointments []models.Appointment, now time.Time) CaseMetrics {
	m := CaseMetrics{TotalTasks: len(tasks), TotalDocuments: len(docs)}
	for i := range tasks {
		if tasks[i].IsCompleted() {
			m.CompletedTasks++
		} else if tasks[i].IsOverdue(now) {
			m.OverdueTasks++
		}
	}
	if m.TotalTasks > 0 {
		m.TaskCompletionPct = int(math.Round(float64(m.CompletedTasks) * 100 / float64(m.TotalTasks)))
	}
	for i := range appointments {
		if appointments[i].IsUpcoming(now) {
			m.UpcomingAppointments++
		}
	}
	return m
}

// CalculateMetrics reads the case's rows and computes its metrics
func (s *CaseService) CalculateMetrics(ctx context.Context, caseID string) (*CaseMetrics, error) {
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasksByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocumentsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	appointments, err := s.store.ListAppointmentsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	m := ComputeMetrics(tasks, docs, appointments, s.cfg.Now())
	return &m, nil
}

// GetCaseDetails returns the case with its tasks, documents and metrics.
// The actor must be a party to the case.
func (s *CaseService) GetCaseDetails(ctx context.Context, caseID, actorID string) (*CaseDetails, error) {
	details, err := s.cache.GetOrLoad(caseCacheKey(caseID), func() (*CaseDetails, error) {
		return s.loadCaseDetails(ctx, caseID)
	}, s.cfg.CacheTTL)
	if err != nil {
		return nil, err
	}
	if !details.Case.IsParty(actorID) {
		return nil, fmt.Errorf("%w: %s is not a party to case %s", ErrUnauthorized, actorID, details.Case.CaseNumber)
	}

	out := details.clone()
	out.Case.Metadata.Notes = VisibleNotes(details.Case, actorID)
	return out, nil
}

// clone copies the parts of a cached CaseDetails a caller could mutate, so
// edits to the returned value never reach the cache.
func (d *CaseDetails) clone() *CaseDetails {
	out := *d
	c := *d.Case
	if d.Case.Client != nil {
		client := *d.Case.Client
		c.Client = &client
	}
	if d.Case.Attorney != nil {
		attorney := *d.Case.Attorney
		c.Attorney = &attorney
	}
	c.Metadata.Notes = slices.Clone(d.Case.Metadata.Notes)
	if d.Case.Metadata.Financials != nil {
		financials := *d.Case.Metadata.Financials
		c.Metadata.Financials = &financials
	}
	c.Metadata.Custom = maps.Clone(d.Case.Metadata.Custom)
	out.Case = &c
	out.Tasks = slices.Clone(d.Tasks)
	out.Documents = slices.Clone(d.Documents)
	out.Appointments = slices.Clone(d.Appointments)
	return &out
}

func (s *CaseService) loadCaseDetails(ctx context.Context, caseID string) (*CaseDetails, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasksByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocumentsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	appointments, err := s.store.ListAppointmentsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	now := s.cfg.Now()
	return &CaseDetails{
		Case:         c,
		Tasks:        tasks,
		Documents:    docs,
		Appointments: appointments,
		Metrics:      ComputeMetrics(tasks, docs, appointments, now),
		LoadedAt:     now,
	}, nil
}

// GetCaseTimeline returns the case events, newest first
func (s *CaseService) GetCaseTimeline(ctx context.Context, caseID string) ([]TimelineEvent, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasksByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocumentsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	appointments, err := s.store.ListAppointmentsByCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(c, tasks, docs, appointments), nil
}

// BuildTimeline merges case events into one list ordered newest first
func BuildTimeline(c *models.Case, tasks []models.Task, docs []models.Document, appointments []models.Appointment) []TimelineEvent {
	events := make([]TimelineEvent, 0, 1+len(tasks)+len(docs)+len(appointments)+len(c.Metadata.Notes))

	events = append(events, TimelineEvent{
		Type:            TimelineCaseCreated,
		Timestamp:       c.CreatedAt,
		Description:     fmt.Sprintf("Case %s opened: %s", c.CaseNumber, c.Title),
		ActorOrAssignee: c.ClientID,
	})

	for _, t := range tasks {
		assignee := t.CreatedByID
		if t.AssignedToID != nil {
			assignee = *t.AssignedToID
		}
		events = append(events, TimelineEvent{
			Type:            TimelineTask,
			Timestamp:       t.UpdatedAt,
			Description:     fmt.Sprintf("Task %q is %s", t.Title, t.Status),
			ActorOrAssignee: assignee,
		})
	}

	for _, a := range appointments {
		events = append(events, TimelineEvent{
			Type:            TimelineAppointment,
			Timestamp:       a.ScheduledAt,
			Description:     fmt.Sprintf("%s appointment (%s)", a.Type, a.Status),
			ActorOrAssignee: a.UserID,
		})
	}

	for _, d := range docs {
		events = append(events, TimelineEvent{
			Type:            TimelineDocument,
			Timestamp:       d.CreatedAt,
			Description:     fmt.Sprintf("Document %q uploaded", d.Name),
			ActorOrAssignee: d.UploadedBy,
		})
	}

	for _, n := range c.Metadata.Notes {
		description := "Note added"
		if n.IsPrivate {
			description = "Private note added"
		}
		events = append(events, TimelineEvent{
			Type:            TimelineNote,
			Timestamp:       n.CreatedAt,
			Description:     description,
			ActorOrAssignee: n.CreatedBy,
			Private:         n.IsPrivate,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events
}

// GetCaseStatistics aggregates the cases matching filter. The average
// duration only covers closed cases.
func (s *CaseService) GetCaseStatistics(ctx context.Context, filter CaseFilter) (*CaseStatistics, error) {
	byStatus, err := s.store.CountCasesBy(ctx, "status", filter)
	if err != nil {
		return nil, err
	}
	byArea, err := s.store.CountCasesBy(ctx, "practice_area", filter)
	if err != nil {
		return nil, err
	}
	spans, err := s.store.ListClosedCaseSpans(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := &CaseStatistics{
		StatusBreakdown:       byStatus,
		PracticeAreaBreakdown: byArea,
	}
	for _, n := range byStatus {
		stats.TotalCases += n
	}
	stats.AverageCaseDurationDays = averageDurationDays(spans)
	return stats, nil
}

func averageDurationDays(spans []CaseSpan) float64 {
	if len(spans) == 0 {
		return 0
	}
	var total time.Duration
	for _, span := range spans {
		total += span.UpdatedAt.Sub(span.CreatedAt)
	}
	days := total.Hours() / 24 / float64(len(spans))
	return math.Round(days*100) / 100
}
