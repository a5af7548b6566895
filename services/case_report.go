package services

import (
	"context"
	"sort"
	"time"

	"legal_matter_engine/models"

	"golang.org/x/sync/errgroup"
)

// Communication is a note or notification shown in a case report
type Communication struct {
	Kind      string    `json:"kind"` // "note" or "notification"
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author,omitempty"`
	Recipient string    `json:"recipient,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	IsPrivate bool      `json:"is_private"`
}

// FinancialSummary is the case's money position at report time
type FinancialSummary struct {
	Currency    string  `json:"currency"`
	Retainer    float64 `json:"retainer"`
	Billed      float64 `json:"billed"`
	Paid        float64 `json:"paid"`
	Expenses    float64 `json:"expenses"`
	Outstanding float64 `json:"outstanding"`
}

// CaseReport is a read-only snapshot of a case
type CaseReport struct {
	Case               *models.Case      `json:"case"`
	GeneratedAt        time.Time         `json:"generated_at"`
	Metrics            CaseMetrics       `json:"metrics"`
	Tasks              []models.Task     `json:"tasks"`
	Documents          []models.Document `json:"documents"`
	Timeline           []TimelineEvent   `json:"timeline"`
	Communications     []Communication   `json:"communications"`
	Financials         FinancialSummary  `json:"financials"`
	DocumentTypeCounts map[string]int    `json:"document_type_counts"`
}

// GenerateCaseReport loads every part of a case and composes a report. It
// has no side effects.
func (s *CaseService) GenerateCaseReport(ctx context.Context, caseID string) (*CaseReport, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	var (
		tasks         []models.Task
		docs          []models.Document
		appointments  []models.Appointment
		notifications []models.Notification
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tasks, err = s.store.ListTasksByCase(gctx, caseID)
		return err
	})
	g.Go(func() (err error) {
		docs, err = s.store.ListDocumentsByCase(gctx, caseID)
		return err
	})
	g.Go(func() (err error) {
		appointments, err = s.store.ListAppointmentsByCase(gctx, caseID)
		return err
	})
	g.Go(func() (err error) {
		notifications, err = s.store.ListNotificationsByCase(gctx, caseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.cfg.Now()
	return &CaseReport{
		Case:               c,
		GeneratedAt:        now,
		Metrics:            ComputeMetrics(tasks, docs, appointments, now),
		Tasks:              tasks,
		Documents:          docs,
		Timeline:           BuildTimeline(c, tasks, docs, appointments),
		Communications:     buildCommunications(c.Metadata.Notes, notifications),
		Financials:         summarizeFinancials(c.Metadata.Financials),
		DocumentTypeCounts: countDocumentTypes(docs),
	}, nil
}

func buildCommunications(notes []models.Note, notifications []models.Notification) []Communication {
	out := make([]Communication, 0, len(notes)+len(notifications))
	for _, n := range notes {
		out = append(out, Communication{
			Kind:      "note",
			Timestamp: n.CreatedAt,
			Author:    n.CreatedBy,
			Body:      n.Content,
			IsPrivate: n.IsPrivate,
		})
	}
	for _, n := range notifications {
		out = append(out, Communication{
			Kind:      "notification",
			Timestamp: n.CreatedAt,
			Recipient: n.UserID,
			Subject:   n.Title,
			Body:      n.Message,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

func summarizeFinancials(f *models.Financials) FinancialSummary {
	if f == nil {
		return FinancialSummary{Currency: "USD"}
	}
	currency := f.Currency
	if currency == "" {
		currency = "USD"
	}
	return FinancialSummary{
		Currency:    currency,
		Retainer:    f.Retainer,
		Billed:      f.Billed,
		Paid:        f.Paid,
		Expenses:    f.Expenses,
		Outstanding: f.Outstanding(),
	}
}

func countDocumentTypes(docs []models.Document) map[string]int {
	counts := make(map[string]int)
	for _, d := range docs {
		docType := d.Type
		if docType == "" {
			docType = "other"
		}
		counts[docType]++
	}
	return counts
}
