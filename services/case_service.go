package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"legal_matter_engine/models"
	"legal_matter_engine/services/workflow"

	"github.com/google/uuid"
)

// CaseServiceConfig tunes the case service
type CaseServiceConfig struct {
	CacheTTL    time.Duration
	SearchLimit int
	Now         func() time.Time
}

// CaseService is the public API of the case engine. Writes run in a single
// store transaction; side effects are dispatched only after commit.
type CaseService struct {
	store      *Store
	cache      *Cache[*CaseDetails]
	dispatcher EventDispatcher
	storage    StorageProvider
	cfg        CaseServiceConfig
}

// NewCaseService wires the case service. cache, dispatcher and storage may be nil.
func NewCaseService(store *Store, cache *Cache[*CaseDetails], dispatcher EventDispatcher, storage StorageProvider, cfg CaseServiceConfig) *CaseService {
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = DefaultResultLimit
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	return &CaseService{store: store, cache: cache, dispatcher: dispatcher, storage: storage, cfg: cfg}
}

// DocumentInput is the metadata of an uploaded document
type DocumentInput struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	StorageKey string `json:"storage_key,omitempty"`
	Size       int64  `json:"size"`
	UploadedBy string `json:"uploaded_by"`
}

// CreateCaseInput holds the fields for a new case
type CreateCaseInput struct {
	ClientID         string               `json:"client_id"`
	PracticeArea     string               `json:"practice_area"`
	Title            string               `json:"title"`
	Description      *string              `json:"description,omitempty"`
	AttorneyID       *string              `json:"attorney_id,omitempty"`
	InitialDocuments []DocumentInput      `json:"initial_documents,omitempty"`
	Metadata         *models.CaseMetadata `json:"metadata,omitempty"`
	CreatedBy        string               `json:"-"`
}

// CasePatch lists the case fields to change. Nil fields are left untouched.
type CasePatch struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Status      *string            `json:"status,omitempty"`
	Financials  *models.Financials `json:"financials,omitempty"`
	Custom      map[string]any     `json:"custom,omitempty"`
}

// CreateTaskInput holds the fields for an ad hoc task
type CreateTaskInput struct {
	CaseID       *string    `json:"case_id,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Type         string     `json:"type"`
	Priority     string     `json:"priority"`
	AssignedToID *string    `json:"assigned_to_id,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	CreatedByID  string     `json:"-"`
}

// CreateCase creates a case with a fresh case number, seeds its tasks and
// records any initial documents, all in one transaction.
func (s *CaseService) CreateCase(ctx context.Context, input CreateCaseInput) (*models.Case, error) {
	input.ClientID = strings.TrimSpace(input.ClientID)
	input.Title = strings.TrimSpace(input.Title)
	switch {
	case input.ClientID == "":
		return nil, validationError("client_id is required")
	case input.PracticeArea == "":
		return nil, validationError("practice_area is required")
	case !models.IsValidPracticeArea(input.PracticeArea):
		return nil, validationError("unknown practice area %q", input.PracticeArea)
	case input.Title == "":
		return nil, validationError("title is required")
	}
	for i, doc := range input.InitialDocuments {
		if strings.TrimSpace(doc.Name) == "" {
			return nil, validationError("initial document %d has no name", i+1)
		}
	}

	created, err := s.createCaseTx(ctx, input)
	if errors.Is(err, ErrConstraintViolation) {
		// Burn the colliding number in its own transaction, then retry once
		log.Printf("[CASE] case number collision for %s, retrying once", input.PracticeArea)
		if _, seqErr := NextCaseNumber(ctx, s.store, input.PracticeArea, s.cfg.Now()); seqErr != nil {
			return nil, seqErr
		}
		created, err = s.createCaseTx(ctx, input)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[CASE] created %s (%s) for client %s", created.CaseNumber, created.ID, created.ClientID)
	s.dispatch(Event{Type: EventCaseCreated, Case: created, ActorID: input.CreatedBy, NewStatus: created.Status})
	return created, nil
}

func (s *CaseService) createCaseTx(ctx context.Context, input CreateCaseInput) (*models.Case, error) {
	var created *models.Case
	err := s.store.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.GetUser(ctx, input.ClientID); err != nil {
			return err
		}
		if input.AttorneyID != nil && *input.AttorneyID != "" {
			if err := requireAttorney(ctx, tx, *input.AttorneyID); err != nil {
				return err
			}
		} else {
			input.AttorneyID = nil
		}

		now := s.cfg.Now()
		caseNumber, err := NextCaseNumber(ctx, tx, input.PracticeArea, now)
		if err != nil {
			return err
		}

		createdBy := input.CreatedBy
		if createdBy == "" {
			createdBy = input.ClientID
		}

		metadata := models.CaseMetadata{}
		if input.Metadata != nil {
			metadata = *input.Metadata
			for i := range metadata.Notes {
				if metadata.Notes[i].ID == "" {
					metadata.Notes[i].ID = uuid.New().String()
				}
				if metadata.Notes[i].CreatedAt.IsZero() {
					metadata.Notes[i].CreatedAt = now
				}
			}
		}

		c := &models.Case{
			CaseNumber:   caseNumber,
			PracticeArea: input.PracticeArea,
			Status:       models.CaseStatusOpen,
			Title:        input.Title,
			Description:  input.Description,
			ClientID:     input.ClientID,
			AttorneyID:   input.AttorneyID,
			Metadata:     metadata,
		}
		if err := tx.CreateCase(ctx, c); err != nil {
			return err
		}

		seeds := workflow.SeedTasksFor(input.PracticeArea)
		tasks := make([]models.Task, 0, len(seeds))
		for _, tmpl := range seeds {
			task := tmpl.Instantiate(&c.ID, createdBy, now)
			task.AssignedToID = input.AttorneyID
			tasks = append(tasks, task)
		}
		if err := tx.CreateTasks(ctx, tasks); err != nil {
			return err
		}

		docs := make([]models.Document, 0, len(input.InitialDocuments))
		for _, d := range input.InitialDocuments {
			uploadedBy := d.UploadedBy
			if uploadedBy == "" {
				uploadedBy = createdBy
			}
			docs = append(docs, models.Document{
				CaseID:     c.ID,
				Name:       d.Name,
				Type:       d.Type,
				URL:        d.URL,
				StorageKey: d.StorageKey,
				Size:       d.Size,
				UploadedBy: uploadedBy,
			})
		}
		if err := tx.CreateDocuments(ctx, docs); err != nil {
			return err
		}

		created, err = tx.GetCase(ctx, c.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateCase applies a partial update. A status change must follow the case
// state machine and dispatches StatusChanged after commit.
func (s *CaseService) UpdateCase(ctx context.Context, caseID string, patch CasePatch, actorID string) (*models.Case, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, validationError("title cannot be empty")
	}
	if patch.Status != nil && !models.IsValidCaseStatus(*patch.Status) {
		return nil, validationError("unknown status %q", *patch.Status)
	}

	var updated *models.Case
	var previousStatus string
	statusChanged := false

	err := s.store.Transaction(ctx, func(tx *Store) error {
		existing, err := tx.GetCase(ctx, caseID)
		if err != nil {
			return err
		}
		if existing.IsArchived() {
			return fmt.Errorf("%w: case %s is archived", ErrInvalidTransition, existing.CaseNumber)
		}
		previousStatus = existing.Status

		fields := map[string]interface{}{}
		if patch.Title != nil {
			fields["title"] = strings.TrimSpace(*patch.Title)
		}
		if patch.Description != nil {
			fields["description"] = *patch.Description
		}
		if patch.Status != nil && *patch.Status != existing.Status {
			if !models.CanTransitionCase(existing.Status, *patch.Status) {
				return fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, existing.CaseNumber, existing.Status, *patch.Status)
			}
			fields["status"] = *patch.Status
			statusChanged = true
		}
		if patch.Financials != nil || len(patch.Custom) > 0 {
			metadata := existing.Metadata
			if patch.Financials != nil {
				financials := *patch.Financials
				metadata.Financials = &financials
			}
			if len(patch.Custom) > 0 {
				custom := make(map[string]any, len(metadata.Custom)+len(patch.Custom))
				for k, v := range metadata.Custom {
					custom[k] = v
				}
				for k, v := range patch.Custom {
					custom[k] = v
				}
				metadata.Custom = custom
			}
			fields["metadata"] = metadata
		}

		if len(fields) > 0 {
			fields["updated_at"] = s.cfg.Now()
			if err := tx.UpdateCase(ctx, caseID, fields); err != nil {
				return err
			}
		}

		updated, err = tx.GetCase(ctx, caseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(caseID)
	if statusChanged {
		log.Printf("[CASE] %s status %s -> %s by %s", updated.CaseNumber, previousStatus, updated.Status, actorID)
		s.dispatch(Event{Type: EventStatusChanged, Case: updated, PreviousStatus: previousStatus, NewStatus: updated.Status, ActorID: actorID})
	}
	return updated, nil
}

// AssignAttorney sets the case attorney and records a private audit note
func (s *CaseService) AssignAttorney(ctx context.Context, caseID, attorneyID, assignedBy string) (*models.Case, error) {
	if strings.TrimSpace(attorneyID) == "" {
		return nil, validationError("attorney_id is required")
	}

	var updated *models.Case
	err := s.store.Transaction(ctx, func(tx *Store) error {
		existing, err := tx.GetCase(ctx, caseID)
		if err != nil {
			return err
		}
		if existing.IsArchived() {
			return fmt.Errorf("%w: case %s is archived", ErrInvalidTransition, existing.CaseNumber)
		}
		attorney, err := tx.GetUser(ctx, attorneyID)
		if err != nil {
			return err
		}
		if !attorney.IsAttorney() {
			return fmt.Errorf("%w: %s", ErrInvalidAttorney, attorney.ID)
		}

		now := s.cfg.Now()
		note := models.Note{
			ID:        uuid.New().String(),
			Content:   fmt.Sprintf("Attorney %s (%s) assigned by %s at %s", attorney.Name, attorney.ID, assignedBy, now.UTC().Format(time.RFC3339)),
			CreatedAt: now,
			CreatedBy: assignedBy,
			IsPrivate: true,
		}
		err = tx.UpdateCase(ctx, caseID, map[string]interface{}{
			"attorney_id": attorney.ID,
			"metadata":    existing.Metadata.WithNote(note),
			"updated_at":  now,
		})
		if err != nil {
			return err
		}

		updated, err = tx.GetCase(ctx, caseID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(caseID)
	s.dispatch(Event{Type: EventTaskAssigned, Case: updated, AssigneeID: attorneyID, ActorID: assignedBy})
	return updated, nil
}

// AddNote appends a note to the case. Existing notes are never changed.
func (s *CaseService) AddNote(ctx context.Context, caseID, content string, isPrivate bool, authorID string) (*models.Note, error) {
	content = sanitizeNote(content)
	if content == "" {
		return nil, validationError("note content is required")
	}

	note := models.Note{
		ID:        uuid.New().String(),
		Content:   content,
		CreatedAt: s.cfg.Now(),
		CreatedBy: authorID,
		IsPrivate: isPrivate,
	}

	err := s.store.Transaction(ctx, func(tx *Store) error {
		existing, err := tx.GetCase(ctx, caseID)
		if err != nil {
			return err
		}
		return tx.UpdateCase(ctx, caseID, map[string]interface{}{
			"metadata":   existing.Metadata.WithNote(note),
			"updated_at": note.CreatedAt,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(caseID)
	return &note, nil
}

// BulkUpdateStatus moves every listed case to status in one transaction.
// Any illegal transition aborts the whole batch.
func (s *CaseService) BulkUpdateStatus(ctx context.Context, caseIDs []string, status, updatedBy string) ([]models.Case, error) {
	if !models.IsValidCaseStatus(status) {
		return nil, validationError("unknown status %q", status)
	}
	ids := uniqueStrings(caseIDs)
	if len(ids) == 0 {
		return nil, validationError("case_ids is required")
	}

	type change struct {
		previous string
		changed  bool
	}
	changes := make(map[string]change, len(ids))
	updated := make([]models.Case, 0, len(ids))

	err := s.store.Transaction(ctx, func(tx *Store) error {
		now := s.cfg.Now()
		for _, id := range ids {
			existing, err := tx.GetCase(ctx, id)
			if err != nil {
				return err
			}

			changed := existing.Status != status
			if changed && !models.CanTransitionCase(existing.Status, status) {
				return fmt.Errorf("%w: %s cannot move from %s to %s", ErrInvalidTransition, existing.CaseNumber, existing.Status, status)
			}
			if !changed && existing.IsArchived() {
				return fmt.Errorf("%w: case %s is archived", ErrInvalidTransition, existing.CaseNumber)
			}

			content := fmt.Sprintf("Status changed from %s to %s by %s (bulk update)", existing.Status, status, updatedBy)
			if !changed {
				content = fmt.Sprintf("Status confirmed as %s by %s (bulk update)", status, updatedBy)
			}
			note := models.Note{
				ID:        uuid.New().String(),
				Content:   content,
				CreatedAt: now,
				CreatedBy: updatedBy,
				IsPrivate: true,
			}

			err = tx.UpdateCase(ctx, id, map[string]interface{}{
				"status":     status,
				"metadata":   existing.Metadata.WithNote(note),
				"updated_at": now,
			})
			if err != nil {
				return err
			}

			refreshed, err := tx.GetCase(ctx, id)
			if err != nil {
				return err
			}
			changes[id] = change{previous: existing.Status, changed: changed}
			updated = append(updated, *refreshed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range updated {
		c := updated[i]
		s.invalidate(c.ID)
		if ch := changes[c.ID]; ch.changed {
			s.dispatch(Event{Type: EventStatusChanged, Case: &c, PreviousStatus: ch.previous, NewStatus: c.Status, ActorID: updatedBy})
		}
	}
	log.Printf("[CASE] bulk status update to %s for %d cases by %s", status, len(updated), updatedBy)
	return updated, nil
}

// SearchCases matches query case-insensitively against case number, title,
// description and client name/email, combined with the equality filters.
func (s *CaseService) SearchCases(ctx context.Context, query string, filter CaseFilter) ([]models.Case, error) {
	if filter.Status != "" && !models.IsValidCaseStatus(filter.Status) {
		return nil, validationError("unknown status %q", filter.Status)
	}
	if filter.PracticeArea != "" && !models.IsValidPracticeArea(filter.PracticeArea) {
		return nil, validationError("unknown practice area %q", filter.PracticeArea)
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return nil, validationError("created_from must be before created_to")
	}

	filter.Query = query
	if filter.Limit <= 0 || filter.Limit > s.cfg.SearchLimit {
		filter.Limit = s.cfg.SearchLimit
	}
	return s.store.ListCases(ctx, filter)
}

// CreateTask creates an ad hoc task, optionally attached to a case
func (s *CaseService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, validationError("title is required")
	}
	if input.Type == "" {
		input.Type = models.TaskTypeOther
	}
	if !models.IsValidTaskType(input.Type) {
		return nil, validationError("unknown task type %q", input.Type)
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !models.IsValidTaskPriority(input.Priority) {
		return nil, validationError("unknown task priority %q", input.Priority)
	}
	if input.CaseID != nil && *input.CaseID == "" {
		input.CaseID = nil
	}
	if input.AssignedToID != nil && *input.AssignedToID == "" {
		input.AssignedToID = nil
	}
	if input.DueDate != nil {
		due := input.DueDate.UTC()
		input.DueDate = &due
	}

	task := &models.Task{
		CaseID:       input.CaseID,
		Title:        input.Title,
		Description:  input.Description,
		Type:         input.Type,
		Priority:     input.Priority,
		Status:       models.TaskStatusPending,
		AssignedToID: input.AssignedToID,
		CreatedByID:  input.CreatedByID,
		DueDate:      input.DueDate,
	}

	var parent *models.Case
	err := s.store.Transaction(ctx, func(tx *Store) error {
		if task.CaseID != nil {
			c, err := tx.GetCase(ctx, *task.CaseID)
			if err != nil {
				return err
			}
			parent = c
		}
		if task.AssignedToID != nil {
			if _, err := tx.GetUser(ctx, *task.AssignedToID); err != nil {
				return err
			}
		}
		return tx.CreateTask(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	if task.CaseID != nil {
		s.invalidate(*task.CaseID)
	}
	if task.AssignedToID != nil {
		s.dispatch(Event{Type: EventTaskAssigned, Case: parent, Task: task, AssigneeID: *task.AssignedToID, ActorID: input.CreatedByID})
	}
	return task, nil
}

// UpdateTaskStatus moves a task to status. completed is terminal; completing
// a task creates its follow-on tasks in the same transaction.
func (s *CaseService) UpdateTaskStatus(ctx context.Context, taskID, status, actorID string) (*models.Task, []models.Task, error) {
	if !models.IsValidTaskStatus(status) {
		return nil, nil, validationError("unknown task status %q", status)
	}

	var updated *models.Task
	var followOns []models.Task

	err := s.store.Transaction(ctx, func(tx *Store) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task.IsCompleted() {
			return fmt.Errorf("%w: task %s is already completed", ErrInvalidTransition, task.ID)
		}
		if task.Status == status {
			updated = task
			return nil
		}

		now := s.cfg.Now()
		fields := map[string]interface{}{"status": status, "updated_at": now}
		if status == models.TaskStatusCompleted {
			fields["completed_at"] = now
		}
		if err := tx.UpdateTask(ctx, taskID, fields); err != nil {
			return err
		}

		if status == models.TaskStatusCompleted {
			createdBy := actorID
			if createdBy == "" {
				createdBy = task.CreatedByID
			}
			for _, tmpl := range workflow.FollowOnTasksFor(*task) {
				followOn := tmpl.Instantiate(task.CaseID, createdBy, now)
				followOn.AssignedToID = task.AssignedToID
				followOn.ParentTaskID = &task.ID
				followOns = append(followOns, followOn)
			}
			if err := tx.CreateTasks(ctx, followOns); err != nil {
				return err
			}
		}

		updated, err = tx.GetTask(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if updated.CaseID != nil {
		s.invalidate(*updated.CaseID)
	}
	return updated, followOns, nil
}

// AssignTask sets the task assignee and dispatches TaskAssigned
func (s *CaseService) AssignTask(ctx context.Context, taskID, assigneeID, actorID string) (*models.Task, error) {
	if strings.TrimSpace(assigneeID) == "" {
		return nil, validationError("assignee is required")
	}

	var updated *models.Task
	var parent *models.Case
	err := s.store.Transaction(ctx, func(tx *Store) error {
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if task.IsCompleted() {
			return fmt.Errorf("%w: task %s is already completed", ErrInvalidTransition, task.ID)
		}
		if _, err := tx.GetUser(ctx, assigneeID); err != nil {
			return err
		}
		if err := tx.UpdateTask(ctx, taskID, map[string]interface{}{"assigned_to_id": assigneeID, "reminder_sent_at": nil}); err != nil {
			return err
		}
		if task.CaseID != nil {
			if parent, err = tx.GetCase(ctx, *task.CaseID); err != nil {
				return err
			}
		}
		updated, err = tx.GetTask(ctx, taskID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if updated.CaseID != nil {
		s.invalidate(*updated.CaseID)
	}
	s.dispatch(Event{Type: EventTaskAssigned, Case: parent, Task: updated, AssigneeID: assigneeID, ActorID: actorID})
	return updated, nil
}

func (s *CaseService) invalidate(caseID string) {
	s.cache.Invalidate(caseCacheKey(caseID))
}

func (s *CaseService) dispatch(evt Event) {
	if s.dispatcher == nil {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = s.cfg.Now()
	}
	s.dispatcher.Dispatch(evt)
}

func requireAttorney(ctx context.Context, tx *Store, userID string) error {
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsAttorney() {
		return fmt.Errorf("%w: %s", ErrInvalidAttorney, user.ID)
	}
	return nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
