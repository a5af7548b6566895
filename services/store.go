package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"legal_matter_engine/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultResultLimit caps list and search results when the caller sets none
const DefaultResultLimit = 50

// Store is the entity repository for cases, tasks, documents and appointments.
// A Store obtained inside Transaction runs every call on that transaction.
type Store struct {
	db      *gorm.DB
	timeout time.Duration
	inTx    bool
}

// NewStore wraps a gorm connection. Calls without a deadline get timeout applied.
func NewStore(db *gorm.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// CaseFilter narrows case listings. Zero values are ignored.
type CaseFilter struct {
	Query        string     `json:"query,omitempty"`
	Status       string     `json:"status,omitempty"`
	PracticeArea string     `json:"practice_area,omitempty"`
	AttorneyID   string     `json:"attorney_id,omitempty"`
	ClientID     string     `json:"client_id,omitempty"`
	CreatedFrom  *time.Time `json:"created_from,omitempty"`
	CreatedTo    *time.Time `json:"created_to,omitempty"`
	Limit        int        `json:"limit,omitempty"`
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if s.inTx {
		// the transaction already carries the caller's deadline
		return s.db, func() {}
	}
	if _, ok := ctx.Deadline(); !ok && s.timeout > 0 {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		return s.db.WithContext(ctx), cancel
	}
	return s.db.WithContext(ctx), func() {}
}

// Transaction runs fn in a single database transaction. Either every write
// made through the Store passed to fn commits, or none does.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	conn, cancel := s.conn(ctx)
	defer cancel()
	err := conn.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
	return storeError("transaction", err)
}

// --- Users ---

// GetUser fetches a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var user models.User
	if err := conn.First(&user, "id = ?", id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundError("user", id)
		}
		return nil, storeError("get user", err)
	}
	return &user, nil
}

// CreateUser inserts a user row. A duplicate email is a constraint violation.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	conn, cancel := s.conn(ctx)
	defer cancel()
	return storeError("create user", conn.Create(user).Error)
}

// CountUsersByRole counts active and inactive users holding role
func (s *Store) CountUsersByRole(ctx context.Context, role string) (int64, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var count int64
	err := conn.Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, storeError("count users", err)
}

// --- Cases ---

// CreateCase inserts a case row
func (s *Store) CreateCase(ctx context.Context, c *models.Case) error {
	conn, cancel := s.conn(ctx)
	defer cancel()
	return storeError("create case", conn.Omit(clause.Associations).Create(c).Error)
}

// GetCase fetches a case with its client and attorney
func (s *Store) GetCase(ctx context.Context, id string) (*models.Case, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var c models.Case
	err := conn.Preload("Client").Preload("Attorney").First(&c, "id = ?", id).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundError("case", id)
		}
		return nil, storeError("get case", err)
	}
	return &c, nil
}

// GetCaseByNumber fetches a case by its human readable number
func (s *Store) GetCaseByNumber(ctx context.Context, caseNumber string) (*models.Case, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var c models.Case
	err := conn.Preload("Client").Preload("Attorney").First(&c, "case_number = ?", caseNumber).Error
	if err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundError("case", caseNumber)
		}
		return nil, storeError("get case by number", err)
	}
	return &c, nil
}

// UpdateCase applies column updates to a case. updated_at is always refreshed.
func (s *Store) UpdateCase(ctx context.Context, id string, fields map[string]interface{}) error {
	conn, cancel := s.conn(ctx)
	defer cancel()
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	normalizeTimes(fields)
	result := conn.Model(&models.Case{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return storeError("update case", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundError("case", id)
	}
	return nil
}

// normalizeTimes converts time values in an update map to UTC. sqlite
// compares stored times as text, so every persisted time shares one offset.
func normalizeTimes(fields map[string]interface{}) {
	for k, v := range fields {
		switch t := v.(type) {
		case time.Time:
			fields[k] = t.UTC()
		case *time.Time:
			if t != nil {
				utc := t.UTC()
				fields[k] = &utc
			}
		}
	}
}

// ListCases returns cases matching the filter, newest first, capped at the filter limit
func (s *Store) ListCases(ctx context.Context, filter CaseFilter) ([]models.Case, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultResultLimit
	}

	var cases []models.Case
	err := applyCaseFilter(conn.Model(&models.Case{}), filter).
		Select("cases.*").
		Preload("Client").
		Preload("Attorney").
		Order("cases.created_at DESC").
		Limit(limit).
		Find(&cases).Error
	if err != nil {
		return nil, storeError("list cases", err)
	}
	return cases, nil
}

// CountCasesBy returns case counts grouped by column ("status" or "practice_area")
func (s *Store) CountCasesBy(ctx context.Context, column string, filter CaseFilter) (map[string]int64, error) {
	if column != "status" && column != "practice_area" {
		return nil, validationError("cannot group cases by %q", column)
	}
	conn, cancel := s.conn(ctx)
	defer cancel()

	type groupCount struct {
		GroupKey string
		Count    int64
	}
	var rows []groupCount
	err := applyCaseFilter(conn.Model(&models.Case{}), filter).
		Select("cases." + column + " AS group_key, COUNT(*) AS count").
		Group("cases." + column).
		Scan(&rows).Error
	if err != nil {
		return nil, storeError("count cases", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.GroupKey] = r.Count
	}
	return counts, nil
}

// CaseSpan is the creation and last-update time of one case
type CaseSpan struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListClosedCaseSpans returns created/updated times of closed cases matching the filter
func (s *Store) ListClosedCaseSpans(ctx context.Context, filter CaseFilter) ([]CaseSpan, error) {
	if filter.Status != "" && filter.Status != models.CaseStatusClosed {
		return nil, nil
	}
	conn, cancel := s.conn(ctx)
	defer cancel()
	filter.Status = models.CaseStatusClosed
	var spans []CaseSpan
	err := applyCaseFilter(conn.Model(&models.Case{}), filter).
		Select("cases.created_at, cases.updated_at").
		Scan(&spans).Error
	if err != nil {
		return nil, storeError("list closed cases", err)
	}
	return spans, nil
}

func applyCaseFilter(q *gorm.DB, filter CaseFilter) *gorm.DB {
	if filter.Status != "" {
		q = q.Where("cases.status = ?", filter.Status)
	}
	if filter.PracticeArea != "" {
		q = q.Where("cases.practice_area = ?", filter.PracticeArea)
	}
	if filter.AttorneyID != "" {
		q = q.Where("cases.attorney_id = ?", filter.AttorneyID)
	}
	if filter.ClientID != "" {
		q = q.Where("cases.client_id = ?", filter.ClientID)
	}
	if filter.CreatedFrom != nil {
		q = q.Where("cases.created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		q = q.Where("cases.created_at <= ?", filter.CreatedTo.UTC())
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Query)); term != "" {
		pattern := "%" + term + "%"
		q = q.Joins("LEFT JOIN users AS client ON client.id = cases.client_id").
			Where(
				"LOWER(cases.case_number) LIKE ? OR LOWER(cases.title) LIKE ? OR LOWER(COALESCE(cases.description, '')) LIKE ? OR LOWER(COALESCE(client.name, '')) LIKE ? OR LOWER(COALESCE(client.email, '')) LIKE ?",
				pattern, pattern, pattern, pattern, pattern,
			)
	}
	return q
}

// NextSequence atomically increments and returns the counter for an area code
// and year. The increment and the read happen in one transaction, so two
// callers never observe the same value.
func (s *Store) NextSequence(ctx context.Context, areaCode string, year int) (int, error) {
	var next int
	err := s.Transaction(ctx, func(tx *Store) error {
		seq := models.CaseSequence{AreaCode: areaCode, Year: year, LastValue: 1}
		err := tx.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "area_code"}, {Name: "year"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_value": gorm.Expr("last_value + 1")}),
		}).Create(&seq).Error
		if err != nil {
			return err
		}
		var current models.CaseSequence
		if err := tx.db.First(&current, "area_code = ? AND year = ?", areaCode, year).Error; err != nil {
			return err
		}
		next = current.LastValue
		return nil
	})
	if err != nil {
		return 0, storeError("next case sequence", err)
	}
	return next, nil
}

// --- Tasks ---

// CreateTasks inserts tasks in one statement
func (s *Store) CreateTasks(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	conn, cancel := s.conn(ctx)
	defer cancel()
	return storeError("create tasks", conn.Create(&tasks).Error)
}

// CreateTask inserts a single task
func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	conn, cancel := s.conn(ctx)
	defer cancel()
	return storeError("create task", conn.Create(task).Error)
}

// GetTask fetches a task by ID
func (s *Store) GetTask(ctx context.Context, id string) (*models.Task, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var task models.Task
	if err := conn.First(&task, "id = ?", id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundError("task", id)
		}
		return nil, storeError("get task", err)
	}
	return &task, nil
}

// UpdateTask applies column updates to a task
func (s *Store) UpdateTask(ctx context.Context, id string, fields map[string]interface{}) error {
	conn, cancel := s.conn(ctx)
	defer cancel()
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	normalizeTimes(fields)
	result := conn.Model(&models.Task{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return storeError("update task", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundError("task", id)
	}
	return nil
}

// ListTasksByCase returns the case's tasks in creation order
func (s *Store) ListTasksByCase(ctx context.Context, caseID string) ([]models.Task, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var tasks []models.Task
	if err := conn.Where("case_id = ?", caseID).Order("created_at ASC").Find(&tasks).Error; err != nil {
		return nil, storeError("list tasks", err)
	}
	return tasks, nil
}

// ListOverdueTasks returns assigned, unfinished, not yet reminded tasks due before now
func (s *Store) ListOverdueTasks(ctx context.Context, now time.Time, limit int) ([]models.Task, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	if limit <= 0 {
		limit = DefaultResultLimit
	}
	var tasks []models.Task
	err := conn.Where("status <> ?", models.TaskStatusCompleted).
		Where("due_date IS NOT NULL AND due_date < ?", now.UTC()).
		Where("assigned_to_id IS NOT NULL").
		Where("reminder_sent_at IS NULL").
		Order("due_date ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, storeError("list overdue tasks", err)
	}
	return tasks, nil
}

// --- Documents ---

// CreateDocuments inserts document metadata rows
func (s *Store) CreateDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	conn, cancel := s.conn(ctx)
	defer cancel()
	return storeError("create documents", conn.Create(&docs).Error)
}

// CreateDocument inserts a single document row
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	conn, cancel := s.conn(ctx)
	defer cancel()
	return storeError("create document", conn.Create(doc).Error)
}

// GetDocument fetches a document by ID
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var doc models.Document
	if err := conn.First(&doc, "id = ?", id).Error; err != nil {
		if isRecordNotFound(err) {
			return nil, notFoundError("document", id)
		}
		return nil, storeError("get document", err)
	}
	return &doc, nil
}

// DeleteDocument soft-deletes a document row
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	conn, cancel := s.conn(ctx)
	defer cancel()
	result := conn.Delete(&models.Document{}, "id = ?", id)
	if result.Error != nil {
		return storeError("delete document", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundError("document", id)
	}
	return nil
}

// ListDocumentsByCase returns the case's documents, newest first
func (s *Store) ListDocumentsByCase(ctx context.Context, caseID string) ([]models.Document, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var docs []models.Document
	if err := conn.Where("case_id = ?", caseID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, storeError("list documents", err)
	}
	return docs, nil
}

// --- Appointments ---

// ListAppointmentsByCase returns the case's appointments by schedule
func (s *Store) ListAppointmentsByCase(ctx context.Context, caseID string) ([]models.Appointment, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var appointments []models.Appointment
	if err := conn.Where("case_id = ?", caseID).Order("scheduled_at ASC").Find(&appointments).Error; err != nil {
		return nil, storeError("list appointments", err)
	}
	return appointments, nil
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// --- Notifications ---

// ListNotificationsByCase returns notifications raised for the case, newest first
func (s *Store) ListNotificationsByCase(ctx context.Context, caseID string) ([]models.Notification, error) {
	conn, cancel := s.conn(ctx)
	defer cancel()
	var notifications []models.Notification
	if err := conn.Where("case_id = ?", caseID).Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, storeError("list notifications", err)
	}
	return notifications, nil
}
