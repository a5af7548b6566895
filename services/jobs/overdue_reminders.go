package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"legal_matter_engine/models"
	"legal_matter_engine/services"

	"github.com/robfig/cron/v3"
)

// OverdueReminder tells assignees about their overdue tasks, once per task
type OverdueReminder struct {
	store    *services.Store
	notifier services.NotificationSink
	mailer   services.EmailSink
	appURL   string
	batch    int
	now      func() time.Time
}

// NewOverdueReminder wires the reminder job. mailer may be nil.
func NewOverdueReminder(store *services.Store, notifier services.NotificationSink, mailer services.EmailSink, appURL string) *OverdueReminder {
	return &OverdueReminder{
		store:    store,
		notifier: notifier,
		mailer:   mailer,
		appURL:   appURL,
		batch:    200,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run reminds every assignee of an overdue task that has not been reminded
// yet and returns how many tasks were marked.
func (r *OverdueReminder) Run(ctx context.Context) (int, error) {
	log.Println("[JOB] Starting overdue task reminder job...")

	now := r.now()
	tasks, err := r.store.ListOverdueTasks(ctx, now, r.batch)
	if err != nil {
		return 0, err
	}
	log.Printf("[JOB] Found %d overdue tasks to remind", len(tasks))

	reminded := 0
	for i := range tasks {
		task := &tasks[i]
		if err := r.remind(ctx, task, now); err != nil {
			log.Printf("[JOB] Failed to remind task %s: %v", task.ID, err)
			continue
		}
		reminded++
	}

	log.Printf("[JOB] Overdue task reminder job completed (%d reminded)", reminded)
	return reminded, nil
}

func (r *OverdueReminder) remind(ctx context.Context, task *models.Task, now time.Time) error {
	assignee, err := r.store.GetUser(ctx, *task.AssignedToID)
	if err != nil {
		return err
	}

	metadata := map[string]string{"task_id": task.ID}
	if task.CaseID != nil {
		metadata["case_id"] = *task.CaseID
	}
	message := fmt.Sprintf("%q was due %s", task.Title, task.DueDate.UTC().Format("Jan 2, 2006 15:04 MST"))
	if err := r.notifier.Notify(ctx, assignee.ID, models.NotificationTypeTaskOverdue, "Task overdue", message, metadata); err != nil {
		return err
	}

	if r.mailer != nil && assignee.Email != "" {
		email := services.BuildTaskOverdueEmail(assignee.Email, assignee.Name, task, r.appURL)
		if email == nil {
			log.Printf("[JOB][WARNING] overdue email for task %s could not be rendered", task.ID)
		} else if err := r.mailer.Send(ctx, assignee.Email, email.Subject, email.HTMLBody); err != nil {
			// The in-app notification went out; still mark the task
			log.Printf("[JOB][WARNING] overdue email for task %s to %s failed: %v", task.ID, assignee.Email, err)
		}
	}

	// updated_at is kept so reminders do not show up as task activity
	return r.store.UpdateTask(ctx, task.ID, map[string]interface{}{"reminder_sent_at": now, "updated_at": task.UpdatedAt})
}

// StartScheduler runs the reminder job on spec in timezone. The returned
// scheduler must be stopped on shutdown.
func StartScheduler(spec, timezone string, reminder *OverdueReminder) (*cron.Cron, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		log.Printf("[CRON][WARNING] unknown timezone %q, using UTC", timezone)
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(spec, func() {
		log.Println("[CRON] Running overdue task reminders...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := reminder.Run(ctx); err != nil {
			log.Printf("[CRON] Overdue task reminders failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule overdue reminders %q: %w", spec, err)
	}

	c.Start()
	log.Printf("[CRON] Scheduler started (%s, %s)", spec, loc)
	return c, nil
}
