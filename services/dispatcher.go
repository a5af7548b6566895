package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"legal_matter_engine/models"
)

// EventType names a committed state change that fans out side effects
type EventType string

const (
	EventCaseCreated   EventType = "CaseCreated"
	EventStatusChanged EventType = "StatusChanged"
	// EventTaskAssigned covers task assignment and attorney assignment to a
	// case (Task is nil in the latter).
	EventTaskAssigned EventType = "TaskAssigned"
)

// Event is built after a write commits and handed to the dispatcher
type Event struct {
	Type           EventType
	Case           *models.Case
	Task           *models.Task
	PreviousStatus string
	NewStatus      string
	ActorID        string
	AssigneeID     string
	OccurredAt     time.Time
}

// NotificationSink creates in-app notifications
type NotificationSink interface {
	Notify(ctx context.Context, userID, notificationType, title, message string, metadata map[string]string) error
}

// EmailSink sends transactional email
type EmailSink interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ContactIdentity keys a CRM contact by email or phone
type ContactIdentity struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// CRMSync upserts contacts in the external CRM
type CRMSync interface {
	UpsertContact(ctx context.Context, identity ContactIdentity, tags []string, customFields map[string]string) error
}

// UserDirectory resolves users for contact details
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// EventDispatcher accepts events for asynchronous side effects
type EventDispatcher interface {
	Dispatch(evt Event)
}

// DispatcherConfig tunes the dispatcher worker pool
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	AppURL    string
}

// Dispatcher fans out notification, email and CRM calls on its own workers.
// Every call is best effort: failures are logged and never reach the writer.
type Dispatcher struct {
	users    UserDirectory
	notifier NotificationSink
	mailer   EmailSink
	crm      CRMSync
	cfg      DispatcherConfig

	queue  chan Event
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker pool. Any sink may be nil to disable it.
func NewDispatcher(cfg DispatcherConfig, users UserDirectory, notifier NotificationSink, mailer EmailSink, crm CRMSync) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	d := &Dispatcher{
		users:    users,
		notifier: notifier,
		mailer:   mailer,
		crm:      crm,
		cfg:      cfg,
		queue:    make(chan Event, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Dispatch queues an event without blocking. A full or closed queue drops
// the event with a log line carrying enough context to replay it.
func (d *Dispatcher) Dispatch(evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		log.Printf("[DISPATCH] dropped %s for case %s: dispatcher closed", evt.Type, caseRef(evt.Case))
		return
	}
	select {
	case d.queue <- evt:
	default:
		log.Printf("[DISPATCH] dropped %s for case %s: queue full", evt.Type, caseRef(evt.Case))
	}
}

// Close stops accepting events and waits for queued ones to finish
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for evt := range d.queue {
		d.handle(evt)
	}
}

// sideEffect is one independent call made for an event
type sideEffect struct {
	sink   string
	target string
	call   func(ctx context.Context) error
}

func (d *Dispatcher) handle(evt Event) {
	effects := d.plan(evt)

	var wg sync.WaitGroup
	for _, effect := range effects {
		wg.Add(1)
		go func(effect sideEffect) {
			defer wg.Done()
			d.run(evt, effect)
		}(effect)
	}
	wg.Wait()
}

func (d *Dispatcher) run(evt Event, effect sideEffect) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[DISPATCH] %s %s for case %s to %s panicked: %v", evt.Type, effect.sink, caseRef(evt.Case), effect.target, r)
		}
	}()

	err := effect.call(ctx)
	if err == nil {
		return
	}
	err = fmt.Errorf("%w: %s %s: %v", ErrDispatchFailure, evt.Type, effect.sink, err)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		log.Printf("[DISPATCH][WARNING] timed out after %s: case=%s target=%s: %v", d.cfg.Timeout, caseRef(evt.Case), effect.target, err)
		return
	}
	log.Printf("[DISPATCH] case=%s target=%s: %v", caseRef(evt.Case), effect.target, err)
}

// plan resolves recipients and builds the side effects for an event
func (d *Dispatcher) plan(evt Event) []sideEffect {
	var effects []sideEffect

	switch evt.Type {
	case EventCaseCreated:
		if evt.Case == nil {
			return nil
		}
		client := d.lookup(evt.Case.ClientID)
		if client != nil {
			title := "Your case has been opened"
			msg := fmt.Sprintf("Case %s (%s) has been created.", evt.Case.CaseNumber, evt.Case.Title)
			effects = append(effects, d.notifyEffect(client.ID, models.NotificationTypeCaseCreated, title, msg, evt))
			effects = append(effects, d.emailEffect(client.Email, BuildCaseCreatedEmail(client.Email, client.Name, evt.Case, d.cfg.AppURL)))
			effects = append(effects, d.crmEffect(client, []string{"client", evt.Case.PracticeArea, "status:" + evt.Case.Status}, evt.Case))
		}
		if evt.Case.AttorneyID != nil {
			msg := fmt.Sprintf("New case %s has been assigned to you.", evt.Case.CaseNumber)
			effects = append(effects, d.notifyEffect(*evt.Case.AttorneyID, models.NotificationTypeAssignment, "New case assigned", msg, evt))
		}

	case EventStatusChanged:
		if evt.Case == nil {
			return nil
		}
		title := fmt.Sprintf("Case %s status updated", evt.Case.CaseNumber)
		msg := fmt.Sprintf("Status changed from %s to %s.", evt.PreviousStatus, evt.NewStatus)
		if client := d.lookup(evt.Case.ClientID); client != nil {
			effects = append(effects, d.notifyEffect(client.ID, models.NotificationTypeCaseUpdate, title, msg, evt))
			effects = append(effects, d.emailEffect(client.Email, BuildStatusChangedEmail(client.Email, client.Name, evt.Case, evt.PreviousStatus, evt.NewStatus, d.cfg.AppURL)))
			effects = append(effects, d.crmEffect(client, []string{"client", evt.Case.PracticeArea, "status:" + evt.NewStatus}, evt.Case))
		}
		if evt.Case.AttorneyID != nil && *evt.Case.AttorneyID != evt.ActorID {
			effects = append(effects, d.notifyEffect(*evt.Case.AttorneyID, models.NotificationTypeCaseUpdate, title, msg, evt))
		}

	case EventTaskAssigned:
		assignee := d.lookup(evt.AssigneeID)
		if assignee == nil {
			return nil
		}
		var title, msg string
		if evt.Task != nil {
			title = "New task assigned"
			msg = fmt.Sprintf("You have been assigned the task %q.", evt.Task.Title)
		} else if evt.Case != nil {
			title = "Case assigned"
			msg = fmt.Sprintf("You have been assigned as attorney on case %s.", evt.Case.CaseNumber)
		}
		effects = append(effects, d.notifyEffect(assignee.ID, models.NotificationTypeAssignment, title, msg, evt))
		effects = append(effects, d.emailEffect(assignee.Email, BuildAssignmentEmail(assignee.Email, assignee.Name, evt.Case, evt.Task, d.cfg.AppURL)))
	}

	return effects
}

func (d *Dispatcher) lookup(userID string) *models.User {
	if userID == "" || d.users == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()
	user, err := d.users.GetUser(ctx, userID)
	if err != nil {
		log.Printf("[DISPATCH] could not resolve user %s: %v", userID, err)
		return nil
	}
	return user
}

func (d *Dispatcher) notifyEffect(userID, notificationType, title, message string, evt Event) sideEffect {
	metadata := map[string]string{"event": string(evt.Type)}
	if evt.Case != nil {
		metadata["case_id"] = evt.Case.ID
		metadata["case_number"] = evt.Case.CaseNumber
	}
	if evt.Task != nil {
		metadata["task_id"] = evt.Task.ID
	}
	return sideEffect{sink: "notification", target: userID, call: func(ctx context.Context) error {
		if d.notifier == nil {
			return nil
		}
		return d.notifier.Notify(ctx, userID, notificationType, title, message, metadata)
	}}
}

func (d *Dispatcher) emailEffect(to string, email *Email) sideEffect {
	return sideEffect{sink: "email", target: to, call: func(ctx context.Context) error {
		if d.mailer == nil || email == nil {
			return nil
		}
		return d.mailer.Send(ctx, to, email.Subject, email.HTMLBody)
	}}
}

func (d *Dispatcher) crmEffect(user *models.User, tags []string, c *models.Case) sideEffect {
	identity := ContactIdentity{Name: user.Name, Email: user.Email}
	if user.Phone != nil {
		identity.Phone = *user.Phone
	}
	custom := map[string]string{
		"case_number":   c.CaseNumber,
		"practice_area": c.PracticeArea,
		"case_status":   c.Status,
	}
	return sideEffect{sink: "crm", target: user.Email, call: func(ctx context.Context) error {
		if d.crm == nil {
			return nil
		}
		return d.crm.UpsertContact(ctx, identity, tags, custom)
	}}
}

func caseRef(c *models.Case) string {
	if c == nil {
		return "-"
	}
	if c.CaseNumber != "" {
		return c.CaseNumber + " (" + c.ID + ")"
	}
	return c.ID
}
