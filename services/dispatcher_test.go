package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"legal_matter_engine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, notFoundError("user", id)
}

type sentNotification struct {
	UserID string
	Type   string
	CaseID string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, notificationType, title, message string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{UserID: userID, Type: notificationType, CaseID: metadata["case_id"]})
	return f.err
}

func (f *fakeNotifier) all() []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentNotification(nil), f.sent...)
}

// mockMailer and mockCRM use testify mocks so expectations read like the call
type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	return m.Called(to, subject).Error(0)
}

type mockCRM struct{ mock.Mock }

func (m *mockCRM) UpsertContact(ctx context.Context, identity ContactIdentity, tags []string, customFields map[string]string) error {
	return m.Called(identity, tags, customFields).Error(0)
}

// blockingNotifier never returns until its context is done
type blockingNotifier struct{}

func (blockingNotifier) Notify(ctx context.Context, userID, notificationType, title, message string, metadata map[string]string) error {
	<-ctx.Done()
	return ctx.Err()
}

func dispatcherUsers() (fakeUsers, *models.User, *models.User) {
	phone := "+15550100"
	client := &models.User{ID: "client-1", Name: "Ana", Email: "ana@client.com", Phone: &phone, Role: models.RoleClient, IsActive: true}
	attorney := &models.User{ID: "att-1", Name: "Luis", Email: "luis@firm.com", Role: models.RoleLawyer, IsActive: true}
	return fakeUsers{client.ID: client, attorney.ID: attorney}, client, attorney
}

func TestDispatcher_CaseCreatedFansOut(t *testing.T) {
	users, client, attorney := dispatcherUsers()
	notifier := &fakeNotifier{}
	mailer := &mockMailer{}
	crm := &mockCRM{}
	mailer.On("Send", client.Email, mock.AnythingOfType("string")).Return(nil).Once()
	crm.On("UpsertContact",
		ContactIdentity{Name: "Ana", Email: "ana@client.com", Phone: "+15550100"},
		[]string{"client", models.PracticeAreaImmigration, "status:open"},
		mock.Anything,
	).Return(nil).Once()

	d := NewDispatcher(DispatcherConfig{Workers: 2, Timeout: time.Second, AppURL: "https://app.test"}, users, notifier, mailer, crm)
	d.Dispatch(Event{
		Type: EventCaseCreated,
		Case: &models.Case{ID: "case-1", CaseNumber: "IMM-2026-0001", Title: "Visa", PracticeArea: models.PracticeAreaImmigration,
			Status: models.CaseStatusOpen, ClientID: client.ID, AttorneyID: &attorney.ID},
	})
	d.Close()

	sent := notifier.all()
	require.Len(t, sent, 2)
	byUser := map[string]sentNotification{}
	for _, n := range sent {
		byUser[n.UserID] = n
	}
	assert.Equal(t, models.NotificationTypeCaseCreated, byUser[client.ID].Type)
	assert.Equal(t, models.NotificationTypeAssignment, byUser[attorney.ID].Type)
	assert.Equal(t, "case-1", byUser[client.ID].CaseID)
	mailer.AssertExpectations(t)
	crm.AssertExpectations(t)
}

func TestDispatcher_StatusChangedSkipsActingAttorney(t *testing.T) {
	users, client, attorney := dispatcherUsers()
	notifier := &fakeNotifier{}

	d := NewDispatcher(DispatcherConfig{Workers: 1, Timeout: time.Second}, users, notifier, nil, nil)
	d.Dispatch(Event{
		Type:           EventStatusChanged,
		Case:           &models.Case{ID: "case-1", CaseNumber: "IMM-2026-0001", ClientID: client.ID, AttorneyID: &attorney.ID},
		PreviousStatus: models.CaseStatusOpen,
		NewStatus:      models.CaseStatusInProgress,
		ActorID:        attorney.ID,
	})
	d.Close()

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, client.ID, sent[0].UserID)
	assert.Equal(t, models.NotificationTypeCaseUpdate, sent[0].Type)
}

func TestDispatcher_TaskAssigned(t *testing.T) {
	users, _, attorney := dispatcherUsers()
	notifier := &fakeNotifier{}
	mailer := &mockMailer{}
	mailer.On("Send", attorney.Email, "New task: Draft motion").Return(nil).Once()

	d := NewDispatcher(DispatcherConfig{Workers: 1, Timeout: time.Second}, users, notifier, mailer, nil)
	d.Dispatch(Event{Type: EventTaskAssigned, Task: &models.Task{ID: "task-1", Title: "Draft motion"}, AssigneeID: attorney.ID})
	d.Dispatch(Event{Type: EventTaskAssigned, AssigneeID: "unknown"})
	d.Close()

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, models.NotificationTypeAssignment, sent[0].Type)
	mailer.AssertExpectations(t)
}

func TestDispatcher_FailuresAreIsolated(t *testing.T) {
	users, client, _ := dispatcherUsers()
	notifier := &fakeNotifier{err: errors.New("notification store down")}
	mailer := &mockMailer{}
	crm := &mockCRM{}
	mailer.On("Send", mock.Anything, mock.Anything).Return(nil).Once()
	crm.On("UpsertContact", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("crm 502")).Once()

	d := NewDispatcher(DispatcherConfig{Workers: 1, Timeout: time.Second}, users, notifier, mailer, crm)
	d.Dispatch(Event{Type: EventCaseCreated, Case: &models.Case{ID: "case-1", ClientID: client.ID}})
	d.Close()

	// the failing notifier and CRM did not stop the email
	assert.Len(t, notifier.all(), 1)
	mailer.AssertExpectations(t)
	crm.AssertExpectations(t)
}

func TestDispatcher_TimeoutAndClose(t *testing.T) {
	users, client, _ := dispatcherUsers()
	d := NewDispatcher(DispatcherConfig{Workers: 1, QueueSize: 1, Timeout: 20 * time.Millisecond}, users, blockingNotifier{}, nil, nil)

	start := time.Now()
	for i := 0; i < 5; i++ {
		d.Dispatch(Event{Type: EventStatusChanged, Case: &models.Case{ID: "case-1", ClientID: client.ID}})
	}
	assert.Less(t, time.Since(start), 20*time.Millisecond, "Dispatch must not wait for sinks")

	d.Close()
	d.Close()
	assert.NotPanics(t, func() {
		d.Dispatch(Event{Type: EventCaseCreated, Case: &models.Case{ID: "case-2"}})
	})
}

func TestCreateCase_DispatchNeverBlocksOrFails(t *testing.T) {
	failures := map[string]struct {
		notifier NotificationSink
		mailer   func() EmailSink
		crm      func() CRMSync
	}{
		"notification unreachable": {notifier: blockingNotifier{}},
		"email failing": {notifier: &fakeNotifier{}, mailer: func() EmailSink {
			m := &mockMailer{}
			m.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp refused"))
			return m
		}},
		"crm failing": {notifier: &fakeNotifier{}, crm: func() CRMSync {
			c := &mockCRM{}
			c.On("UpsertContact", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			return c
		}},
	}

	for name, tc := range failures {
		t.Run(name, func(t *testing.T) {
			conn := setupTestDB(t)
			store := NewStore(conn, 5*time.Second)
			client := createTestUser(t, conn, "Ana", "ana@client.com", models.RoleClient)

			var mailer EmailSink
			if tc.mailer != nil {
				mailer = tc.mailer()
			}
			var crm CRMSync
			if tc.crm != nil {
				crm = tc.crm()
			}
			d := NewDispatcher(DispatcherConfig{Workers: 1, Timeout: 50 * time.Millisecond}, store, tc.notifier, mailer, crm)
			service := NewCaseService(store, nil, d, nil, CaseServiceConfig{})

			c, err := service.CreateCase(context.Background(), CreateCaseInput{
				ClientID:     client.ID,
				PracticeArea: models.PracticeAreaImmigration,
				Title:        "Green card",
			})
			require.NoError(t, err)
			d.Close()

			persisted, err := store.GetCase(context.Background(), c.ID)
			require.NoError(t, err)
			assert.Equal(t, c.CaseNumber, persisted.CaseNumber)
		})
	}
}
