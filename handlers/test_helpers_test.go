package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"legal_matter_engine/db"
	"legal_matter_engine/middleware"
	"legal_matter_engine/models"
	"legal_matter_engine/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.Open(db.DSN(filepath.Join(t.TempDir(), "api.db")), logger.Silent)
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(conn))
	return conn
}

func createTestUser(t *testing.T, conn *gorm.DB, name, email, role string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New().String(),
		Name:     name,
		Email:    email,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// nopDispatcher drops events; side effects are covered by the services tests
type nopDispatcher struct{}

func (nopDispatcher) Dispatch(services.Event) {}

type testServer struct {
	e        *echo.Echo
	db       *gorm.DB
	store    *services.Store
	api      *API
	client   *models.User
	other    *models.User
	attorney *models.User
	staff    *models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	conn := setupTestDB(t)
	store := services.NewStore(conn, 5*time.Second)
	storage := services.NewLocalStorage(t.TempDir())
	cases := services.NewCaseService(store, services.NewCache[*services.CaseDetails](64, time.Minute), nopDispatcher{}, storage, services.CaseServiceConfig{})

	api := &API{
		Cases:         cases,
		Reports:       services.NewReportExporter(cases, nil, storage),
		Notifications: services.NewNotificationService(conn),
	}

	e := echo.New()
	g := e.Group("/api", middleware.RequireActor(store))
	api.Register(g)

	return &testServer{
		e:        e,
		db:       conn,
		store:    store,
		api:      api,
		client:   createTestUser(t, conn, "Ana Client", "ana@client.com", models.RoleClient),
		other:    createTestUser(t, conn, "Otto Other", "otto@client.com", models.RoleClient),
		attorney: createTestUser(t, conn, "Luis Lawyer", "luis@firm.com", models.RoleLawyer),
		staff:    createTestUser(t, conn, "Sam Staff", "sam@firm.com", models.RoleStaff),
	}
}

// do sends a JSON request as actor and returns the recorder
func (s *testServer) do(t *testing.T, method, path string, actor *models.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if actor != nil {
		req.Header.Set(middleware.ActorHeader, actor.ID)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// createCase opens an immigration case for the test client with the test
// attorney assigned
func (s *testServer) createCase(t *testing.T, title string) models.Case {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/cases", s.attorney, map[string]interface{}{
		"client_id":     s.client.ID,
		"practice_area": models.PracticeAreaImmigration,
		"title":         title,
		"attorney_id":   s.attorney.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c models.Case
	decode(t, rec, &c)
	return c
}
