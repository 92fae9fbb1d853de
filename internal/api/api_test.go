package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/taskivo/taskivo/internal/extract"
	"github.com/taskivo/taskivo/internal/flow"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/services"
	"github.com/taskivo/taskivo/internal/store"
	"github.com/taskivo/taskivo/internal/store/sqlite"
	"github.com/taskivo/taskivo/internal/voice"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) SendText(ctx context.Context, phone, body string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, body)
	return "m1", nil
}

func (r *recordingSender) SendTemplate(ctx context.Context, phone, name string, vars map[string]string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, name)
	return "m1", nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type noMedia struct{}

func (noMedia) Fetch(ctx context.Context, url string) ([]byte, error) { return nil, nil }

func newTestRouter(t *testing.T) (*mux.Router, store.Store, *services.Users, *recordingSender) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)

	log := zerolog.Nop()
	users := services.NewUsers(st, log, "he", "Asia/Jerusalem")
	tasks := services.NewTasks(st, log)
	meetings := services.NewMeetings(st, log)
	delegations := services.NewDelegations(st, log)
	reminders := services.NewReminders(st, log)
	msgLog := services.NewMessageLog(st, log)
	sender := &recordingSender{}

	engine := flow.New(flow.Deps{
		Store:       st,
		Users:       users,
		Tasks:       tasks,
		Meetings:    meetings,
		Delegations: delegations,
		Reminders:   reminders,
		MessageLog:  msgLog,
		Sender:      sender,
		Extractor:   extract.New(nil, log),
		Transcriber: voice.Mock{},
		CountryCode: "972",
		Logger:      log,
	})

	router := NewRouter(RouterDeps{
		Engine:      engine,
		Users:       users,
		Tasks:       tasks,
		Meetings:    meetings,
		Delegations: delegations,
		Reminders:   reminders,
		Media:       noMedia{},
		CountryCode: "972",
		Logger:      log,
	})
	return router, st, users, sender
}

func postWebhook(t *testing.T, router *mux.Router, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_CreatesUserAndReplies(t *testing.T) {
	router, _, users, sender := newTestRouter(t)

	rec := postWebhook(t, router, url.Values{
		"From": {"whatsapp:+972501234567"},
		"Body": {"עזרה"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Greater(t, sender.count(), 0)

	u, created, err := users.GetOrCreate(context.Background(), "+972501234567")
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "he", u.Language)
}

func TestWebhook_MissingFrom(t *testing.T) {
	router, _, _, _ := newTestRouter(t)
	rec := postWebhook(t, router, url.Values{"Body": {"hi"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router, _, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "status")
}

func TestTasksAPI_CreateGetComplete(t *testing.T) {
	router, _, users, _ := newTestRouter(t)
	u, _, err := users.GetOrCreate(context.Background(), "+972500000001")
	require.NoError(t, err)
	base := "/api/users/" + strconv.FormatInt(u.ID, 10)

	body, _ := json.Marshal(map[string]interface{}{
		"title":   "לקנות חלב",
		"dueDate": "2026-09-01",
	})
	req := httptest.NewRequest(http.MethodPost, base+"/tasks", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	taskPath := base + "/tasks/" + strconv.FormatInt(created.ID, 10)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, taskPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "לקנות חלב")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, taskPath+"/complete", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"completed"`)
}

func TestTasksAPI_CreateSchedulesAutoReminders(t *testing.T) {
	router, st, users, _ := newTestRouter(t)
	u, _, err := users.GetOrCreate(context.Background(), "+972500000005")
	require.NoError(t, err)

	due := time.Now().AddDate(0, 0, 7).Format("2006-01-02")
	body, _ := json.Marshal(map[string]interface{}{
		"title":   "להגיש דוח",
		"dueDate": due,
		"dueTime": "14:00",
	})
	path := "/api/users/" + strconv.FormatInt(u.ID, 10) + "/tasks"
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rems, err := st.Reminders().ListByTask(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, rems, 4)
	dueAt, err := time.ParseInLocation("2006-01-02 15:04", due+" 14:00", time.Now().Location())
	require.NoError(t, err)
	require.Equal(t, dueAt.Add(-24*time.Hour).UTC(), rems[0].ScheduledTime.UTC())
	require.Equal(t, dueAt.UTC(), rems[3].ScheduledTime.UTC())
}

func TestTasksAPI_NotFound(t *testing.T) {
	router, _, users, _ := newTestRouter(t)
	u, _, err := users.GetOrCreate(context.Background(), "+972500000002")
	require.NoError(t, err)
	path := "/api/users/" + strconv.FormatInt(u.ID, 10) + "/tasks/9999"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelegationsAPI_DelegateAndList(t *testing.T) {
	router, st, users, _ := newTestRouter(t)
	u, _, err := users.GetOrCreate(context.Background(), "+972500000004")
	require.NoError(t, err)
	task, err := st.Tasks().Create(context.Background(), &model.Task{UserID: u.ID, Title: "להכין מצגת"})
	require.NoError(t, err)

	base := "/api/users/" + strconv.FormatInt(u.ID, 10)
	body, _ := json.Marshal(map[string]string{"assigneePhone": "0501112222", "assigneeName": "דנה"})
	path := base + "/tasks/" + strconv.FormatInt(task.ID, 10) + "/delegate"
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), "+972501112222")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"/delegations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "דנה")
}

func TestUserAPI_UpdateProfile(t *testing.T) {
	router, _, users, _ := newTestRouter(t)
	u, _, err := users.GetOrCreate(context.Background(), "+972500000003")
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]interface{}{
		"language":             "en",
		"weeklySummaryEnabled": true,
		"weeklySummaryDay":     4,
	})
	path := "/api/users/" + strconv.FormatInt(u.ID, 10)
	req := httptest.NewRequest(http.MethodPatch, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := users.Get(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, "en", got.Language)
	require.True(t, got.WeeklySummary)
	require.Equal(t, 4, got.WeeklySummaryDay)
}
