package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskgate/taskgate/internal/auth"
	"github.com/taskgate/taskgate/internal/health"
	"github.com/taskgate/taskgate/internal/observability"
	"github.com/taskgate/taskgate/internal/ratelimit"
	"github.com/taskgate/taskgate/internal/ratelimit/store"
	"github.com/taskgate/taskgate/internal/task"
	"github.com/taskgate/taskgate/internal/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeStore implements task.Store with canned results and call counts.
type fakeStore struct {
	calls int

	task  *task.Task
	tasks []task.Task
	total int
	stats *task.StatusCounts
	err   error
}

func (f *fakeStore) Create(ctx context.Context, params task.CreateParams) (*task.Task, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.task != nil {
		return f.task, nil
	}

	priority := params.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}
	now := time.Now()
	return &task.Task{
		ID:          "3f0e9e7c-1a2b-4c3d-8e9f-0a1b2c3d4e5f",
		Title:       params.Title,
		Description: params.Description,
		Status:      task.StatusPending,
		Priority:    priority,
		DueDate:     params.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*task.Task, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.task, nil
}

func (f *fakeStore) List(ctx context.Context, params task.ListParams) ([]task.Task, int, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.tasks, f.total, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, params task.UpdateParams) (*task.Task, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.task, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.calls++
	return f.err
}

func (f *fakeStore) Stats(ctx context.Context) (*task.StatusCounts, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.stats, nil
}

// fakeProvider implements auth.Provider with canned results.
type fakeProvider struct {
	verifyCalls int

	identity *auth.Identity
	session  *auth.Session
	err      error
}

func (f *fakeProvider) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	f.verifyCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password, name string) (*auth.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeProvider) SignOut(ctx context.Context, token string) error {
	return f.err
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*auth.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeProvider) SendPasswordReset(ctx context.Context, email string) error {
	return f.err
}

func (f *fakeProvider) UpdatePassword(ctx context.Context, token, password string) error {
	return f.err
}

func (f *fakeProvider) ResendVerification(ctx context.Context, email string) error {
	return f.err
}

// envelope mirrors the wire envelope for test decoding.
type envelope struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Data    json.RawMessage         `json:"data"`
	Error   string                  `json:"error"`
	Errors  []validation.FieldError `json:"errors"`
	Count   *int                    `json:"count"`
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics("taskgate")
}

func newTestHealth() *health.Handler {
	return health.NewHandler("test", nil)
}

func verifiedIdentity() *auth.Identity {
	now := time.Now()
	return &auth.Identity{ID: "user-1", Email: "user@example.com", VerifiedAt: &now}
}

func newTestServer(t *testing.T, tasks *fakeStore, provider *fakeProvider, tiers ...ratelimit.Tier) *Server {
	t.Helper()

	registry := ratelimit.NewRegistry(store.NewMemoryStore(), nil, tiers...)
	t.Cleanup(registry.Close)

	return New(nil, Deps{
		Tasks:    tasks,
		Provider: provider,
		Limits:   registry,
	}, nil)
}

func doRequest(s *Server, method, target, body, token string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	r := httptest.NewRequest(method, target, reader)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, r)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var e envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), "body: %s", w.Body.String())
	return e
}

func TestCreateTask_Success(t *testing.T) {
	tasks := &fakeStore{}
	s := newTestServer(t, tasks, &fakeProvider{identity: verifiedIdentity()})

	w := doRequest(s, "POST", "/tasks", `{"title":"Write spec","priority":"high"}`, "valid")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	e := decodeEnvelope(t, w)
	assert.True(t, e.Success)

	var created task.Task
	require.NoError(t, json.Unmarshal(e.Data, &created))
	assert.Equal(t, task.StatusPending, created.Status)
	assert.Equal(t, task.PriorityHigh, created.Priority)
	assert.Equal(t, 1, tasks.calls)
}

func TestCreateTask_MissingTitle(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"absent title", `{"priority":"high"}`},
		{"empty title", `{"title":""}`},
		{"whitespace title", `{"title":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := &fakeStore{}
			s := newTestServer(t, tasks, &fakeProvider{identity: verifiedIdentity()})

			w := doRequest(s, "POST", "/tasks", tt.body, "valid")
			require.Equal(t, http.StatusBadRequest, w.Code)

			e := decodeEnvelope(t, w)
			assert.False(t, e.Success)
			require.NotEmpty(t, e.Errors)
			assert.Equal(t, "title", e.Errors[0].Field)
			assert.Zero(t, tasks.calls, "store must not be reached")
		})
	}
}

func TestCreateTask_RequiresAuth(t *testing.T) {
	tasks := &fakeStore{}
	provider := &fakeProvider{identity: verifiedIdentity()}
	s := newTestServer(t, tasks, provider)

	w := doRequest(s, "POST", "/tasks", `{"title":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, provider.verifyCalls, "no remote call without credentials")
	assert.Zero(t, tasks.calls)
}

func TestCreateTask_RejectedToken(t *testing.T) {
	tasks := &fakeStore{}
	provider := &fakeProvider{err: &auth.ProviderError{StatusCode: 401, Message: "invalid token"}}
	s := newTestServer(t, tasks, provider)

	w := doRequest(s, "POST", "/tasks", `{"title":"x"}`, "expired")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, tasks.calls)
}

func TestCreateTask_UnverifiedIdentity(t *testing.T) {
	tasks := &fakeStore{}
	provider := &fakeProvider{identity: &auth.Identity{ID: "user-1"}}
	s := newTestServer(t, tasks, provider)

	w := doRequest(s, "POST", "/tasks", `{"title":"x"}`, "valid")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, tasks.calls)
}

func TestListTasks(t *testing.T) {
	completed := []task.Task{
		{ID: "a", Title: "one", Status: task.StatusCompleted},
		{ID: "b", Title: "two", Status: task.StatusCompleted},
		{ID: "c", Title: "three", Status: task.StatusCompleted},
	}
	tasks := &fakeStore{tasks: completed, total: 3}
	s := newTestServer(t, tasks, &fakeProvider{})

	w := doRequest(s, "GET", "/tasks?status=completed&limit=5&offset=0", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	e := decodeEnvelope(t, w)
	assert.True(t, e.Success)
	require.NotNil(t, e.Count)
	assert.Equal(t, 3, *e.Count)

	var listed []task.Task
	require.NoError(t, json.Unmarshal(e.Data, &listed))
	assert.Len(t, listed, 3)
}

func TestListTasks_InvalidQuery(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"limit too large", "/tasks?limit=101"},
		{"limit zero", "/tasks?limit=0"},
		{"limit negative", "/tasks?limit=-1"},
		{"offset negative", "/tasks?offset=-5"},
		{"bad status", "/tasks?status=done"},
		{"bad sort column", "/tasks?sort_by=title"},
		{"bad order", "/tasks?order=sideways"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := &fakeStore{}
			s := newTestServer(t, tasks, &fakeProvider{})

			w := doRequest(s, "GET", tt.target, "", "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Zero(t, tasks.calls)
		})
	}
}

func TestGetTask_InvalidID(t *testing.T) {
	tasks := &fakeStore{}
	s := newTestServer(t, tasks, &fakeProvider{})

	w := doRequest(s, "GET", "/tasks/not-a-uuid", "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, tasks.calls, "store must not be reached for malformed ids")
}

func TestGetTask_NotFound(t *testing.T) {
	tasks := &fakeStore{err: task.ErrNotFound}
	s := newTestServer(t, tasks, &fakeProvider{})

	w := doRequest(s, "GET", "/tasks/3f0e9e7c-1a2b-4c3d-8e9f-0a1b2c3d4e5f", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	e := decodeEnvelope(t, w)
	assert.False(t, e.Success)
	assert.Equal(t, "Task not found", e.Error)
}

func TestUpdateTask_EmptyBody(t *testing.T) {
	tasks := &fakeStore{}
	s := newTestServer(t, tasks, &fakeProvider{identity: verifiedIdentity()})

	w := doRequest(s, "PUT", "/tasks/3f0e9e7c-1a2b-4c3d-8e9f-0a1b2c3d4e5f", `{}`, "valid")
	require.Equal(t, http.StatusBadRequest, w.Code)

	e := decodeEnvelope(t, w)
	assert.Contains(t, e.Error, "at least one field")
	assert.Zero(t, tasks.calls)
}

func TestUpdateTask_Success(t *testing.T) {
	updated := &task.Task{ID: "3f0e9e7c-1a2b-4c3d-8e9f-0a1b2c3d4e5f", Title: "new", Status: task.StatusInProgress}
	tasks := &fakeStore{task: updated}
	s := newTestServer(t, tasks, &fakeProvider{identity: verifiedIdentity()})

	w := doRequest(s, "PUT", "/tasks/3f0e9e7c-1a2b-4c3d-8e9f-0a1b2c3d4e5f", `{"status":"in-progress"}`, "valid")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	e := decodeEnvelope(t, w)
	assert.True(t, e.Success)
	assert.Equal(t, 1, tasks.calls)
}

func TestDeleteTask(t *testing.T) {
	tasks := &fakeStore{}
	s := newTestServer(t, tasks, &fakeProvider{identity: verifiedIdentity()})

	w := doRequest(s, "DELETE", "/tasks/3f0e9e7c-1a2b-4c3d-8e9f-0a1b2c3d4e5f", "", "valid")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, tasks.calls)
}

func TestTaskStats(t *testing.T) {
	tasks := &fakeStore{stats: &task.StatusCounts{Pending: 2, InProgress: 1, Completed: 3, Total: 6}}
	s := newTestServer(t, tasks, &fakeProvider{})

	w := doRequest(s, "GET", "/tasks/stats", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	e := decodeEnvelope(t, w)
	var counts task.StatusCounts
	require.NoError(t, json.Unmarshal(e.Data, &counts))
	assert.Equal(t, 6, counts.Total)
}

func TestUpstreamFailureRedaction(t *testing.T) {
	t.Run("production hides detail", func(t *testing.T) {
		tasks := &fakeStore{err: errors.New("pq: relation tasks does not exist")}
		s := newTestServer(t, tasks, &fakeProvider{})

		w := doRequest(s, "GET", "/tasks", "", "")
		require.Equal(t, http.StatusInternalServerError, w.Code)

		e := decodeEnvelope(t, w)
		assert.Equal(t, "Internal server error", e.Error)
		assert.NotContains(t, w.Body.String(), "relation")
	})

	t.Run("development shows detail", func(t *testing.T) {
		tasks := &fakeStore{err: errors.New("pq: relation tasks does not exist")}
		registry := ratelimit.NewRegistry(store.NewMemoryStore(), nil)
		t.Cleanup(registry.Close)

		config := DefaultConfig()
		config.Development = true
		s := New(config, Deps{Tasks: tasks, Provider: &fakeProvider{}, Limits: registry}, nil)

		w := doRequest(s, "GET", "/tasks", "", "")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "relation")
	})
}

func TestRateLimit_LoginTier(t *testing.T) {
	provider := &fakeProvider{session: &auth.Session{AccessToken: "a"}}
	s := newTestServer(t, &fakeStore{}, provider)

	body := `{"email":"user@example.com","password":"hunter2hunter2"}`
	for i := 0; i < 5; i++ {
		w := doRequest(s, "POST", "/auth/login", body, "")
		require.Equal(t, http.StatusOK, w.Code, "attempt %d within budget", i+1)
	}

	w := doRequest(s, "POST", "/auth/login", body, "")
	require.Equal(t, http.StatusTooManyRequests, w.Code, "6th attempt within window is denied")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "retry_after")
}

func TestRateLimit_CustomKeyFunc(t *testing.T) {
	registry := ratelimit.NewRegistry(store.NewMemoryStore(), nil,
		ratelimit.Tier{Name: "general", Requests: 1, Window: time.Hour})
	t.Cleanup(registry.Close)

	s := New(nil, Deps{
		Tasks:    &fakeStore{},
		Provider: &fakeProvider{},
		Limits:   registry,
		KeyFunc: func(r *http.Request) string {
			return r.Header.Get("X-Client-ID")
		},
	}, nil)

	get := func(client string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/tasks", nil)
		r.Header.Set("X-Client-ID", client)
		w := httptest.NewRecorder()
		s.Engine().ServeHTTP(w, r)
		return w
	}

	require.Equal(t, http.StatusOK, get("client-a").Code)
	assert.Equal(t, http.StatusTooManyRequests, get("client-a").Code)

	// Every request shares the same source address; only the configured
	// key separates callers.
	assert.Equal(t, http.StatusOK, get("client-b").Code)
}

func TestRateLimit_DoesNotAffectOtherTiers(t *testing.T) {
	s := newTestServer(t, &fakeStore{tasks: nil, total: 0}, &fakeProvider{session: &auth.Session{}})

	body := `{"email":"user@example.com","password":"hunter2hunter2"}`
	for i := 0; i < 6; i++ {
		doRequest(s, "POST", "/auth/login", body, "")
	}

	w := doRequest(s, "GET", "/tasks", "", "")
	assert.Equal(t, http.StatusOK, w.Code, "general tier keeps its own budget")
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	registry := ratelimit.NewRegistry(store.NewMemoryStore(), nil)
	t.Cleanup(registry.Close)

	s := New(nil, Deps{
		Tasks:    &fakeStore{},
		Provider: &fakeProvider{},
		Limits:   registry,
		Metrics:  newTestMetrics(),
		Health:   newTestHealth(),
	}, nil)

	assert.Equal(t, http.StatusOK, doRequest(s, "GET", "/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(s, "GET", "/health/ready", "", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(s, "GET", "/metrics", "", "").Code)
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, &fakeProvider{})

	w := doRequest(s, "GET", "/nope", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	e := decodeEnvelope(t, w)
	assert.False(t, e.Success)
}

func TestMalformedJSONBody(t *testing.T) {
	tasks := &fakeStore{}
	s := newTestServer(t, tasks, &fakeProvider{identity: verifiedIdentity()})

	w := doRequest(s, "POST", "/tasks", `{"title":`, "valid")
	require.Equal(t, http.StatusBadRequest, w.Code)

	e := decodeEnvelope(t, w)
	require.NotEmpty(t, e.Errors)
	assert.Equal(t, "body", e.Errors[0].Field)
	assert.Zero(t, tasks.calls)
}
