package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// memStore implements the store contract in memory so the full router can
// be exercised without a table backend.
type memStore struct {
	mu    sync.Mutex
	seq   int64
	todos map[string]domain.Todo
}

func newMemStore() *memStore {
	return &memStore{todos: make(map[string]domain.Todo)}
}

func (m *memStore) List(ctx context.Context) ([]domain.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Todo{}
	for _, t := range m.todos {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memStore) Create(ctx context.Context, title string) (domain.Todo, error) {
	if err := domain.ValidateTitle(title); err != nil {
		return domain.Todo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	todo := domain.Todo{ID: "todo-" + strconv.FormatInt(m.seq, 10), Title: title, CreatedAt: m.seq}
	m.todos[todo.ID] = todo
	return todo, nil
}

func (m *memStore) Update(ctx context.Context, id string, upd domain.TodoUpdate) (domain.Todo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.todos[id]
	if !ok {
		return domain.Todo{}, domain.ErrNotFound
	}
	merged := upd.Apply(current)
	m.todos[id] = merged
	return merged, nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.todos[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.todos, id)
	return nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	Register(e, newMemStore(), log.New())
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTodoLifecycle(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e, http.MethodPost, "/api/todos", `{"title":"Buy milk"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201 got %d", rec.Code)
	}
	var created domain.Todo
	if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("create: invalid json: %v", err)
	}
	if created.Completed || created.Title != "Buy milk" || created.ID == "" {
		t.Fatalf("create: unexpected todo %#v", created)
	}

	rec = doJSON(t, e, http.MethodPut, "/api/todos/"+created.ID, `{"completed":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200 got %d", rec.Code)
	}
	var updated domain.Todo
	if err := sonic.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("update: invalid json: %v", err)
	}
	if !updated.Completed || updated.Title != "Buy milk" {
		t.Fatalf("update: expected completed toggle with title preserved, got %#v", updated)
	}

	rec = doJSON(t, e, http.MethodDelete, "/api/todos/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204 got %d", rec.Code)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/todos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200 got %d", rec.Code)
	}
	var todos []domain.Todo
	if err := sonic.Unmarshal(rec.Body.Bytes(), &todos); err != nil {
		t.Fatalf("list: invalid json: %v", err)
	}
	for _, todo := range todos {
		if todo.ID == created.ID {
			t.Fatalf("list: deleted todo still present: %#v", todo)
		}
	}

	rec = doJSON(t, e, http.MethodDelete, "/api/todos/"+created.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("repeated delete: expected 404 got %d", rec.Code)
	}
	rec = doJSON(t, e, http.MethodPut, "/api/todos/"+created.ID, `{"completed":false}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("update after delete: expected 404 got %d", rec.Code)
	}
}

func TestListOrdering(t *testing.T) {
	e := newTestServer(t)

	ids := make([]string, 0, 3)
	for _, title := range []string{"A", "B", "C"} {
		rec := doJSON(t, e, http.MethodPost, "/api/todos", `{"title":"`+title+`"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("create %s: expected 201 got %d", title, rec.Code)
		}
		var created domain.Todo
		if err := sonic.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("create %s: invalid json: %v", title, err)
		}
		ids = append(ids, created.ID)
	}

	rec := doJSON(t, e, http.MethodGet, "/api/todos", "")
	var todos []domain.Todo
	if err := sonic.Unmarshal(rec.Body.Bytes(), &todos); err != nil {
		t.Fatalf("list: invalid json: %v", err)
	}
	if len(todos) != 3 {
		t.Fatalf("expected 3 todos, got %d", len(todos))
	}
	for i, want := range []string{ids[2], ids[1], ids[0]} {
		if todos[i].ID != want {
			t.Fatalf("expected newest-first order, got %#v", todos)
		}
	}
}

func TestProxyRewrittenHeadersAccepted(t *testing.T) {
	e := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/todos", nil)
	req.Host = "internal-upstream:8080"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("X-Forwarded-Host", "todos.example.com")
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected proxy-rewritten request to succeed, got %d", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(t, e, http.MethodGet, "/api/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}
