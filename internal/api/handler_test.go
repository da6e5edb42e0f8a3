package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/linkhub/redirector/internal/api"
	"github.com/linkhub/redirector/internal/config"
	"github.com/linkhub/redirector/internal/middleware"
	"github.com/linkhub/redirector/internal/model"
	"github.com/linkhub/redirector/internal/tracker"
)

var testPages = config.PagesConfig{
	NotFound:     "/link/not-found",
	Inactive:     "/link/inactive",
	Expired:      "/link/expired",
	LimitReached: "/link/limit-reached",
	Error:        "/link/error",
}

// MockGate mocks the redirect gate
type MockGate struct {
	mock.Mock
}

func (m *MockGate) Resolve(ctx context.Context, code string) model.Resolution {
	args := m.Called(ctx, code)
	return args.Get(0).(model.Resolution)
}

// MockTracker records Track invocations without touching storage
type MockTracker struct {
	mu    sync.Mutex
	calls []tracker.Request
}

func (m *MockTracker) Track(ctx context.Context, link *model.Link, req tracker.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
}

func (m *MockTracker) Calls() []tracker.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]tracker.Request(nil), m.calls...)
}

// slowTracker simulates a tracking layer stuck on a dead dependency
type slowTracker struct{}

func (slowTracker) Track(ctx context.Context, link *model.Link, req tracker.Request) {
	<-ctx.Done()
}

// MockDB for health check
type MockDB struct {
	shouldFail bool
}

func (m *MockDB) Ping(ctx context.Context) error {
	if m.shouldFail {
		return assert.AnError
	}
	return nil
}

func (m *MockDB) Close() {}

// MockCache for health check
type MockCache struct {
	shouldFail bool
}

func (m *MockCache) Ping(ctx context.Context) error {
	if m.shouldFail {
		return assert.AnError
	}
	return nil
}

func passThrough(c *gin.Context) { c.Next() }

func setupRouter(gate *MockGate, tr api.ClickTracker, db *MockDB, cache *MockCache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := api.NewHandler(gate, tr, db, cache, prometheus.NewRegistry(), nil, testPages, logger)
	r := gin.New()
	handler.RegisterRoutes(r, passThrough)
	return r
}

func activeLink() *model.Link {
	return &model.Link{
		ID:             uuid.New(),
		Code:           "abc123",
		DestinationURL: "https://example.com/landing?utm_source=mail",
		Status:         model.StatusActive,
		RedirectType:   model.RedirectTemporary,
	}
}

func TestHandler_HealthCheck(t *testing.T) {
	t.Run("returns ok when all dependencies are healthy", func(t *testing.T) {
		router := setupRouter(new(MockGate), &MockTracker{}, &MockDB{}, &MockCache{})

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		json.NewDecoder(w.Body).Decode(&response)
		assert.Equal(t, "ok", response["status"])
	})

	t.Run("returns degraded when database is down", func(t *testing.T) {
		router := setupRouter(new(MockGate), &MockTracker{}, &MockDB{shouldFail: true}, &MockCache{})

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var response map[string]interface{}
		json.NewDecoder(w.Body).Decode(&response)
		deps := response["dependencies"].(map[string]interface{})
		assert.Equal(t, "down", deps["database"])
		assert.Equal(t, "up", deps["cache"])
	})

	t.Run("returns degraded when cache is down", func(t *testing.T) {
		router := setupRouter(new(MockGate), &MockTracker{}, &MockDB{}, &MockCache{shouldFail: true})

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHandler_Redirect(t *testing.T) {
	t.Run("temporary link redirects with 302 to the stored destination", func(t *testing.T) {
		gate := new(MockGate)
		link := activeLink()
		gate.On("Resolve", mock.Anything, "abc123").Return(model.Resolution{Outcome: model.OutcomeRedirect, Link: link})

		router := setupRouter(gate, &MockTracker{}, &MockDB{}, &MockCache{})
		req := httptest.NewRequest("GET", "/s/abc123", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, link.DestinationURL, w.Header().Get("Location"))
	})

	t.Run("permanent link redirects with 301", func(t *testing.T) {
		gate := new(MockGate)
		link := activeLink()
		link.RedirectType = model.RedirectPermanent
		gate.On("Resolve", mock.Anything, "abc123").Return(model.Resolution{Outcome: model.OutcomeRedirect, Link: link})

		router := setupRouter(gate, &MockTracker{}, &MockDB{}, &MockCache{})
		req := httptest.NewRequest("GET", "/s/abc123", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, link.DestinationURL, w.Header().Get("Location"))
	})

	t.Run("terminal outcomes redirect to their explanatory pages", func(t *testing.T) {
		tests := []struct {
			outcome model.Outcome
			page    string
		}{
			{model.OutcomeNotFound, testPages.NotFound},
			{model.OutcomeInactive, testPages.Inactive},
			{model.OutcomeExpired, testPages.Expired},
			{model.OutcomeLimitReached, testPages.LimitReached},
			{model.OutcomeError, testPages.Error},
		}

		for _, tt := range tests {
			t.Run(string(tt.outcome), func(t *testing.T) {
				gate := new(MockGate)
				gate.On("Resolve", mock.Anything, "abc123").Return(model.Resolution{Outcome: tt.outcome})

				router := setupRouter(gate, &MockTracker{}, &MockDB{}, &MockCache{})
				req := httptest.NewRequest("GET", "/s/abc123", nil)
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)

				assert.Equal(t, http.StatusFound, w.Code)
				assert.Equal(t, tt.page, w.Header().Get("Location"))
			})
		}
	})

	t.Run("tracking runs for successful redirects", func(t *testing.T) {
		gate := new(MockGate)
		link := activeLink()
		gate.On("Resolve", mock.Anything, "abc123").Return(model.Resolution{Outcome: model.OutcomeRedirect, Link: link})

		tr := &MockTracker{}
		router := setupRouter(gate, tr, &MockDB{}, &MockCache{})

		req := httptest.NewRequest("GET", "/s/abc123", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0 Safari/537.36")
		req.Header.Set("Referer", "https://ref.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Eventually(t, func() bool {
			return len(tr.Calls()) == 1
		}, time.Second, 10*time.Millisecond)

		call := tr.Calls()[0]
		assert.Equal(t, "https://ref.example", call.Referrer)
		assert.NotEmpty(t, call.UserAgent)
	})

	t.Run("tracking keys on the same client identifier as the rate limiter", func(t *testing.T) {
		gate := new(MockGate)
		link := activeLink()
		gate.On("Resolve", mock.Anything, "abc123").Return(model.Resolution{Outcome: model.OutcomeRedirect, Link: link})

		tr := &MockTracker{}
		router := setupRouter(gate, tr, &MockDB{}, &MockCache{})

		req := httptest.NewRequest("GET", "/s/abc123", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Eventually(t, func() bool {
			return len(tr.Calls()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, middleware.ClientIdentifier(req), tr.Calls()[0].IP)
		assert.Equal(t, "203.0.113.7", tr.Calls()[0].IP)
	})

	t.Run("no tracking for gate rejections", func(t *testing.T) {
		gate := new(MockGate)
		gate.On("Resolve", mock.Anything, "abc123").Return(model.Resolution{Outcome: model.OutcomeNotFound})

		tr := &MockTracker{}
		router := setupRouter(gate, tr, &MockDB{}, &MockCache{})

		req := httptest.NewRequest("GET", "/s/abc123", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, tr.Calls())
	})

	t.Run("stalled tracking does not delay the redirect", func(t *testing.T) {
		gate := new(MockGate)
		link := activeLink()
		gate.On("Resolve", mock.Anything, "abc123").Return(model.Resolution{Outcome: model.OutcomeRedirect, Link: link})

		router := setupRouter(gate, slowTracker{}, &MockDB{}, &MockCache{})

		start := time.Now()
		req := httptest.NewRequest("GET", "/s/abc123", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, link.DestinationURL, w.Header().Get("Location"))
		assert.Less(t, time.Since(start), time.Second)
	})
}
