package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linkhub/redirector/internal/config"
	"github.com/linkhub/redirector/internal/middleware"
	"github.com/linkhub/redirector/internal/model"
	"github.com/linkhub/redirector/internal/observability"
	"github.com/linkhub/redirector/internal/service"
	"github.com/linkhub/redirector/internal/tracker"
)

// trackBudget bounds how long a detached tracking goroutine may run
// after the redirect response has been written.
const trackBudget = 5 * time.Second

// Handler holds HTTP handlers and dependencies.
// It follows the dependency injection pattern, receiving
// interfaces rather than concrete implementations for testability.
type Handler struct {
	gate     service.RedirectServiceInterface // gate decision for a code
	tracker  ClickTracker                     // best-effort click recording
	db       DBInterface                      // database connection for health checks
	cache    CacheInterface                   // cache connection for health checks
	registry *prometheus.Registry             // metrics scrape target
	metrics  *observability.Metrics
	pages    config.PagesConfig
	logger   *slog.Logger
}

// ClickTracker defines the tracking operation launched after a
// successful gate decision. Implementations must swallow their own
// failures.
type ClickTracker interface {
	Track(ctx context.Context, link *model.Link, req tracker.Request)
}

// DBInterface defines the database operations needed by the handler.
// This interface allows for easy mocking in unit tests without
// requiring a real database connection.
type DBInterface interface {
	Ping(ctx context.Context) error // Check database connectivity
	Close()                         // Close database connection
}

// CacheInterface defines the cache operations needed by the handler.
type CacheInterface interface {
	Ping(ctx context.Context) error
}

// NewHandler creates a new handler instance with the provided dependencies.
func NewHandler(gate service.RedirectServiceInterface, clickTracker ClickTracker, db DBInterface, cache CacheInterface, registry *prometheus.Registry, metrics *observability.Metrics, pages config.PagesConfig, logger *slog.Logger) *Handler {
	return &Handler{
		gate:     gate,
		tracker:  clickTracker,
		db:       db,
		cache:    cache,
		registry: registry,
		metrics:  metrics,
		pages:    pages,
		logger:   logger,
	}
}

// RegisterRoutes registers all route definitions on the given Gin engine.
// The caller is responsible for creating the engine and adding global
// middleware before calling this method. rateLimit is applied to the
// redirect route only; pass a pass-through func for tests.
func (h *Handler) RegisterRoutes(r *gin.Engine, rateLimit gin.HandlerFunc) {
	// Health check endpoint
	r.GET("/health", h.healthCheck)

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})))

	// Public redirect route
	r.GET("/s/:code", rateLimit, h.redirect)
}

// healthCheck handles GET /health
// Returns the health status of the service and all dependencies.
// Response codes:
//   - 200 OK: All dependencies are healthy
//   - 503 Service Unavailable: One or more dependencies are down
func (h *Handler) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	cacheErr := h.cache.Ping(ctx)
	dbErr := h.db.Ping(ctx)

	status := "ok"
	code := http.StatusOK
	deps := gin.H{"cache": "up", "database": "up"}

	if cacheErr != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		deps["cache"] = "down"
	}
	if dbErr != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		deps["database"] = "down"
	}

	c.JSON(code, gin.H{"status": status, "dependencies": deps})
}

// redirect handles GET /s/:code
// Resolves the code through the gate and answers with a definitive
// redirect: either the stored destination (301/302 depending on the
// link's redirect type) or the explanatory page for the terminal state.
// Click tracking runs on a detached goroutine after the response is
// decided; its outcome never changes the response.
func (h *Handler) redirect(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")

	res := h.gate.Resolve(ctx, code)
	h.metrics.RecordRedirect(ctx, string(res.Outcome))

	switch res.Outcome {
	case model.OutcomeRedirect:
		status := http.StatusFound
		if res.Link.RedirectType == model.RedirectPermanent {
			status = http.StatusMovedPermanently
		}
		c.Redirect(status, res.Link.DestinationURL)
		// Same identifier the rate limiter keys on, so one request is
		// one client everywhere
		h.trackAsync(ctx, res.Link, tracker.Request{
			IP:        middleware.ClientIdentifier(c.Request),
			UserAgent: c.Request.UserAgent(),
			Referrer:  c.Request.Referer(),
		})
	case model.OutcomeNotFound:
		c.Redirect(http.StatusFound, h.pages.NotFound)
	case model.OutcomeInactive:
		c.Redirect(http.StatusFound, h.pages.Inactive)
	case model.OutcomeExpired:
		c.Redirect(http.StatusFound, h.pages.Expired)
	case model.OutcomeLimitReached:
		c.Redirect(http.StatusFound, h.pages.LimitReached)
	default:
		c.Redirect(http.StatusFound, h.pages.Error)
	}
}

// trackAsync launches click recording detached from the request
// lifecycle. The request context's values (trace correlation) survive
// but its cancellation does not, so a client disconnect cannot abort a
// write in flight.
func (h *Handler) trackAsync(ctx context.Context, link *model.Link, req tracker.Request) {
	trackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trackBudget)
	go func() {
		defer cancel()
		h.tracker.Track(trackCtx, link, req)
	}()
}
