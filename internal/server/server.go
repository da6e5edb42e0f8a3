package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/linkhub/redirector/internal/api"
	"github.com/linkhub/redirector/internal/config"
	"github.com/linkhub/redirector/internal/geo"
	"github.com/linkhub/redirector/internal/middleware"
	"github.com/linkhub/redirector/internal/observability"
	"github.com/linkhub/redirector/internal/ratelimit"
	"github.com/linkhub/redirector/internal/repository"
	"github.com/linkhub/redirector/internal/service"
	"github.com/linkhub/redirector/internal/tracker"
)

// redisPinger adapts *redis.Client to api.CacheInterface.
type redisPinger struct{ client *redis.Client }

func (r *redisPinger) Ping(ctx context.Context) error {
	if r.client == nil {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// NewRouter initializes all dependencies and returns a configured Gin router.
// This is useful for testing where you don't need the full HTTP server.
// publisher may be nil when no broker is configured; cache may be nil to
// disable link caching and Redis rate limiting.
func NewRouter(cfg *config.Config, db *pgxpool.Pool, cache *redis.Client, limiter ratelimit.Limiter, publisher tracker.Publisher, obs *observability.Observability) *gin.Engine {
	linkRepo := repository.NewLinkRepository(db)
	clickRepo := repository.NewClickRepository(db)
	cachedLinks := repository.NewCachedLinkRepository(linkRepo, cache, cfg.Cache.LinkTTL)

	resolver := geo.NewResolver(cfg.Geo.DBPath, cfg.Geo.LookupAPIURL, obs.Logger)
	clickTracker := tracker.New(clickRepo, resolver, publisher, obs.Metrics, obs.Logger,
		cfg.Tracking.HashSalt, cfg.Tracking.DedupWindow)

	gate := service.NewRedirectService(cachedLinks, clickRepo, obs.Logger)
	handler := api.NewHandler(gate, clickTracker, db, &redisPinger{client: cache},
		obs.Registry, obs.Metrics, cfg.Pages, obs.Logger)

	policy := ratelimit.Policy{
		Name:   ratelimit.RedirectPolicy.Name,
		Limit:  cfg.Tracking.RateLimit,
		Window: cfg.Tracking.RateLimitWindow,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("redirector"))
	r.Use(middleware.Logging(obs.Logger))

	handler.RegisterRoutes(r, middleware.RateLimit(limiter, policy, obs.Metrics, obs.Logger))
	return r
}

// NewServer initializes all dependencies and returns a configured HTTP server.
// This includes the router plus HTTP server settings (timeouts, address, etc.).
func NewServer(cfg *config.Config, db *pgxpool.Pool, cache *redis.Client, limiter ratelimit.Limiter, publisher tracker.Publisher, obs *observability.Observability) *http.Server {
	router := NewRouter(cfg, db, cache, limiter, publisher, obs)

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
