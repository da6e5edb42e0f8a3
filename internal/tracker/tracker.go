// Package tracker records best-effort click analytics for successful
// redirects. Nothing in this package may influence the redirect
// response: every failure is caught, logged and discarded.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linkhub/redirector/internal/classifier"
	"github.com/linkhub/redirector/internal/geo"
	"github.com/linkhub/redirector/internal/model"
	"github.com/linkhub/redirector/internal/observability"
)

// ClickStore is the slice of the click repository the tracker writes
// through.
type ClickStore interface {
	Insert(ctx context.Context, click *model.Click) error
	HasRecent(ctx context.Context, linkID uuid.UUID, ipHash string, since time.Time) (bool, error)
}

// Publisher fans a recorded click out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, click *model.Click) error
}

// Request carries the client attributes of one redirect request.
type Request struct {
	IP        string
	UserAgent string
	Referrer  string
}

// Tracker runs the click pipeline: bot gate, IP hashing, dedup check,
// insert, optional event publish.
type Tracker struct {
	clicks      ClickStore
	resolver    geo.Resolver
	publisher   Publisher // nil when no broker is configured
	metrics     *observability.Metrics
	logger      *slog.Logger
	salt        string
	dedupWindow time.Duration
	now         func() time.Time
}

// New creates a tracker. publisher may be nil.
func New(clicks ClickStore, resolver geo.Resolver, publisher Publisher, metrics *observability.Metrics, logger *slog.Logger, salt string, dedupWindow time.Duration) *Tracker {
	return &Tracker{
		clicks:      clicks,
		resolver:    resolver,
		publisher:   publisher,
		metrics:     metrics,
		logger:      logger,
		salt:        salt,
		dedupWindow: dedupWindow,
		now:         time.Now,
	}
}

// Track records one click for a link that already passed the gate.
// It never returns an error and never panics; the redirect response
// must not depend on anything that happens here.
func (t *Tracker) Track(ctx context.Context, link *model.Link, req Request) {
	defer func() {
		if r := recover(); r != nil {
			t.metrics.RecordDrop(ctx)
			t.logger.ErrorContext(ctx, "click tracking panicked",
				slog.String("code", link.Code),
				slog.Any("panic", r))
		}
	}()

	client := classifier.Classify(req.UserAgent)
	if client.Bot {
		return
	}

	ipHash := HashIP(req.IP, t.salt)

	recent, err := t.clicks.HasRecent(ctx, link.ID, ipHash, t.now().Add(-t.dedupWindow))
	if err != nil {
		t.metrics.RecordDrop(ctx)
		t.logger.ErrorContext(ctx, "click dedup check failed",
			slog.String("code", link.Code),
			slog.String("error", err.Error()))
		return
	}
	if recent {
		t.metrics.RecordDedup(ctx)
		return
	}

	click := &model.Click{
		ID:        uuid.New(),
		LinkID:    link.ID,
		IPHash:    ipHash,
		Device:    client.Device,
		OS:        client.OS,
		Browser:   client.Browser,
		Referrer:  req.Referrer,
		CreatedAt: t.now(),
	}

	if loc := t.resolver.Resolve(ctx, req.IP); loc != nil {
		if loc.Country != "" {
			click.Country = &loc.Country
		}
		if loc.City != "" {
			click.City = &loc.City
		}
	}

	if err := t.clicks.Insert(ctx, click); err != nil {
		t.metrics.RecordDrop(ctx)
		t.logger.ErrorContext(ctx, "click insert failed",
			slog.String("code", link.Code),
			slog.String("error", err.Error()))
		return
	}
	t.metrics.RecordClick(ctx)

	if t.publisher != nil {
		if err := t.publisher.Publish(ctx, click); err != nil {
			t.logger.WarnContext(ctx, "click event publish failed",
				slog.String("code", link.Code),
				slog.String("error", err.Error()))
		}
	}
}
