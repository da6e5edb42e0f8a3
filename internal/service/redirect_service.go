package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/linkhub/redirector/internal/model"
	"github.com/linkhub/redirector/internal/repository"
)

// ClickCounter is the slice of the click store the gate needs for the
// click-cap check.
type ClickCounter interface {
	CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error)
}

// RedirectService decides the terminal state for a short code. The
// checks run in a fixed order: existence, status, expiry, click cap.
// Storage faults map to OutcomeError rather than propagating.
type RedirectService struct {
	links  repository.LinkFinder
	clicks ClickCounter
	logger *slog.Logger
	now    func() time.Time
}

// RedirectServiceInterface defines the gate contract for the handler.
type RedirectServiceInterface interface {
	Resolve(ctx context.Context, code string) model.Resolution
}

// NewRedirectService creates the gate service.
func NewRedirectService(links repository.LinkFinder, clicks ClickCounter, logger *slog.Logger) *RedirectService {
	return &RedirectService{
		links:  links,
		clicks: clicks,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve looks up a code and evaluates the gate. The returned
// Resolution always carries a definitive outcome; only OutcomeRedirect
// carries the link itself.
func (s *RedirectService) Resolve(ctx context.Context, code string) model.Resolution {
	link, err := s.links.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Resolution{Outcome: model.OutcomeNotFound}
		}
		s.logger.ErrorContext(ctx, "link lookup failed",
			slog.String("code", code),
			slog.String("error", err.Error()))
		return model.Resolution{Outcome: model.OutcomeError}
	}

	if link.Status != model.StatusActive {
		return model.Resolution{Outcome: model.OutcomeInactive}
	}

	if link.ExpiresAt != nil && link.ExpiresAt.Before(s.now()) {
		return model.Resolution{Outcome: model.OutcomeExpired}
	}

	if link.MaxClicks != nil && *link.MaxClicks > 0 {
		count, err := s.clicks.CountByLink(ctx, link.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "click count failed",
				slog.String("code", code),
				slog.String("error", err.Error()))
			return model.Resolution{Outcome: model.OutcomeError}
		}
		if count >= *link.MaxClicks {
			return model.Resolution{Outcome: model.OutcomeLimitReached}
		}
	}

	return model.Resolution{Outcome: model.OutcomeRedirect, Link: link}
}

// Ensure RedirectService implements RedirectServiceInterface at compile time
var _ RedirectServiceInterface = (*RedirectService)(nil)
