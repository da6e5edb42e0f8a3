package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/linkhub/redirector/internal/model"
	"github.com/linkhub/redirector/internal/repository"
)

// MockLinkFinder mocks link lookup
type MockLinkFinder struct {
	mock.Mock
}

func (m *MockLinkFinder) FindByCode(ctx context.Context, code string) (*model.Link, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Link), args.Error(1)
}

// MockClickCounter mocks the click-cap count
type MockClickCounter struct {
	mock.Mock
}

func (m *MockClickCounter) CountByLink(ctx context.Context, linkID uuid.UUID) (int64, error) {
	args := m.Called(ctx, linkID)
	return args.Get(0).(int64), args.Error(1)
}

func newGate(links *MockLinkFinder, clicks *MockClickCounter) *RedirectService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRedirectService(links, clicks, logger)
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

func int64ptr(v int64) *int64 { return &v }

func TestRedirectService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("missing code yields not found", func(t *testing.T) {
		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "nope").Return(nil, repository.ErrNotFound)

		res := newGate(links, new(MockClickCounter)).Resolve(ctx, "nope")
		assert.Equal(t, model.OutcomeNotFound, res.Outcome)
		assert.Nil(t, res.Link)
	})

	t.Run("lookup failure yields error outcome, not not-found", func(t *testing.T) {
		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(nil, errors.New("connection reset"))

		res := newGate(links, new(MockClickCounter)).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeError, res.Outcome)
	})

	t.Run("paused link is inactive regardless of expiry and cap", func(t *testing.T) {
		link := activeLink()
		link.Status = model.StatusPaused
		expired := time.Now().Add(-time.Hour)
		link.ExpiresAt = &expired
		link.MaxClicks = int64ptr(1)

		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

		clicks := new(MockClickCounter)
		res := newGate(links, clicks).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeInactive, res.Outcome)
		clicks.AssertNotCalled(t, "CountByLink", mock.Anything, mock.Anything)
	})

	t.Run("archived link is inactive", func(t *testing.T) {
		link := activeLink()
		link.Status = model.StatusArchived

		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

		res := newGate(links, new(MockClickCounter)).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeInactive, res.Outcome)
	})

	t.Run("active link past expiry is expired, not limit-reached", func(t *testing.T) {
		link := activeLink()
		expired := time.Now().Add(-time.Minute)
		link.ExpiresAt = &expired
		link.MaxClicks = int64ptr(1)

		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

		clicks := new(MockClickCounter)
		res := newGate(links, clicks).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeExpired, res.Outcome)
		clicks.AssertNotCalled(t, "CountByLink", mock.Anything, mock.Anything)
	})

	t.Run("future expiry still redirects", func(t *testing.T) {
		link := activeLink()
		future := time.Now().Add(time.Hour)
		link.ExpiresAt = &future

		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

		res := newGate(links, new(MockClickCounter)).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeRedirect, res.Outcome)
	})

	t.Run("click cap reached at exactly N clicks", func(t *testing.T) {
		link := activeLink()
		link.MaxClicks = int64ptr(5)

		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

		clicks := new(MockClickCounter)
		clicks.On("CountByLink", mock.Anything, link.ID).Return(int64(5), nil)

		res := newGate(links, clicks).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeLimitReached, res.Outcome)
	})

	t.Run("one click below the cap still redirects", func(t *testing.T) {
		link := activeLink()
		link.MaxClicks = int64ptr(5)

		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

		clicks := new(MockClickCounter)
		clicks.On("CountByLink", mock.Anything, link.ID).Return(int64(4), nil)

		res := newGate(links, clicks).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeRedirect, res.Outcome)
	})

	t.Run("unset cap never counts clicks", func(t *testing.T) {
		link := activeLink()

		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

		clicks := new(MockClickCounter)
		res := newGate(links, clicks).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeRedirect, res.Outcome)
		clicks.AssertNotCalled(t, "CountByLink", mock.Anything, mock.Anything)
	})

	t.Run("count failure yields error outcome", func(t *testing.T) {
		link := activeLink()
		link.MaxClicks = int64ptr(5)

		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

		clicks := new(MockClickCounter)
		clicks.On("CountByLink", mock.Anything, link.ID).Return(int64(0), errors.New("timeout"))

		res := newGate(links, clicks).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeError, res.Outcome)
	})

	t.Run("redirect carries the link", func(t *testing.T) {
		link := activeLink()

		links := new(MockLinkFinder)
		links.On("FindByCode", mock.Anything, "abc123").Return(link, nil)

		res := newGate(links, new(MockClickCounter)).Resolve(ctx, "abc123")
		assert.Equal(t, model.OutcomeRedirect, res.Outcome)
		assert.Equal(t, link, res.Link)
	})
}
