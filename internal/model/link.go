package model

import (
	"time"

	"github.com/google/uuid"
)

// LinkStatus is the lifecycle state of a short link.
type LinkStatus string

const (
	StatusActive   LinkStatus = "ACTIVE"
	StatusPaused   LinkStatus = "PAUSED"
	StatusArchived LinkStatus = "ARCHIVED"
)

// RedirectType controls which HTTP status the redirect uses.
type RedirectType string

const (
	RedirectPermanent RedirectType = "PERMANENT" // 301
	RedirectTemporary RedirectType = "TEMPORARY" // 302
)

// Link represents a short link as seen by the redirect pipeline.
// The CRUD application owns creation and mutation; this service only
// reads links and never updates them. UTM parameters are already baked
// into DestinationURL at creation time.
type Link struct {
	ID             uuid.UUID    `json:"id"`
	Code           string       `json:"code"`
	DestinationURL string       `json:"destination_url"`
	Status         LinkStatus   `json:"status"`
	RedirectType   RedirectType `json:"redirect_type"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	MaxClicks      *int64       `json:"max_clicks,omitempty"`
	OwnerID        uuid.UUID    `json:"owner_id"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Outcome is the terminal state of the redirect gate for one request.
type Outcome string

const (
	OutcomeRedirect     Outcome = "redirect"
	OutcomeNotFound     Outcome = "not_found"
	OutcomeInactive     Outcome = "inactive"
	OutcomeExpired      Outcome = "expired"
	OutcomeLimitReached Outcome = "limit_reached"
	OutcomeError        Outcome = "error"
)

// Resolution carries the gate decision back to the handler. Link is
// only set for OutcomeRedirect.
type Resolution struct {
	Outcome Outcome
	Link    *Link
}
