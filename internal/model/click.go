package model

import (
	"time"

	"github.com/google/uuid"
)

// Click is an append-only analytics event for one visit to a link.
// IPHash is a salted SHA-256 digest; the raw client IP is never stored.
type Click struct {
	ID        uuid.UUID `json:"id"`
	LinkID    uuid.UUID `json:"link_id"`
	IPHash    string    `json:"ip_hash"`
	Device    string    `json:"device"`
	OS        string    `json:"os"`
	Browser   string    `json:"browser"`
	Referrer  string    `json:"referrer,omitempty"`
	Country   *string   `json:"country,omitempty"`
	City      *string   `json:"city,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
