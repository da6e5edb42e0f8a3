// Package ratelimit provides fixed-window request limiting keyed by
// (client identifier, policy). Backends are pluggable: the in-memory
// store suits a single instance, the Redis store shares counters across
// instances.
package ratelimit

import (
	"context"
	"time"
)

// Policy names a limit and its window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// RedirectPolicy is the default policy for the public redirect route.
var RedirectPolicy = Policy{Name: "redirect", Limit: 100, Window: 60 * time.Second}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter gates request volume per identifier. Allow increments the
// counter for the active window and reports whether the request may
// proceed. Implementations must be safe for concurrent use and must
// not block.
type Limiter interface {
	Allow(ctx context.Context, key string, policy Policy) (Decision, error)
}
