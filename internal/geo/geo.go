// Package geo resolves client IPs to coarse locations. Resolution is
// always best-effort: private addresses, missing databases and lookup
// failures all degrade to "no location" instead of erroring.
package geo

import (
	"context"
	"log/slog"
	"net"
)

// Location is a coarse resolved location.
type Location struct {
	Country string
	City    string
}

// Resolver maps a client IP to an optional location. A nil result means
// the IP could not (or must not) be resolved; Resolve never fails the
// request.
type Resolver interface {
	Resolve(ctx context.Context, ip string) *Location
}

// NopResolver always reports no location. It is the fallback when no
// lookup source is configured.
type NopResolver struct{}

func (NopResolver) Resolve(ctx context.Context, ip string) *Location { return nil }

// NewResolver picks the best available backend: a local MaxMind
// database when configured and readable, then the HTTP lookup API,
// otherwise no resolution at all.
func NewResolver(dbPath, apiURL string, logger *slog.Logger) Resolver {
	if dbPath != "" {
		r, err := NewMaxMindResolver(dbPath)
		if err == nil {
			return r
		}
		logger.Warn("geo database unavailable, falling back",
			slog.String("path", dbPath),
			slog.String("error", err.Error()))
	}
	if apiURL != "" {
		return NewAPIResolver(apiURL, logger)
	}
	return NopResolver{}
}

// isPrivateIP reports whether the address must be excluded from
// lookups: unparseable, loopback, link-local, or RFC 1918
// (10/8, 172.16/12, 192.168/16).
func isPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	if parsed.IsLoopback() || parsed.IsLinkLocalUnicast() {
		return true
	}
	if v4 := parsed.To4(); v4 != nil {
		switch {
		case v4[0] == 10:
			return true
		case v4[0] == 172 && v4[1] >= 16 && v4[1] <= 31:
			return true
		case v4[0] == 192 && v4[1] == 168:
			return true
		}
	}
	return false
}
