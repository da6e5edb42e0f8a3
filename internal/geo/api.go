package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// APIResolver queries an ipwho.is-style HTTP lookup service. A circuit
// breaker sheds lookups while the service is failing so the tracking
// path does not burn its time budget on a dead upstream.
type APIResolver struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewAPIResolver creates an HTTP-backed resolver.
func NewAPIResolver(baseURL string, logger *slog.Logger) *APIResolver {
	settings := gobreaker.Settings{
		Name:    "geo-lookup",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &APIResolver{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 2 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Resolve implements Resolver.
func (r *APIResolver) Resolve(ctx context.Context, ip string) *Location {
	if isPrivateIP(ip) {
		return nil
	}

	res, err := r.breaker.Execute(func() (interface{}, error) {
		return r.lookup(ctx, ip)
	})
	if err != nil {
		r.logger.Debug("geo lookup failed", slog.String("error", err.Error()))
		return nil
	}
	loc, _ := res.(*Location)
	return loc
}

func (r *APIResolver) lookup(ctx context.Context, ip string) (*Location, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+ip, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errStatus(resp.StatusCode)
	}

	var out struct {
		Success bool   `json:"success"`
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if !out.Success || (out.Country == "" && out.City == "") {
		return nil, nil
	}

	return &Location{Country: out.Country, City: out.City}, nil
}

type errStatus int

func (e errStatus) Error() string { return fmt.Sprintf("geo lookup: unexpected status %d", int(e)) }

var _ Resolver = (*APIResolver)(nil)
