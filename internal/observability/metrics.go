package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics holds the redirect pipeline instruments. All counters are
// best-effort; instrument errors during setup are returned once from
// NewMetrics and never at record time.
type Metrics struct {
	redirects          metric.Int64Counter
	clicksRecorded     metric.Int64Counter
	clicksDeduplicated metric.Int64Counter
	clicksDropped      metric.Int64Counter
	rateLimited        metric.Int64Counter
}

// NewMeterProvider creates an OTel MeterProvider backed by a Prometheus
// registry. The returned registry is meant to be served via promhttp.
func NewMeterProvider(registry *prometheus.Registry) (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp, nil
}

// NewMetrics registers the pipeline instruments on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("github.com/linkhub/redirector")

	m := &Metrics{}
	var err error

	if m.redirects, err = meter.Int64Counter("redirector.redirects",
		metric.WithDescription("Redirect requests by terminal outcome")); err != nil {
		return nil, err
	}
	if m.clicksRecorded, err = meter.Int64Counter("redirector.clicks.recorded",
		metric.WithDescription("Click events persisted")); err != nil {
		return nil, err
	}
	if m.clicksDeduplicated, err = meter.Int64Counter("redirector.clicks.deduplicated",
		metric.WithDescription("Click events skipped inside the dedup window")); err != nil {
		return nil, err
	}
	if m.clicksDropped, err = meter.Int64Counter("redirector.clicks.dropped",
		metric.WithDescription("Click events lost to tracking failures")); err != nil {
		return nil, err
	}
	if m.rateLimited, err = meter.Int64Counter("redirector.ratelimit.rejected",
		metric.WithDescription("Requests rejected by the rate limiter")); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Metrics) RecordRedirect(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.redirects.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) RecordClick(ctx context.Context) {
	if m == nil {
		return
	}
	m.clicksRecorded.Add(ctx, 1)
}

func (m *Metrics) RecordDedup(ctx context.Context) {
	if m == nil {
		return
	}
	m.clicksDeduplicated.Add(ctx, 1)
}

func (m *Metrics) RecordDrop(ctx context.Context) {
	if m == nil {
		return
	}
	m.clicksDropped.Add(ctx, 1)
}

func (m *Metrics) RecordRateLimited(ctx context.Context, policy string) {
	if m == nil {
		return
	}
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(attribute.String("policy", policy)))
}
