package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/timvw/pane-runner/internal/model"
)

// Metrics holds all OTEL metric instruments for the daemon.
// All counters are cumulative (monotonic) and safe for concurrent use.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Requests handled, partitioned by action and outcome.
	Requests metric.Int64Counter

	// Completion waits, partitioned by outcome (stable, timed_out).
	Completions metric.Int64Counter

	// Analysis counters.
	Formats  metric.Int64Counter
	Findings metric.Int64Counter

	// Analysis cache counters.
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Session backend failures, partitioned by operation.
	BackendErrors metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(ServiceName)
	m := &Metrics{}
	var err error

	m.Requests, err = meter.Int64Counter("requests.total",
		metric.WithDescription("Daemon requests partitioned by action and outcome"))
	if err != nil {
		return nil, err
	}

	m.Completions, err = meter.Int64Counter("completions.total",
		metric.WithDescription("Completion waits partitioned by outcome (stable, timed_out)"))
	if err != nil {
		return nil, err
	}

	m.Formats, err = meter.Int64Counter("formats.detected",
		metric.WithDescription("Analyzed captures partitioned by detected output format"))
	if err != nil {
		return nil, err
	}

	m.Findings, err = meter.Int64Counter("findings.total",
		metric.WithDescription("Findings extracted, partitioned by importance"),
		metric.WithUnit("{finding}"))
	if err != nil {
		return nil, err
	}

	m.CacheHits, err = meter.Int64Counter("analysis_cache.hits",
		metric.WithDescription("Captures whose analysis was reused (content unchanged within TTL)"))
	if err != nil {
		return nil, err
	}

	m.CacheMisses, err = meter.Int64Counter("analysis_cache.misses",
		metric.WithDescription("Captures analyzed from scratch (content changed, TTL expired, or first capture)"))
	if err != nil {
		return nil, err
	}

	m.BackendErrors, err = meter.Int64Counter("backend.errors",
		metric.WithDescription("Session backend failures partitioned by operation"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRequest records one handled daemon request.
func (m *Metrics) RecordRequest(ctx context.Context, action string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.Requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

// RecordCompletion records the outcome of a completion wait.
func (m *Metrics) RecordCompletion(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.Completions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordAnalysis records the detected format and the findings by importance.
func (m *Metrics) RecordAnalysis(ctx context.Context, format string, findings []model.Finding) {
	if m == nil {
		return
	}
	m.Formats.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
	for _, f := range findings {
		m.Findings.Add(ctx, 1, metric.WithAttributes(attribute.String("importance", string(f.Importance))))
	}
}

// RecordCacheHit records an analysis cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.CacheHits.Add(ctx, 1)
}

// RecordCacheMiss records an analysis cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.CacheMisses.Add(ctx, 1)
}

// RecordBackendError records a failed backend operation.
func (m *Metrics) RecordBackendError(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.BackendErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
