// Package metrics records gateway observations to OpenTelemetry instruments
// and, when configured, mirrors them to a StatsD sink.
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/target/punchlist-gateway/internal/domain/access"
	"github.com/target/punchlist-gateway/internal/observability/statsd"
)

// AccessRecorder implements service.AccessMetrics and the HTTP request recorder.
// Either backend may be absent.
type AccessRecorder struct {
	decisions      otelmetric.Int64Counter
	lookups        otelmetric.Int64Counter
	lookupDuration otelmetric.Float64Histogram
	requests       otelmetric.Int64Counter
	requestLatency otelmetric.Float64Histogram

	sink statsd.Sink
}

// NewAccessRecorder creates the gateway instruments on meter. A nil meter
// disables OpenTelemetry recording; a nil sink disables StatsD.
func NewAccessRecorder(meter otelmetric.Meter, sink statsd.Sink) (*AccessRecorder, error) {
	r := &AccessRecorder{sink: sink}
	if meter == nil {
		return r, nil
	}

	latencyBuckets := otelmetric.WithExplicitBucketBoundaries(
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0,
	)

	var err error
	if r.decisions, err = meter.Int64Counter("punchlist_route_decisions_total",
		otelmetric.WithDescription("Route authorization decisions by state and outcome")); err != nil {
		return nil, fmt.Errorf("creating route_decisions_total: %w", err)
	}
	if r.lookups, err = meter.Int64Counter("punchlist_role_lookups_total",
		otelmetric.WithDescription("Role store lookups by result")); err != nil {
		return nil, fmt.Errorf("creating role_lookups_total: %w", err)
	}
	if r.lookupDuration, err = meter.Float64Histogram("punchlist_role_lookup_duration_seconds",
		otelmetric.WithDescription("Role store lookup latency"), otelmetric.WithUnit("s"), latencyBuckets); err != nil {
		return nil, fmt.Errorf("creating role_lookup_duration: %w", err)
	}
	if r.requests, err = meter.Int64Counter("punchlist_http_requests_total",
		otelmetric.WithDescription("HTTP requests served by the gateway")); err != nil {
		return nil, fmt.Errorf("creating http_requests_total: %w", err)
	}
	if r.requestLatency, err = meter.Float64Histogram("punchlist_http_request_duration_seconds",
		otelmetric.WithDescription("HTTP request latency"), otelmetric.WithUnit("s"), latencyBuckets); err != nil {
		return nil, fmt.Errorf("creating http_request_duration: %w", err)
	}
	return r, nil
}

// RecordRoleLookup records one role store read.
func (r *AccessRecorder) RecordRoleLookup(ctx context.Context, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	if r.lookups != nil {
		attrs := otelmetric.WithAttributes(attribute.String("result", result))
		r.lookups.Add(ctx, 1, attrs)
		r.lookupDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if r.sink != nil {
		tags := map[string]string{"result": result}
		r.sink.Count("role.lookup", 1, tags)
		r.sink.Timing("role.lookup.duration", elapsed, CloneTags(tags))
	}
}

// RecordDecision records one policy decision.
func (r *AccessRecorder) RecordDecision(ctx context.Context, d access.Decision) {
	if r == nil {
		return
	}
	if r.decisions != nil {
		r.decisions.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("state", string(d.State)),
			attribute.String("outcome", string(d.Outcome)),
		))
	}
	if r.sink != nil {
		r.sink.Count("route.decision", 1, map[string]string{
			"state":   string(d.State),
			"outcome": string(d.Outcome),
		})
	}
}

// RecordHTTPRequest records a served request. route is the low-cardinality
// route class, not the raw path.
func (r *AccessRecorder) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if r == nil || r.requests == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	r.requests.Add(ctx, 1, attrs)
	r.requestLatency.Record(ctx, elapsed.Seconds(), attrs)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
