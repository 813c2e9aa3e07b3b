package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/punchlist-gateway/config"
	"github.com/target/punchlist-gateway/internal/observability/metrics"
	"github.com/target/punchlist-gateway/internal/observability/statsd"
	"github.com/target/punchlist-gateway/internal/observability/telemetry"
	otelmetric "go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/target/punchlist-gateway"

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	Recorder       *metrics.AccessRecorder
	MetricsHandler http.Handler
	MetricsPath    string

	telemetry *telemetry.Telemetry
	statsd    *statsd.Client
}

// BuildObservability sets up the Prometheus exporter and the StatsD sink as
// configured. A failing StatsD dial is logged and metrics continue without it.
func BuildObservability(ctx context.Context, cfg config.ObservabilityConfig, logger *slog.Logger) (*ObservabilityContainer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	obs := &ObservabilityContainer{}

	var meter otelmetric.Meter
	if cfg.Prometheus.Enabled {
		tel, err := telemetry.Setup(ctx)
		if err != nil {
			return nil, fmt.Errorf("setup telemetry: %w", err)
		}
		obs.telemetry = tel
		obs.MetricsHandler = tel.Handler()
		obs.MetricsPath = cfg.Prometheus.Path
		meter = tel.Meter(meterName)
	}

	var sink statsd.Sink
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "punchlist",
			Logger:  logger,
		})
		if err != nil {
			logger.ErrorContext(ctx, "failed to initialise statsd client", "error", err)
		} else {
			obs.statsd = client
			sink = client
		}
	}

	recorder, err := metrics.NewAccessRecorder(meter, sink)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create access recorder: %w", err), obs.Shutdown(ctx))
	}
	obs.Recorder = recorder
	return obs, nil
}

// Shutdown flushes the meter provider and closes the StatsD connection.
func (o *ObservabilityContainer) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	var errs []error
	if err := o.telemetry.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
	}
	if err := o.statsd.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close statsd: %w", err))
	}
	return errors.Join(errs...)
}
