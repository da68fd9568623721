// Package telemetry wires OpenTelemetry metrics to a Prometheus scrape
// endpoint.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/yuanying/narrator/internal/config"
)

// Telemetry owns the meter provider and, when configured, the metrics server.
type Telemetry struct {
	provider metric.MeterProvider
	handler  http.Handler
	server   *http.Server
	addr     string
	shutdown func(context.Context) error
	log      *slog.Logger
}

// Setup builds a meter provider backed by a Prometheus exporter. With an
// empty prometheus_bind metrics are disabled and a noop provider is used.
func Setup(ctx context.Context, cfg config.TelemetryConfig, log *slog.Logger) (*Telemetry, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With(slog.String("component", "telemetry"))

	bind := strings.TrimSpace(cfg.PrometheusBind)
	if bind == "" {
		return &Telemetry{
			provider: noop.NewMeterProvider(),
			shutdown: func(context.Context) error { return nil },
			log:      log,
		}, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", "narrator"),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	t := &Telemetry{
		provider: provider,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		shutdown: provider.Shutdown,
		log:      log,
	}
	if err := t.serve(bind); err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}
	return t, nil
}

func (t *Telemetry) serve(bind string) error {
	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", bind, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", t.handler)
	t.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	t.addr = ln.Addr().String()

	go func() {
		if err := t.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.log.Warn("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	t.log.Info("metrics endpoint listening", slog.String("addr", t.addr))
	return nil
}

func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.provider
}

// Handler returns the Prometheus scrape handler, or nil when disabled.
func (t *Telemetry) Handler() http.Handler {
	return t.handler
}

// Addr returns the metrics listener address, or "" when disabled.
func (t *Telemetry) Addr() string {
	return t.addr
}

func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.server != nil {
		if err := t.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
