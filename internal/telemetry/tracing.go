// Package telemetry sets up OpenTelemetry export and the Prometheus registry.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"programfinder/internal/config"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const ServiceName = "programfinder"

// Telemetry owns the exporters started by Setup.
type Telemetry struct {
	// LogHandler forwards slog records over OTLP. Nil when tracing is off.
	LogHandler slog.Handler

	cfg       config.TracingConfig
	shutdowns []func(context.Context) error
}

// Setup installs the global tracer provider when an OTLP endpoint is configured.
// Without one the otel defaults (no-op) stay in place. Setup runs before the default logger
// exists, so it logs nothing; call LogStatus once the logger is in place.
func Setup(ctx context.Context, cfg config.TracingConfig) (*Telemetry, error) {
	t := &Telemetry{cfg: cfg}
	if !cfg.Enabled() {
		return t, nil
	}

	res := resource.NewSchemaless(attribute.String("service.name", ServiceName))

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(cfg.Endpoint)}
	logOpts := []otlploghttp.Option{otlploghttp.WithEndpointURL(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		logOpts = append(logOpts, otlploghttp.WithInsecure())
	}

	spanExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(spanExporter),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.shutdowns = append(t.shutdowns, tp.Shutdown)

	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)
	global.SetLoggerProvider(lp)
	t.shutdowns = append(t.shutdowns, lp.Shutdown)
	t.LogHandler = otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(lp))
	return t, nil
}

// LogStatus reports what Setup configured.
func (t *Telemetry) LogStatus(ctx context.Context, logger *slog.Logger) {
	if t.LogHandler == nil {
		logger.InfoContext(ctx, "Tracing disabled, using no-op tracer provider")
		return
	}
	if t.cfg.Insecure {
		logger.WarnContext(ctx, "Telemetry configured with insecure connection")
	}
	logger.InfoContext(ctx, "Tracing initialized", "endpoint", t.cfg.Endpoint)
}

// Shutdown flushes and stops every exporter.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	for _, shutdown := range t.shutdowns {
		errs = append(errs, shutdown(ctx))
	}
	return errors.Join(errs...)
}
