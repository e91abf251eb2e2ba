package main

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/sells-group/impact-engine/internal/config"
)

const serviceName = "impact-engine"

// initTracing installs a global tracer provider when tracing is enabled and
// returns its shutdown func. Disabled tracing returns a nil shutdown and
// leaves the no-op provider in place.
func initTracing(tc config.TraceConfig, w io.Writer) (func(context.Context) error, error) {
	if !tc.Enabled {
		return nil, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, eris.Wrap(err, "trace: create stdout exporter")
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		zap.L().Warn("trace resource merge failed, using defaults", zap.Error(err))
		res = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	zap.L().Debug("tracing initialized", zap.String("exporter", tc.Exporter))
	return tp.Shutdown, nil
}
