package observability

import (
	"context"
	"fmt"
	"sync"

	"github.com/ratersapp/siws/internal/conf"
	"github.com/ratersapp/siws/internal/utilities"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var (
	serviceName = "siws"
	tracingOnce sync.Once
)

func Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return otel.Tracer(name, opts...)
}

// openTelemetryResource describes this process to tracing and metrics
// backends. OTEL_RESOURCE_ATTRIBUTES is merged in.
func openTelemetryResource() *sdkresource.Resource {
	env := sdkresource.Environment()
	merged, err := sdkresource.Merge(env, sdkresource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("siws.version", utilities.Version),
	))
	if err != nil {
		logrus.WithError(err).Error("unable to merge OpenTelemetry resources")
		return env
	}
	return merged
}

func newTraceExporter(ctx context.Context, protocol string) (*otlptrace.Exporter, error) {
	switch protocol {
	case conf.OTLPProtocolGRPC:
		return otlptracegrpc.New(ctx)
	case conf.OTLPProtocolHTTP:
		return otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OpenTelemetry exporter protocol %q", protocol)
	}
}

func enableOpenTelemetryTracing(ctx context.Context, tc *conf.TracingConfig) error {
	exporter, err := newTraceExporter(ctx, tc.ExporterProtocol)
	if err != nil {
		return err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(openTelemetryResource()),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// the provider flushes and shuts down its exporter
	shutdownOnDone(ctx, "OpenTelemetry tracer provider", provider.Shutdown)

	logrus.WithField("protocol", tc.ExporterProtocol).Info("OpenTelemetry trace exporter started")
	return nil
}

// ConfigureTracing sets up the global OpenTelemetry tracer provider once.
// Cancelling ctx stops trace collection.
func ConfigureTracing(ctx context.Context, tc *conf.TracingConfig) error {
	if ctx == nil {
		panic("context must not be nil")
	}

	var err error
	tracingOnce.Do(func() {
		if tc.ServiceName != "" {
			serviceName = tc.ServiceName
		}
		if !tc.Enabled || tc.Exporter != conf.OpenTelemetryTracing {
			return
		}
		if err = enableOpenTelemetryTracing(ctx, tc); err != nil {
			logrus.WithError(err).Error("unable to start OTLP trace exporter")
		}
	})
	return err
}
