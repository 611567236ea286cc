package observability

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ratersapp/siws/internal/conf"
	"github.com/sirupsen/logrus"
	otelruntimemetrics "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "siws"

var metricsOnce sync.Once

func Meter(instrumentationName string, opts ...metric.MeterOption) metric.Meter {
	return otel.Meter(instrumentationName, opts...)
}

// ObtainMetricCounter returns a counter on the service meter. Counters created
// before ConfigureMetrics follow the global provider once it is installed.
func ObtainMetricCounter(name, desc string) metric.Int64Counter {
	counter, err := Meter(meterName).Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		panic(err)
	}
	return counter
}

func newMetricReader(ctx context.Context, mc *conf.MetricsConfig) (sdkmetric.Reader, error) {
	switch mc.Exporter {
	case conf.Prometheus:
		exporter, err := prometheus.New()
		if err != nil {
			return nil, err
		}
		addr := net.JoinHostPort(mc.PrometheusListenHost, mc.PrometheusListenPort)
		serveUntilDone(ctx, "prometheus", addr, promhttp.Handler())
		return exporter, nil

	case conf.OpenTelemetryMetrics:
		var (
			exporter sdkmetric.Exporter
			err      error
		)
		switch mc.ExporterProtocol {
		case conf.OTLPProtocolGRPC:
			exporter, err = otlpmetricgrpc.New(ctx)
		case conf.OTLPProtocolHTTP:
			exporter, err = otlpmetrichttp.New(ctx)
		default:
			err = fmt.Errorf("unsupported OpenTelemetry exporter protocol %q", mc.ExporterProtocol)
		}
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exporter), nil

	default:
		return nil, fmt.Errorf("unsupported metrics exporter %q", mc.Exporter)
	}
}

func enableMetrics(ctx context.Context, mc *conf.MetricsConfig) error {
	reader, err := newMetricReader(ctx, mc)
	if err != nil {
		return err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(openTelemetryResource()),
	)
	otel.SetMeterProvider(provider)
	shutdownOnDone(ctx, "OpenTelemetry meter provider", provider.Shutdown)

	logrus.WithField("exporter", mc.Exporter).Info("metrics exporter started")
	return nil
}

// ConfigureMetrics installs the global meter provider once and starts Go
// runtime metrics. Cancelling ctx stops the exporters.
func ConfigureMetrics(ctx context.Context, mc *conf.MetricsConfig) error {
	if ctx == nil {
		panic("context must not be nil")
	}

	var err error
	metricsOnce.Do(func() {
		if mc.Enabled {
			if err = enableMetrics(ctx, mc); err != nil {
				logrus.WithError(err).Error("unable to start metrics exporter")
				return
			}
		}

		if rerr := otelruntimemetrics.Start(otelruntimemetrics.WithMinimumReadMemStatsInterval(time.Second)); rerr != nil {
			logrus.WithError(rerr).Error("unable to start Go runtime metrics collection")
		}

		_, gerr := Meter(meterName).Int64ObservableGauge(
			"siws_running",
			metric.WithDescription("Whether the SIWS service is running (always 1)"),
			metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
				obsrv.Observe(1)
				return nil
			}),
		)
		if gerr != nil {
			logrus.WithError(gerr).Error("unable to register siws_running gauge")
		}
	})
	return err
}
