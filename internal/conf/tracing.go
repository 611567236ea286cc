package conf

import "fmt"

type TracingExporter = string

const (
	OpenTelemetryTracing TracingExporter = "opentelemetry"
)

// OTLP transports understood by the exporters.
const (
	OTLPProtocolGRPC = "grpc"
	OTLPProtocolHTTP = "http/protobuf"
)

type TracingConfig struct {
	Enabled  bool
	Exporter TracingExporter `default:"opentelemetry"`

	// ExporterProtocol is the OTEL_EXPORTER_OTLP_PROTOCOL env variable,
	// only available when exporter is opentelemetry. See:
	// https://github.com/open-telemetry/opentelemetry-specification/blob/main/specification/protocol/exporter.md
	ExporterProtocol string `default:"http/protobuf" envconfig:"OTEL_EXPORTER_OTLP_PROTOCOL"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `default:"siws" split_words:"true"`
}

func (tc *TracingConfig) Validate() error {
	if !tc.Enabled {
		return nil
	}
	if tc.Exporter != OpenTelemetryTracing {
		return fmt.Errorf("conf: unsupported tracing exporter %q", tc.Exporter)
	}
	return validateOTLPProtocol(tc.ExporterProtocol)
}

func validateOTLPProtocol(protocol string) error {
	switch protocol {
	case OTLPProtocolGRPC, OTLPProtocolHTTP:
		return nil
	default:
		return fmt.Errorf("conf: unsupported OTLP protocol %q", protocol)
	}
}
