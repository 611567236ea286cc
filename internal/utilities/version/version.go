// Package version publishes the running release as a metric.
package version

import (
	"context"
	"errors"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Info is a release split into its semantic version parts.
type Info struct {
	Original   string
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string
}

// Parse reads a release tag such as "v1.4.0" or "1.4.0-rc.2".
func Parse(ver string) (*Info, error) {
	ver = strings.TrimSpace(ver)
	if ver == "" {
		return nil, errors.New("version: empty version")
	}

	sv, err := semver.NewVersion(strings.TrimPrefix(ver, "v"))
	if err != nil {
		return nil, err
	}

	return &Info{
		Original:   ver,
		Major:      sv.Major(),
		Minor:      sv.Minor(),
		Patch:      sv.Patch(),
		Prerelease: sv.Prerelease(),
	}, nil
}

// InitMetrics reports a siws_build_info gauge of 1 labelled with the parts
// of ver, on the global meter provider.
func InitMetrics(_ context.Context, ver string) error {
	return initMetrics(otel.GetMeterProvider(), ver)
}

func initMetrics(mp metric.MeterProvider, ver string) error {
	info, err := Parse(ver)
	if err != nil {
		return err
	}

	attrs := metric.WithAttributes(
		attribute.String("version", info.Original),
		attribute.Int64("major", int64(info.Major)),
		attribute.Int64("minor", int64(info.Minor)),
		attribute.Int64("patch", int64(info.Patch)),
		attribute.String("prerelease", info.Prerelease),
	)

	_, err = mp.Meter("siws").Int64ObservableGauge(
		"siws_build_info",
		metric.WithDescription("The running siws release."),
		metric.WithInt64Callback(func(_ context.Context, obsrv metric.Int64Observer) error {
			obsrv.Observe(1, attrs)
			return nil
		}),
	)
	return err
}
