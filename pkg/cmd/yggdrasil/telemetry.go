package yggdrasil

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/honeycombio/otel-config-go/otelconfig"

	"go.minekube.com/yggdrasil/pkg/version"
)

// otelEndpointEnvs enable OpenTelemetry when any of them is set.
var otelEndpointEnvs = []string{
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT",
	"OTEL_EXPORTER_OTLP_METRICS_ENDPOINT",
}

func otelEnabled() bool {
	for _, env := range otelEndpointEnvs {
		if os.Getenv(env) != "" {
			return true
		}
	}
	return false
}

// initTelemetry sets up the global OpenTelemetry providers from the standard
// OTEL_* environment variables. The returned func flushes and shuts them down.
func initTelemetry(log logr.Logger) (shutdown func(), err error) {
	if !otelEnabled() {
		return func() {}, nil
	}
	shutdown, err = otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName("yggdrasil"),
		otelconfig.WithServiceVersion(version.String()),
	)
	if err != nil {
		return nil, fmt.Errorf("error configuring OpenTelemetry: %w", err)
	}
	log.V(1).Info("OpenTelemetry enabled")
	return shutdown, nil
}
