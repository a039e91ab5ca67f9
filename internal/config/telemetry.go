package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Telemetry configures trace export.
//
// Tracing is opt-in: it stays off until an endpoint is set.
type Telemetry struct {
	Enabled     bool   `env:"FXD_OTEL_ENABLED" envDefault:"true"`
	Endpoint    string `env:"FXD_OTEL_ENDPOINT"`
	ServiceName string `env:"FXD_OTEL_SERVICE_NAME" envDefault:"fxdispatch"`
}

// Active reports whether traces should be exported.
func (t Telemetry) Active() bool {
	return t.Enabled && t.Endpoint != ""
}

// LoadTelemetry parses telemetry settings from the process environment.
func LoadTelemetry() (Telemetry, error) {
	t, err := env.ParseAs[Telemetry]()
	if err != nil {
		return Telemetry{}, fmt.Errorf("parse env: %w", err)
	}
	return t, nil
}
