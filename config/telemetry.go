package config

import (
	"strings"

	"justfriends/observability/otel"
)

// Telemetry configures the OTLP exporters. Both are off by default.
type Telemetry struct {
	Endpoint string `toml:"Endpoint" yaml:"endpoint"`
	Insecure bool   `toml:"Insecure" yaml:"insecure"`
	// Headers uses the OTEL_EXPORTER_OTLP_HEADERS form: "k=v,k2=v2".
	Headers string `toml:"Headers" yaml:"headers"`
	Traces  bool   `toml:"Traces" yaml:"traces"`
	Metrics bool   `toml:"Metrics" yaml:"metrics"`
}

// OTel converts the section into exporter settings for the named service.
func (c *Config) OTel(service string) otel.Config {
	return otel.Config{
		ServiceName: service,
		Environment: c.Environment,
		Endpoint:    strings.TrimSpace(c.Telemetry.Endpoint),
		Insecure:    c.Telemetry.Insecure,
		Headers:     otel.ParseHeaders(c.Telemetry.Headers),
		Traces:      c.Telemetry.Traces,
		Metrics:     c.Telemetry.Metrics,
	}
}
