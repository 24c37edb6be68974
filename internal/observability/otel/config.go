// Package otel traces govgate commands over OTLP.
// Disabled by default; enabled via --otel or configuration.
package otel

import (
	"errors"
)

// ServiceName is the default resource and tracer name
const ServiceName = "govgate"

// OTLP exporter protocols
const (
	ProtocolHTTP = "otlphttp"
	ProtocolGRPC = "otlpgrpc"
)

// Config holds OTel initialization options.
type Config struct {
	Enabled     bool
	Endpoint    string  // e.g., "http://localhost:4318" or "localhost:4317"
	Protocol    string  // "otlphttp" or "otlpgrpc"
	Insecure    bool    // allow insecure connections (no TLS)
	ServiceName string  // default: "govgate"
	SampleRatio float64 // 0..1, default: 1.0
}

// DefaultConfig returns a Config with safe defaults (OTel disabled).
func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		Protocol:    ProtocolHTTP,
		ServiceName: ServiceName,
		SampleRatio: 1.0,
	}
}

// Validate checks that the configuration is valid when OTel is enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil // nothing to validate if disabled
	}

	switch c.Protocol {
	case ProtocolHTTP, ProtocolGRPC:
		// valid
	default:
		return errors.New("otel: protocol must be 'otlphttp' or 'otlpgrpc'")
	}

	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return errors.New("otel: sample-ratio must be between 0 and 1")
	}

	return nil
}

// ResolvedEndpoint applies OTEL_EXPORTER_OTLP_ENDPOINT and the protocol's
// local collector default when no endpoint was configured
func (c Config) ResolvedEndpoint(getenv func(string) string) string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if env := getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); env != "" {
		return env
	}
	if c.Protocol == ProtocolGRPC {
		return "localhost:4317"
	}
	return "localhost:4318"
}
