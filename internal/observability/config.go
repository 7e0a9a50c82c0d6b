package observability

import (
	"strings"

	"github.com/smallbiznis/healx/internal/config"
)

// Config is the normalized telemetry view of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	t := cfg.Telemetry

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "healx"
	}
	environment := t.DeploymentEnv
	if environment == "" {
		environment = cfg.Environment
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             orDefault(t.LogLevel, "info"),
		LogFormat:            orDefault(t.LogFormat, "json"),
		OtelEnabled:          t.OtelEnabled && strings.TrimSpace(t.OtlpEndpoint) != "",
		OtelExporterEndpoint: strings.TrimSpace(t.OtlpEndpoint),
		OtelExporterProtocol: normalizeProtocol(t.OtlpProtocol),
		OtelSamplingRatio:    clampRatio(t.SamplingRatio),
	}
}

// Debug is true for debug logging or any non-production environment.
func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func normalizeProtocol(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "http", "http/protobuf", "http/json":
		return "http"
	default:
		return "grpc"
	}
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}

func orDefault(v, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return def
	}
	return v
}
