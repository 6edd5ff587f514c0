package observability

import (
	"testing"

	"github.com/smallbiznis/campstay/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig(config.Config{Environment: " Production ", LogLevel: "INFO", OTLPProtocol: "GRPC"})

	assert.Equal(t, "campstay", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "grpc", cfg.OtelExporterProtocol)
	assert.False(t, cfg.Debug())
	assert.False(t, cfg.Logger().IncludeStackOnError)
}

func TestConfig_DebugInDevelopment(t *testing.T) {
	cfg := LoadConfig(config.Config{AppName: "glamping-admin", Environment: "local"})

	assert.True(t, cfg.Debug())
	assert.Equal(t, "glamping-admin", cfg.Logger().ServiceName)
	assert.True(t, cfg.Logger().IncludeStackOnError)
	assert.Equal(t, cfg.OtelSamplingRatio, cfg.Tracing().SamplingRatio)
	assert.Equal(t, "glamping-admin", cfg.Metrics().ServiceName)
}
