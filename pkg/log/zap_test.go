package log

import (
	"os"
	"path/filepath"
	"testing"

	"FailoverGuard/internal/conf"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewZapLogger_NilConfig(t *testing.T) {
	_, err := NewZapLogger(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "log config is nil")
}

func TestNewZapLogger_InvalidLevel(t *testing.T) {
	_, err := NewZapLogger(&conf.Log{Level: "loud", Format: "json"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewZapLogger_Modes(t *testing.T) {
	tests := []struct {
		name string
		cfg  *conf.Log
	}{
		{"production json", &conf.Log{Level: "info", Format: "json", Env: "production"}},
		{"development console", &conf.Log{Level: "debug", Format: "console", Env: "development"}},
		{"warn only", &conf.Log{Level: "warn", Format: "json", Env: "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewZapLogger(tt.cfg)
			require.NoError(t, err)
			require.NotNil(t, logger)
			logger.Info("probe tick", zap.String("replica", "primary"))
		})
	}
}

func TestNewZapLogger_EnvironmentVariable(t *testing.T) {
	t.Setenv("FAILOVERGUARD_ENV", "development")

	logger, err := NewZapLogger(&conf.Log{Level: "info", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewZapLogger_FileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "failoverguard.log")

	logger, err := NewZapLogger(&conf.Log{
		Level:      "info",
		Format:     "json",
		OutputFile: logFile,
		Env:        "production",
	})
	require.NoError(t, err)

	logger.Info("switched to secondary", zap.String("from", "primary"))
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "switched to secondary")
	assert.Contains(t, string(data), `"service":"FailoverGuard"`)
}
