package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestNewManager_Defaults(t *testing.T) {
	m, err := NewManager(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:5000", cfg.Prediction.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.Prediction.Timeout)
	assert.True(t, cfg.Prediction.CircuitBreaker.Enabled)
	assert.Equal(t, "risk_session", cfg.Session.CookieName)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, "sqlite", cfg.Audit.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, m.Validate())
	assert.True(t, m.IsDevelopment())
}

func TestNewManager_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
prediction:
  base_url: http://predictor:5000
  timeout: 20s
session:
  default_variant: stroke
`)
	t.Setenv("RISK_CLIENT_LOGGING_LEVEL", "debug")
	t.Setenv("RISK_CLIENT_SERVER_PORT", "7070")

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 7070, cfg.Server.Port, "environment overrides file")
	assert.Equal(t, "http://predictor:5000", m.GetPredictionConfig().BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Prediction.Timeout)
	assert.Equal(t, "stroke", cfg.Session.DefaultVariant)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestNewManager_MissingExplicitFile(t *testing.T) {
	_, err := NewManager(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"Bad port", "server:\n  port: 70000\n"},
		{"Bad base URL", "prediction:\n  base_url: not a url\n"},
		{"Bad variant", "session:\n  default_variant: asthma\n"},
		{"Bad audit driver", "audit:\n  driver: mongo\n"},
		{"Bad log level", "logging:\n  level: loud\n"},
		{"TLS without cert", "server:\n  tls_enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager(writeConfig(t, tt.config))
			require.NoError(t, err)
			assert.Error(t, m.Validate())
		})
	}
}

func TestDatabaseStrings(t *testing.T) {
	m, err := NewManager(writeConfig(t, `
database:
  host: db
  port: 5433
  database: audit
  username: svc
  password: s3cret
`))
	require.NoError(t, err)

	assert.Equal(t, "host=db port=5433 user=svc password=s3cret dbname=audit sslmode=disable", m.GetDatabaseConnectionString())
	assert.Equal(t, "postgres://svc:s3cret@db:5433/audit?sslmode=disable", m.GetDatabaseURL())
}
