// Package config loads the client configuration from config.yaml, a .env file
// and RISK_CLIENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/smart-disease-client/internal/domain"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "RISK_CLIENT"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

var _ domain.ConfigManager = (*Manager)(nil)

// NewManager creates a new configuration manager. configFile may be empty, in
// which case config.yaml is searched for in the usual locations.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(configFile); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig(configFile string) error {
	// .env is optional and never overrides variables already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	v := m.v
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/risk-client/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	m.setDefaults()

	// Config file is optional unless one was named explicitly
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	v := m.v

	// Server defaults
	v.SetDefault("environment", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	// Submissions block until the service answers, so writes are unbounded.
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.tls_enabled", false)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit", 20)

	// Prediction service defaults
	v.SetDefault("prediction.base_url", "http://localhost:5000")
	v.SetDefault("prediction.predict_path", "/api/predict")
	v.SetDefault("prediction.chat_path", "/api/chat")
	v.SetDefault("prediction.health_path", "/health")
	v.SetDefault("prediction.timeout", "0s")
	v.SetDefault("prediction.rate_limit", 0)
	v.SetDefault("prediction.circuit_breaker.enabled", true)
	v.SetDefault("prediction.circuit_breaker.max_requests", 1)
	v.SetDefault("prediction.circuit_breaker.interval", "60s")
	v.SetDefault("prediction.circuit_breaker.timeout", "30s")
	v.SetDefault("prediction.circuit_breaker.failure_threshold", 5)

	// Session defaults
	v.SetDefault("session.cookie_name", "risk_session")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.max_sessions", 10000)
	v.SetDefault("session.idle_ttl", "30m")
	v.SetDefault("session.default_variant", "diabetes")

	// Audit defaults
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.driver", "sqlite")
	v.SetDefault("audit.path", filepath.Join(DefaultDataDir(), "audit.db"))

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "risk_client")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "")

	// Health defaults
	v.SetDefault("health.interval", "30s")
	v.SetDefault("health.timeout", "5s")

	// MCP defaults
	v.SetDefault("mcp.server_name", "risk-assessment")
	v.SetDefault("mcp.server_version", "1.0.0")
}

// DefaultDataDir is where local state lives when no path is configured.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".risk-client"
	}
	return filepath.Join(home, ".risk-client")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetPredictionConfig returns the prediction service configuration
func (m *Manager) GetPredictionConfig() *domain.PredictionConfig {
	return &m.config.Prediction
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.TLSEnabled && (config.Server.CertFile == "" || config.Server.KeyFile == "") {
		return fmt.Errorf("TLS enabled but cert_file or key_file missing")
	}

	u, err := url.Parse(config.Prediction.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid prediction base URL: %q", config.Prediction.BaseURL)
	}
	if config.Prediction.Timeout < 0 {
		return fmt.Errorf("prediction timeout must not be negative")
	}

	if _, err := domain.ParseDiseaseVariant(config.Session.DefaultVariant); err != nil {
		return fmt.Errorf("invalid default variant %q: %w", config.Session.DefaultVariant, err)
	}
	if config.Session.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}

	if config.Audit.Enabled {
		switch config.Audit.Driver {
		case "sqlite":
			if config.Audit.Path == "" {
				return fmt.Errorf("audit path is required for sqlite")
			}
		case "postgres":
			if config.Database.Host == "" || config.Database.Database == "" || config.Database.Username == "" {
				return fmt.Errorf("database host, name and username are required for postgres audit")
			}
		default:
			return fmt.Errorf("invalid audit driver: %s", config.Audit.Driver)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database as a postgres:// URL, the form the
// migration driver expects.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.Username, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     db.Database,
		RawQuery: "sslmode=" + db.SSLMode,
	}
	return u.String()
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.v.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.v.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
