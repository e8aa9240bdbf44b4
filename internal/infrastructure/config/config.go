package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Re-assertion policies for gated HDMI bits when the EDID version is set.
const (
	ReassertOnTransition = "on_transition"
	ReassertAlways       = "always"
)

// Config is the root configuration structure for the device settings service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	WorkQueue WorkQueueConfig `yaml:"workqueue"`
	Platform  PlatformConfig  `yaml:"platform"`
	Facets    FacetsConfig    `yaml:"facets"`
}

// ServiceConfig identifies this service instance.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// WorkQueueConfig contains settings for the shared event dispatch queue.
type WorkQueueConfig struct {
	// StopTimeout bounds how long shutdown waits for queued events to drain.
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

// PlatformConfig contains settings for the simulated hardware platform.
type PlatformConfig struct {
	// AnimateInterval drives simulated decoder and hot-plug activity when
	// positive. Zero leaves the simulated device idle.
	AnimateInterval time.Duration `yaml:"animate_interval"`
}

// FacetsConfig groups the per-facet settings.
type FacetsConfig struct {
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	HDMIIn      HDMIInConfig      `yaml:"hdmiin"`
	FPD         FPDConfig         `yaml:"fpd"`
}

// DiagnosticsConfig contains settings for the A/V decoder diagnostics facet.
type DiagnosticsConfig struct {
	Enabled bool `yaml:"enabled"`

	// PollInterval is how often the decoder status is sampled.
	// Default: 30s
	PollInterval time.Duration `yaml:"poll_interval"`
}

// HDMIInConfig contains settings for the HDMI input facet.
type HDMIInConfig struct {
	Enabled bool `yaml:"enabled"`

	// Ports is the number of HDMI input ports (HDMI0..HDMI{Ports-1}).
	// Default: 3
	Ports int `yaml:"ports"`

	// ReassertPolicy controls when cached ALLM/VRR bits are pushed back to
	// hardware after the EDID version is set to 2.0: "on_transition" or "always".
	// Default: "on_transition"
	ReassertPolicy string `yaml:"reassert_policy"`

	// SignalPollInterval is how often each port's signal status is sampled.
	// Zero disables signal polling.
	// Default: 5s
	SignalPollInterval time.Duration `yaml:"signal_poll_interval"`
}

// FPDConfig contains settings for the front-panel display facet.
type FPDConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Indicators []string `yaml:"indicators"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DEVSETTINGS_SECTION_KEY
// For example: DEVSETTINGS_DATABASE_PATH, DEVSETTINGS_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "devicesettings",
			Name: "Device Settings",
		},
		Database: DatabaseConfig{
			Path:        "./data/devicesettings.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "devicesettings",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		WorkQueue: WorkQueueConfig{
			StopTimeout: 5 * time.Second,
		},
		Facets: FacetsConfig{
			Diagnostics: DiagnosticsConfig{
				Enabled:      true,
				PollInterval: 30 * time.Second,
			},
			HDMIIn: HDMIInConfig{
				Enabled:            true,
				Ports:              3,
				ReassertPolicy:     ReassertOnTransition,
				SignalPollInterval: 5 * time.Second,
			},
			FPD: FPDConfig{
				Enabled:    true,
				Indicators: []string{"message", "power", "record", "remote", "rf_bypass"},
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DEVSETTINGS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("DEVSETTINGS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DEVSETTINGS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DEVSETTINGS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DEVSETTINGS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("DEVSETTINGS_MQTT_ENABLED"); v != "" {
		cfg.MQTT.Enabled = parseBool(v, cfg.MQTT.Enabled)
	}

	// API
	if v := os.Getenv("DEVSETTINGS_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("DEVSETTINGS_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("DEVSETTINGS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("DEVSETTINGS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Platform
	if v := os.Getenv("DEVSETTINGS_PLATFORM_ANIMATE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Platform.AnimateInterval = d
		}
	}

	// Facets
	if v := os.Getenv("DEVSETTINGS_HDMIIN_REASSERT_POLICY"); v != "" {
		cfg.Facets.HDMIIn.ReassertPolicy = v
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.API.Enabled && (c.WebSocket.PingInterval < 1 || c.WebSocket.PongTimeout < 1) {
		errs = append(errs, "websocket.ping_interval and websocket.pong_timeout must be positive")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Platform.AnimateInterval < 0 {
		errs = append(errs, "platform.animate_interval must not be negative")
	}

	if c.Facets.Diagnostics.Enabled && c.Facets.Diagnostics.PollInterval <= 0 {
		errs = append(errs, "facets.diagnostics.poll_interval must be positive")
	}

	h := c.Facets.HDMIIn
	if h.Enabled {
		if h.Ports < 1 {
			errs = append(errs, "facets.hdmiin.ports must be at least 1")
		}
		switch h.ReassertPolicy {
		case ReassertOnTransition, ReassertAlways:
		default:
			errs = append(errs, fmt.Sprintf("facets.hdmiin.reassert_policy %q must be %q or %q",
				h.ReassertPolicy, ReassertOnTransition, ReassertAlways))
		}
		if h.SignalPollInterval < 0 {
			errs = append(errs, "facets.hdmiin.signal_poll_interval must not be negative")
		}
	}

	if c.Facets.FPD.Enabled && len(c.Facets.FPD.Indicators) == 0 {
		errs = append(errs, "facets.fpd.indicators must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
