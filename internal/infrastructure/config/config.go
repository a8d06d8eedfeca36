package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported store drivers.
const (
	DriverMongoDB = "mongodb"
	DriverSQLite  = "sqlite"
)

// Config is the root configuration structure for docbind.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Models    []ModelConfig   `yaml:"models"`
	Plugins   []string        `yaml:"plugins"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// DatabaseConfig describes the document store connection.
type DatabaseConfig struct {
	// Name identifies the database in logs, status topics and metrics.
	Name string `yaml:"name"`

	// Driver selects the store: "mongodb" or "sqlite".
	Driver string `yaml:"driver"`

	// URL is the store address. For sqlite this is the database file path.
	URL string `yaml:"url"`

	// Username and Password are passed through in the connection URI.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// DefaultDatabase is the MongoDB database models resolve collections in.
	DefaultDatabase string `yaml:"default_database"`

	AppName string `yaml:"app_name"`

	// ConnectTimeout bounds a single connection attempt (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`

	// SQLite settings.
	WALMode     bool `yaml:"wal_mode"`
	BusyTimeout int  `yaml:"busy_timeout"`
}

// ModelConfig declares a model to register at startup.
type ModelConfig struct {
	Name       string        `yaml:"name"`
	Collection string        `yaml:"collection"`
	Indexes    []IndexConfig `yaml:"indexes"`
}

// IndexConfig declares a single-field index of a model.
type IndexConfig struct {
	Field      string `yaml:"field"`
	Unique     bool   `yaml:"unique"`
	Descending bool   `yaml:"descending"`
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

// APIConfig contains admin HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
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

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT   JWTConfig    `yaml:"jwt"`
	Users []UserConfig `yaml:"users"`
}

// JWTConfig contains JWT token settings. An empty secret leaves the admin
// API unauthenticated.
type JWTConfig struct {
	Secret string `yaml:"secret"`

	// AccessTokenTTL is the lifetime of issued tokens (minutes).
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// UserConfig is an admin API account. PasswordHash is an Argon2id PHC
// string; Role is "viewer" or "operator".
type UserConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults), skipped when path is empty
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DOCBIND_SECTION_KEY
// For example: DOCBIND_DATABASE_URL, DOCBIND_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for defaults only
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Name:            "default",
			Driver:          DriverMongoDB,
			URL:             "localhost",
			DefaultDatabase: "docbind",
			AppName:         "docbind",
			ConnectTimeout:  10,
			WALMode:         true,
			BusyTimeout:     5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "docbind",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Security: SecurityConfig{
			JWT: JWTConfig{AccessTokenTTL: 15},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DOCBIND_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("DOCBIND_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DOCBIND_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DOCBIND_DATABASE_USERNAME"); v != "" {
		cfg.Database.Username = v
	}
	if v := os.Getenv("DOCBIND_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DOCBIND_DATABASE_CONNECT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Database.ConnectTimeout = n
		}
	}

	// MQTT
	if v := os.Getenv("DOCBIND_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DOCBIND_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DOCBIND_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("DOCBIND_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("DOCBIND_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("DOCBIND_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Security
	if v := os.Getenv("DOCBIND_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors.
//
// All problems are collected and reported together.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	switch c.Database.Driver {
	case DriverMongoDB:
	case DriverSQLite:
		if c.Database.Username != "" {
			errs = append(errs, "database.username is not supported by the sqlite driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver must be %q or %q", DriverMongoDB, DriverSQLite))
	}
	if c.Database.Name == "" {
		errs = append(errs, "database.name is required")
	}
	if c.Database.ConnectTimeout < 0 {
		errs = append(errs, "database.connect_timeout must not be negative")
	}

	// Model validation
	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if m.Name == "" {
			errs = append(errs, fmt.Sprintf("models[%d].name is required", i))
			continue
		}
		if seen[m.Name] {
			errs = append(errs, fmt.Sprintf("models[%d].name %q is duplicated", i, m.Name))
		}
		seen[m.Name] = true
		for j, idx := range m.Indexes {
			if idx.Field == "" {
				errs = append(errs, fmt.Sprintf("models[%d].indexes[%d].field is required", i, j))
			}
		}
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}
		if c.WebSocket.PingInterval <= 0 || c.WebSocket.PongTimeout <= 0 {
			errs = append(errs, "websocket.ping_interval and websocket.pong_timeout must be positive")
		}
		if c.WebSocket.MaxMessageSize <= 0 {
			errs = append(errs, "websocket.max_message_size must be positive")
		}
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	// An unset secret disables API authentication; a set one must be strong.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}
	if c.Security.JWT.AccessTokenTTL < 0 {
		errs = append(errs, "security.jwt.access_token_ttl must not be negative")
	}
	if len(c.Security.Users) > 0 && c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required when security.users are configured")
	}
	for i, u := range c.Security.Users {
		if u.Username == "" || u.PasswordHash == "" {
			errs = append(errs, fmt.Sprintf("security.users[%d] requires username and password_hash", i))
		}
		if u.Role != "viewer" && u.Role != "operator" {
			errs = append(errs, fmt.Sprintf("security.users[%d].role must be \"viewer\" or \"operator\"", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetConnectTimeout returns the store connect timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Database.ConnectTimeout) * time.Second
}

// GetAccessTokenTTL returns the issued token lifetime as a Duration.
func (c *Config) GetAccessTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
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
