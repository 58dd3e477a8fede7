package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by all server components.
type Config struct {
	// ListenAddress is the host:port the HTTP/WebSocket server binds to.
	ListenAddress string `yaml:"listen_addr"`
	// DatabasePath is the path to the SQLite database file.
	DatabasePath string `yaml:"database_path"`
	// RedisAddress is the host:port of the Redis instance backing the
	// task queue and the fire dedup guard.
	RedisAddress string `yaml:"redis_addr"`
	// MQTTBroker is the broker URL for the device bridge (e.g. tcp://host:1883).
	// When empty the bridge is not started.
	MQTTBroker string `yaml:"mqtt_broker"`
	// Timezone is the IANA zone in which alarm times of day are interpreted.
	Timezone string `yaml:"timezone"`
	// JWTSecret signs user access tokens.
	JWTSecret string `yaml:"jwt_secret"`
	// TokenTTL is the lifetime of issued user access tokens.
	TokenTTL time.Duration `yaml:"token_ttl"`
	// SweepInterval is the period of the due-alarm safety-net pass.
	SweepInterval time.Duration `yaml:"sweep_interval"`
	// QueuePollInterval is how often task queue workers look for due tasks.
	QueuePollInterval time.Duration `yaml:"queue_poll_interval"`
	// QueueWorkers is the number of task queue worker goroutines.
	QueueWorkers int `yaml:"queue_workers"`
	// LogLevel is the minimum level for log output (debug, info, warn, error, fatal).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for server settings.
	DefaultConfigFilename = "smart-farming-settings.yaml"

	// DefaultListenAddress is the default HTTP/WebSocket bind address.
	DefaultListenAddress = ":8000"

	// DefaultDatabasePath is the default SQLite database file.
	DefaultDatabasePath = "smart-farming.db"

	// DefaultRedisAddress is the default Redis instance address.
	DefaultRedisAddress = "localhost:6379"

	// DefaultTimezone is the zone alarm times are interpreted in.
	DefaultTimezone = "Asia/Jakarta"

	// DefaultTokenTTL is the default lifetime of user access tokens.
	DefaultTokenTTL = 24 * time.Hour

	// DefaultSweepInterval is the default due-alarm sweep period.
	DefaultSweepInterval = time.Minute

	// DefaultQueuePollInterval is the default task queue polling period.
	DefaultQueuePollInterval = time.Second

	// DefaultQueueWorkers is the default task queue worker count.
	DefaultQueueWorkers = 4

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errJWTSecretRequired is returned when the token signing secret is missing.
	errJWTSecretRequired = errors.New("jwt secret must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file carries the JWT secret.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath
	}

	if cfg.RedisAddress == "" {
		cfg.RedisAddress = DefaultRedisAddress
	}

	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	if cfg.JWTSecret == "" {
		return errJWTSecretRequired
	}

	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	if cfg.QueuePollInterval <= 0 {
		cfg.QueuePollInterval = DefaultQueuePollInterval
	}

	if cfg.QueueWorkers <= 0 {
		cfg.QueueWorkers = DefaultQueueWorkers
	}

	return nil
}

// Location resolves the configured timezone.
// Validate must have accepted the configuration first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}
