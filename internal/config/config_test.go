package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, defaults and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing JWT secret.
	cfg := new(Config)

	err := Validate(cfg)
	require.Error(t, err)

	// Bad listen address.
	cfg = &Config{
		ListenAddress: "bad:address",
		JWTSecret:     "s3cret",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Bad timezone.
	cfg = &Config{
		Timezone:  "Mars/Olympus",
		JWTSecret: "s3cret",
	}

	err = Validate(cfg)
	require.Error(t, err)

	// Minimal valid config gets defaults filled.
	cfg = &Config{
		JWTSecret: "s3cret",
	}

	err = Validate(cfg)
	require.NoError(t, err)
	require.Equal(t, DefaultListenAddress, cfg.ListenAddress)
	require.Equal(t, DefaultDatabasePath, cfg.DatabasePath)
	require.Equal(t, DefaultRedisAddress, cfg.RedisAddress)
	require.Equal(t, DefaultTimezone, cfg.Timezone)
	require.Equal(t, DefaultTokenTTL, cfg.TokenTTL)
	require.Equal(t, DefaultSweepInterval, cfg.SweepInterval)
	require.Equal(t, DefaultQueuePollInterval, cfg.QueuePollInterval)
	require.Equal(t, DefaultQueueWorkers, cfg.QueueWorkers)
	require.Equal(t, DefaultTimezone, cfg.Location().String())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		ListenAddress: "127.0.0.1:8000",
		RedisAddress:  "127.0.0.1:6379",
		MQTTBroker:    "tcp://127.0.0.1:1883",
		JWTSecret:     "s3cret",
		SweepInterval: 30 * time.Second,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.ListenAddress, loaded.ListenAddress)
	require.Equal(t, cfg.MQTTBroker, loaded.MQTTBroker)
	require.Equal(t, cfg.SweepInterval, loaded.SweepInterval)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
