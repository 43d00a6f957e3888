package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cheese-stick/src/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	t.Setenv(EnvAdminPassword, "")
	t.Setenv(EnvPort, "")
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := Parse([]byte("name: Test\n"))
	require.NoError(t, err)

	assert.Equal(t, "Test", cfg.Name)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultAdminPassword, cfg.Admin.Password)
	assert.Equal(t, "sqlite", cfg.Storage.DBType)
	assert.Equal(t, 600, cfg.Dashboard.GifWidth)
	assert.Equal(t, 300, cfg.Dashboard.GifHeight)
	assert.Equal(t, 60, cfg.Dashboard.GifMaxFrames)
	assert.Equal(t, 2, cfg.Dashboard.GifWorkers)
	assert.Equal(t, 30, cfg.Dashboard.GifTimeoutSec)
	assert.Equal(t, 5, cfg.Dashboard.DefaultSpeed)
	assert.Equal(t, 15, cfg.DataSource.RefreshMinutes)
	assert.Equal(t, 30, cfg.DataSource.CacheKeepDays)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvAdminPassword, "s3cret")
	t.Setenv(EnvPort, "8080")
	t.Setenv(EnvDatabaseURL, "postgres://u:p@localhost/db")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Admin.Password)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "postgres", cfg.Storage.DBType)
	assert.Equal(t, "postgres://u:p@localhost/db", cfg.Storage.DBConnectionString)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestInvalidPortEnv(t *testing.T) {
	t.Setenv(EnvPort, "not-a-port")
	_, err := Parse([]byte("{}"))
	assert.Error(t, err)
}

func TestValidateRejectsBadSpeed(t *testing.T) {
	t.Setenv(EnvPort, "")
	_, err := Parse([]byte("dashboard:\n  default_speed: 11\n"))
	require.Error(t, err)

	var cfgErr *helpers.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, err.Error(), "default speed")
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvDatabaseURL, "")
	cfg, err := Parse([]byte("name: Saved\nport: 6000\n"))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Saved", back.Name)
	assert.Equal(t, 6000, back.Port)
}

func TestShippedDefaultConfigIsValid(t *testing.T) {
	t.Setenv(EnvAdminPassword, "")
	t.Setenv(EnvPort, "")
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvLogLevel, "")

	cfg, err := NewConfig(filepath.Join("..", "..", "config", "default.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "CheeseStick", cfg.Name)
	assert.Equal(t, 50051, cfg.GrpcPort)
	assert.Equal(t, "sqlite", cfg.Storage.DBType)
	assert.Len(t, cfg.DataSource.Sources, 1)
}
