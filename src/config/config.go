package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"cheese-stick/src/helpers"
	"cheese-stick/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides applied after the YAML file is read.
const (
	EnvAdminPassword = "ADMIN_PASSWORD"
	EnvPort          = "PORT"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvLogLevel      = "LOG_LEVEL"

	DefaultAdminPassword = "cheesestick"
	DefaultPort          = 5050
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	return Parse(data)
}

// Parse builds a validated Config from YAML bytes, applying defaults and
// environment overrides (a .env file in the working directory is honoured).
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	// .env is optional
	_ = godotenv.Load()
	if err := config.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError(err, "config validation failed")
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values with the dashboard defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = models.DefaultName
	}
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Admin.Password == "" {
		c.Admin.Password = DefaultAdminPassword
	}
	if c.Admin.SessionTTLMinutes == 0 {
		c.Admin.SessionTTLMinutes = 12 * 60
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		c.Storage.DBPath = "cheese_stick.db"
	}
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 10
	}
	if c.Network.MaxRetries == 0 {
		c.Network.MaxRetries = 3
	}
	if c.Network.ConcurrentRequests == 0 {
		c.Network.ConcurrentRequests = 4
	}
	if c.Network.UserAgent == "" {
		c.Network.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	}
	if len(c.DataSource.Sources) == 0 {
		c.DataSource.Sources = []models.MSourceConfig{{Name: "yahoo", Type: "yahoo"}}
	}
	if c.DataSource.NewsSymbolsMax == 0 {
		c.DataSource.NewsSymbolsMax = 6
	}
	if c.DataSource.NewsItemsMax == 0 {
		c.DataSource.NewsItemsMax = 12
	}
	if c.DataSource.RefreshMinutes == 0 {
		c.DataSource.RefreshMinutes = 15
	}
	if c.DataSource.CacheKeepDays == 0 {
		c.DataSource.CacheKeepDays = 30
	}

	d := &c.Dashboard
	if d.ChartWidth == 0 {
		d.ChartWidth = 900
	}
	if d.ChartHeight == 0 {
		d.ChartHeight = 450
	}
	if d.GifWidth == 0 {
		d.GifWidth = 600
	}
	if d.GifHeight == 0 {
		d.GifHeight = 300
	}
	if d.GifMaxFrames == 0 {
		d.GifMaxFrames = 60
	}
	if d.GifFrameSeconds == 0 {
		d.GifFrameSeconds = 0.15
	}
	if d.GifWorkers == 0 {
		d.GifWorkers = 2
	}
	if d.GifTimeoutSec == 0 {
		d.GifTimeoutSec = 30
	}
	if d.DefaultSpeed == 0 {
		d.DefaultSpeed = 5
	}
	if d.ExportRetention == 0 {
		d.ExportRetention = 5
	}
}

// -----------------------------------------------------------------------------

// ApplyEnv overlays the ADMIN_PASSWORD, PORT, DATABASE_URL and LOG_LEVEL
// variables. A DATABASE_URL switches storage to postgres.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv(EnvAdminPassword); v != "" {
		c.Admin.Password = v
	}
	if v := getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvPort, v, err)
		}
		c.Port = port
	}
	if v := getenv(EnvDatabaseURL); v != "" {
		c.Storage.DBType = "postgres"
		c.Storage.DBConnectionString = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToUpper(v)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}
	if c.Admin.Password == "" {
		return fmt.Errorf("admin password cannot be empty")
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Storage.DBType)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	for i, src := range c.DataSource.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d must have a name", i)
		}
		if src.Type != "yahoo" {
			return fmt.Errorf("source '%s' has unsupported type %q", src.Name, src.Type)
		}
	}

	if c.DataSource.RefreshMinutes < 0 {
		return fmt.Errorf("refresh minutes cannot be negative")
	}
	if c.DataSource.CacheKeepDays < 0 {
		return fmt.Errorf("cache keep days cannot be negative")
	}

	d := c.Dashboard
	if d.DefaultSpeed < 1 || d.DefaultSpeed > 10 {
		return fmt.Errorf("default speed must be between 1 and 10, got %d", d.DefaultSpeed)
	}
	if d.GifWidth <= 0 || d.GifHeight <= 0 || d.ChartWidth <= 0 || d.ChartHeight <= 0 {
		return fmt.Errorf("chart and gif dimensions must be positive")
	}
	if d.GifMaxFrames <= 0 {
		return fmt.Errorf("gif max frames must be greater than 0")
	}
	if d.GifWorkers <= 0 {
		return fmt.Errorf("gif workers must be greater than 0")
	}
	if d.GifTimeoutSec <= 0 {
		return fmt.Errorf("gif timeout must be greater than 0")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
