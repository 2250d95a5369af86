package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Store     StoreConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Server    ServerConfig
	Fanout    FanoutConfig
	View      ViewConfig
	Redeliver RedeliverConfig
	Logging   LoggingConfig
	Telemetry TelemetryConfig
}

// StoreConfig selects the document store backend
type StoreConfig struct {
	Backend string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL         string
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL     string
	Enabled bool
	NameTTL time.Duration
}

// NATSConfig holds the event broker configuration
type NATSConfig struct {
	URL     string
	Enabled bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
	Host string
}

// FanoutConfig holds notification fan-out configuration
type FanoutConfig struct {
	Workers int
}

// ViewConfig holds view aggregation configuration
type ViewConfig struct {
	CommentDisplayLimit int
	NotificationLimit   int
	AutoMarkRead        bool
}

// RedeliverConfig holds the fan-out redelivery sweep configuration
type RedeliverConfig struct {
	Enabled  bool
	Interval time.Duration
	Window   time.Duration
	Batch    int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string
	Format       string // "json" or "text"
	ScalyrFormat bool   // Enable Scalyr-compatible JSON format
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled           bool
	JaegerURL         string
	PrometheusEnabled bool
	PrometheusPort    int
	ServiceName       string
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix("JALA")
	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.jalanews")
	viper.AddConfigPath("/etc/jalanews")

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found; this is OK if we have env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Store: StoreConfig{
			Backend: strings.ToLower(getString("store_backend", BackendMemory)),
		},
		Database: DatabaseConfig{
			URL:         getString("database_url", ""),
			AutoMigrate: getBool("database_auto_migrate", true),
		},
		Redis: RedisConfig{
			URL:     getString("redis_url", ""),
			Enabled: getString("redis_url", "") != "",
			NameTTL: GetDuration("redis_name_ttl", 10*time.Minute),
		},
		NATS: NATSConfig{
			URL:     getString("nats_url", ""),
			Enabled: getString("nats_url", "") != "",
		},
		Server: ServerConfig{
			Port: getInt("http_server_port", 8080),
			Host: getString("http_server_host", "0.0.0.0"),
		},
		Fanout: FanoutConfig{
			Workers: getInt("fanout_workers", 8),
		},
		View: ViewConfig{
			CommentDisplayLimit: getInt("comment_display_limit", 5),
			NotificationLimit:   getInt("notification_limit", 100),
			AutoMarkRead:        getBool("auto_mark_read", true),
		},
		Redeliver: RedeliverConfig{
			Enabled:  getBool("redeliver_enabled", false),
			Interval: GetDuration("redeliver_interval", 30*time.Second),
			Window:   GetDuration("redeliver_window", time.Hour),
			Batch:    getInt("redeliver_batch", 100),
		},
		Logging: LoggingConfig{
			Level:        getString("log_level", "INFO"),
			Format:       getString("log_format", "json"),
			ScalyrFormat: getBool("log_scalyr_format", false),
		},
		Telemetry: TelemetryConfig{
			Enabled:           getBool("telemetry_enabled", false),
			JaegerURL:         getString("jaeger_url", "http://localhost:14268/api/traces"),
			PrometheusEnabled: getBool("prometheus_enabled", true),
			PrometheusPort:    getInt("prometheus_port", 9090),
			ServiceName:       getString("service_name", "jalanews"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("store_backend", BackendMemory)
	viper.SetDefault("database_auto_migrate", true)
	viper.SetDefault("http_server_port", 8080)
	viper.SetDefault("http_server_host", "0.0.0.0")
	viper.SetDefault("fanout_workers", 8)
	viper.SetDefault("comment_display_limit", 5)
	viper.SetDefault("notification_limit", 100)
	viper.SetDefault("auto_mark_read", true)
	viper.SetDefault("redeliver_enabled", false)
	viper.SetDefault("redeliver_batch", 100)
	viper.SetDefault("log_level", "INFO")
	viper.SetDefault("log_format", "json")
	viper.SetDefault("log_scalyr_format", false)
	viper.SetDefault("telemetry_enabled", false)
	viper.SetDefault("prometheus_enabled", true)
	viper.SetDefault("prometheus_port", 9090)
	viper.SetDefault("service_name", "jalanews")
}

func getString(key, defaultValue string) string {
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	// Also check environment variable directly
	if val := os.Getenv(envKey(key)); val != "" {
		return val
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	if val := os.Getenv(envKey(key)); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if viper.IsSet(key) {
		return viper.GetBool(key)
	}
	if val := os.Getenv(envKey(key)); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultValue
}

// envKey maps a config key such as "redis_url" to JALA_REDIS_URL.
func envKey(key string) string {
	return "JALA_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database_url is required for the postgres store backend")
		}
	default:
		return fmt.Errorf("unknown store_backend %q", c.Store.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("http_server_port must be between 1 and 65535")
	}
	if c.Fanout.Workers <= 0 || c.Fanout.Workers > 256 {
		return fmt.Errorf("fanout_workers must be between 1 and 256")
	}
	if c.View.CommentDisplayLimit < 0 {
		return fmt.Errorf("comment_display_limit must not be negative")
	}
	if c.View.NotificationLimit <= 0 || c.View.NotificationLimit > 1000 {
		return fmt.Errorf("notification_limit must be between 1 and 1000")
	}
	if c.Redeliver.Enabled {
		if c.Redeliver.Interval <= 0 || c.Redeliver.Window <= 0 {
			return fmt.Errorf("redeliver_interval and redeliver_window must be positive")
		}
		if c.Redeliver.Batch <= 0 {
			return fmt.Errorf("redeliver_batch must be positive")
		}
	}
	return nil
}

// GetDuration returns a duration from config key, with default
func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if viper.IsSet(key) {
		return viper.GetDuration(key)
	}
	if val := os.Getenv(envKey(key)); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultValue
}
