// Package config loads HavenWatch configuration from defaults, an optional
// YAML file and HW_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/havenwatch/pkg/models"
)

// EnvPrefix is the environment variable prefix: HW_SERVER_PORT=9090.
const EnvPrefix = "HW"

// Config is the typed application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Readings   ReadingsConfig   `mapstructure:"readings"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Seed       SeedConfig       `mapstructure:"seed"`

	// File is the configuration file that was read, empty when only
	// defaults and environment were used.
	File string `mapstructure:"-"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DevMode bool   `mapstructure:"dev_mode"`
}

// Addr returns the listen address as host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig selects the log level and encoding.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig controls token signing. An empty secret makes the server
// generate an ephemeral one.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// SimulationConfig controls the reading simulator.
type SimulationConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	IntervalSeconds int           `mapstructure:"interval_seconds"`
	StopGrace       time.Duration `mapstructure:"stop_grace"`
	AbnormalChance  float64       `mapstructure:"abnormal_chance"`
}

// Interval returns the simulation period.
func (c SimulationConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ReadingsConfig controls reading retention.
type ReadingsConfig struct {
	RetentionPeriod     time.Duration `mapstructure:"retention_period"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`
}

// NotifyConfig configures outbound alert notifications. Empty targets
// disable the matching notifier.
type NotifyConfig struct {
	WebhookURL     string        `mapstructure:"webhook_url"`
	WebhookSecret  string        `mapstructure:"webhook_secret"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout"`
	WebhookRetries int           `mapstructure:"webhook_retries"`
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisStream    string        `mapstructure:"redis_stream"`
	MinSeverity    string        `mapstructure:"min_severity"`
}

// SeedConfig controls demo data.
type SeedConfig struct {
	Demo bool `mapstructure:"demo"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "havenwatch.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("simulation.enabled", true)
	v.SetDefault("simulation.interval_seconds", 60)
	v.SetDefault("simulation.stop_grace", "5s")
	v.SetDefault("simulation.abnormal_chance", 0.05)
	v.SetDefault("readings.retention_period", "720h")
	v.SetDefault("readings.maintenance_interval", "1h")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.webhook_secret", "")
	v.SetDefault("notify.webhook_timeout", "10s")
	v.SetDefault("notify.webhook_retries", 2)
	v.SetDefault("notify.redis_addr", "")
	v.SetDefault("notify.redis_stream", "havenwatch:alerts")
	v.SetDefault("notify.min_severity", string(models.SeverityHigh))
	v.SetDefault("seed.demo", false)
}

// Load reads configuration from configPath, or from havenwatch.yaml in the
// standard search paths when configPath is empty. A missing search-path
// file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("havenwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/havenwatch")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("auth.access_token_ttl must be positive"))
	}
	if c.Simulation.IntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("simulation.interval_seconds %d must be at least 1", c.Simulation.IntervalSeconds))
	}
	if c.Simulation.AbnormalChance < 0 || c.Simulation.AbnormalChance > 1 {
		errs = append(errs, fmt.Errorf("simulation.abnormal_chance %v not in [0,1]", c.Simulation.AbnormalChance))
	}
	if c.Readings.RetentionPeriod <= 0 {
		errs = append(errs, errors.New("readings.retention_period must be positive"))
	}
	if c.MinSeverity().Rank() < 0 {
		errs = append(errs, fmt.Errorf("notify.min_severity %q is not a severity", c.Notify.MinSeverity))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// MinSeverity returns the configured notification threshold.
func (c *Config) MinSeverity() models.Severity {
	return models.Severity(strings.ToUpper(strings.TrimSpace(c.Notify.MinSeverity)))
}
