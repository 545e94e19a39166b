package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/havenwatch/pkg/models"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.Simulation.Interval() != time.Minute || cfg.Simulation.StopGrace != 5*time.Second {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Simulation.AbnormalChance != 0.05 || !cfg.Simulation.Enabled {
		t.Errorf("simulation = %+v", cfg.Simulation)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("access_token_ttl = %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Readings.RetentionPeriod != 720*time.Hour || cfg.Readings.MaintenanceInterval != time.Hour {
		t.Errorf("readings = %+v", cfg.Readings)
	}
	if cfg.MinSeverity() != models.SeverityHigh || cfg.Notify.RedisStream != "havenwatch:alerts" {
		t.Errorf("notify = %+v", cfg.Notify)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty", cfg.File)
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "havenwatch.yaml")
	yaml := strings.Join([]string{
		"server:",
		"  port: 9090",
		"simulation:",
		"  interval_seconds: 15",
		"  stop_grace: 2s",
		"notify:",
		"  min_severity: medium",
		"seed:",
		"  demo: true",
	}, "\n")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HW_SIMULATION_INTERVAL_SECONDS", "30")
	t.Setenv("HW_AUTH_JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Simulation.IntervalSeconds != 30 {
		t.Errorf("interval_seconds = %d, want env override 30", cfg.Simulation.IntervalSeconds)
	}
	if cfg.Simulation.StopGrace != 2*time.Second {
		t.Errorf("stop_grace = %v", cfg.Simulation.StopGrace)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt_secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.MinSeverity() != models.SeverityMedium || !cfg.Seed.Demo {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "interval", mutate: func(c *Config) { c.Simulation.IntervalSeconds = 0 }, want: "interval_seconds"},
		{name: "chance", mutate: func(c *Config) { c.Simulation.AbnormalChance = 1.5 }, want: "abnormal_chance"},
		{name: "severity", mutate: func(c *Config) { c.Notify.MinSeverity = "urgent" }, want: "min_severity"},
		{name: "database", mutate: func(c *Config) { c.Database.Path = "" }, want: "database.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %q", err, tt.want)
			}
		})
	}

	if err := validConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Host: "127.0.0.1", Port: 8080},
		Database:   DatabaseConfig{Path: "hw.db"},
		Auth:       AuthConfig{AccessTokenTTL: time.Minute},
		Simulation: SimulationConfig{IntervalSeconds: 60, AbnormalChance: 0.05},
		Readings:   ReadingsConfig{RetentionPeriod: time.Hour},
		Notify:     NotifyConfig{MinSeverity: "HIGH"},
	}
}
