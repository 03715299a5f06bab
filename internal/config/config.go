package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Geofence bounds accepted Goto coordinates.
type Geofence struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLon float64 `yaml:"max_lon"`
}

// Contains reports whether lat/lon fall inside the fence.
func (g Geofence) Contains(lat, lon float64) bool {
	return lat >= g.MinLat && lat <= g.MaxLat && lon >= g.MinLon && lon <= g.MaxLon
}

type Config struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`

	ProviderURL     string        `yaml:"provider_url"`
	ProviderKey     string        `yaml:"provider_key"`
	ProviderModel   string        `yaml:"provider_model"`
	ProviderPrompt  string        `yaml:"provider_prompt"`
	ProviderTimeout time.Duration `yaml:"provider_timeout"`

	RetryBudget  int           `yaml:"retry_budget"`  // retries after the first attempt
	RetryBackoff time.Duration `yaml:"retry_backoff"` // base delay, doubled per retry

	ActuatorAddr    string        `yaml:"actuator_addr"`
	ActuatorTimeout time.Duration `yaml:"actuator_timeout"`
	AltitudeCeiling float64       `yaml:"altitude_ceiling"` // meters
	Geofence        Geofence      `yaml:"geofence"`

	DatabasePath string `yaml:"database_path"`
	JournalPath  string `yaml:"journal_path"`
	LogDirectory string `yaml:"log_directory"`

	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// Load builds the configuration from environment variables, then applies
// the YAML overlay named by CONFIG_FILE (if any) on top.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnvAsInt("PORT", 3103),
		AuthToken: getEnv("AUTH_TOKEN", ""),

		ProviderURL:     getEnv("PROVIDER_URL", "https://api.openai.com/v1/chat/completions"),
		ProviderKey:     getEnv("OPENAI_API_KEY", ""),
		ProviderModel:   getEnv("PROVIDER_MODEL", "gpt-4-vision-preview"),
		ProviderPrompt:  getEnv("PROVIDER_PROMPT", ""),
		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 30*time.Second),

		RetryBudget:  getEnvAsInt("RETRY_BUDGET", 2),
		RetryBackoff: getEnvAsDuration("RETRY_BACKOFF", time.Second),

		ActuatorAddr:    getEnv("ACTUATOR_ADDR", ""),
		ActuatorTimeout: getEnvAsDuration("ACTUATOR_TIMEOUT", 10*time.Second),
		AltitudeCeiling: getEnvAsFloat("ALTITUDE_CEILING", 120),

		DatabasePath: getEnv("DATABASE_PATH", filepath.Join(".", "data", "relay.db")),
		JournalPath:  getEnv("JOURNAL_PATH", filepath.Join(".", "data", "results.jsonl")),
		LogDirectory: getEnv("LOG_DIR", filepath.Join(".", "logs")),

		ShutdownGrace: getEnvAsDuration("SHUTDOWN_GRACE", 10*time.Second),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.ProviderPrompt == "" {
		c.ProviderPrompt = "What do you see in this image? Focus on identifying any potential hazards or areas of concern for firefighters."
	}
	if c.ProviderTimeout == 0 {
		c.ProviderTimeout = 30 * time.Second
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.ActuatorTimeout == 0 {
		c.ActuatorTimeout = 10 * time.Second
	}
	if c.ShutdownGrace == 0 {
		c.ShutdownGrace = 10 * time.Second
	}
	if c.AltitudeCeiling == 0 {
		c.AltitudeCeiling = 120
	}
	if c.Geofence == (Geofence{}) {
		c.Geofence = Geofence{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	}
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ProviderURL == "" {
		return fmt.Errorf("provider_url is required")
	}
	if c.RetryBudget < 0 {
		return fmt.Errorf("retry_budget must not be negative")
	}
	if c.AltitudeCeiling <= 0 {
		return fmt.Errorf("altitude_ceiling must be positive")
	}
	if c.Geofence.MinLat > c.Geofence.MaxLat || c.Geofence.MinLon > c.Geofence.MaxLon {
		return fmt.Errorf("geofence bounds are inverted")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
