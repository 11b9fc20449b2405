package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/qninhdt/crew-dialogue/server/internal/dialogue"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
)

// Config is the server configuration
type Config struct {
	Port    string `yaml:"port"`
	DBPath  string `yaml:"db_path"`
	LogMode string `yaml:"log_mode"`

	// CorpusPath overrides the embedded template corpus when set
	CorpusPath string `yaml:"corpus_path"`

	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Tracing   TracingConfig   `yaml:"tracing"`

	Dialogue       dialogue.Config `yaml:"dialogue"`
	InitialRapport int             `yaml:"initial_rapport"`
	MaxBodyBytes   int64           `yaml:"max_body_bytes"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	Insecure    bool   `yaml:"insecure"`
	Environment string `yaml:"environment"`
}

// Default returns the stock configuration
func Default() Config {
	return Config{
		Port:    "8080",
		DBPath:  "crew.db",
		LogMode: "dev",
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             1,
		},
		Tracing: TracingConfig{
			Environment: "development",
		},
		Dialogue:       dialogue.DefaultConfig(),
		InitialRapport: relationship.DefaultInitialRapport,
		MaxBodyBytes:   1024 * 1024,
	}
}

// Load reads the optional YAML file at path over the defaults, then applies
// environment overrides
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.LogMode = getEnv("LOG_MODE", c.LogMode)
	c.CorpusPath = getEnv("CORPUS_PATH", c.CorpusPath)
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Tracing.Enabled = getEnvBool("OTEL_ENABLED", c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnv("OTEL_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.Environment = getEnv("ENVIRONMENT", c.Tracing.Environment)
	c.Dialogue.CooldownTicks = int64(getEnvInt("DIALOGUE_COOLDOWN_TICKS", int(c.Dialogue.CooldownTicks)))
}

// Validate checks settings that have no safe default
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("jwt secret must be at least 16 characters (set JWT_SECRET)")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing enabled without an endpoint (set OTEL_ENDPOINT)")
	}
	if c.InitialRapport < 0 || c.InitialRapport > 100 {
		return fmt.Errorf("initial_rapport must be between 0 and 100")
	}
	if h := c.Dialogue.MinHumorAffinity; h != nil && (*h < 0 || *h > 1) {
		return fmt.Errorf("dialogue.min_humor_affinity must be between 0 and 1")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}
