package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Credential keys recognized in the provider credential snapshot.
const (
	CredentialOpenAI    = "OPENAI_API_KEY"
	CredentialAnthropic = "ANTHROPIC_API_KEY"
	CredentialGoogle    = "GOOGLE_API_KEY"
)

// Config holds all configuration for Relay Gateway
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Environment string          `yaml:"environment"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Redis       RedisConfig     `yaml:"redis"`
	Providers   ProvidersConfig `yaml:"providers"`
	Dispatch    DispatchConfig  `yaml:"dispatch"`
	Logging     LoggingConfig   `yaml:"logging"`
}

// ServerConfig defines HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// AuthConfig defines inbound authentication settings
type AuthConfig struct {
	SharedSecret string `yaml:"shared_secret"`
}

// RateLimitConfig defines the per-caller hourly quota
type RateLimitConfig struct {
	RequestsPerHour int `yaml:"requests_per_hour"`
}

// RedisConfig defines the expiring key/value store connection
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProvidersConfig defines upstream model provider settings
type ProvidersConfig struct {
	OpenAI    ProviderCredential `yaml:"openai"`
	Anthropic ProviderCredential `yaml:"anthropic"`
	Google    ProviderCredential `yaml:"google"`
	Local     LocalRuntimeConfig `yaml:"local"`
}

// ProviderCredential defines a paid provider's API access
type ProviderCredential struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// LocalRuntimeConfig defines the on-box free-tier runtime binding
type LocalRuntimeConfig struct {
	URL string `yaml:"url"`
}

// DispatchConfig defines dispatcher behavior
type DispatchConfig struct {
	AttemptTimeout string `yaml:"attempt_timeout"`
}

// GetAttemptTimeout returns the per-provider attempt timeout as a time.Duration
func (d *DispatchConfig) GetAttemptTimeout() time.Duration {
	if d.AttemptTimeout == "" {
		return 60 * time.Second
	}
	dur, err := time.ParseDuration(d.AttemptTimeout)
	if err != nil {
		return 60 * time.Second
	}
	return dur
}

// LoggingConfig defines logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IsProduction reports whether the deployment is flagged as production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Credentials returns the flat provider credential snapshot keyed by
// credential-lookup key. Empty values are included so callers can
// distinguish "known key, no secret" from "unknown key".
func (c *Config) Credentials() map[string]string {
	return map[string]string{
		CredentialOpenAI:    c.Providers.OpenAI.APIKey,
		CredentialAnthropic: c.Providers.Anthropic.APIKey,
		CredentialGoogle:    c.Providers.Google.APIKey,
	}
}

// Load loads configuration from a YAML file with environment variable overrides
func Load(path string) (*Config, error) {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 18790
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.RateLimit.RequestsPerHour == 0 {
		c.RateLimit.RequestsPerHour = 100
	}
}

// applyEnvOverrides applies environment variable overrides to the config
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("RELAY_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &c.Server.Port)
	}
	if env := os.Getenv("RELAY_ENVIRONMENT"); env != "" {
		c.Environment = env
	}
	if secret := os.Getenv("RELAY_SHARED_SECRET"); secret != "" {
		c.Auth.SharedSecret = secret
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
		c.Redis.Enabled = true
	}
	if key := os.Getenv(CredentialOpenAI); key != "" {
		c.Providers.OpenAI.APIKey = key
	}
	if key := os.Getenv(CredentialAnthropic); key != "" {
		c.Providers.Anthropic.APIKey = key
	}
	if key := os.Getenv(CredentialGoogle); key != "" {
		c.Providers.Google.APIKey = key
	}
	if url := os.Getenv("LOCAL_RUNTIME_URL"); url != "" {
		c.Providers.Local.URL = url
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Environment != "development" && c.Environment != "staging" && c.Environment != "production" {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}
	if c.RateLimit.RequestsPerHour < 0 {
		return fmt.Errorf("invalid rate limit: %d", c.RateLimit.RequestsPerHour)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis enabled but no addr configured")
	}
	// A production deployment without a shared secret is not rejected here;
	// the auth gate refuses every request instead so the misconfiguration
	// is visible at the edge rather than as a crash loop.
	return nil
}
