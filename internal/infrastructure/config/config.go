// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	clientID := cfg.Marketplace.ClientID
package config

import (
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Marketplace   MarketplaceConfig   `yaml:"marketplace"`
	Storage       StorageConfig       `yaml:"storage"`
	Sync          SyncConfig          `yaml:"sync"`
	Server        ServerConfig        `yaml:"server"`
	Taxes         []TaxRule           `yaml:"taxes"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// MarketplaceConfig holds MercadoLibre API credentials and hosts
type MarketplaceConfig struct {
	ClientID     string `yaml:"client_id" env:"MELI_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"MELI_CLIENT_SECRET"`
	RedirectURI  string `yaml:"redirect_uri" env:"MELI_REDIRECT_URI"`
	APIBaseURL   string `yaml:"api_base_url" env:"MELI_API_BASE_URL"`
	AuthBaseURL  string `yaml:"auth_base_url" env:"MELI_AUTH_BASE_URL"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" env:"SYNC_DB_PATH"`
}

// SyncConfig holds sync pipeline tuning
type SyncConfig struct {
	LookbackDays int    `yaml:"lookback_days" env:"SYNC_LOOKBACK_DAYS"`
	Concurrency  int    `yaml:"concurrency" env:"SYNC_CONCURRENCY"`
	Timezone     string `yaml:"timezone" env:"SYNC_TIMEZONE"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port" env:"SERVER_PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" envSeparator:","`
}

// TaxRule defines a computed tax line as a fixed percentage of the order total
type TaxRule struct {
	Name string  `yaml:"name"`
	Rate float64 `yaml:"rate"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// DefaultTaxRules returns the tax lines computed when the config does not
// override them. IVA is the Colombian VAT applied to the order total.
func DefaultTaxRules() []TaxRule {
	return []TaxRule{
		{Name: "IVA", Rate: 0.19},
	}
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${MELI_CLIENT_SECRET})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() (*Config, error) {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) (*Config, error) {
	if cfg, err := Load(path); err == nil {
		return cfg, nil
	}
	return LoadFromEnv()
}

// applyDefaults fills values neither source provided
func (c *Config) applyDefaults() {
	if c.Marketplace.APIBaseURL == "" {
		c.Marketplace.APIBaseURL = "https://api.mercadolibre.com"
	}
	if c.Marketplace.AuthBaseURL == "" {
		c.Marketplace.AuthBaseURL = "https://auth.mercadolibre.com.co"
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "meli_sync.db"
	}
	if c.Sync.LookbackDays <= 0 {
		c.Sync.LookbackDays = 3
	}
	if c.Sync.Concurrency <= 0 {
		c.Sync.Concurrency = 5
	}
	if c.Sync.Timezone == "" {
		c.Sync.Timezone = "America/Bogota"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if len(c.Taxes) == 0 {
		c.Taxes = DefaultTaxRules()
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}
