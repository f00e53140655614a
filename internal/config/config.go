// Package config loads the service configuration from an optional YAML file
// with environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/keepat/api/internal/models"
)

// Config holds everything the process needs to start.
type Config struct {
	Port      int    `yaml:"port"`
	BodyLimit int64  `yaml:"body-limit"`
	LogLevel  string `yaml:"log-level"`
	LogFile   string `yaml:"log-file"`

	AWSRegion   string `yaml:"aws-region"`
	TablePrefix string `yaml:"table-prefix"`

	JWTSecret  string `yaml:"jwt-secret"`
	AuthDomain string `yaml:"auth-domain"`

	StripeSecretKey string `yaml:"stripe-secret-key"`
	DefaultPlanID   string `yaml:"default-plan-id"`

	RedisAddr string `yaml:"redis-addr"`

	Plans []models.Plan `yaml:"plans"`
}

// Default returns the configuration defaults, including the plan catalog.
func Default() Config {
	return Config{
		Port:          3000,
		BodyLimit:     100 << 10,
		LogLevel:      "info",
		AWSRegion:     "eu-central-1",
		TablePrefix:   "rp_dev_",
		AuthDomain:    "keepat.eu.auth0.com",
		DefaultPlanID: "personal",
		RedisAddr:     "127.0.0.1:6379",
		Plans: []models.Plan{
			{ID: "personal", Name: "Personal", Price: 0},
			{ID: "professional", Name: "Professional", Price: 4.99},
			{ID: "enterprise", Name: "Enterprise", Price: 9.99},
			{ID: "extreme", Name: "Extreme", Price: 19.9},
		},
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "shared"
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWSRegion = v
	}
	if v := os.Getenv("DYNAMODB_PREFIX"); v != "" {
		cfg.TablePrefix = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("AUTH0_DOMAIN"); v != "" {
		cfg.AuthDomain = v
	}
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.StripeSecretKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("LOGGER_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// Plan resolves a plan by id from the catalog.
func (c Config) Plan(id string) (models.Plan, bool) {
	for _, plan := range c.Plans {
		if plan.ID == id {
			return plan, true
		}
	}
	return models.Plan{}, false
}
