package goGuard

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig builds a Config from layered sources:
//  1. DefaultConfig
//  2. a YAML file (explicit path, GOGUARD_CONFIG, ./goguard.yaml)
//  3. GOGUARD_* environment overrides
//  4. Validate
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if file := discoverConfigFile(path); file != "" {
		if err := loadYAMLFile(file, &cfg); err != nil {
			return Config{}, fmt.Errorf("loading config file %s: %w", file, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func discoverConfigFile(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("GOGUARD_CONFIG"); env != "" {
		return env
	}
	if _, err := os.Stat("goguard.yaml"); err == nil {
		return "goguard.yaml"
	}
	return ""
}

// loadYAMLFile decodes path over cfg. Keys absent from the file keep their
// current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("GOGUARD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("GOGUARD_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("GOGUARD_JWT_SECRET"); v != "" {
		cfg.Token.JWT.Secret = v
	}
	if v := os.Getenv("GOGUARD_RATE_LIMIT_MAX"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GOGUARD_RATE_LIMIT_MAX: %w", err)
		}
		cfg.RateLimit.MaxAttempts = n
	}
	if v := os.Getenv("GOGUARD_RATE_LIMIT_DECAY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GOGUARD_RATE_LIMIT_DECAY: %w", err)
		}
		cfg.RateLimit.DecaySeconds = n
	}
	return nil
}
