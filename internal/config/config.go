// Package config loads server settings from defaults, an optional YAML file,
// an optional .env file and EPHEMERA_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "EPHEMERA_"

type Config struct {
	Port               string        `yaml:"port"`
	DBPath             string        `yaml:"db_path"`
	LogLevel           string        `yaml:"log_level"`
	LogFormat          string        `yaml:"log_format"`
	SecretKey          string        `yaml:"secret_key"`
	FieldEncryptionKey string        `yaml:"field_encryption_key"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl"`
	PurgeInterval      time.Duration `yaml:"purge_interval"`
}

func Default() Config {
	return Config{
		Port:            "8000",
		DBPath:          "ephemera.db",
		LogLevel:        "info",
		LogFormat:       "text",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

// Load builds a Config. path may be empty; a missing .env is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"PORT":                 &c.Port,
		"DB_PATH":              &c.DBPath,
		"LOG_LEVEL":            &c.LogLevel,
		"LOG_FORMAT":           &c.LogFormat,
		"SECRET_KEY":           &c.SecretKey,
		"FIELD_ENCRYPTION_KEY": &c.FieldEncryptionKey,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":  &c.AccessTokenTTL,
		"REFRESH_TOKEN_TTL": &c.RefreshTokenTTL,
		"PURGE_INTERVAL":    &c.PurgeInterval,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}
	return nil
}

// RequireSecrets reports an error when the keys needed to serve the API are missing.
func (c Config) RequireSecrets() error {
	var errs []error
	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret_key is required (EPHEMERA_SECRET_KEY)"))
	}
	if c.FieldEncryptionKey == "" {
		errs = append(errs, errors.New("field_encryption_key is required (EPHEMERA_FIELD_ENCRYPTION_KEY)"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.PurgeInterval < 0 {
		errs = append(errs, errors.New("purge_interval must not be negative"))
	}
	return errors.Join(errs...)
}
