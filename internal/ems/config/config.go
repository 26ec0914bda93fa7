// Package config loads the service configuration from a YAML file, an
// optional .env file and the process environment, in that order of
// precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/gartstein/ems/internal/pkg/validation"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "internal/ems/config/config.yaml"

type Config struct {
	Env      string `yaml:"APP_ENV" validate:"oneof=development production test"`
	GRPCPort int    `yaml:"GRPC_PORT" validate:"min=1,max=65535"`
	HTTPPort int    `yaml:"HTTP_PORT" validate:"min=1,max=65535"`

	DBDriver     string `yaml:"DB_DRIVER" validate:"oneof=postgres sqlite"`
	DBHost       string `yaml:"DB_HOST"`
	DBPort       int    `yaml:"DB_PORT"`
	DBUser       string `yaml:"DB_USER"`
	DBPassword   string `yaml:"DB_PASSWORD"`
	DBName       string `yaml:"DB_NAME"`
	DBSSLMode    string `yaml:"DB_SSLMODE"`
	DBDSN        string `yaml:"DB_DSN"`
	DBMaxConns   int    `yaml:"DB_MAX_OPEN_CONNS" validate:"min=0"`
	DBLogQueries bool   `yaml:"DB_LOG_QUERIES"`

	KafkaBrokers  []string `yaml:"KAFKA_BROKERS"`
	Topic         string   `yaml:"TOPIC" validate:"required_with=KafkaBrokers"`
	ConsumerGroup string   `yaml:"CONSUMER_GROUP"`

	AdminEmail        string `yaml:"ADMIN_EMAIL" validate:"required,email"`
	AdminPassword     string `yaml:"ADMIN_PASSWORD" validate:"required_without=AdminPasswordHash"`
	AdminPasswordHash string `yaml:"ADMIN_PASSWORD_HASH"`
	JWTSecret         string `yaml:"JWT_SECRET" validate:"required,min=16"`
	SessionMaxAgeDays int    `yaml:"SESSION_MAX_AGE_DAYS" validate:"min=1"`

	ClientOrigin      string `yaml:"CLIENT_ORIGIN" validate:"omitempty,url"`
	SeedDemoEmployees int    `yaml:"SEED_DEMO_EMPLOYEES" validate:"min=0"`
	LogLevel          string `yaml:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Default returns the settings used when neither the file nor the
// environment provides a value.
func Default() Config {
	return Config{
		Env:               "development",
		GRPCPort:          9090,
		HTTPPort:          8080,
		DBDriver:          "postgres",
		DBHost:            "localhost",
		DBPort:            5432,
		DBSSLMode:         "disable",
		Topic:             "employees",
		ConsumerGroup:     "ems-events",
		SessionMaxAgeDays: 7,
		ClientOrigin:      "http://localhost:5173",
		LogLevel:          "info",
	}
}

// Load reads path (missing file is fine), then envFile, then the
// environment, and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := validation.New().Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"APP_ENV":             &c.Env,
		"DB_DRIVER":           &c.DBDriver,
		"DB_HOST":             &c.DBHost,
		"DB_USER":             &c.DBUser,
		"DB_PASSWORD":         &c.DBPassword,
		"DB_NAME":             &c.DBName,
		"DB_SSLMODE":          &c.DBSSLMode,
		"DB_DSN":              &c.DBDSN,
		"TOPIC":               &c.Topic,
		"CONSUMER_GROUP":      &c.ConsumerGroup,
		"ADMIN_EMAIL":         &c.AdminEmail,
		"ADMIN_PASSWORD":      &c.AdminPassword,
		"ADMIN_PASSWORD_HASH": &c.AdminPasswordHash,
		"JWT_SECRET":          &c.JWTSecret,
		"CLIENT_ORIGIN":       &c.ClientOrigin,
		"LOG_LEVEL":           &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GRPC_PORT":            &c.GRPCPort,
		"HTTP_PORT":            &c.HTTPPort,
		"DB_PORT":              &c.DBPort,
		"DB_MAX_OPEN_CONNS":    &c.DBMaxConns,
		"SESSION_MAX_AGE_DAYS": &c.SessionMaxAgeDays,
		"SEED_DEMO_EMPLOYEES":  &c.SeedDemoEmployees,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
	}

	if v, ok := os.LookupEnv("DB_LOG_QUERIES"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DB_LOG_QUERIES: %w", err)
		}
		c.DBLogQueries = b
	}

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
