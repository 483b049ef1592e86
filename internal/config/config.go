// Package config loads process configuration: the store (Postgres)
// connection, the optional Redis cache, logging, and a handful of process
// knobs, as a struct tree populated from a JSON file with
// environment-variable overrides. Exchange credentials live in the
// exchanges table, not in process config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the root process configuration.
type Config struct {
	Store   StoreConfig   `json:"store"`
	Redis   RedisConfig   `json:"redis"`
	Logging LoggingConfig `json:"logging"`
	Process ProcessConfig `json:"process"`
}

// StoreConfig configures the Postgres connection pool: DATABASE is the
// host, DATANAME the database name, DATAUSER/DATAPASS the credentials,
// DATEPORT the port.
type StoreConfig struct {
	Database string `json:"DATABASE"`
	Name     string `json:"DATANAME"`
	User     string `json:"DATAUSER"`
	Password string `json:"DATAPASS"`
	Port     int    `json:"DATEPORT"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig configures the optional trader-config cache.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// LoggingConfig configures the structured application logger.
type LoggingConfig struct {
	Level       string `json:"level"`
	Output      string `json:"output"`
	JSONFormat  bool   `json:"json_format"`
	IncludeFile bool   `json:"include_file"`
}

// ProcessConfig holds process-level knobs that don't belong anywhere else.
type ProcessConfig struct {
	ShutdownGracePeriod time.Duration `json:"shutdown_grace_period"`
}

// Load reads a JSON config file at path (if non-empty; the caller
// typically passes os.Getenv("CONFIG_FILE")) and then applies
// environment variable overrides on top. A missing file at path is not
// an error — the defaults and env overrides still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: reading %s: %w", path, err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns a Config with sane process defaults.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Enabled:  false,
			PoolSize: 10,
		},
		Logging: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
		Process: ProcessConfig{
			ShutdownGracePeriod: 10 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.Store.Database = getEnvOrDefault("DATABASE", cfg.Store.Database)
	cfg.Store.Name = getEnvOrDefault("DATANAME", cfg.Store.Name)
	cfg.Store.User = getEnvOrDefault("DATAUSER", cfg.Store.User)
	cfg.Store.Password = getEnvOrDefault("DATAPASS", cfg.Store.Password)
	cfg.Store.Port = getEnvIntOrDefault("DATEPORT", cfg.Store.Port)
	cfg.Store.SSLMode = getEnvOrDefault("DATASSLMODE", cfg.Store.SSLMode)

	cfg.Redis.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.Redis.Enabled)
	cfg.Redis.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.Redis.Address)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Output = getEnvOrDefault("LOG_OUTPUT", cfg.Logging.Output)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// DSN builds a libpq-style connection string for pgxpool.
func (s StoreConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		s.Database, s.Port, s.User, s.Password, s.Name, s.SSLMode,
	)
}
