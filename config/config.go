package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config is the full service configuration, loaded from an optional JSON
// file and overridable through environment variables.
type Config struct {
	ServerConfig   ServerConfig   `json:"server"`
	LoggingConfig  LoggingConfig  `json:"logging"`
	StorageConfig  StorageConfig  `json:"storage"`
	RedisConfig    RedisConfig    `json:"redis"`
	PostgresConfig PostgresConfig `json:"postgres"`
	MemoryConfig   MemoryConfig   `json:"memory"`
	AuditConfig    AuditConfig    `json:"audit"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoggingConfig mirrors internal/logging.Config
type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout, stderr, or file path
	JSONFormat bool   `json:"json_format"`
}

// StorageConfig selects the persistence backend for the trade log
type StorageConfig struct {
	Backend string `json:"backend"` // "redis", "postgres" or "memory"
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// MemoryConfig holds the memory core's tunable heuristics. Zero values fall
// back to the built-in defaults.
type MemoryConfig struct {
	MaxRecords           int `json:"max_records"`
	GlobalMinTrades      int `json:"global_min_trades"`
	RegimeMinTrades      int `json:"regime_min_trades"`
	FullConfidenceTrades int `json:"full_confidence_trades"`
}

// AuditConfig controls the periodic aggregate drift audit
type AuditConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"` // cron expression
}

// Load reads config.json (or $CONFIG_FILE) when present, then applies env
// overrides on top. A missing file is not an error.
func Load() (*Config, error) {
	cfg := defaults()

	filename := getEnvOrDefault("CONFIG_FILE", "config.json")
	if _, err := os.Stat(filename); err == nil {
		loaded, err := loadFromFile(filename)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServerConfig:  ServerConfig{Host: "0.0.0.0", Port: 8090},
		LoggingConfig: LoggingConfig{Level: "INFO", Output: "stdout", JSONFormat: true},
		StorageConfig: StorageConfig{Backend: "redis"},
		RedisConfig:   RedisConfig{Addr: "localhost:6379"},
		PostgresConfig: PostgresConfig{
			Host: "localhost", Port: 5432, User: "strategy_memory",
			Database: "strategy_memory", SSLMode: "disable",
		},
		AuditConfig: AuditConfig{Enabled: true, Schedule: "@hourly"},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", cfg.ServerConfig.Port)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolString(cfg.LoggingConfig.JSONFormat)) == "true"

	cfg.StorageConfig.Backend = getEnvOrDefault("STORAGE_BACKEND", cfg.StorageConfig.Backend)

	cfg.RedisConfig.Addr = getEnvOrDefault("REDIS_ADDR", cfg.RedisConfig.Addr)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.PostgresConfig.Host = getEnvOrDefault("DB_HOST", cfg.PostgresConfig.Host)
	cfg.PostgresConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.PostgresConfig.Port)
	cfg.PostgresConfig.User = getEnvOrDefault("DB_USER", cfg.PostgresConfig.User)
	cfg.PostgresConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.PostgresConfig.Password)
	cfg.PostgresConfig.Database = getEnvOrDefault("DB_NAME", cfg.PostgresConfig.Database)
	cfg.PostgresConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.PostgresConfig.SSLMode)

	cfg.MemoryConfig.MaxRecords = getEnvIntOrDefault("MEMORY_MAX_RECORDS", cfg.MemoryConfig.MaxRecords)
	cfg.MemoryConfig.GlobalMinTrades = getEnvIntOrDefault("MEMORY_GLOBAL_MIN_TRADES", cfg.MemoryConfig.GlobalMinTrades)
	cfg.MemoryConfig.RegimeMinTrades = getEnvIntOrDefault("MEMORY_REGIME_MIN_TRADES", cfg.MemoryConfig.RegimeMinTrades)
	cfg.MemoryConfig.FullConfidenceTrades = getEnvIntOrDefault("MEMORY_FULL_CONFIDENCE_TRADES", cfg.MemoryConfig.FullConfidenceTrades)

	cfg.AuditConfig.Enabled = getEnvOrDefault("AUDIT_ENABLED", boolString(cfg.AuditConfig.Enabled)) == "true"
	cfg.AuditConfig.Schedule = getEnvOrDefault("AUDIT_SCHEDULE", cfg.AuditConfig.Schedule)
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := defaults()
	if err := json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return config, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
