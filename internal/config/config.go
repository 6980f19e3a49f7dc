package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvJWTSecret      = "JWT_SECRET"
	EnvJWTExpiry      = "JWT_EXPIRY"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFormat      = "LOG_FORMAT"
	EnvLogFile        = "LOG_FILE"
	EnvLedgerTimezone = "LEDGER_TIMEZONE"
	EnvFile           = "ENV_FILE"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = strings.TrimSpace(os.Getenv(EnvFile))
	}
	if trimmed == "" {
		trimmed = ".env"
	}
	if _, errStat := os.Stat(trimmed); errStat != nil {
		if os.IsNotExist(errStat) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", errStat)
	}
	if errLoad := godotenv.Load(trimmed); errLoad != nil {
		return fmt.Errorf("load env file: %w", errLoad)
	}
	return nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return result, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
		result = cfg.JWT
	} else if !os.IsNotExist(errRead) {
		return result, fmt.Errorf("read config file: %w", errRead)
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// LogConfig controls log level, output format and optional file rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
	MaxAgeDays int    `yaml:"max-age-days"`
}

// LoadLogConfig loads logging settings from the YAML config file.
func LoadLogConfig(configPath string) (LogConfig, error) {
	// fileConfig maps the YAML fields needed for logging.
	type fileConfig struct {
		Logging LogConfig `yaml:"logging"`
	}

	result := LogConfig{Level: "info", Format: "text"}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return result, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
		if cfg.Logging.Level != "" {
			result.Level = cfg.Logging.Level
		}
		if cfg.Logging.Format != "" {
			result.Format = cfg.Logging.Format
		}
		result.File = cfg.Logging.File
		result.MaxSizeMB = cfg.Logging.MaxSizeMB
		result.MaxBackups = cfg.Logging.MaxBackups
		result.MaxAgeDays = cfg.Logging.MaxAgeDays
	}

	if level := strings.TrimSpace(os.Getenv(EnvLogLevel)); level != "" {
		result.Level = level
	}
	if format := strings.TrimSpace(os.Getenv(EnvLogFormat)); format != "" {
		result.Format = format
	}
	if file := strings.TrimSpace(os.Getenv(EnvLogFile)); file != "" {
		result.File = file
	}
	result.Level = strings.ToLower(strings.TrimSpace(result.Level))
	result.Format = strings.ToLower(strings.TrimSpace(result.Format))
	return result, nil
}

// LedgerConfig holds settings that affect money-moving operations.
type LedgerConfig struct {
	// Timezone names the calendar used for the daily investment reset.
	Timezone string `yaml:"timezone"`
	Location *time.Location `yaml:"-"`
}

// LoadLedgerConfig loads ledger settings from the YAML config file.
func LoadLedgerConfig(configPath string) (LedgerConfig, error) {
	// fileConfig maps the YAML fields needed for ledger settings.
	type fileConfig struct {
		Ledger LedgerConfig `yaml:"ledger"`
	}

	result := LedgerConfig{Timezone: "UTC"}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil && strings.TrimSpace(cfg.Ledger.Timezone) != "" {
			result.Timezone = strings.TrimSpace(cfg.Ledger.Timezone)
		}
	}
	if tz := strings.TrimSpace(os.Getenv(EnvLedgerTimezone)); tz != "" {
		result.Timezone = tz
	}

	loc, errLoad := time.LoadLocation(result.Timezone)
	if errLoad != nil {
		return LedgerConfig{Timezone: "UTC", Location: time.UTC}, fmt.Errorf("load ledger timezone %q: %w", result.Timezone, errLoad)
	}
	result.Location = loc
	return result, nil
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoadServerConfig loads listener settings from the YAML config file. A zero
// port means the caller's default applies.
func LoadServerConfig(configPath string) (ServerConfig, error) {
	var result ServerConfig
	data, errRead := os.ReadFile(configPath)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return result, nil
		}
		return result, fmt.Errorf("read config file: %w", errRead)
	}
	if errUnmarshal := yaml.Unmarshal(data, &result); errUnmarshal != nil {
		return ServerConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
	}
	result.Host = strings.TrimSpace(result.Host)
	if result.Port < 0 || result.Port > 65535 {
		return ServerConfig{}, fmt.Errorf("invalid port: %d", result.Port)
	}
	return result, nil
}
