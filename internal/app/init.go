package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/growtradenfts/platform/internal/accounts"
	"github.com/growtradenfts/platform/internal/config"
	"github.com/growtradenfts/platform/internal/db"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/referral"
	"github.com/growtradenfts/platform/internal/security"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// defaultSQLitePath is the database file used when no DSN is configured.
const defaultSQLitePath = "growtrade.db"

// ConfigExists reports whether the config file exists at the path.
func ConfigExists(configPath string) bool {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return false
	}
	return true
}

// EnsureConfig writes a SQLite-backed config with a fresh JWT secret when no
// config file exists and no DSN is set in the environment. It reports
// whether a file was written.
func EnsureConfig(configPath string, port int) (bool, error) {
	if ConfigExists(configPath) || strings.TrimSpace(os.Getenv(config.EnvDBConnection)) != "" {
		return false, nil
	}
	dir := filepath.Dir(configPath)
	dsn := buildSQLiteDSN(filepath.Join(dir, defaultSQLitePath))
	if errWrite := WriteConfigFile(configPath, dsn, port); errWrite != nil {
		return false, errWrite
	}
	log.WithField("config", configPath).Info("wrote default config")
	return true, nil
}

// buildSQLiteDSN constructs a SQLite DSN with default parameters.
func buildSQLiteDSN(path string) string {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		dsn = defaultSQLitePath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = "file:" + dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
		"_foreign_keys=on",
		"_synchronous=NORMAL",
	}, "&")
}

// configFile maps YAML fields for the generated config file.
type configFile struct {
	Host        string    `yaml:"host"`
	Port        int       `yaml:"port"`
	DatabaseDSN string    `yaml:"database-dsn"`
	JWT         jwtCfg    `yaml:"jwt"`
	Log         logCfg    `yaml:"logging"`
	Ledger      ledgerCfg `yaml:"ledger"`
}

// jwtCfg holds JWT settings for the generated config file.
type jwtCfg struct {
	Secret string `yaml:"secret"`
	Expiry string `yaml:"expiry"`
}

type logCfg struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ledgerCfg struct {
	Timezone string `yaml:"timezone"`
}

// generateJWTSecret creates a random JWT secret string.
func generateJWTSecret() (string, error) {
	secret, err := security.GenerateRandomString(48)
	if err != nil {
		return "", fmt.Errorf("generate jwt secret: %w", err)
	}
	return secret, nil
}

// WriteConfigFile writes the initial config file to disk.
func WriteConfigFile(configPath string, dsn string, port int) error {
	secret, errSecret := generateJWTSecret()
	if errSecret != nil {
		return errSecret
	}
	cfg := configFile{
		Port:        port,
		DatabaseDSN: dsn,
		JWT: jwtCfg{
			Secret: secret,
			Expiry: "720h",
		},
		Log:    logCfg{Level: "info", Format: "text"},
		Ledger: ledgerCfg{Timezone: "UTC"},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if errMkdir := os.MkdirAll(dir, 0755); errMkdir != nil {
		return fmt.Errorf("create config dir: %w", errMkdir)
	}

	if errWrite := os.WriteFile(configPath, data, 0600); errWrite != nil {
		return fmt.Errorf("write config file: %w", errWrite)
	}

	return nil
}

// CreateAdmin opens the configured database, migrates it, and creates or
// promotes the admin account.
func CreateAdmin(ctx context.Context, cfg config.AppConfig, in accounts.AdminAccount) error {
	conn, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeDatabase(conn)
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return fmt.Errorf("migrate database: %w", errMigrate)
	}
	return CreateAdminWithConn(ctx, conn, in)
}

// CreateAdminWithConn creates or promotes the admin account on conn.
func CreateAdminWithConn(ctx context.Context, conn *gorm.DB, in accounts.AdminAccount) error {
	if conn == nil {
		return fmt.Errorf("open database: nil connection")
	}
	svc := accounts.New(ledger.New(conn), referral.New(conn), accounts.TokenConfig{})
	user, errCreate := svc.CreateAdmin(ctx, in)
	if errCreate != nil {
		return fmt.Errorf("create admin: %w", errCreate)
	}
	log.WithFields(log.Fields{"admin_id": user.ID, "email": user.Email}).Info("admin account ready")
	return nil
}
