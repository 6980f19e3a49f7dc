package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL or SQLite depending on the DSN shape.
// DSNs starting with "file:" or ending in ".db" select SQLite.
func Open(dsn string) (*gorm.DB, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, fmt.Errorf("db: empty dsn")
	}
	cfg := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
	if isSQLiteDSN(trimmed) {
		conn, err := gorm.Open(sqlite.Open(withSQLitePragmas(trimmed)), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite: %w", err)
		}
		sqlDB, errDB := conn.DB()
		if errDB != nil {
			return nil, fmt.Errorf("db: sqlite handle: %w", errDB)
		}
		// Writers are serialized by SQLite; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
		return conn, nil
	}
	conn, err := gorm.Open(postgres.Open(trimmed), cfg)
	if err != nil {
		return nil, fmt.Errorf("db: open postgres: %w", err)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return nil, fmt.Errorf("db: postgres handle: %w", errDB)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return conn, nil
}

func isSQLiteDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "file:") {
		return true
	}
	base := lower
	if idx := strings.Index(base, "?"); idx >= 0 {
		base = base[:idx]
	}
	return strings.HasSuffix(base, ".db") || strings.HasSuffix(base, ".sqlite")
}

func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") || strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join([]string{
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
	}, "&")
}
