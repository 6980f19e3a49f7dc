// Package dbtest opens migrated SQLite databases for package tests.
package dbtest

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/growtradenfts/platform/internal/db"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var seq atomic.Uint64

// Open returns a migrated SQLite database stored in t's temp dir.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "growtrade-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	t.Cleanup(func() {
		if sqlDB, errDB := conn.DB(); errDB == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// CreateUser inserts a user with unique identity fields. mutate may adjust
// the record before insert.
func CreateUser(t testing.TB, conn *gorm.DB, mutate func(*models.User)) *models.User {
	t.Helper()
	n := seq.Add(1)
	user := &models.User{
		Name:          fmt.Sprintf("user-%d", n),
		Email:         fmt.Sprintf("user-%d@example.com", n),
		Password:      "hashed",
		WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7",
		ReferralCode:  fmt.Sprintf("T%05d", n),
		Role:          models.RoleUser,
		CurrentPlan:   "basic",
		DailyLimit:    decimal.NewFromInt(100),
		TotalLimit:    decimal.NewFromInt(1000),
	}
	if mutate != nil {
		mutate(user)
	}
	if errCreate := conn.Create(user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return user
}

// Reload fetches the stored copy of a user.
func Reload(t testing.TB, conn *gorm.DB, id uint64) *models.User {
	t.Helper()
	var user models.User
	if errFind := conn.First(&user, id).Error; errFind != nil {
		t.Fatalf("reload user %d: %v", id, errFind)
	}
	return &user
}
