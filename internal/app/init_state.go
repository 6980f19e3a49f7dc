package app

import (
	"context"
	"fmt"

	"github.com/growtradenfts/platform/internal/accounts"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/referral"
	"gorm.io/gorm"
)

// HasAdminInitialized reports whether the system has at least one admin account.
func HasAdminInitialized(ctx context.Context, conn *gorm.DB) (bool, error) {
	if conn == nil {
		return false, fmt.Errorf("nil db")
	}
	if !conn.Migrator().HasTable(&models.User{}) {
		return false, nil
	}
	return accounts.New(ledger.New(conn), referral.New(conn), accounts.TokenConfig{}).HasAdmin(ctx)
}
