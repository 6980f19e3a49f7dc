package ratelimit

import (
	"context"
	"errors"
	"strings"

	"github.com/growtradenfts/platform/internal/models"
	"gorm.io/gorm"
)

// ResolveLimit resolves the effective limit for userID calling operation.
// Admins are not limited. An operation override wins over the default.
func ResolveLimit(ctx context.Context, db *gorm.DB, userID uint64, operation string, cfg SettingsConfig) (Decision, error) {
	if db == nil || userID == 0 {
		return Decision{}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	exempt, errRole := isAdmin(ctx, db, userID)
	if errRole != nil {
		return Decision{}, errRole
	}
	if exempt {
		return Decision{}, nil
	}

	operation = strings.ToLower(strings.TrimSpace(operation))
	if limit, ok := cfg.Operations[operation]; ok && operation != "" {
		if limit <= 0 {
			return Decision{}, nil
		}
		return Decision{Limit: limit, Scope: ScopeOperation, Operation: operation}, nil
	}
	if cfg.Limit > 0 {
		return Decision{Limit: cfg.Limit, Scope: ScopeUser}, nil
	}
	return Decision{}, nil
}

func isAdmin(ctx context.Context, db *gorm.DB, userID uint64) (bool, error) {
	var row struct {
		Role string
	}
	if errFind := db.WithContext(ctx).
		Model(&models.User{}).
		Select("role").
		Where("id = ?", userID).
		Take(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, errFind
	}
	return row.Role == models.RoleAdmin, nil
}
