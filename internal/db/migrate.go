package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/growtradenfts/platform/internal/models"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// schemaModels lists every table managed by AutoMigrate, parents first.
func schemaModels() []any {
	return []any{
		&models.User{},
		&models.Transaction{},
		&models.NFTBatch{},
		&models.NFT{},
		&models.Package{},
		&models.SinkEntry{},
		&models.Setting{},
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(schemaModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errBalanceCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_users_balance_non_negative'
			) THEN
				ALTER TABLE users ADD CONSTRAINT chk_users_balance_non_negative CHECK (balance >= 0);
			END IF;
		END $$;
	`).Error; errBalanceCheck != nil {
		return fmt.Errorf("db: add balance check: %w", errBalanceCheck)
	}
	if errSoldCheck := conn.Exec(`
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1 FROM pg_constraint WHERE conname = 'chk_nft_batches_sold_within_total'
			) THEN
				ALTER TABLE nft_batches ADD CONSTRAINT chk_nft_batches_sold_within_total CHECK (sold_nfts <= total_nfts);
			END IF;
		END $$;
	`).Error; errSoldCheck != nil {
		return fmt.Errorf("db: add batch capacity check: %w", errSoldCheck)
	}
	if errLevelEarnings := conn.Exec(`
		UPDATE users
		SET level_earnings = '[]'::jsonb
		WHERE level_earnings IS NULL OR level_earnings = 'null'::jsonb
	`).Error; errLevelEarnings != nil {
		return fmt.Errorf("db: backfill level earnings: %w", errLevelEarnings)
	}

	if errIndexes := ensureSharedIndexes(conn); errIndexes != nil {
		return errIndexes
	}
	return ensureSeeds(conn)
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(schemaModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errIndexes := ensureSharedIndexes(conn); errIndexes != nil {
		return errIndexes
	}
	return ensureSeeds(conn)
}

// ensureSharedIndexes creates partial indexes supported by both dialects.
func ensureSharedIndexes(conn *gorm.DB) error {
	if errPackageUnique := conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_packages_one_active
		ON packages (user_id) WHERE status = 'active'
	`).Error; errPackageUnique != nil {
		return fmt.Errorf("db: create active package index: %w", errPackageUnique)
	}
	if errBatchActive := conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_nft_batches_one_active
		ON nft_batches (is_active) WHERE is_active = true
	`).Error; errBatchActive != nil {
		return fmt.Errorf("db: create active batch index: %w", errBatchActive)
	}
	if errNFTOwner := conn.Exec(`
		CREATE INDEX IF NOT EXISTS idx_nfts_user_status
		ON nfts (user_id, status)
	`).Error; errNFTOwner != nil {
		return fmt.Errorf("db: create nft owner index: %w", errNFTOwner)
	}
	return nil
}

// ensureSeeds inserts default settings and the genesis NFT batches.
func ensureSeeds(conn *gorm.DB) error {
	if errSeed := ensureRateLimitSettings(conn); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSetting(conn, internalsettings.SiteNameKey, internalsettings.DefaultSiteName); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSetting(conn, internalsettings.TradingEnabledKey, internalsettings.DefaultTradingEnabled); errSeed != nil {
		return errSeed
	}
	if errSeed := ensureSetting(conn, internalsettings.WithdrawalsEnabledKey, internalsettings.DefaultWithdrawalsEnabled); errSeed != nil {
		return errSeed
	}
	return ensureGenesisBatches(conn)
}

// ensureRateLimitSettings ensures the rate limit settings exist with defaults.
func ensureRateLimitSettings(conn *gorm.DB) error {
	if errEnsure := ensureSetting(conn, internalsettings.RateLimitKey, internalsettings.DefaultRateLimit); errEnsure != nil {
		return errEnsure
	}
	if errEnsure := ensureSetting(conn, internalsettings.RateLimitRedisEnabledKey, false); errEnsure != nil {
		return errEnsure
	}
	return ensureSetting(conn, internalsettings.RateLimitRedisPrefixKey, internalsettings.DefaultRateLimitRedisPrefix)
}

// ensureSetting ensures a setting exists and defaults it when empty.
func ensureSetting(conn *gorm.DB, key string, value any) error {
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("db: marshal %s setting: %w", key, errMarshal)
	}
	stored := datatypes.JSON(payload)

	var existing models.Setting
	if errFind := conn.Where("key = ?", key).First(&existing).Error; errFind == nil {
		trimmed := strings.TrimSpace(string(existing.Value))
		if len(existing.Value) == 0 || trimmed == "" || trimmed == "null" {
			if errUpdate := conn.Model(&existing).Updates(map[string]any{
				"value":      stored,
				"updated_at": time.Now().UTC(),
			}).Error; errUpdate != nil {
				return fmt.Errorf("db: update %s setting: %w", key, errUpdate)
			}
		}
		return nil
	} else if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return fmt.Errorf("db: query %s setting: %w", key, errFind)
	}

	setting := models.Setting{
		Key:       key,
		Value:     stored,
		UpdatedAt: time.Now().UTC(),
	}
	if errCreate := conn.Create(&setting).Error; errCreate != nil {
		return fmt.Errorf("db: create %s setting: %w", key, errCreate)
	}
	return nil
}

// ensureGenesisBatches seeds batches 1..N on an empty table.
// Only batch 1 starts unlocked and active.
func ensureGenesisBatches(conn *gorm.DB) error {
	var count int64
	if errCount := conn.Model(&models.NFTBatch{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("db: count nft batches: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	batches := make([]models.NFTBatch, 0, internalsettings.GenesisBatchCount)
	for number := 1; number <= internalsettings.GenesisBatchCount; number++ {
		genesis := number == 1
		batches = append(batches, models.NFTBatch{
			BatchNumber: number,
			TotalNFTs:   internalsettings.NFTsPerBatch,
			SoldNFTs:    0,
			IsActive:    genesis,
			IsUnlocked:  genesis,
			BasePrice:   internalsettings.NFTUnitPrice,
		})
	}
	if errCreate := conn.Create(&batches).Error; errCreate != nil {
		return fmt.Errorf("db: create genesis batches: %w", errCreate)
	}
	return nil
}
