package nft

import (
	"context"
	"errors"

	"github.com/growtradenfts/platform/internal/authz"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockActiveBatch loads the purchasable batch for update, or nil when none.
func lockActiveBatch(tx *gorm.DB) (*models.NFTBatch, error) {
	var batch models.NFTBatch
	errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("is_active = ? AND is_unlocked = ?", true, true).
		Order("batch_number ASC").
		First(&batch).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, ledger.FromStorage("nft: load active batch", errFind)
	}
	return &batch, nil
}

// saveBatch writes batch with a version check.
func saveBatch(tx *gorm.DB, batch *models.NFTBatch) error {
	prev := batch.Version
	batch.Version = prev + 1
	res := tx.Model(batch).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(batch)
	if res.Error != nil {
		batch.Version = prev
		return ledger.FromStorage("nft: save batch", res.Error)
	}
	if res.RowsAffected == 0 {
		batch.Version = prev
		return ledger.ErrConflict
	}
	return nil
}

// unlockBatch makes number the only active batch. It returns nil when the
// batch does not exist.
func unlockBatch(tx *gorm.DB, number int) (*models.NFTBatch, error) {
	var next models.NFTBatch
	errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("batch_number = ?", number).
		First(&next).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, ledger.FromStorage("nft: load next batch", errFind)
	}
	if errDeactivate := tx.Model(&models.NFTBatch{}).
		Where("is_active = ? AND batch_number <> ?", true, number).
		Updates(map[string]any{"is_active": false, "version": gorm.Expr("version + 1")}).Error; errDeactivate != nil {
		return nil, ledger.FromStorage("nft: deactivate batches", errDeactivate)
	}
	next.IsUnlocked = true
	next.IsActive = true
	if errSave := saveBatch(tx, &next); errSave != nil {
		return nil, errSave
	}
	return &next, nil
}

// CreateBatch appends a batch numbered after the last one. The first batch
// ever created starts unlocked and active.
func (e *Engine) CreateBatch(ctx context.Context, admin authz.Admin, totalNFTs int, basePrice decimal.Decimal) (*models.NFTBatch, error) {
	if errAdmin := admin.Check(); errAdmin != nil {
		return nil, errAdmin
	}
	if totalNFTs <= 0 {
		totalNFTs = internalsettings.NFTsPerBatch
	}
	if basePrice.IsZero() {
		basePrice = internalsettings.NFTUnitPrice
	}
	if basePrice.IsNegative() {
		return nil, ledger.Errorf(ledger.KindInvalidInput, "base price must be positive")
	}

	var out models.NFTBatch
	errTx := e.ledger.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last models.NFTBatch
		number := 1
		errLast := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Order("batch_number DESC").First(&last).Error
		switch {
		case errLast == nil:
			number = last.BatchNumber + 1
		case errors.Is(errLast, gorm.ErrRecordNotFound):
		default:
			return ledger.FromStorage("nft: load last batch", errLast)
		}
		out = models.NFTBatch{
			BatchNumber: number,
			TotalNFTs:   totalNFTs,
			BasePrice:   basePrice,
		}
		if errCreate := tx.Create(&out).Error; errCreate != nil {
			return ledger.FromStorage("nft: create batch", errCreate)
		}
		if number == 1 {
			out.IsUnlocked = true
			out.IsActive = true
			return saveBatch(tx, &out)
		}
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithFields(log.Fields{"admin_id": admin.UserID(), "batch": out.BatchNumber}).Info("nft batch created")
	return &out, nil
}

// ForceUnlock makes batch number the active batch, deactivating any other.
func (e *Engine) ForceUnlock(ctx context.Context, admin authz.Admin, number int) (*models.NFTBatch, error) {
	if errAdmin := admin.Check(); errAdmin != nil {
		return nil, errAdmin
	}
	var out *models.NFTBatch
	errTx := e.ledger.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		batch, errUnlock := unlockBatch(tx, number)
		if errUnlock != nil {
			return errUnlock
		}
		if batch == nil {
			return ledger.Errorf(ledger.KindNotFound, "batch %d not found", number)
		}
		out = batch
		return nil
	})
	if errTx != nil {
		return nil, ledger.FromStorage("nft: force unlock", errTx)
	}
	e.metrics.IncBatchUnlock()
	log.WithFields(log.Fields{"admin_id": admin.UserID(), "batch": number}).Info("nft batch unlocked by admin")
	return out, nil
}

// ListBatches returns every batch in number order.
func (e *Engine) ListBatches(ctx context.Context, admin authz.Admin) ([]models.NFTBatch, error) {
	if errAdmin := admin.Check(); errAdmin != nil {
		return nil, errAdmin
	}
	var rows []models.NFTBatch
	if errFind := e.ledger.DB().WithContext(ctx).Order("batch_number ASC").Find(&rows).Error; errFind != nil {
		return nil, ledger.FromStorage("nft: list batches", errFind)
	}
	return rows, nil
}

// ActiveBatch returns the purchasable batch, or nil.
func (e *Engine) ActiveBatch(ctx context.Context) (*models.NFTBatch, error) {
	var batch models.NFTBatch
	errFind := e.ledger.DB().WithContext(ctx).
		Where("is_active = ? AND is_unlocked = ?", true, true).
		Order("batch_number ASC").
		First(&batch).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, ledger.FromStorage("nft: active batch", errFind)
	}
	return &batch, nil
}
