// Package nft runs the batch inventory and the simulated NFT resale market.
package nft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/metrics"
	"github.com/growtradenfts/platform/internal/models"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"github.com/growtradenfts/platform/internal/txlog"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine buys and resells NFTs against the user ledger.
type Engine struct {
	ledger  *ledger.Ledger
	metrics *metrics.PlatformMetrics
	newID   func() string
}

// New constructs an Engine.
func New(l *ledger.Ledger) *Engine {
	return &Engine{
		ledger:  l,
		metrics: metrics.Platform(),
		newID:   func() string { return "NFT_" + uuid.NewString() },
	}
}

// PurchaseResult is returned by a successful purchase.
type PurchaseResult struct {
	NFT           *models.NFT
	User          *models.User
	Batch         *models.NFTBatch
	UnlockedBatch *models.NFTBatch
}

// Purchase buys one NFT from the active batch for userID.
func (e *Engine) Purchase(ctx context.Context, userID uint64) (*PurchaseResult, error) {
	started := time.Now()
	res, err := e.purchase(ctx, userID)
	e.metrics.ObserveOperation("nft_purchase", ledger.Outcome(err), started)
	if err != nil {
		return nil, err
	}
	if res.UnlockedBatch != nil {
		e.metrics.IncBatchUnlock()
		log.WithField("batch", res.UnlockedBatch.BatchNumber).Info("nft batch unlocked")
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"nft_id":  res.NFT.NFTID,
		"batch":   res.NFT.BatchNumber,
		"amount":  res.NFT.BuyPrice.String(),
	}).Info("nft purchased")
	return res, nil
}

func (e *Engine) purchase(ctx context.Context, userID uint64) (*PurchaseResult, error) {
	out := &PurchaseResult{}
	errTx := e.ledger.WithinUser(ctx, userID, func(tx *gorm.DB, user *models.User) error {
		if !user.IsActive || user.IsFrozen || !user.CanTrade || !tradingEnabled() {
			return ledger.ErrTradingDisabled
		}

		now := e.ledger.Now()
		ledger.ResetDailyCounterIfNewDay(user, now, e.ledger.Location())

		batch, errBatch := lockActiveBatch(tx)
		if errBatch != nil {
			return errBatch
		}
		price := internalsettings.NFTUnitPrice
		if batch != nil && batch.BasePrice.IsPositive() {
			price = batch.BasePrice
		}

		if user.DailyInvestment.Add(price).GreaterThan(user.DailyLimit) {
			return ledger.ErrDailyLimitExceeded
		}
		if user.TotalInvestment.Add(price).GreaterThan(user.TotalLimit) {
			return ledger.ErrTotalLimitExceeded
		}
		if user.Balance.LessThan(price) {
			return ledger.ErrInsufficientBalance
		}
		if batch == nil || batch.Remaining() == 0 {
			return ledger.ErrNoBatchAvailable
		}

		item := &models.NFT{
			NFTID:       e.newID(),
			UserID:      user.ID,
			BatchNumber: batch.BatchNumber,
			BuyPrice:    price,
			SellPrice:   price.Mul(internalsettings.ResaleFactor),
			Status:      models.NFTStatusHold,
			Generation:  1,
			BuyDate:     now,
		}
		if errCreate := tx.WithContext(ctx).Omit(clause.Associations).Create(item).Error; errCreate != nil {
			return ledger.FromStorage("nft: create", errCreate)
		}

		if errDebit := ledger.ApplyDebit(user, price); errDebit != nil {
			return errDebit
		}
		user.DailyInvestment = user.DailyInvestment.Add(price)
		user.TotalInvestment = user.TotalInvestment.Add(price)
		user.LastInvestmentDate = &now

		batch.SoldNFTs++
		exhausted := batch.SoldNFTs >= batch.TotalNFTs
		if exhausted {
			batch.IsActive = false
		}
		if errSave := saveBatch(tx, batch); errSave != nil {
			return errSave
		}
		if exhausted {
			next, errUnlock := unlockBatch(tx, batch.BatchNumber+1)
			if errUnlock != nil {
				return errUnlock
			}
			out.UnlockedBatch = next
		}

		if _, errRecord := txlog.New(tx).Record(ctx, txlog.Entry{
			UserID:      user.ID,
			Kind:        models.KindNFTPurchase,
			Amount:      price,
			Status:      models.StatusCompleted,
			Description: fmt.Sprintf("Purchased %s from batch %d", item.NFTID, batch.BatchNumber),
			Metadata:    map[string]any{"nft_id": item.NFTID, "batch": batch.BatchNumber},
		}); errRecord != nil {
			return ledger.FromStorage("nft: record purchase", errRecord)
		}

		out.NFT = item
		out.User = user
		out.Batch = batch
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return out, nil
}

// SaleResult is returned by a successful sale.
type SaleResult struct {
	Sold     *models.NFT
	Minted   []models.NFT
	Profit   decimal.Decimal
	Platform decimal.Decimal
	User     *models.User
}

// Sell resells a held NFT at its sell price. The seller keeps 40% and
// receives two next-generation NFTs, one locked and one listed.
func (e *Engine) Sell(ctx context.Context, userID uint64, nftID string) (*SaleResult, error) {
	started := time.Now()
	res, err := e.sell(ctx, userID, nftID)
	e.metrics.ObserveOperation("nft_sale", ledger.Outcome(err), started)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"user_id": userID,
		"nft_id":  nftID,
		"amount":  res.Profit.String(),
	}).Info("nft sold")
	return res, nil
}

func (e *Engine) sell(ctx context.Context, userID uint64, nftID string) (*SaleResult, error) {
	out := &SaleResult{}
	errTx := e.ledger.WithinUser(ctx, userID, func(tx *gorm.DB, user *models.User) error {
		if !user.CanTrade || !tradingEnabled() {
			return ledger.ErrTradingDisabled
		}

		var item models.NFT
		errFind := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("nft_id = ? AND user_id = ? AND status = ?", nftID, user.ID, models.NFTStatusHold).
			First(&item).Error
		if errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return ledger.Errorf(ledger.KindNotFound, "NFT %s not found or cannot be sold", nftID)
			}
			return ledger.FromStorage("nft: load", errFind)
		}

		var retained int64
		if errCount := tx.WithContext(ctx).Model(&models.NFT{}).
			Where("user_id = ? AND status IN ?", user.ID, []models.NFTStatus{models.NFTStatusHold, models.NFTStatusLocked}).
			Count(&retained).Error; errCount != nil {
			return ledger.FromStorage("nft: count retained", errCount)
		}
		if retained <= 1 {
			return ledger.ErrCannotSellLastAsset
		}

		now := e.ledger.Now()
		share := item.SellPrice.Mul(internalsettings.SellerShare)
		platformShare := item.SellPrice.Sub(share)

		res := tx.WithContext(ctx).Model(&models.NFT{}).
			Where("id = ? AND status = ?", item.ID, models.NFTStatusHold).
			Updates(map[string]any{"status": models.NFTStatusSold, "sell_date": now, "profit": share, "updated_at": now})
		if res.Error != nil {
			return ledger.FromStorage("nft: mark sold", res.Error)
		}
		if res.RowsAffected == 0 {
			return ledger.ErrConflict
		}
		item.Status = models.NFTStatusSold
		item.SellDate = &now
		item.Profit = share

		minted := mintChildren(&item, user.ID, now, e.newID)
		if errCreate := tx.WithContext(ctx).Omit(clause.Associations).Create(&minted).Error; errCreate != nil {
			return ledger.FromStorage("nft: mint resale children", errCreate)
		}

		if share.IsPositive() {
			if errCredit := ledger.ApplyCredit(user, share); errCredit != nil {
				return errCredit
			}
			user.TotalEarnings = user.TotalEarnings.Add(share)
		}

		if _, errRecord := txlog.New(tx).Record(ctx, txlog.Entry{
			UserID:      user.ID,
			Kind:        models.KindNFTSale,
			Amount:      share,
			Status:      models.StatusCompleted,
			Description: fmt.Sprintf("Sold %s for %s", item.NFTID, item.SellPrice.StringFixed(2)),
			Metadata: map[string]any{
				"nft_id":     item.NFTID,
				"sell_price": item.SellPrice.String(),
				"minted":     []string{minted[0].NFTID, minted[1].NFTID},
			},
		}); errRecord != nil {
			return ledger.FromStorage("nft: record sale", errRecord)
		}
		if platformShare.IsPositive() {
			if errSink := ledger.AppendSink(ctx, tx, models.SinkEntry{
				Reason:       models.SinkResaleShare,
				Amount:       platformShare,
				SourceUserID: user.ID,
				Reference:    item.NFTID,
			}); errSink != nil {
				return errSink
			}
		}

		out.Sold = &item
		out.Minted = minted
		out.Profit = share
		out.Platform = platformShare
		out.User = user
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return out, nil
}

// mintChildren builds the two NFTs created by reselling parent. Their batch
// number derives from the parent, not from the current active batch.
func mintChildren(parent *models.NFT, ownerID uint64, now time.Time, newID func() string) []models.NFT {
	buy := parent.SellPrice.Div(internalsettings.ResaleFactor)
	parentID := parent.NFTID
	child := func(status models.NFTStatus, locked bool) models.NFT {
		return models.NFT{
			NFTID:       newID(),
			UserID:      ownerID,
			BatchNumber: parent.BatchNumber + 1,
			BuyPrice:    buy,
			SellPrice:   buy.Mul(internalsettings.ResaleFactor),
			Status:      status,
			IsLocked:    locked,
			Generation:  parent.Generation + 1,
			ParentNFTID: &parentID,
			BuyDate:     now,
		}
	}
	return []models.NFT{
		child(models.NFTStatusLocked, true),
		child(models.NFTStatusListed, false),
	}
}

func tradingEnabled() bool {
	return internalsettings.Bool(internalsettings.TradingEnabledKey, internalsettings.DefaultTradingEnabled)
}
