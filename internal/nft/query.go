package nft

import (
	"context"
	"strings"

	"github.com/growtradenfts/platform/internal/authz"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"github.com/shopspring/decimal"
)

// Marketplace is the purchasable view of the active batch.
type Marketplace struct {
	Batch *models.NFTBatch `json:"batch"`
	NFTs  []models.NFT     `json:"nfts"`
}

// Marketplace returns the active batch and up to four listed NFTs in it.
func (e *Engine) Marketplace(ctx context.Context) (*Marketplace, error) {
	out := &Marketplace{NFTs: []models.NFT{}}
	batch, err := e.ActiveBatch(ctx)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return out, nil
	}
	out.Batch = batch
	if errFind := e.ledger.DB().WithContext(ctx).
		Where("batch_number = ? AND status = ?", batch.BatchNumber, models.NFTStatusListed).
		Order("id ASC").
		Limit(internalsettings.MarketplaceMaxItems).
		Find(&out.NFTs).Error; errFind != nil {
		return nil, ledger.FromStorage("nft: marketplace", errFind)
	}
	return out, nil
}

// Holdings summarizes a user's NFTs.
type Holdings struct {
	Total       int             `json:"total"`
	Holding     int             `json:"holding"`
	Locked      int             `json:"locked"`
	Listed      int             `json:"listed"`
	Sold        int             `json:"sold"`
	TotalProfit decimal.Decimal `json:"total_profit"`
}

// MyNFTs lists userID's NFTs newest first with summary counts.
func (e *Engine) MyNFTs(ctx context.Context, userID uint64) ([]models.NFT, Holdings, error) {
	stats := Holdings{TotalProfit: decimal.Zero}
	var rows []models.NFT
	if errFind := e.ledger.DB().WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error; errFind != nil {
		return nil, stats, ledger.FromStorage("nft: list owned", errFind)
	}
	for _, row := range rows {
		stats.Total++
		switch row.Status {
		case models.NFTStatusHold:
			stats.Holding++
		case models.NFTStatusLocked:
			stats.Locked++
		case models.NFTStatusListed:
			stats.Listed++
		case models.NFTStatusSold:
			stats.Sold++
		}
		stats.TotalProfit = stats.TotalProfit.Add(row.Profit)
	}
	return rows, stats, nil
}

// ListFilter narrows the admin NFT listing.
type ListFilter struct {
	Status   string
	Batch    int
	Page     int
	PageSize int
}

// ListNFTs pages through every NFT for an admin, newest first.
func (e *Engine) ListNFTs(ctx context.Context, admin authz.Admin, filter ListFilter) ([]models.NFT, int64, error) {
	if errAdmin := admin.Check(); errAdmin != nil {
		return nil, 0, errAdmin
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > internalsettings.MaxPageSize {
		filter.PageSize = internalsettings.DefaultPageSize
	}
	q := e.ledger.DB().WithContext(ctx).Model(&models.NFT{})
	if status := strings.TrimSpace(filter.Status); status != "" && status != "all" {
		q = q.Where("status = ?", status)
	}
	if filter.Batch > 0 {
		q = q.Where("batch_number = ?", filter.Batch)
	}
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, ledger.FromStorage("nft: count", errCount)
	}
	var rows []models.NFT
	if errFind := q.Preload("User").
		Order("created_at DESC").Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&rows).Error; errFind != nil {
		return nil, 0, ledger.FromStorage("nft: list", errFind)
	}
	return rows, total, nil
}
