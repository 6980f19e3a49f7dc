package core

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/models"
)

// User renders a member without credentials.
func User(u *models.User) gin.H {
	if u == nil {
		return nil
	}
	return gin.H{
		"id":                   u.ID,
		"name":                 u.Name,
		"email":                u.Email,
		"mobile":               u.Mobile,
		"wallet_address":       u.WalletAddress,
		"referral_code":        u.ReferralCode,
		"referred_by":          u.ReferredBy,
		"role":                 u.Role,
		"is_active":            u.IsActive,
		"is_frozen":            u.IsFrozen,
		"can_trade":            u.CanTrade,
		"can_withdraw":         u.CanWithdraw,
		"balance":              u.Balance,
		"total_earnings":       u.TotalEarnings,
		"daily_investment":     u.DailyInvestment,
		"total_investment":     u.TotalInvestment,
		"last_investment_date": u.LastInvestmentDate,
		"current_plan":         u.CurrentPlan,
		"daily_limit":          u.DailyLimit,
		"total_limit":          u.TotalLimit,
		"total_referrals":      u.TotalReferrals,
		"missed_earnings":      u.MissedEarnings,
		"created_at":           u.CreatedAt,
	}
}

// NFT renders one NFT.
func NFT(n *models.NFT) gin.H {
	if n == nil {
		return nil
	}
	out := gin.H{
		"nft_id":        n.NFTID,
		"user_id":       n.UserID,
		"batch_number":  n.BatchNumber,
		"buy_price":     n.BuyPrice,
		"sell_price":    n.SellPrice,
		"status":        n.Status,
		"is_locked":     n.IsLocked,
		"generation":    n.Generation,
		"parent_nft_id": n.ParentNFTID,
		"buy_date":      n.BuyDate,
		"sell_date":     n.SellDate,
		"profit":        n.Profit,
	}
	if n.User.ID != 0 {
		out["owner"] = gin.H{"id": n.User.ID, "name": n.User.Name, "email": n.User.Email}
	}
	return out
}

// NFTs renders a slice of NFTs.
func NFTs(rows []models.NFT) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, NFT(&rows[i]))
	}
	return out
}

// Batch renders an NFT batch.
func Batch(b *models.NFTBatch) gin.H {
	if b == nil {
		return nil
	}
	return gin.H{
		"batch_number": b.BatchNumber,
		"total_nfts":   b.TotalNFTs,
		"sold_nfts":    b.SoldNFTs,
		"remaining":    b.Remaining(),
		"is_active":    b.IsActive,
		"is_unlocked":  b.IsUnlocked,
		"base_price":   b.BasePrice,
		"created_at":   b.CreatedAt,
	}
}

// Transaction renders one ledger record.
func Transaction(t *models.Transaction) gin.H {
	if t == nil {
		return nil
	}
	out := gin.H{
		"id":             t.ID,
		"user_id":        t.UserID,
		"kind":           t.Kind,
		"amount":         t.Amount,
		"status":         t.Status,
		"referral_level": t.ReferralLevel,
		"source_user_id": t.SourceUserID,
		"tx_hash":        t.TxHash,
		"wallet_address": t.WalletAddress,
		"description":    t.Description,
		"created_at":     t.CreatedAt,
	}
	if len(t.Metadata) > 0 {
		out["metadata"] = json.RawMessage(t.Metadata)
	}
	return out
}

// Transactions renders a slice of records.
func Transactions(rows []models.Transaction) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, Transaction(&rows[i]))
	}
	return out
}

// Package renders a purchased plan package.
func Package(p *models.Package) gin.H {
	if p == nil {
		return nil
	}
	return gin.H{
		"id":            p.ID,
		"package_type":  p.PackageType,
		"amount":        p.Amount,
		"status":        p.Status,
		"purchase_date": p.PurchaseDate,
	}
}
