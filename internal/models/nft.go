package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NFTStatus represents the holding state of an NFT.
type NFTStatus string

// NFTStatus constants.
const (
	NFTStatusHold   NFTStatus = "hold"
	NFTStatusListed NFTStatus = "listed"
	NFTStatusSold   NFTStatus = "sold"
	NFTStatusLocked NFTStatus = "locked"
)

// NFT is a simulated collectible owned by a single user.
type NFT struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	NFTID  string `gorm:"column:nft_id;type:varchar(64);not null;uniqueIndex"` // Public identifier.
	UserID uint64 `gorm:"not null;index"`                                      // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"`                                   // Owning user record.

	BatchNumber int             `gorm:"not null;index"`                        // Batch the NFT belongs to.
	BuyPrice    decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Acquisition price.
	SellPrice   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Resale price, twice BuyPrice.
	Status      NFTStatus       `gorm:"type:varchar(16);not null;index"`       // hold, listed, sold or locked.
	IsLocked    bool            `gorm:"not null;default:false"`                // Locked resale byproduct.
	Generation  int             `gorm:"not null;default:1"`                    // Resale depth, starting at 1.
	ParentNFTID *string         `gorm:"column:parent_nft_id;type:varchar(64)"` // NFT whose sale minted this one.

	BuyDate  time.Time       `gorm:"not null"`                              // Acquisition time.
	SellDate *time.Time      // Resale time.
	Profit   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Seller share credited on resale.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// NFTBatch is a fixed-size cohort of purchasable NFTs.
type NFTBatch struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	BatchNumber int             `gorm:"not null;uniqueIndex"`                   // Sequential number starting at 1.
	TotalNFTs   int             `gorm:"column:total_nfts;not null;default:4"`   // Capacity.
	SoldNFTs    int             `gorm:"column:sold_nfts;not null;default:0"`    // Purchases so far.
	IsActive    bool            `gorm:"not null;default:false"`                 // Currently purchasable.
	IsUnlocked  bool            `gorm:"not null;default:false"`                 // Ever unlocked.
	BasePrice   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:10"` // Unit price.

	Version uint64 `gorm:"not null;default:0"` // Optimistic concurrency counter.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Remaining returns how many NFTs can still be purchased from the batch.
func (b *NFTBatch) Remaining() int {
	if b == nil || b.SoldNFTs >= b.TotalNFTs {
		return 0
	}
	return b.TotalNFTs - b.SoldNFTs
}
