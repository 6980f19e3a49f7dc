package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SinkReason explains why value was routed to the platform sink.
type SinkReason string

// SinkReason constants.
const (
	SinkUnallocatedBonus SinkReason = "unallocated_bonus"
	SinkMissedBonus      SinkReason = "missed_bonus"
	SinkResaleShare      SinkReason = "resale_platform_share"
	SinkPackageUpgrade   SinkReason = "package_upgrade"
)

// SinkAccountCompany is the named account that receives unallocated value.
const SinkAccountCompany = "company"

// SinkEntry records value retained by the platform rather than a user.
type SinkEntry struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Account       string          `gorm:"type:varchar(32);not null;index"`       // Sink account name.
	Reason        SinkReason      `gorm:"type:varchar(32);not null;index"`       // Why value was retained.
	Amount        decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Retained amount.
	SourceUserID  uint64          `gorm:"not null;index"`                        // User whose operation produced it.
	ReferralLevel int             `gorm:"not null;default:0"`                    // Bonus level for bonus reasons.
	Reference     string          `gorm:"type:text"`                             // Related NFT id or tier.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
