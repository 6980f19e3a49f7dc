package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TransactionKind identifies the balance-affecting event a record describes.
type TransactionKind string

// TransactionKind constants.
const (
	KindActivation     TransactionKind = "activation"
	KindReferralBonus  TransactionKind = "referral_bonus"
	KindNFTPurchase    TransactionKind = "nft_purchase"
	KindNFTSale        TransactionKind = "nft_sale"
	KindPackageUpgrade TransactionKind = "package_upgrade"
	KindWithdrawal     TransactionKind = "withdrawal"
)

// TransactionStatus represents the settlement state of a record.
type TransactionStatus string

// TransactionStatus constants.
const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Transaction is an append-only ledger record owned by one user.
type Transaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index:idx_transactions_user_created,priority:1"` // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"`                                      // Owning user record.

	Kind          TransactionKind   `gorm:"type:varchar(32);not null;index:idx_transactions_kind_status,priority:1"` // Event kind.
	Amount        decimal.Decimal   `gorm:"type:decimal(20,8);not null;default:0"`                                  // Event amount.
	Status        TransactionStatus `gorm:"type:varchar(16);not null;index:idx_transactions_kind_status,priority:2"` // Settlement state.
	ReferralLevel int               `gorm:"not null;default:0;index"`                                               // Upline level for bonuses, 0 otherwise.
	SourceUserID  *uint64           `gorm:"index"`                                                                  // User whose activation produced a bonus.

	TxHash        string         `gorm:"type:text"` // External payment hash.
	WalletAddress string         `gorm:"type:text"` // External wallet address.
	Description   string         `gorm:"type:text"` // Human readable summary.
	Metadata      datatypes.JSON `gorm:"type:jsonb"` // Structured extras such as NFT ids.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_transactions_user_created,priority:2"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`                                               // Last update timestamp.
}
