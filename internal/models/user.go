package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Role values stored on User.Role.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a platform member together with their ledger account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name          string `gorm:"type:text;not null"`             // Display name.
	Email         string `gorm:"type:text;not null;uniqueIndex"` // Unique login email.
	Mobile        string `gorm:"type:text"`                      // Contact phone number.
	Password      string `gorm:"type:text;not null"`             // Hashed password.
	WalletAddress string `gorm:"type:varchar(42);not null"`      // External chain address (0x + 40 hex).

	ReferralCode string  `gorm:"type:varchar(16);not null;uniqueIndex"` // Code other users register with.
	ReferredBy   *string `gorm:"type:varchar(16);index"`                // Referral code of the sponsor.

	Role             string         `gorm:"type:varchar(16);not null;default:'user'"` // user or admin.
	AdminPermissions datatypes.JSON `gorm:"type:jsonb"`                               // Admin route permissions.
	IsSuperAdmin     bool           `gorm:"not null;default:false"`                   // Bypasses permission checks.
	TOTPSecret       string         `gorm:"type:text"`                                // TOTP secret for admin MFA.

	IsActive       bool `gorm:"not null;default:false"` // Set once at activation.
	ActivationPaid bool `gorm:"not null;default:false"` // Activation fee received.
	IsFrozen       bool `gorm:"not null;default:false"` // Admin freeze.
	CanWithdraw    bool `gorm:"not null;default:true"`  // Admin withdrawal switch.
	CanTrade       bool `gorm:"not null;default:true"`  // Admin trading switch.

	Balance            decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Spendable balance, never negative.
	TotalEarnings      decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Lifetime earnings, never decreases.
	DailyInvestment    decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Invested on LastInvestmentDate's day.
	TotalInvestment    decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Lifetime invested amount.
	LastInvestmentDate *time.Time      // Time of the most recent purchase.

	CurrentPlan string          `gorm:"type:varchar(16);not null;default:'basic'"` // Investment tier name.
	DailyLimit  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:100"`   // Active daily investment limit.
	TotalLimit  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:1000"`  // Active total investment limit.

	TotalReferrals int                                   `gorm:"not null;default:0"` // Direct referrals recorded.
	LevelEarnings  datatypes.JSONType[[]decimal.Decimal] // Referral earnings per upline level.
	MissedEarnings int                                   `gorm:"not null;default:0"` // Bonuses missed while inactive.

	Version uint64 `gorm:"not null;default:0"` // Optimistic concurrency counter.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// LevelEarningsVector returns the per-level earnings padded to levels entries.
func (u *User) LevelEarningsVector(levels int) []decimal.Decimal {
	out := make([]decimal.Decimal, levels)
	for i := range out {
		out[i] = decimal.Zero
	}
	if u == nil {
		return out
	}
	copy(out, u.LevelEarnings.Data())
	return out
}
