package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PackageStatus represents the lifecycle state of an investment package.
type PackageStatus string

// PackageStatus constants define package lifecycle states.
const (
	// PackageStatusActive marks the user's current package.
	PackageStatusActive PackageStatus = "active"
	// PackageStatusExpired marks a package replaced by an upgrade.
	PackageStatusExpired PackageStatus = "expired"
)

// Package records an investment tier purchased by a user.
type Package struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"`    // Owning user ID.
	User   User   `gorm:"foreignKey:UserID"` // Owning user record.

	PackageType  string          `gorm:"type:varchar(16);not null"`              // Tier name.
	Amount       decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"`  // Price paid.
	Status       PackageStatus   `gorm:"type:varchar(16);not null;index"`        // active or expired.
	PurchaseDate time.Time       `gorm:"not null"`                               // Purchase time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
