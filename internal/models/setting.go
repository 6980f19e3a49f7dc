package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting stores a runtime-editable configuration value.
type Setting struct {
	Key       string         `gorm:"type:varchar(128);primaryKey"` // Setting key.
	Value     datatypes.JSON `gorm:"type:jsonb;not null"`          // JSON encoded value.
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime"`      // Last update timestamp.
}
