package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/growtradenfts/platform/internal/models"
	"gorm.io/gorm"
)

var (
	snapshotMu sync.RWMutex
	snapshot   = map[string]json.RawMessage{}
)

// Refresh reloads every DB setting into the in-process snapshot.
func Refresh(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("settings: nil db")
	}
	var rows []models.Setting
	if errFind := conn.WithContext(ctx).Find(&rows).Error; errFind != nil {
		return fmt.Errorf("settings: load: %w", errFind)
	}
	next := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		next[row.Key] = json.RawMessage(bytes.Clone(row.Value))
	}
	snapshotMu.Lock()
	snapshot = next
	snapshotMu.Unlock()
	return nil
}

// DBConfigValue returns the raw JSON value of key from the latest snapshot.
func DBConfigValue(key string) (json.RawMessage, bool) {
	snapshotMu.RLock()
	defer snapshotMu.RUnlock()
	raw, ok := snapshot[strings.TrimSpace(key)]
	return raw, ok
}

// Bool reads a boolean setting, returning fallback when unset or malformed.
func Bool(key string, fallback bool) bool {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	if v, okParse := ParseBool(raw); okParse {
		return v
	}
	return fallback
}

// Upsert writes a setting value and refreshes the snapshot.
func Upsert(ctx context.Context, conn *gorm.DB, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("settings: empty key")
	}
	payload, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return fmt.Errorf("settings: marshal %s: %w", key, errMarshal)
	}
	res := conn.WithContext(ctx).Model(&models.Setting{}).Where("key = ?", key).Update("value", json.RawMessage(payload))
	if res.Error != nil {
		return fmt.Errorf("settings: update %s: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		if errCreate := conn.WithContext(ctx).Create(&models.Setting{Key: key, Value: payload}).Error; errCreate != nil {
			return fmt.Errorf("settings: create %s: %w", key, errCreate)
		}
	}
	return Refresh(ctx, conn)
}
