package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/models"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettingHandler manages runtime settings.
type SettingHandler struct {
	db *gorm.DB // Database handle for settings.
}

// NewSettingHandler constructs a settings handler.
func NewSettingHandler(svc *core.Services) *SettingHandler {
	return &SettingHandler{db: svc.DB}
}

type settingKind int

const (
	settingBool settingKind = iota
	settingNonNegativeInt
	settingString
	settingOperationLimits
)

// editableSettings lists the keys operators may change and their shape.
var editableSettings = map[string]settingKind{
	internalsettings.SiteNameKey:               settingString,
	internalsettings.TradingEnabledKey:         settingBool,
	internalsettings.WithdrawalsEnabledKey:     settingBool,
	internalsettings.RateLimitKey:              settingNonNegativeInt,
	internalsettings.RateLimitOperationsKey:    settingOperationLimits,
	internalsettings.RateLimitRedisEnabledKey:  settingBool,
	internalsettings.RateLimitRedisAddrKey:     settingString,
	internalsettings.RateLimitRedisPasswordKey: settingString,
	internalsettings.RateLimitRedisDBKey:       settingNonNegativeInt,
	internalsettings.RateLimitRedisPrefixKey:   settingString,
}

var (
	errUnknownSetting          = errors.New("unknown setting key")
	errBoolValue               = errors.New("value must be a boolean")
	errNonNegativeIntegerValue = errors.New("value must be a non-negative integer")
	errStringValue             = errors.New("value must be a string")
	errOperationLimitsValue    = errors.New("value must map operation names to non-negative integers")
)

// List returns all settings sorted by key. Secrets are masked.
func (h *SettingHandler) List(c *gin.Context) {
	var rows []models.Setting
	if errFind := h.db.WithContext(c.Request.Context()).Order("key ASC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list settings failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.formatSetting(&row))
	}
	c.JSON(http.StatusOK, gin.H{"settings": out})
}

// updateSettingRequest captures the payload for updating a setting.
type updateSettingRequest struct {
	Value json.RawMessage `json:"value"` // New JSON value.
}

// Update validates and stores a setting value, then refreshes the snapshot.
func (h *SettingHandler) Update(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key"})
		return
	}
	var body updateSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	value, errValidate := validateSettingValue(key, body.Value)
	if errValidate != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errValidate.Error()})
		return
	}
	if errUpsert := internalsettings.Upsert(c.Request.Context(), h.db, key, value); errUpsert != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	log.WithFields(log.Fields{"admin_id": core.Admin(c).UserID(), "key": key}).Info("setting updated")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// validateSettingValue checks raw against the shape registered for key and
// returns the normalized value to store.
func validateSettingValue(key string, raw json.RawMessage) (any, error) {
	kind, ok := editableSettings[key]
	if !ok {
		return nil, errUnknownSetting
	}
	switch kind {
	case settingBool:
		v, okParse := internalsettings.ParseBool(raw)
		if !okParse {
			return nil, errBoolValue
		}
		return v, nil
	case settingNonNegativeInt:
		v, okParse := internalsettings.ParseNonNegativeInt(raw)
		if !okParse {
			return nil, errNonNegativeIntegerValue
		}
		return v, nil
	case settingString:
		v, okParse := internalsettings.ParseString(raw)
		if !okParse {
			return nil, errStringValue
		}
		return v, nil
	case settingOperationLimits:
		var entries map[string]json.RawMessage
		if errUnmarshal := json.Unmarshal(raw, &entries); errUnmarshal != nil {
			return nil, errOperationLimitsValue
		}
		out := make(map[string]int, len(entries))
		for op, entry := range entries {
			limit, okParse := internalsettings.ParseNonNegativeInt(entry)
			op = strings.ToLower(strings.TrimSpace(op))
			if !okParse || op == "" {
				return nil, errOperationLimitsValue
			}
			out[op] = limit
		}
		return out, nil
	}
	return nil, errUnknownSetting
}

// formatSetting formats a setting row into response JSON.
func (h *SettingHandler) formatSetting(s *models.Setting) gin.H {
	value := json.RawMessage(s.Value)
	if s.Key == internalsettings.RateLimitRedisPasswordKey && len(value) > 0 && string(value) != `""` {
		value = json.RawMessage(`"********"`)
	}
	return gin.H{
		"key":        s.Key,
		"value":      value,
		"updated_at": s.UpdatedAt,
	}
}
