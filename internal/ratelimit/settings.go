package ratelimit

import (
	"encoding/json"
	"strings"

	internalsettings "github.com/growtradenfts/platform/internal/settings"
)

// SettingsConfig captures rate limit settings stored in DB config.
type SettingsConfig struct {
	Limit         int
	Operations    map[string]int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// LoadSettingsConfig loads the current rate limit settings snapshot.
func LoadSettingsConfig() SettingsConfig {
	cfg := SettingsConfig{
		Limit:         internalsettings.Int(internalsettings.RateLimitKey, internalsettings.DefaultRateLimit),
		Operations:    loadOperationLimits(),
		RedisEnabled:  internalsettings.Bool(internalsettings.RateLimitRedisEnabledKey, false),
		RedisAddr:     internalsettings.String(internalsettings.RateLimitRedisAddrKey, ""),
		RedisPassword: internalsettings.String(internalsettings.RateLimitRedisPasswordKey, ""),
		RedisDB:       internalsettings.Int(internalsettings.RateLimitRedisDBKey, 0),
		RedisPrefix:   internalsettings.String(internalsettings.RateLimitRedisPrefixKey, internalsettings.DefaultRateLimitRedisPrefix),
	}
	if cfg.RedisPrefix == "" {
		cfg.RedisPrefix = internalsettings.DefaultRateLimitRedisPrefix
	}
	return cfg
}

// loadOperationLimits parses {"nft_purchase": 2, ...}. Malformed entries are
// skipped.
func loadOperationLimits() map[string]int {
	out := map[string]int{}
	raw, ok := internalsettings.DBConfigValue(internalsettings.RateLimitOperationsKey)
	if !ok {
		return out
	}
	var entries map[string]json.RawMessage
	if errUnmarshal := json.Unmarshal(raw, &entries); errUnmarshal != nil {
		return out
	}
	for op, value := range entries {
		op = strings.ToLower(strings.TrimSpace(op))
		if op == "" {
			continue
		}
		if limit, okParse := internalsettings.ParseNonNegativeInt(value); okParse {
			out[op] = limit
		}
	}
	return out
}
