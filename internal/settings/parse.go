package settings

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseBool accepts JSON booleans, 0/1 and the usual yes/no spellings.
func ParseBool(raw json.RawMessage) (bool, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false, false
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b, true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "y", "on":
			return true, true
		case "0", "false", "no", "n", "off":
			return false, true
		}
		return false, false
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		switch f {
		case 1:
			return true, true
		case 0:
			return false, true
		}
	}
	return false, false
}

// ParseNonNegativeInt accepts integers given as numbers or strings.
func ParseNonNegativeInt(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	var n int
	if json.Unmarshal(raw, &n) == nil {
		return n, n >= 0
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		parsed, errParse := strconv.Atoi(strings.TrimSpace(s))
		if errParse != nil {
			return 0, false
		}
		return parsed, parsed >= 0
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}

// ParseString accepts a JSON string and trims it.
func ParseString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// Int reads a non-negative integer setting, returning fallback when unset
// or malformed.
func Int(key string, fallback int) int {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	if n, okParse := ParseNonNegativeInt(raw); okParse {
		return n
	}
	return fallback
}

// String reads a string setting, returning fallback when unset or malformed.
func String(key, fallback string) string {
	raw, ok := DBConfigValue(key)
	if !ok {
		return fallback
	}
	if s, okParse := ParseString(raw); okParse {
		return s
	}
	return fallback
}
