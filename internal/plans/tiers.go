// Package plans defines the investment tiers and upgrades between them.
package plans

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Basic is the tier every new account starts on.
const Basic = "basic"

// Tier is one fixed investment profile.
type Tier struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	DailyLimit decimal.Decimal `json:"daily_limit"`
	TotalLimit decimal.Decimal `json:"total_limit"`
}

func tier(name string, amount, daily, total int64) Tier {
	return Tier{
		Name:       name,
		Amount:     decimal.NewFromInt(amount),
		DailyLimit: decimal.NewFromInt(daily),
		TotalLimit: decimal.NewFromInt(total),
	}
}

// tiers is ordered by strictly increasing amount.
var tiers = []Tier{
	tier(Basic, 10, 100, 1000),
	tier("plan25", 25, 250, 2500),
	tier("plan50", 50, 500, 5000),
	tier("plan100", 100, 1000, 10000),
	tier("plan250", 250, 2500, 25000),
	tier("plan500", 500, 5000, 50000),
}

// Tiers returns a copy of the tier table in ascending order.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// Lookup finds a tier by name.
func Lookup(name string) (Tier, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}
