package ledger

import (
	"time"

	"github.com/growtradenfts/platform/internal/models"
	"github.com/shopspring/decimal"
)

// ShouldReset reports whether now falls on a later calendar day than last
// in loc. A missing last date always resets.
func ShouldReset(last *time.Time, now time.Time, loc *time.Location) bool {
	if last == nil {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}
	ly, lm, ld := last.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return ly != ny || lm != nm || ld != nd
}

// ResetDailyCounterIfNewDay zeroes the daily investment counter when the
// last investment happened on an earlier day.
func ResetDailyCounterIfNewDay(user *models.User, now time.Time, loc *time.Location) bool {
	if user == nil || !ShouldReset(user.LastInvestmentDate, now, loc) {
		return false
	}
	user.DailyInvestment = decimal.Zero
	return true
}
