package ledger

import (
	"context"

	"github.com/growtradenfts/platform/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AppendSink records value retained by the platform inside tx.
func AppendSink(ctx context.Context, tx *gorm.DB, entry models.SinkEntry) error {
	if entry.Account == "" {
		entry.Account = models.SinkAccountCompany
	}
	if entry.Reason == "" {
		return Errorf(KindInvalidInput, "sink entry missing reason")
	}
	return FromStorage("ledger: append sink", tx.WithContext(ctx).Create(&entry).Error)
}

// SinkTotals sums retained value per reason.
type SinkTotals struct {
	Total    decimal.Decimal                       `json:"total"`
	ByReason map[models.SinkReason]decimal.Decimal `json:"by_reason"`
}

type sinkRow struct {
	Reason models.SinkReason `gorm:"column:reason"`
	Total  decimal.Decimal   `gorm:"column:total"`
}

// SinkTotal returns the platform sink totals across every reason.
func (l *Ledger) SinkTotal(ctx context.Context) (SinkTotals, error) {
	out := SinkTotals{Total: decimal.Zero, ByReason: map[models.SinkReason]decimal.Decimal{}}
	var rows []sinkRow
	errScan := l.db.WithContext(ctx).Model(&models.SinkEntry{}).
		Select("reason, COALESCE(SUM(amount), 0) AS total").
		Group("reason").
		Scan(&rows).Error
	if errScan != nil {
		return out, FromStorage("ledger: sink total", errScan)
	}
	for _, row := range rows {
		out.ByReason[row.Reason] = row.Total
		out.Total = out.Total.Add(row.Total)
	}
	return out, nil
}
