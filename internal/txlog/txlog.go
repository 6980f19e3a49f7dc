// Package txlog is the append-only record of balance-affecting events.
package txlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/growtradenfts/platform/internal/models"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("txlog: invalid status transition")

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("txlog: record not found")

// Log reads and appends Transaction records.
type Log struct {
	db *gorm.DB
}

// New constructs a Log over conn.
func New(conn *gorm.DB) *Log {
	return &Log{db: conn}
}

// Entry describes a record to append.
type Entry struct {
	UserID        uint64
	Kind          models.TransactionKind
	Amount        decimal.Decimal
	Status        models.TransactionStatus
	ReferralLevel int
	SourceUserID  *uint64
	TxHash        string
	WalletAddress string
	Description   string
	Metadata      map[string]any
}

// Record appends e. Records are never updated except for withdrawal status.
func (l *Log) Record(ctx context.Context, e Entry) (*models.Transaction, error) {
	if e.UserID == 0 {
		return nil, fmt.Errorf("txlog: missing owner")
	}
	if e.Kind == "" {
		return nil, fmt.Errorf("txlog: missing kind")
	}
	if e.Status == "" {
		e.Status = models.StatusCompleted
	}
	row := models.Transaction{
		UserID:        e.UserID,
		Kind:          e.Kind,
		Amount:        e.Amount,
		Status:        e.Status,
		ReferralLevel: e.ReferralLevel,
		SourceUserID:  e.SourceUserID,
		TxHash:        e.TxHash,
		WalletAddress: e.WalletAddress,
		Description:   e.Description,
	}
	if len(e.Metadata) > 0 {
		payload, errMarshal := json.Marshal(e.Metadata)
		if errMarshal != nil {
			return nil, fmt.Errorf("txlog: marshal metadata: %w", errMarshal)
		}
		row.Metadata = datatypes.JSON(payload)
	}
	if errCreate := l.db.WithContext(ctx).Omit(clause.Associations).Create(&row).Error; errCreate != nil {
		return nil, fmt.Errorf("txlog: append %s: %w", e.Kind, errCreate)
	}
	return &row, nil
}

// sumRow receives aggregate totals.
type sumRow struct {
	Total decimal.Decimal `gorm:"column:total"`
}

// SumByKindStatus totals amounts for kind and status across all owners.
// A non-zero userID restricts the sum to one owner.
func (l *Log) SumByKindStatus(ctx context.Context, userID uint64, kind models.TransactionKind, status models.TransactionStatus) (decimal.Decimal, error) {
	q := l.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("kind = ? AND status = ?", kind, status)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var row sumRow
	if errScan := q.Scan(&row).Error; errScan != nil {
		return decimal.Zero, fmt.Errorf("txlog: sum %s/%s: %w", kind, status, errScan)
	}
	return row.Total, nil
}

// LevelSum aggregates completed referral bonuses for one upline level.
type LevelSum struct {
	Level int             `gorm:"column:referral_level" json:"level"`
	Total decimal.Decimal `gorm:"column:total" json:"total"`
	Count int64           `gorm:"column:count" json:"count"`
}

// GroupByLevel sums completed referral bonuses by level, ascending.
// A non-zero userID restricts the grouping to one owner.
func (l *Log) GroupByLevel(ctx context.Context, userID uint64) ([]LevelSum, error) {
	q := l.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("referral_level, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("kind = ? AND status = ?", models.KindReferralBonus, models.StatusCompleted)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var rows []LevelSum
	if errScan := q.Group("referral_level").Order("referral_level ASC").Scan(&rows).Error; errScan != nil {
		return nil, fmt.Errorf("txlog: group by level: %w", errScan)
	}
	return rows, nil
}

// Page selects a window of a newest-first listing.
type Page struct {
	Page     int
	PageSize int
}

// Normalize applies defaults and bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = internalsettings.DefaultPageSize
	}
	if p.PageSize > internalsettings.MaxPageSize {
		p.PageSize = internalsettings.MaxPageSize
	}
	return p
}

// Offset returns the number of rows skipped before this page.
func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// ListByOwner returns a page of userID's records, newest first, and the total count.
func (l *Log) ListByOwner(ctx context.Context, userID uint64, page Page, kinds ...models.TransactionKind) ([]models.Transaction, int64, error) {
	page = page.Normalize()
	q := l.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	if len(kinds) > 0 {
		q = q.Where("kind IN ?", kinds)
	}
	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, 0, fmt.Errorf("txlog: count: %w", errCount)
	}
	var rows []models.Transaction
	if errFind := q.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).
		Limit(page.PageSize).
		Find(&rows).Error; errFind != nil {
		return nil, 0, fmt.Errorf("txlog: list: %w", errFind)
	}
	return rows, total, nil
}

// LockWithdrawal loads a withdrawal record with a row lock.
func (l *Log) LockWithdrawal(ctx context.Context, id uint64) (*models.Transaction, error) {
	var row models.Transaction
	errFind := l.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND kind = ?", id, models.KindWithdrawal).
		First(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("txlog: load withdrawal: %w", errFind)
	}
	return &row, nil
}

// SettleWithdrawal moves a pending withdrawal to completed or failed.
func (l *Log) SettleWithdrawal(ctx context.Context, id uint64, to models.TransactionStatus) error {
	if to != models.StatusCompleted && to != models.StatusFailed {
		return ErrInvalidTransition
	}
	res := l.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND kind = ? AND status = ?", id, models.KindWithdrawal, models.StatusPending).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("txlog: settle withdrawal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}
