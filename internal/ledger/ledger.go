// Package ledger owns per-user balances and the platform sink.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/txlog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger serializes balance mutations per user.
type Ledger struct {
	db    *gorm.DB
	loc   *time.Location
	clock func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLocation sets the timezone used for daily counter resets.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New constructs a Ledger over conn.
func New(conn *gorm.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:    conn,
		loc:   time.UTC,
		clock: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DB returns the underlying connection.
func (l *Ledger) DB() *gorm.DB { return l.db }

// Location returns the timezone used for daily resets.
func (l *Ledger) Location() *time.Location { return l.loc }

// Now returns the ledger clock reading.
func (l *Ledger) Now() time.Time { return l.clock() }

// WithinUser runs fn against a locked copy of the user inside a transaction.
// Changes fn makes to the user are persisted with a version check. When fn
// returns an error nothing is written.
func (l *Ledger) WithinUser(ctx context.Context, userID uint64, fn func(tx *gorm.DB, user *models.User) error) error {
	if userID == 0 {
		return Errorf(KindInvalidInput, "missing user id")
	}
	errTx := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, errLoad := LockUser(tx, userID)
		if errLoad != nil {
			return errLoad
		}
		if errFn := fn(tx, user); errFn != nil {
			return errFn
		}
		return SaveUser(tx, user)
	})
	return FromStorage("ledger: user transaction", errTx)
}

// LockUser loads a user row for update.
func LockUser(tx *gorm.DB, userID uint64) (*models.User, error) {
	var user models.User
	errFind := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, Errorf(KindNotFound, "user %d not found", userID)
		}
		return nil, FromStorage("ledger: load user", errFind)
	}
	return &user, nil
}

// SaveUser writes every column of user, failing with ErrConflict when the
// stored version moved since the row was loaded.
func SaveUser(tx *gorm.DB, user *models.User) error {
	prev := user.Version
	user.Version = prev + 1
	res := tx.Model(user).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(user)
	if res.Error != nil {
		user.Version = prev
		return FromStorage("ledger: save user", res.Error)
	}
	if res.RowsAffected == 0 {
		user.Version = prev
		return ErrConflict
	}
	return nil
}

// ApplyCredit adds amount to the user's balance.
func ApplyCredit(user *models.User, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Errorf(KindInvalidInput, "credit amount must be positive")
	}
	user.Balance = user.Balance.Add(amount)
	return nil
}

// ApplyDebit subtracts amount from the user's balance. The balance is left
// untouched when it would go negative.
func ApplyDebit(user *models.User, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Errorf(KindInvalidInput, "debit amount must be positive")
	}
	if user.Balance.LessThan(amount) {
		return Errorf(KindInsufficientBalance, "balance %s below required %s", user.Balance.StringFixed(2), amount.StringFixed(2))
	}
	user.Balance = user.Balance.Sub(amount)
	return nil
}

// Credit adds amount to userID's balance and appends entry atomically.
func (l *Ledger) Credit(ctx context.Context, userID uint64, amount decimal.Decimal, entry txlog.Entry) (*models.User, error) {
	var out *models.User
	errTx := l.WithinUser(ctx, userID, func(tx *gorm.DB, user *models.User) error {
		if errCredit := ApplyCredit(user, amount); errCredit != nil {
			return errCredit
		}
		if errRecord := l.record(ctx, tx, userID, amount, entry); errRecord != nil {
			return errRecord
		}
		out = user
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return out, nil
}

// Debit subtracts amount from userID's balance and appends entry atomically.
func (l *Ledger) Debit(ctx context.Context, userID uint64, amount decimal.Decimal, entry txlog.Entry) (*models.User, error) {
	var out *models.User
	errTx := l.WithinUser(ctx, userID, func(tx *gorm.DB, user *models.User) error {
		if errDebit := ApplyDebit(user, amount); errDebit != nil {
			return errDebit
		}
		if errRecord := l.record(ctx, tx, userID, amount, entry); errRecord != nil {
			return errRecord
		}
		out = user
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return out, nil
}

func (l *Ledger) record(ctx context.Context, tx *gorm.DB, userID uint64, amount decimal.Decimal, entry txlog.Entry) error {
	if entry.Kind == "" {
		return Errorf(KindInvalidInput, "transaction kind required")
	}
	entry.UserID = userID
	if entry.Amount.IsZero() {
		entry.Amount = amount
	}
	if _, errRecord := txlog.New(tx).Record(ctx, entry); errRecord != nil {
		return FromStorage("ledger: append record", errRecord)
	}
	return nil
}

// Balance returns userID's current balance.
func (l *Ledger) Balance(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	var user models.User
	if errFind := l.db.WithContext(ctx).Select("id", "balance").Where("id = ?", userID).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return decimal.Zero, Errorf(KindNotFound, "user %d not found", userID)
		}
		return decimal.Zero, FromStorage(fmt.Sprintf("ledger: balance of %d", userID), errFind)
	}
	return user.Balance, nil
}
