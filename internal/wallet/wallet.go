// Package wallet handles withdrawals and their settlement.
package wallet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/growtradenfts/platform/internal/authz"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/metrics"
	"github.com/growtradenfts/platform/internal/models"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"github.com/growtradenfts/platform/internal/txlog"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service moves funds out of user balances.
type Service struct {
	ledger  *ledger.Ledger
	metrics *metrics.PlatformMetrics
}

// New constructs a Service.
func New(l *ledger.Ledger) *Service {
	return &Service{ledger: l, metrics: metrics.Platform()}
}

// NormalizeAddress validates a 0x-prefixed 40 hex digit address and returns
// its checksummed form.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if len(address) != 42 || !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return "", ledger.Errorf(ledger.KindInvalidAddress, "wallet address must be 0x followed by 40 hex characters")
	}
	return common.HexToAddress(address).Hex(), nil
}

// Withdraw debits amount immediately and records a pending withdrawal that
// an operator settles later.
func (s *Service) Withdraw(ctx context.Context, userID uint64, amount decimal.Decimal, address string) (*models.Transaction, *models.User, error) {
	started := time.Now()
	row, user, err := s.withdraw(ctx, userID, amount, address)
	s.metrics.ObserveOperation("withdraw", ledger.Outcome(err), started)
	if err != nil {
		return nil, nil, err
	}
	log.WithFields(log.Fields{"user_id": userID, "amount": amount.String(), "transaction_id": row.ID}).Info("withdrawal requested")
	return row, user, nil
}

func (s *Service) withdraw(ctx context.Context, userID uint64, amount decimal.Decimal, address string) (*models.Transaction, *models.User, error) {
	var (
		row  *models.Transaction
		user *models.User
	)
	errTx := s.ledger.WithinUser(ctx, userID, func(tx *gorm.DB, u *models.User) error {
		if !u.IsActive || u.IsFrozen || !u.CanWithdraw || !withdrawalsEnabled() {
			return ledger.ErrWithdrawalDisabled
		}
		normalized, errAddress := NormalizeAddress(address)
		if errAddress != nil {
			return errAddress
		}
		if amount.LessThan(internalsettings.MinWithdrawal) {
			return ledger.Errorf(ledger.KindBelowMinimum, "minimum withdrawal amount is %s", internalsettings.MinWithdrawal.String())
		}
		if errDebit := ledger.ApplyDebit(u, amount); errDebit != nil {
			return errDebit
		}
		recorded, errRecord := txlog.New(tx).Record(ctx, txlog.Entry{
			UserID:        u.ID,
			Kind:          models.KindWithdrawal,
			Amount:        amount,
			Status:        models.StatusPending,
			WalletAddress: normalized,
			Description:   "Withdrawal request",
		})
		if errRecord != nil {
			return ledger.FromStorage("wallet: record withdrawal", errRecord)
		}
		row = recorded
		user = u
		return nil
	})
	if errTx != nil {
		return nil, nil, errTx
	}
	return row, user, nil
}

// SettleWithdrawal completes or fails a pending withdrawal. A failed
// withdrawal refunds its amount to the owner in the same transaction.
func (s *Service) SettleWithdrawal(ctx context.Context, admin authz.Admin, txID uint64, status models.TransactionStatus) (*models.Transaction, error) {
	if errAdmin := admin.Check(); errAdmin != nil {
		return nil, errAdmin
	}
	if status != models.StatusCompleted && status != models.StatusFailed {
		return nil, ledger.Errorf(ledger.KindInvalidInput, "status must be completed or failed")
	}

	var owner uint64
	if errFind := s.ledger.DB().WithContext(ctx).Model(&models.Transaction{}).
		Select("user_id").
		Where("id = ? AND kind = ?", txID, models.KindWithdrawal).
		Scan(&owner).Error; errFind != nil {
		return nil, ledger.FromStorage("wallet: load withdrawal owner", errFind)
	}
	if owner == 0 {
		return nil, ledger.Errorf(ledger.KindNotFound, "withdrawal %d not found", txID)
	}

	var out *models.Transaction
	errTx := s.ledger.WithinUser(ctx, owner, func(tx *gorm.DB, user *models.User) error {
		records := txlog.New(tx)
		row, errLock := records.LockWithdrawal(ctx, txID)
		if errLock != nil {
			if errors.Is(errLock, txlog.ErrNotFound) {
				return ledger.Errorf(ledger.KindNotFound, "withdrawal %d not found", txID)
			}
			return ledger.FromStorage("wallet: lock withdrawal", errLock)
		}
		if errSettle := records.SettleWithdrawal(ctx, txID, status); errSettle != nil {
			if errors.Is(errSettle, txlog.ErrInvalidTransition) {
				return ledger.Errorf(ledger.KindInvalidInput, "withdrawal %d is %s, not pending", txID, row.Status)
			}
			return ledger.FromStorage("wallet: settle withdrawal", errSettle)
		}
		if status == models.StatusFailed {
			if errRefund := ledger.ApplyCredit(user, row.Amount); errRefund != nil {
				return errRefund
			}
		}
		row.Status = status
		out = row
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithFields(log.Fields{
		"admin_id":       admin.UserID(),
		"transaction_id": txID,
		"status":         string(status),
	}).Info("withdrawal settled")
	return out, nil
}

// Balance is the caller's wallet summary.
type Balance struct {
	Balance       decimal.Decimal `json:"balance"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	IsActive      bool            `json:"is_active"`
}

// Balance returns userID's balance and earnings.
func (s *Service) Balance(ctx context.Context, userID uint64) (*Balance, error) {
	var user models.User
	if errFind := s.ledger.DB().WithContext(ctx).
		Select("id", "balance", "total_earnings", "is_active").
		Where("id = ?", userID).
		First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ledger.Errorf(ledger.KindNotFound, "user %d not found", userID)
		}
		return nil, ledger.FromStorage("wallet: balance", errFind)
	}
	return &Balance{Balance: user.Balance, TotalEarnings: user.TotalEarnings, IsActive: user.IsActive}, nil
}

func withdrawalsEnabled() bool {
	return internalsettings.Bool(internalsettings.WithdrawalsEnabledKey, internalsettings.DefaultWithdrawalsEnabled)
}
