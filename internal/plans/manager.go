package plans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/metrics"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/txlog"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager upgrades users between tiers.
type Manager struct {
	ledger  *ledger.Ledger
	metrics *metrics.PlatformMetrics
}

// New constructs a Manager.
func New(l *ledger.Ledger) *Manager {
	return &Manager{ledger: l, metrics: metrics.Platform()}
}

// UpgradeResult is returned by a successful upgrade.
type UpgradeResult struct {
	User    *models.User
	Package *models.Package
	Tier    Tier
}

// Upgrade moves userID to the named tier, paying its amount from balance.
// Upgrade amounts go to the company sink and are not distributed upline.
func (m *Manager) Upgrade(ctx context.Context, userID uint64, target string) (*UpgradeResult, error) {
	started := time.Now()
	res, err := m.upgrade(ctx, userID, target)
	m.metrics.ObserveOperation("package_upgrade", ledger.Outcome(err), started)
	return res, err
}

func (m *Manager) upgrade(ctx context.Context, userID uint64, target string) (*UpgradeResult, error) {
	next, ok := Lookup(target)
	if !ok {
		return nil, ledger.Errorf(ledger.KindInvalidTier, "unknown plan %q", target)
	}

	out := &UpgradeResult{Tier: next}
	errTx := m.ledger.WithinUser(ctx, userID, func(tx *gorm.DB, user *models.User) error {
		current, okCurrent := Lookup(user.CurrentPlan)
		if !okCurrent {
			current, _ = Lookup("basic")
		}
		if next.Amount.LessThanOrEqual(current.Amount) {
			return ledger.Errorf(ledger.KindNotAnUpgrade, "cannot move from %s to %s", current.Name, next.Name)
		}
		if errDebit := ledger.ApplyDebit(user, next.Amount); errDebit != nil {
			return errDebit
		}

		now := m.ledger.Now()
		if errExpire := tx.WithContext(ctx).Model(&models.Package{}).
			Where("user_id = ? AND status = ?", user.ID, models.PackageStatusActive).
			Updates(map[string]any{"status": models.PackageStatusExpired, "updated_at": now}).Error; errExpire != nil {
			return ledger.FromStorage("plans: expire packages", errExpire)
		}
		pkg := &models.Package{
			UserID:       user.ID,
			PackageType:  next.Name,
			Amount:       next.Amount,
			Status:       models.PackageStatusActive,
			PurchaseDate: now,
		}
		if errCreate := tx.WithContext(ctx).Omit(clause.Associations).Create(pkg).Error; errCreate != nil {
			return ledger.FromStorage("plans: create package", errCreate)
		}

		user.CurrentPlan = next.Name
		user.DailyLimit = next.DailyLimit
		user.TotalLimit = next.TotalLimit

		if _, errRecord := txlog.New(tx).Record(ctx, txlog.Entry{
			UserID:      user.ID,
			Kind:        models.KindPackageUpgrade,
			Amount:      next.Amount,
			Status:      models.StatusCompleted,
			Description: fmt.Sprintf("Upgraded to %s plan", next.Name),
			Metadata:    map[string]any{"from": current.Name, "to": next.Name, "package_id": pkg.ID},
		}); errRecord != nil {
			return ledger.FromStorage("plans: record upgrade", errRecord)
		}
		if errSink := ledger.AppendSink(ctx, tx, models.SinkEntry{
			Reason:       models.SinkPackageUpgrade,
			Amount:       next.Amount,
			SourceUserID: user.ID,
			Reference:    next.Name,
		}); errSink != nil {
			return errSink
		}
		out.User = user
		out.Package = pkg
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithFields(log.Fields{"user_id": userID, "plan": next.Name, "amount": next.Amount.String()}).Info("plan upgraded")
	return out, nil
}

// Catalog lists every tier with the caller's plan state.
type Catalog struct {
	Plans           []Tier          `json:"plans"`
	CurrentPlan     string          `json:"current_plan"`
	DailyLimit      decimal.Decimal `json:"daily_limit"`
	TotalLimit      decimal.Decimal `json:"total_limit"`
	DailyInvestment decimal.Decimal `json:"daily_investment"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
	Balance         decimal.Decimal `json:"balance"`
}

// Current describes the caller's plan and active package.
type Current struct {
	CurrentPlan     string          `json:"current_plan"`
	DailyLimit      decimal.Decimal `json:"daily_limit"`
	TotalLimit      decimal.Decimal `json:"total_limit"`
	DailyInvestment decimal.Decimal `json:"daily_investment"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
	Package         *models.Package `json:"package"`
}

// Catalog returns the tier table and userID's plan counters.
func (m *Manager) Catalog(ctx context.Context, userID uint64) (*Catalog, error) {
	user, err := m.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		Plans:           Tiers(),
		CurrentPlan:     user.CurrentPlan,
		DailyLimit:      user.DailyLimit,
		TotalLimit:      user.TotalLimit,
		DailyInvestment: m.dailyInvestment(user),
		TotalInvestment: user.TotalInvestment,
		Balance:         user.Balance,
	}, nil
}

// Current returns userID's plan and latest active package, if any.
func (m *Manager) Current(ctx context.Context, userID uint64) (*Current, error) {
	user, err := m.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := &Current{
		CurrentPlan:     user.CurrentPlan,
		DailyLimit:      user.DailyLimit,
		TotalLimit:      user.TotalLimit,
		DailyInvestment: m.dailyInvestment(user),
		TotalInvestment: user.TotalInvestment,
	}
	var pkg models.Package
	errFind := m.ledger.DB().WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.PackageStatusActive).
		Order("created_at DESC").
		First(&pkg).Error
	switch {
	case errFind == nil:
		out.Package = &pkg
	case errors.Is(errFind, gorm.ErrRecordNotFound):
	default:
		return nil, ledger.FromStorage("plans: load package", errFind)
	}
	return out, nil
}

// dailyInvestment reports today's counter, treating a stale day as zero.
func (m *Manager) dailyInvestment(user *models.User) decimal.Decimal {
	if ledger.ShouldReset(user.LastInvestmentDate, m.ledger.Now(), m.ledger.Location()) {
		return decimal.Zero
	}
	return user.DailyInvestment
}

func (m *Manager) loadUser(ctx context.Context, userID uint64) (*models.User, error) {
	var user models.User
	if errFind := m.ledger.DB().WithContext(ctx).Where("id = ?", userID).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ledger.Errorf(ledger.KindNotFound, "user %d not found", userID)
		}
		return nil, ledger.FromStorage("plans: load user", errFind)
	}
	return &user, nil
}
