// Package stats builds the member and operator dashboards.
package stats

import (
	"context"
	"errors"

	"github.com/growtradenfts/platform/internal/authz"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/nft"
	"github.com/growtradenfts/platform/internal/referral"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"github.com/growtradenfts/platform/internal/txlog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const recentTransactions = 5

// Service reads aggregate views. It never mutates state.
type Service struct {
	ledger *ledger.Ledger
	graph  *referral.Graph
	nfts   *nft.Engine
	log    *txlog.Log
}

// New constructs a Service.
func New(l *ledger.Ledger, g *referral.Graph, engine *nft.Engine) *Service {
	return &Service{ledger: l, graph: g, nfts: engine, log: txlog.New(l.DB())}
}

// UserDashboard is the member home view.
type UserDashboard struct {
	Balance            decimal.Decimal      `json:"balance"`
	TotalEarnings      decimal.Decimal      `json:"total_earnings"`
	IsActive           bool                 `json:"is_active"`
	ReferralCode       string               `json:"referral_code"`
	CurrentPlan        string               `json:"current_plan"`
	DailyLimit         decimal.Decimal      `json:"daily_limit"`
	TotalLimit         decimal.Decimal      `json:"total_limit"`
	DailyInvestment    decimal.Decimal      `json:"daily_investment"`
	TotalInvestment    decimal.Decimal      `json:"total_investment"`
	TeamSize           int                  `json:"team_size"`
	ActiveTeamMembers  int                  `json:"active_team_members"`
	TotalTransactions  int64                `json:"total_transactions"`
	NFTCount           int64                `json:"nft_count"`
	RecentTransactions []models.Transaction `json:"recent_transactions"`
}

// UserDashboard assembles userID's dashboard.
func (s *Service) UserDashboard(ctx context.Context, userID uint64) (*UserDashboard, error) {
	user, errLoad := s.loadUser(ctx, userID)
	if errLoad != nil {
		return nil, errLoad
	}
	daily := user.DailyInvestment
	if ledger.ShouldReset(user.LastInvestmentDate, s.ledger.Now(), s.ledger.Location()) {
		daily = decimal.Zero
	}
	out := &UserDashboard{
		Balance:         user.Balance,
		TotalEarnings:   user.TotalEarnings,
		IsActive:        user.IsActive,
		ReferralCode:    user.ReferralCode,
		CurrentPlan:     user.CurrentPlan,
		DailyLimit:      user.DailyLimit,
		TotalLimit:      user.TotalLimit,
		DailyInvestment: daily,
		TotalInvestment: user.TotalInvestment,
	}

	levels, errTeam := s.graph.TeamLevels(ctx, user, internalsettings.BonusLevels)
	if errTeam != nil {
		return nil, errTeam
	}
	for _, level := range levels {
		out.TeamSize += level.Total
		out.ActiveTeamMembers += level.Active
	}

	recent, total, errList := s.log.ListByOwner(ctx, user.ID, txlog.Page{Page: 1, PageSize: recentTransactions})
	if errList != nil {
		return nil, ledger.FromStorage("stats: recent transactions", errList)
	}
	out.RecentTransactions = recent
	out.TotalTransactions = total

	if errCount := s.ledger.DB().WithContext(ctx).Model(&models.NFT{}).
		Where("user_id = ?", user.ID).Count(&out.NFTCount).Error; errCount != nil {
		return nil, ledger.FromStorage("stats: count nfts", errCount)
	}
	return out, nil
}

// MLMEarnings is the member's referral income breakdown.
type MLMEarnings struct {
	ReferralCode    string            `json:"referral_code"`
	TotalEarnings   decimal.Decimal   `json:"total_earnings"`
	TotalReferrals  int               `json:"total_referrals"`
	ActiveReferrals int64             `json:"active_referrals"`
	MissedEarnings  int               `json:"missed_earnings"`
	Levels          []txlog.LevelSum  `json:"levels"`
	LevelEarnings   []decimal.Decimal `json:"level_earnings"`
}

// MLMEarnings returns per-level bonus sums for userID with all ten levels
// present.
func (s *Service) MLMEarnings(ctx context.Context, userID uint64) (*MLMEarnings, error) {
	user, errLoad := s.loadUser(ctx, userID)
	if errLoad != nil {
		return nil, errLoad
	}
	sums, errGroup := s.log.GroupByLevel(ctx, user.ID)
	if errGroup != nil {
		return nil, ledger.FromStorage("stats: level sums", errGroup)
	}
	active, errActive := s.graph.ActiveDirectCount(ctx, user)
	if errActive != nil {
		return nil, errActive
	}
	return &MLMEarnings{
		ReferralCode:    user.ReferralCode,
		TotalEarnings:   user.TotalEarnings,
		TotalReferrals:  user.TotalReferrals,
		ActiveReferrals: active,
		MissedEarnings:  user.MissedEarnings,
		Levels:          fillLevels(sums),
		LevelEarnings:   user.LevelEarningsVector(internalsettings.BonusLevels),
	}, nil
}

// fillLevels returns one entry per bonus level, zero where nothing was paid.
func fillLevels(sums []txlog.LevelSum) []txlog.LevelSum {
	out := make([]txlog.LevelSum, internalsettings.BonusLevels)
	for i := range out {
		out[i] = txlog.LevelSum{Level: i + 1, Total: decimal.Zero}
	}
	for _, sum := range sums {
		if sum.Level >= 1 && sum.Level <= internalsettings.BonusLevels {
			out[sum.Level-1] = sum
		}
	}
	return out
}

// AdminDashboard is the operator overview.
type AdminDashboard struct {
	TotalUsers         int64             `json:"total_users"`
	ActiveUsers        int64             `json:"active_users"`
	FrozenUsers        int64             `json:"frozen_users"`
	TotalNFTs          int64             `json:"total_nfts"`
	SoldNFTs           int64             `json:"sold_nfts"`
	LockedNFTs         int64             `json:"locked_nfts"`
	ActivationRevenue  decimal.Decimal   `json:"activation_revenue"`
	MLMPayouts         decimal.Decimal   `json:"mlm_payouts"`
	PendingWithdrawals decimal.Decimal   `json:"pending_withdrawals"`
	CurrentBatch       *models.NFTBatch  `json:"current_batch"`
	Sink               ledger.SinkTotals `json:"sink"`
}

// AdminDashboard assembles platform-wide counters. The reads run
// concurrently and are not a single snapshot.
func (s *Service) AdminDashboard(ctx context.Context, admin authz.Admin) (*AdminDashboard, error) {
	if errAdmin := admin.Check(); errAdmin != nil {
		return nil, errAdmin
	}
	out := &AdminDashboard{}
	conn := s.ledger.DB()
	countUsers := func(dest *int64, query string, args ...any) func() error {
		return func() error {
			q := conn.WithContext(ctx).Model(&models.User{})
			if query != "" {
				q = q.Where(query, args...)
			}
			return q.Count(dest).Error
		}
	}
	countNFTs := func(dest *int64, status ...models.NFTStatus) func() error {
		return func() error {
			q := conn.WithContext(ctx).Model(&models.NFT{})
			if len(status) > 0 {
				q = q.Where("status IN ?", status)
			}
			return q.Count(dest).Error
		}
	}
	sum := func(dest *decimal.Decimal, kind models.TransactionKind, status models.TransactionStatus) func() error {
		return func() error {
			total, err := s.log.SumByKindStatus(ctx, 0, kind, status)
			*dest = total
			return err
		}
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(countUsers(&out.TotalUsers, ""))
	g.Go(countUsers(&out.ActiveUsers, "is_active = ?", true))
	g.Go(countUsers(&out.FrozenUsers, "is_frozen = ?", true))
	g.Go(countNFTs(&out.TotalNFTs))
	g.Go(countNFTs(&out.SoldNFTs, models.NFTStatusSold))
	g.Go(countNFTs(&out.LockedNFTs, models.NFTStatusLocked))
	g.Go(sum(&out.ActivationRevenue, models.KindActivation, models.StatusCompleted))
	g.Go(sum(&out.MLMPayouts, models.KindReferralBonus, models.StatusCompleted))
	g.Go(sum(&out.PendingWithdrawals, models.KindWithdrawal, models.StatusPending))
	g.Go(func() error {
		batch, err := s.nfts.ActiveBatch(ctx)
		out.CurrentBatch = batch
		return err
	})
	g.Go(func() error {
		totals, err := s.ledger.SinkTotal(ctx)
		out.Sink = totals
		return err
	})
	if errWait := g.Wait(); errWait != nil {
		return nil, ledger.FromStorage("stats: admin dashboard", errWait)
	}
	return out, nil
}

// Earner is one row of the top earners table.
type Earner struct {
	ID             uint64          `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	ReferralCode   string          `json:"referral_code"`
	TotalEarnings  decimal.Decimal `json:"total_earnings"`
	TotalReferrals int             `json:"total_referrals"`
}

// MLMStats is the platform-wide bonus breakdown.
type MLMStats struct {
	Levels     []txlog.LevelSum `json:"levels"`
	TopEarners []Earner         `json:"top_earners"`
}

// MLMStats returns bonus sums per level across every user and the ten
// highest earners.
func (s *Service) MLMStats(ctx context.Context, admin authz.Admin) (*MLMStats, error) {
	if errAdmin := admin.Check(); errAdmin != nil {
		return nil, errAdmin
	}
	sums, errGroup := s.log.GroupByLevel(ctx, 0)
	if errGroup != nil {
		return nil, ledger.FromStorage("stats: level sums", errGroup)
	}
	var rows []models.User
	if errFind := s.ledger.DB().WithContext(ctx).
		Select("id", "name", "email", "referral_code", "total_earnings", "total_referrals").
		Where("total_earnings > ?", 0).
		Order("total_earnings DESC").Order("id ASC").
		Limit(internalsettings.TopEarnersLimit).
		Find(&rows).Error; errFind != nil {
		return nil, ledger.FromStorage("stats: top earners", errFind)
	}
	earners := make([]Earner, 0, len(rows))
	for _, row := range rows {
		earners = append(earners, Earner{
			ID:             row.ID,
			Name:           row.Name,
			Email:          row.Email,
			ReferralCode:   row.ReferralCode,
			TotalEarnings:  row.TotalEarnings,
			TotalReferrals: row.TotalReferrals,
		})
	}
	return &MLMStats{Levels: fillLevels(sums), TopEarners: earners}, nil
}

func (s *Service) loadUser(ctx context.Context, userID uint64) (*models.User, error) {
	var user models.User
	if errFind := s.ledger.DB().WithContext(ctx).Where("id = ?", userID).First(&user).Error; errFind != nil {
		return nil, ledger.FromStorage("stats: load user", notFound(userID, errFind))
	}
	return &user, nil
}

func notFound(userID uint64, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ledger.Errorf(ledger.KindNotFound, "user %d not found", userID)
	}
	return err
}
