// Package referral maintains the sponsor tree built from referral codes.
package referral

import (
	"context"
	"errors"
	"strings"

	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"gorm.io/gorm"
)

// Graph reads and links referral relationships.
type Graph struct {
	db *gorm.DB
}

// New constructs a Graph over conn.
func New(conn *gorm.DB) *Graph {
	return &Graph{db: conn}
}

// WithTx returns a Graph bound to an open transaction.
func (g *Graph) WithTx(tx *gorm.DB) *Graph {
	return &Graph{db: tx}
}

// NormalizeCode canonicalizes a referral code for lookups.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// LookupCode returns the user owning code.
func (g *Graph) LookupCode(ctx context.Context, code string) (*models.User, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, ledger.ErrInvalidReferralCode
	}
	var user models.User
	if errFind := g.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ledger.Errorf(ledger.KindInvalidReferralCode, "referral code %q not found", code)
		}
		return nil, ledger.FromStorage("referral: lookup code", errFind)
	}
	return &user, nil
}

// RecordReferral links newUserID under the owner of code and bumps the
// sponsor's direct referral count. An empty code is a no-op. A user can be
// linked once, and a link that would close a cycle is rejected.
func (g *Graph) RecordReferral(ctx context.Context, newUserID uint64, code string) (*models.User, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	var sponsor *models.User
	errTx := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		linked, errLink := g.WithTx(tx).link(ctx, newUserID, code)
		if errLink != nil {
			return errLink
		}
		sponsor = linked
		return nil
	})
	if errTx != nil {
		return nil, ledger.FromStorage("referral: record referral", errTx)
	}
	return sponsor, nil
}

// link writes the sponsor link and the sponsor's counter through g.db, which
// must be a transaction.
func (g *Graph) link(ctx context.Context, newUserID uint64, code string) (*models.User, error) {
	sponsor, errLookup := g.LookupCode(ctx, code)
	if errLookup != nil {
		return nil, errLookup
	}
	if sponsor.ID == newUserID {
		return nil, ledger.Errorf(ledger.KindInvalidReferralCode, "cannot refer yourself")
	}

	var newcomer models.User
	if errFind := g.db.WithContext(ctx).Where("id = ?", newUserID).First(&newcomer).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ledger.Errorf(ledger.KindNotFound, "user %d not found", newUserID)
		}
		return nil, ledger.FromStorage("referral: load user", errFind)
	}
	if newcomer.ReferredBy != nil && *newcomer.ReferredBy != "" {
		return nil, ledger.Errorf(ledger.KindInvalidReferralCode, "user already has a sponsor")
	}

	walker := g.WalkUpline(ctx, sponsor, 0)
	for walker.Next() {
		if walker.User().ID == newUserID {
			return nil, ledger.Errorf(ledger.KindInvalidReferralCode, "referral would create a cycle")
		}
	}
	if errWalk := walker.Err(); errWalk != nil {
		return nil, errWalk
	}

	sponsorCode := sponsor.ReferralCode
	res := g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND (referred_by IS NULL OR referred_by = '')", newUserID).
		Update("referred_by", sponsorCode)
	if res.Error != nil {
		return nil, ledger.FromStorage("referral: link sponsor", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ledger.Errorf(ledger.KindInvalidReferralCode, "user already has a sponsor")
	}
	if errInc := g.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", sponsor.ID).
		Update("total_referrals", gorm.Expr("total_referrals + 1")).Error; errInc != nil {
		return nil, ledger.FromStorage("referral: count referral", errInc)
	}
	sponsor.TotalReferrals++
	return sponsor, nil
}

// Sponsor returns the direct sponsor of user, or nil at the root.
func (g *Graph) Sponsor(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil || user.ReferredBy == nil || strings.TrimSpace(*user.ReferredBy) == "" {
		return nil, nil
	}
	var sponsor models.User
	errFind := g.db.WithContext(ctx).Where("referral_code = ?", *user.ReferredBy).First(&sponsor).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, ledger.FromStorage("referral: load sponsor", errFind)
	}
	return &sponsor, nil
}

// DirectReferrals lists users sponsored directly by user, oldest first.
func (g *Graph) DirectReferrals(ctx context.Context, user *models.User) ([]models.User, error) {
	var rows []models.User
	if user == nil {
		return rows, nil
	}
	if errFind := g.db.WithContext(ctx).
		Where("referred_by = ?", user.ReferralCode).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error; errFind != nil {
		return nil, ledger.FromStorage("referral: direct referrals", errFind)
	}
	return rows, nil
}

// ActiveDirectCount counts directly sponsored users that are activated.
func (g *Graph) ActiveDirectCount(ctx context.Context, user *models.User) (int64, error) {
	var count int64
	if user == nil {
		return 0, nil
	}
	if errCount := g.db.WithContext(ctx).Model(&models.User{}).
		Where("referred_by = ? AND is_active = ?", user.ReferralCode, true).
		Count(&count).Error; errCount != nil {
		return 0, ledger.FromStorage("referral: active count", errCount)
	}
	return count, nil
}

// LevelCount summarizes one downline depth.
type LevelCount struct {
	Level  int      `json:"level"`
	Total  int      `json:"total"`
	Active int      `json:"active"`
	IDs    []uint64 `json:"-"`
}

// TeamLevels walks the downline breadth first, up to maxDepth levels.
func (g *Graph) TeamLevels(ctx context.Context, user *models.User, maxDepth int) ([]LevelCount, error) {
	if maxDepth <= 0 || maxDepth > internalsettings.BonusLevels {
		maxDepth = internalsettings.BonusLevels
	}
	out := make([]LevelCount, 0, maxDepth)
	if user == nil {
		return out, nil
	}
	seen := map[uint64]struct{}{user.ID: {}}
	frontier := []string{user.ReferralCode}
	for level := 1; level <= maxDepth && len(frontier) > 0; level++ {
		var rows []models.User
		if errFind := g.db.WithContext(ctx).
			Select("id", "referral_code", "is_active").
			Where("referred_by IN ?", frontier).
			Find(&rows).Error; errFind != nil {
			return nil, ledger.FromStorage("referral: team level", errFind)
		}
		count := LevelCount{Level: level}
		next := make([]string, 0, len(rows))
		for _, row := range rows {
			if _, dup := seen[row.ID]; dup {
				continue
			}
			seen[row.ID] = struct{}{}
			count.Total++
			if row.IsActive {
				count.Active++
			}
			count.IDs = append(count.IDs, row.ID)
			next = append(next, row.ReferralCode)
		}
		if count.Total == 0 {
			break
		}
		out = append(out, count)
		frontier = next
	}
	return out, nil
}
