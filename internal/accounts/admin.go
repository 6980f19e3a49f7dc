package accounts

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/growtradenfts/platform/internal/authz"
	dbutil "github.com/growtradenfts/platform/internal/db"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/security"
	"github.com/growtradenfts/platform/internal/txlog"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ToggleFreeze flips the frozen flag of userID.
func (s *Service) ToggleFreeze(ctx context.Context, admin authz.Admin, userID uint64) (*models.User, error) {
	if userID == admin.UserID() {
		return nil, ledger.Errorf(ledger.KindInvalidInput, "cannot freeze your own account")
	}
	return s.updateFlags(ctx, admin, userID, "freeze", func(u *models.User) { u.IsFrozen = !u.IsFrozen })
}

// SetCanTrade switches trading for userID.
func (s *Service) SetCanTrade(ctx context.Context, admin authz.Admin, userID uint64, allowed bool) (*models.User, error) {
	return s.updateFlags(ctx, admin, userID, "trading", func(u *models.User) { u.CanTrade = allowed })
}

// SetCanWithdraw switches withdrawals for userID.
func (s *Service) SetCanWithdraw(ctx context.Context, admin authz.Admin, userID uint64, allowed bool) (*models.User, error) {
	return s.updateFlags(ctx, admin, userID, "withdrawal", func(u *models.User) { u.CanWithdraw = allowed })
}

func (s *Service) updateFlags(ctx context.Context, admin authz.Admin, userID uint64, what string, apply func(*models.User)) (*models.User, error) {
	if errAdmin := admin.Check(); errAdmin != nil {
		return nil, errAdmin
	}
	var out *models.User
	errTx := s.ledger.WithinUser(ctx, userID, func(_ *gorm.DB, user *models.User) error {
		apply(user)
		out = user
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithFields(log.Fields{
		"admin_id":     admin.UserID(),
		"user_id":      userID,
		"is_frozen":    out.IsFrozen,
		"can_trade":    out.CanTrade,
		"can_withdraw": out.CanWithdraw,
	}).Infof("user %s switch updated", what)
	return out, nil
}

// UserStatus filters ListUsers.
type UserStatus string

// User status filters.
const (
	StatusAll      UserStatus = ""
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
	StatusFrozen   UserStatus = "frozen"
)

// UserFilter narrows ListUsers.
type UserFilter struct {
	Search   string
	Status   UserStatus
	Page     int
	PageSize int
}

// UserPage is one page of users.
type UserPage struct {
	Users    []models.User
	Total    int64
	Page     int
	PageSize int
}

// ListUsers pages through users, newest first. Search matches name, email,
// referral code or id.
func (s *Service) ListUsers(ctx context.Context, admin authz.Admin, filter UserFilter) (*UserPage, error) {
	if errAdmin := admin.Check(); errAdmin != nil {
		return nil, errAdmin
	}
	conn := s.ledger.DB()
	q := conn.WithContext(ctx).Model(&models.User{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := dbutil.NormalizeLikePattern(conn, "%"+search+"%")
		expr := dbutil.CaseInsensitiveLikeExpr(conn, "name") + " OR " +
			dbutil.CaseInsensitiveLikeExpr(conn, "email") + " OR " +
			dbutil.CaseInsensitiveLikeExpr(conn, "referral_code")
		args := []any{pattern, pattern, pattern}
		if id, errParse := strconv.ParseUint(search, 10, 64); errParse == nil {
			expr += " OR id = ?"
			args = append(args, id)
		}
		q = q.Where(expr, args...)
	}
	switch filter.Status {
	case StatusActive:
		q = q.Where("is_active = ? AND is_frozen = ?", true, false)
	case StatusInactive:
		q = q.Where("is_active = ?", false)
	case StatusFrozen:
		q = q.Where("is_frozen = ?", true)
	case StatusAll:
	default:
		return nil, ledger.Errorf(ledger.KindInvalidInput, "unknown status %q", filter.Status)
	}

	var total int64
	if errCount := q.Count(&total).Error; errCount != nil {
		return nil, ledger.FromStorage("accounts: count users", errCount)
	}
	page := txlog.Page{Page: filter.Page, PageSize: filter.PageSize}.Normalize()
	var rows []models.User
	if errFind := q.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; errFind != nil {
		return nil, ledger.FromStorage("accounts: list users", errFind)
	}
	return &UserPage{Users: rows, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

// AdminAccount carries bootstrap admin input.
type AdminAccount struct {
	Name          string
	Email         string
	Password      string
	WalletAddress string
}

// CreateAdmin inserts an active super admin. An existing member with the
// same email is promoted instead.
func (s *Service) CreateAdmin(ctx context.Context, in AdminAccount) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	existing, errFind := s.findByEmail(ctx, email)
	if errFind == nil {
		var out *models.User
		errTx := s.ledger.WithinUser(ctx, existing.ID, func(_ *gorm.DB, user *models.User) error {
			user.Role = models.RoleAdmin
			user.IsSuperAdmin = true
			if in.Password != "" {
				hash, errHash := security.HashPassword(in.Password)
				if errHash != nil {
					return ledger.FromStorage("accounts: hash password", errHash)
				}
				user.Password = hash
			}
			out = user
			return nil
		})
		if errTx != nil {
			return nil, errTx
		}
		log.WithField("user_id", out.ID).Info("user promoted to admin")
		return out, nil
	}
	if !errors.Is(errFind, ledger.ErrUnauthorized) {
		return nil, errFind
	}

	name := in.Name
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	user, errRegister := s.Register(ctx, Registration{
		Name:          name,
		Email:         email,
		Password:      in.Password,
		WalletAddress: in.WalletAddress,
	})
	if errRegister != nil {
		return nil, errRegister
	}
	var out *models.User
	errTx := s.ledger.WithinUser(ctx, user.ID, func(_ *gorm.DB, u *models.User) error {
		u.Role = models.RoleAdmin
		u.IsSuperAdmin = true
		u.IsActive = true
		out = u
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	log.WithField("user_id", out.ID).Info("admin account created")
	return out, nil
}

// HasAdmin reports whether any admin account exists.
func (s *Service) HasAdmin(ctx context.Context) (bool, error) {
	var count int64
	if errCount := s.ledger.DB().WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).Count(&count).Error; errCount != nil {
		return false, ledger.FromStorage("accounts: count admins", errCount)
	}
	return count > 0, nil
}
