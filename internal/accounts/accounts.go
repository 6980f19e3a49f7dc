// Package accounts registers members, signs them in and applies admin
// account switches.
package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/plans"
	"github.com/growtradenfts/platform/internal/referral"
	"github.com/growtradenfts/platform/internal/security"
	internalsettings "github.com/growtradenfts/platform/internal/settings"
	"github.com/growtradenfts/platform/internal/wallet"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	referralCodeAttempts = 8
	totpIssuer           = "GrowTradeNFTs"
)

// TokenConfig controls session tokens.
type TokenConfig struct {
	Secret string
	Expiry time.Duration
}

// Service owns the account lifecycle.
type Service struct {
	ledger *ledger.Ledger
	graph  *referral.Graph
	tokens TokenConfig
}

// New constructs a Service.
func New(l *ledger.Ledger, g *referral.Graph, tokens TokenConfig) *Service {
	return &Service{ledger: l, graph: g, tokens: tokens}
}

// Registration carries sign-up input.
type Registration struct {
	Name          string
	Email         string
	Mobile        string
	Password      string
	WalletAddress string
	ReferralCode  string
}

// Session is returned by a successful sign in.
type Session struct {
	User            *models.User
	Token           string
	NeedsActivation bool
}

// Register creates an inactive member on the basic plan and links it under
// the owner of the referral code, if one is given.
func (s *Service) Register(ctx context.Context, in Registration) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, ledger.Errorf(ledger.KindInvalidInput, "name required")
	}
	if _, errParse := mail.ParseAddress(email); errParse != nil || email == "" {
		return nil, ledger.Errorf(ledger.KindInvalidInput, "invalid email")
	}
	if len(in.Password) < 6 {
		return nil, ledger.Errorf(ledger.KindInvalidInput, "password must be at least 6 characters")
	}
	address, errAddr := wallet.NormalizeAddress(in.WalletAddress)
	if errAddr != nil {
		return nil, errAddr
	}
	hash, errHash := security.HashPassword(in.Password)
	if errHash != nil {
		return nil, ledger.FromStorage("accounts: hash password", errHash)
	}

	basic, _ := plans.Lookup(plans.Basic)
	var out *models.User
	errTx := s.ledger.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if errCount := tx.Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; errCount != nil {
			return ledger.FromStorage("accounts: check email", errCount)
		}
		if existing > 0 {
			return ledger.Errorf(ledger.KindDuplicate, "email already registered")
		}
		code, errCode := uniqueReferralCode(tx)
		if errCode != nil {
			return errCode
		}
		user := &models.User{
			Name:          name,
			Email:         email,
			Mobile:        strings.TrimSpace(in.Mobile),
			Password:      hash,
			WalletAddress: address,
			ReferralCode:  code,
			Role:          models.RoleUser,
			CanTrade:      true,
			CanWithdraw:   true,
			CurrentPlan:   basic.Name,
			DailyLimit:    basic.DailyLimit,
			TotalLimit:    basic.TotalLimit,
			LevelEarnings: datatypes.NewJSONType(zeroLevels()),
		}
		if errCreate := tx.Create(user).Error; errCreate != nil {
			return ledger.FromStorage("accounts: create user", errCreate)
		}
		sponsor, errRef := s.graph.WithTx(tx).RecordReferral(ctx, user.ID, in.ReferralCode)
		if errRef != nil {
			return errRef
		}
		if sponsor != nil {
			sponsorCode := sponsor.ReferralCode
			user.ReferredBy = &sponsorCode
		}
		out = user
		return nil
	})
	if errTx != nil {
		return nil, ledger.FromStorage("accounts: register", errTx)
	}
	log.WithFields(log.Fields{"user_id": out.ID, "referral_code": out.ReferralCode}).Info("user registered")
	return out, nil
}

func uniqueReferralCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, errGen := security.GenerateRandomString(internalsettings.ReferralCodeLength)
		if errGen != nil {
			return "", ledger.FromStorage("accounts: generate referral code", errGen)
		}
		var taken int64
		if errCount := tx.Model(&models.User{}).Where("referral_code = ?", code).Count(&taken).Error; errCount != nil {
			return "", ledger.FromStorage("accounts: check referral code", errCount)
		}
		if taken == 0 {
			return code, nil
		}
	}
	return "", ledger.Errorf(ledger.KindConflict, "could not allocate a referral code")
}

func zeroLevels() []decimal.Decimal {
	out := make([]decimal.Decimal, internalsettings.BonusLevels)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}

// Authenticate checks credentials and issues a member token. Inactive users
// may sign in; the session reports that activation is pending.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	user, errFind := s.findByEmail(ctx, email)
	if errFind != nil {
		return nil, errFind
	}
	if !security.CheckPassword(user.Password, password) {
		return nil, ledger.ErrUnauthorized
	}
	if user.IsFrozen {
		return nil, ledger.Errorf(ledger.KindUnauthorized, "account is frozen")
	}
	token, errToken := security.GenerateUserToken(s.tokens.Secret, user.ID, s.tokens.Expiry)
	if errToken != nil {
		return nil, ledger.FromStorage("accounts: issue token", errToken)
	}
	return &Session{User: user, Token: token, NeedsActivation: !user.IsActive}, nil
}

// AdminLogin signs an admin in. When the admin enrolled a second factor the
// TOTP code must match.
func (s *Service) AdminLogin(ctx context.Context, email, password, otp string) (*Session, error) {
	user, errFind := s.findByEmail(ctx, email)
	if errFind != nil {
		return nil, errFind
	}
	if !security.CheckPassword(user.Password, password) || !user.IsAdmin() || user.IsFrozen {
		return nil, ledger.ErrUnauthorized
	}
	if user.TOTPSecret != "" && !security.ValidateTOTP(user.TOTPSecret, otp) {
		return nil, ledger.Errorf(ledger.KindUnauthorized, "invalid one-time code")
	}
	token, errToken := security.GenerateAdminToken(s.tokens.Secret, user.ID, s.tokens.Expiry)
	if errToken != nil {
		return nil, ledger.FromStorage("accounts: issue admin token", errToken)
	}
	log.WithField("admin_id", user.ID).Info("admin signed in")
	return &Session{User: user, Token: token}, nil
}

// EnrollTOTP stores a fresh TOTP secret for an admin and returns the
// provisioning URL.
func (s *Service) EnrollTOTP(ctx context.Context, userID uint64) (string, error) {
	var url string
	errTx := s.ledger.WithinUser(ctx, userID, func(_ *gorm.DB, user *models.User) error {
		if !user.IsAdmin() {
			return ledger.ErrAdminRequired
		}
		secret, provisioning, errGen := security.GenerateTOTPSecret(totpIssuer, user.Email)
		if errGen != nil {
			return ledger.FromStorage("accounts: generate totp", errGen)
		}
		user.TOTPSecret = secret
		url = provisioning
		return nil
	})
	if errTx != nil {
		return "", errTx
	}
	return url, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, userID uint64) (*models.User, error) {
	var user models.User
	if errFind := s.ledger.DB().WithContext(ctx).Where("id = ?", userID).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ledger.Errorf(ledger.KindNotFound, "user %d not found", userID)
		}
		return nil, ledger.FromStorage("accounts: get user", errFind)
	}
	return &user, nil
}

// Team lists the user's direct referrals.
func (s *Service) Team(ctx context.Context, userID uint64) ([]models.User, error) {
	user, errGet := s.Get(ctx, userID)
	if errGet != nil {
		return nil, errGet
	}
	return s.graph.DirectReferrals(ctx, user)
}

func (s *Service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ledger.ErrUnauthorized
	}
	var user models.User
	if errFind := s.ledger.DB().WithContext(ctx).Where("email = ?", email).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrUnauthorized
		}
		return nil, ledger.FromStorage("accounts: find user", errFind)
	}
	return &user, nil
}
