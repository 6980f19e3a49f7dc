package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/growtradenfts/platform/internal/authz"
	"github.com/growtradenfts/platform/internal/dbtest"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const address = "0x52908400098527886e0f7030069857d2e4169ee7"

func funded(balance int64) func(*models.User) {
	return func(u *models.User) {
		u.IsActive = true
		u.Balance = decimal.NewFromInt(balance)
	}
}

func admin(t *testing.T, conn *gorm.DB) authz.Admin {
	t.Helper()
	user := dbtest.CreateUser(t, conn, func(u *models.User) {
		u.Role = models.RoleAdmin
		u.IsSuperAdmin = true
	})
	capability, err := authz.RequireAdmin(user)
	if err != nil {
		t.Fatalf("require admin: %v", err)
	}
	return capability
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress(" " + address + " ")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "0x52908400098527886E0F7030069857D2E4169EE7" {
		t.Fatalf("checksum = %s", got)
	}
	for _, bad := range []string{"", "52908400098527886e0f7030069857d2e4169ee7", "0x1234", "0xZZ908400098527886e0f7030069857d2e4169ee7"} {
		if _, err := NormalizeAddress(bad); !errors.Is(err, ledger.ErrInvalidAddress) {
			t.Fatalf("%q: expected invalid address, got %v", bad, err)
		}
	}
}

func TestWithdrawDebitsAndRecordsPending(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.CreateUser(t, conn, funded(20))
	s := New(ledger.New(conn))

	row, updated, err := s.Withdraw(context.Background(), user.ID, decimal.NewFromInt(7), address)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if row.Status != models.StatusPending || row.Kind != models.KindWithdrawal {
		t.Fatalf("record = %s/%s", row.Kind, row.Status)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(13)) {
		t.Fatalf("balance = %s, want 13", updated.Balance)
	}
}

func TestWithdrawRejections(t *testing.T) {
	conn := dbtest.Open(t)
	s := New(ledger.New(conn))
	ctx := context.Background()
	inactive := dbtest.CreateUser(t, conn, func(u *models.User) { u.Balance = decimal.NewFromInt(50) })
	rich := dbtest.CreateUser(t, conn, funded(50))
	poor := dbtest.CreateUser(t, conn, funded(6))

	cases := []struct {
		name   string
		id     uint64
		amount int64
		addr   string
		want   error
	}{
		{"inactive", inactive.ID, 10, address, ledger.ErrWithdrawalDisabled},
		{"bad address", rich.ID, 10, "0xnope", ledger.ErrInvalidAddress},
		{"below minimum", rich.ID, 4, address, ledger.ErrBelowMinimum},
		{"insufficient", poor.ID, 7, address, ledger.ErrInsufficientBalance},
	}
	for _, tc := range cases {
		if _, _, err := s.Withdraw(ctx, tc.id, decimal.NewFromInt(tc.amount), tc.addr); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
	if stored := dbtest.Reload(t, conn, poor.ID); !stored.Balance.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("balance changed to %s", stored.Balance)
	}
}

func TestSettleFailedWithdrawalRefunds(t *testing.T) {
	conn := dbtest.Open(t)
	s := New(ledger.New(conn))
	ctx := context.Background()
	op := admin(t, conn)
	user := dbtest.CreateUser(t, conn, funded(20))

	row, _, err := s.Withdraw(ctx, user.ID, decimal.NewFromInt(10), address)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := s.SettleWithdrawal(ctx, authz.Admin{}, row.ID, models.StatusFailed); !errors.Is(err, ledger.ErrAdminRequired) {
		t.Fatalf("zero capability accepted: %v", err)
	}
	settled, err := s.SettleWithdrawal(ctx, op, row.ID, models.StatusFailed)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if settled.Status != models.StatusFailed {
		t.Fatalf("status = %s", settled.Status)
	}
	if stored := dbtest.Reload(t, conn, user.ID); !stored.Balance.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("balance after refund = %s, want 20", stored.Balance)
	}
	if _, err := s.SettleWithdrawal(ctx, op, row.ID, models.StatusCompleted); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected resettle rejection, got %v", err)
	}
	if _, err := s.SettleWithdrawal(ctx, op, row.ID+50, models.StatusCompleted); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSettleCompletedKeepsDebit(t *testing.T) {
	conn := dbtest.Open(t)
	s := New(ledger.New(conn))
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, funded(20))
	row, _, err := s.Withdraw(ctx, user.ID, decimal.NewFromInt(5), address)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := s.SettleWithdrawal(ctx, admin(t, conn), row.ID, models.StatusCompleted); err != nil {
		t.Fatalf("settle: %v", err)
	}
	balance, err := s.Balance(ctx, user.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Balance.Equal(decimal.NewFromInt(15)) || !balance.IsActive {
		t.Fatalf("balance = %+v", balance)
	}
}
