package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/growtradenfts/platform/internal/dbtest"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/txlog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestDebitRejectsOverdraftWithoutMutation(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.CreateUser(t, conn, func(u *models.User) { u.Balance = decimal.NewFromInt(5) })
	l := New(conn)

	_, err := l.Debit(context.Background(), user.ID, decimal.NewFromInt(6), txlog.Entry{Kind: models.KindWithdrawal})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	stored := dbtest.Reload(t, conn, user.ID)
	if !stored.Balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("balance changed to %s", stored.Balance)
	}
	_, count, errCount := txlog.New(conn).ListByOwner(context.Background(), user.ID, txlog.Page{})
	if errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no records, got %d", count)
	}
}

func TestCreditAndDebitAppendRecords(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.CreateUser(t, conn, nil)
	l := New(conn)
	ctx := context.Background()

	if _, err := l.Credit(ctx, user.ID, decimal.NewFromInt(10), txlog.Entry{Kind: models.KindActivation}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	updated, err := l.Debit(ctx, user.ID, decimal.NewFromInt(4), txlog.Entry{Kind: models.KindWithdrawal, Status: models.StatusPending})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !updated.Balance.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("balance = %s, want 6", updated.Balance)
	}
	if updated.Version != 2 {
		t.Fatalf("version = %d, want 2", updated.Version)
	}
	rows, total, errList := txlog.New(conn).ListByOwner(ctx, user.ID, txlog.Page{})
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 records, got %d", total)
	}
	if rows[0].Kind != models.KindWithdrawal || rows[0].Status != models.StatusPending {
		t.Fatalf("newest record = %s/%s", rows[0].Kind, rows[0].Status)
	}
}

func TestWithinUserRollsBackOnError(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.CreateUser(t, conn, func(u *models.User) { u.Balance = decimal.NewFromInt(3) })
	l := New(conn)

	boom := errors.New("boom")
	err := l.WithinUser(context.Background(), user.ID, func(tx *gorm.DB, u *models.User) error {
		u.Balance = decimal.NewFromInt(100)
		return boom
	})
	if KindOf(err) != KindStorage {
		t.Fatalf("expected storage kind, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if stored := dbtest.Reload(t, conn, user.ID); !stored.Balance.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("balance changed to %s", stored.Balance)
	}
}

func TestSaveUserDetectsStaleVersion(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.CreateUser(t, conn, nil)

	stale := *user
	if err := SaveUser(conn, user); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := SaveUser(conn, &stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !IsRetryable(ErrConflict) {
		t.Fatalf("conflict should be retryable")
	}
}

func TestWithinUserMissingUser(t *testing.T) {
	conn := dbtest.Open(t)
	err := New(conn).WithinUser(context.Background(), 9999, func(*gorm.DB, *models.User) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestShouldReset(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	base := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		last *time.Time
		now  time.Time
		loc  *time.Location
		want bool
	}{
		{name: "never invested", last: nil, now: base, loc: time.UTC, want: true},
		{name: "same day", last: &base, now: base.Add(30 * time.Minute), loc: time.UTC, want: false},
		{name: "next day utc", last: &base, now: base.Add(2 * time.Hour), loc: time.UTC, want: true},
		{name: "same day in zone", last: &base, now: base.Add(18 * time.Hour), loc: kolkata, want: false},
		{name: "earlier year", last: &base, now: base.AddDate(1, 0, 0), loc: time.UTC, want: true},
	}
	for _, tc := range cases {
		if got := ShouldReset(tc.last, tc.now, tc.loc); got != tc.want {
			t.Fatalf("%s: ShouldReset = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestResetDailyCounterIfNewDay(t *testing.T) {
	yesterday := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	user := &models.User{DailyInvestment: decimal.NewFromInt(40), LastInvestmentDate: &yesterday}

	if ResetDailyCounterIfNewDay(user, yesterday.Add(time.Hour), time.UTC) {
		t.Fatalf("unexpected reset on same day")
	}
	if !ResetDailyCounterIfNewDay(user, yesterday.Add(24*time.Hour), time.UTC) {
		t.Fatalf("expected reset on next day")
	}
	if !user.DailyInvestment.IsZero() {
		t.Fatalf("daily investment = %s", user.DailyInvestment)
	}
}

func TestSinkTotal(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	entries := []models.SinkEntry{
		{Reason: models.SinkMissedBonus, Amount: decimal.NewFromInt(1), SourceUserID: 1, ReferralLevel: 2},
		{Reason: models.SinkUnallocatedBonus, Amount: decimal.NewFromInt(1), SourceUserID: 1, ReferralLevel: 3},
		{Reason: models.SinkUnallocatedBonus, Amount: decimal.NewFromInt(1), SourceUserID: 1, ReferralLevel: 4},
	}
	for _, entry := range entries {
		if err := AppendSink(ctx, conn, entry); err != nil {
			t.Fatalf("append sink: %v", err)
		}
	}
	if err := AppendSink(ctx, conn, models.SinkEntry{Amount: decimal.NewFromInt(1)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing reason, got %v", err)
	}

	totals, err := New(conn).SinkTotal(ctx)
	if err != nil {
		t.Fatalf("sink total: %v", err)
	}
	if !totals.Total.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("total = %s, want 3", totals.Total)
	}
	if !totals.ByReason[models.SinkUnallocatedBonus].Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unallocated = %s, want 2", totals.ByReason[models.SinkUnallocatedBonus])
	}
}

func TestFromStorageClassifiesDuplicates(t *testing.T) {
	err := FromStorage("create", errors.New("UNIQUE constraint failed: users.email"))
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if IsRetryable(err) {
		t.Fatalf("duplicate should not be retryable")
	}
	typed := Errorf(KindBelowMinimum, "too small")
	if FromStorage("x", typed) != error(typed) {
		t.Fatalf("typed errors should pass through")
	}
}

func TestCreditRequiresRecordKind(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.CreateUser(t, conn, nil)
	l := New(conn)
	ctx := context.Background()

	if _, err := l.Credit(ctx, user.ID, decimal.NewFromInt(3), txlog.Entry{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if stored := dbtest.Reload(t, conn, user.ID); !stored.Balance.IsZero() {
		t.Fatalf("balance changed to %s without a record", stored.Balance)
	}
	_, count, errList := txlog.New(conn).ListByOwner(ctx, user.ID, txlog.Page{})
	if errList != nil || count != 0 {
		t.Fatalf("records = %d, err=%v", count, errList)
	}
}
