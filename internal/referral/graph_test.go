package referral

import (
	"context"
	"errors"
	"testing"

	"github.com/growtradenfts/platform/internal/dbtest"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	"gorm.io/gorm"
)

// chain creates n users where user i is sponsored by user i-1.
func chain(t *testing.T, conn *gorm.DB, g *Graph, n int) []*models.User {
	t.Helper()
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u := dbtest.CreateUser(t, conn, nil)
		if i > 0 {
			if _, err := g.RecordReferral(context.Background(), u.ID, users[i-1].ReferralCode); err != nil {
				t.Fatalf("record referral %d: %v", i, err)
			}
			u = dbtest.Reload(t, conn, u.ID)
		}
		users = append(users, u)
	}
	return users
}

func TestRecordReferralLinksAndCounts(t *testing.T) {
	conn := dbtest.Open(t)
	g := New(conn)
	sponsor := dbtest.CreateUser(t, conn, nil)
	newcomer := dbtest.CreateUser(t, conn, nil)

	got, err := g.RecordReferral(context.Background(), newcomer.ID, " "+sponsor.ReferralCode+" ")
	if err != nil {
		t.Fatalf("record referral: %v", err)
	}
	if got.ID != sponsor.ID {
		t.Fatalf("sponsor = %d, want %d", got.ID, sponsor.ID)
	}
	stored := dbtest.Reload(t, conn, newcomer.ID)
	if stored.ReferredBy == nil || *stored.ReferredBy != sponsor.ReferralCode {
		t.Fatalf("referred_by = %v", stored.ReferredBy)
	}
	if dbtest.Reload(t, conn, sponsor.ID).TotalReferrals != 1 {
		t.Fatalf("expected sponsor total_referrals = 1")
	}

	if _, err := g.RecordReferral(context.Background(), newcomer.ID, sponsor.ReferralCode); !errors.Is(err, ledger.ErrInvalidReferralCode) {
		t.Fatalf("expected second link to fail, got %v", err)
	}
}

func TestRecordReferralRejectsUnknownAndEmpty(t *testing.T) {
	conn := dbtest.Open(t)
	g := New(conn)
	user := dbtest.CreateUser(t, conn, nil)

	if sponsor, err := g.RecordReferral(context.Background(), user.ID, ""); err != nil || sponsor != nil {
		t.Fatalf("empty code should be a no-op, got %v %v", sponsor, err)
	}
	if _, err := g.RecordReferral(context.Background(), user.ID, "NOPE00"); !errors.Is(err, ledger.ErrInvalidReferralCode) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	if _, err := g.RecordReferral(context.Background(), user.ID, user.ReferralCode); !errors.Is(err, ledger.ErrInvalidReferralCode) {
		t.Fatalf("expected self referral rejection, got %v", err)
	}
}

func TestRecordReferralRejectsCycle(t *testing.T) {
	conn := dbtest.Open(t)
	g := New(conn)
	users := chain(t, conn, g, 3)

	// Root has no sponsor yet; linking it under its own descendant closes a loop.
	if _, err := g.RecordReferral(context.Background(), users[0].ID, users[2].ReferralCode); !errors.Is(err, ledger.ErrInvalidReferralCode) {
		t.Fatalf("expected cycle rejection, got %v", err)
	}
}

func TestWalkUplineStopsAtCap(t *testing.T) {
	conn := dbtest.Open(t)
	g := New(conn)
	users := chain(t, conn, g, 13)
	leaf := users[len(users)-1]

	w := g.WalkUpline(context.Background(), leaf, 10)
	var levels []int
	for w.Next() {
		levels = append(levels, w.Level())
		want := users[len(users)-1-w.Level()]
		if w.User().ID != want.ID {
			t.Fatalf("level %d = user %d, want %d", w.Level(), w.User().ID, want.ID)
		}
	}
	if w.Err() != nil {
		t.Fatalf("walk: %v", w.Err())
	}
	if len(levels) != 10 {
		t.Fatalf("visited %d levels, want 10", len(levels))
	}
}

func TestWalkUplineStopsAtRoot(t *testing.T) {
	conn := dbtest.Open(t)
	g := New(conn)
	users := chain(t, conn, g, 3)

	w := g.WalkUpline(context.Background(), users[2], 10)
	count := 0
	for w.Next() {
		count++
	}
	if count != 2 {
		t.Fatalf("visited %d levels, want 2", count)
	}
}

func TestTeamLevels(t *testing.T) {
	conn := dbtest.Open(t)
	g := New(conn)
	ctx := context.Background()
	root := dbtest.CreateUser(t, conn, nil)
	a := dbtest.CreateUser(t, conn, func(u *models.User) { u.IsActive = true })
	b := dbtest.CreateUser(t, conn, nil)
	c := dbtest.CreateUser(t, conn, func(u *models.User) { u.IsActive = true })
	for _, link := range []struct {
		child *models.User
		code  string
	}{{a, root.ReferralCode}, {b, root.ReferralCode}, {c, a.ReferralCode}} {
		if _, err := g.RecordReferral(ctx, link.child.ID, link.code); err != nil {
			t.Fatalf("record referral: %v", err)
		}
	}

	levels, err := g.TeamLevels(ctx, root, 10)
	if err != nil {
		t.Fatalf("team levels: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(levels))
	}
	if levels[0].Total != 2 || levels[0].Active != 1 {
		t.Fatalf("level 1 = %+v", levels[0])
	}
	if levels[1].Total != 1 || levels[1].Active != 1 {
		t.Fatalf("level 2 = %+v", levels[1])
	}
	active, err := g.ActiveDirectCount(ctx, root)
	if err != nil || active != 1 {
		t.Fatalf("active direct = %d, %v", active, err)
	}
	direct, err := g.DirectReferrals(ctx, root)
	if err != nil || len(direct) != 2 {
		t.Fatalf("direct referrals = %d, %v", len(direct), err)
	}
}

func TestRecordReferralRollsBackLinkWhenCountFails(t *testing.T) {
	conn := dbtest.Open(t)
	sponsor := dbtest.CreateUser(t, conn, nil)
	newcomer := dbtest.CreateUser(t, conn, nil)

	errWrite := errors.New("counter write rejected")
	if errRegister := conn.Callback().Update().Before("gorm:update").Register("test:reject_counter", func(tx *gorm.DB) {
		if cols, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			if _, hit := cols["total_referrals"]; hit {
				_ = tx.AddError(errWrite)
			}
		}
	}); errRegister != nil {
		t.Fatalf("register callback: %v", errRegister)
	}

	if _, err := New(conn).RecordReferral(context.Background(), newcomer.ID, sponsor.ReferralCode); !errors.Is(err, errWrite) {
		t.Fatalf("expected counter failure, got %v", err)
	}
	if stored := dbtest.Reload(t, conn, newcomer.ID); stored.ReferredBy != nil && *stored.ReferredBy != "" {
		t.Fatalf("sponsor link survived a failed counter update: %q", *stored.ReferredBy)
	}
	if stored := dbtest.Reload(t, conn, sponsor.ID); stored.TotalReferrals != 0 {
		t.Fatalf("total referrals = %d", stored.TotalReferrals)
	}
}
