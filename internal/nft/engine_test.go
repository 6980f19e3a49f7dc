package nft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/growtradenfts/platform/internal/authz"
	"github.com/growtradenfts/platform/internal/dbtest"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/txlog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func trader(balance int64) func(*models.User) {
	return func(u *models.User) {
		u.IsActive = true
		u.Balance = decimal.NewFromInt(balance)
	}
}

func loadBatch(t *testing.T, conn *gorm.DB, number int) models.NFTBatch {
	t.Helper()
	var batch models.NFTBatch
	if err := conn.Where("batch_number = ?", number).First(&batch).Error; err != nil {
		t.Fatalf("load batch %d: %v", number, err)
	}
	return batch
}

func superAdmin(t *testing.T, conn *gorm.DB) authz.Admin {
	t.Helper()
	user := dbtest.CreateUser(t, conn, func(u *models.User) {
		u.Role = models.RoleAdmin
		u.IsSuperAdmin = true
	})
	admin, err := authz.RequireAdmin(user)
	if err != nil {
		t.Fatalf("require admin: %v", err)
	}
	return admin
}

func TestPurchaseDebitsAndRecords(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.CreateUser(t, conn, trader(50))
	e := New(ledger.New(conn))

	res, err := e.Purchase(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if res.NFT.Status != models.NFTStatusHold || res.NFT.Generation != 1 || !res.NFT.SellPrice.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected nft: %+v", res.NFT)
	}
	stored := dbtest.Reload(t, conn, user.ID)
	if !stored.Balance.Equal(decimal.NewFromInt(40)) || !stored.DailyInvestment.Equal(decimal.NewFromInt(10)) || !stored.TotalInvestment.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance=%s daily=%s total=%s", stored.Balance, stored.DailyInvestment, stored.TotalInvestment)
	}
	if stored.LastInvestmentDate == nil {
		t.Fatalf("last investment date not set")
	}
	if batch := loadBatch(t, conn, 1); batch.SoldNFTs != 1 || !batch.IsActive {
		t.Fatalf("batch 1 = %+v", batch)
	}
	rows, _, errList := txlog.New(conn).ListByOwner(context.Background(), user.ID, txlog.Page{}, models.KindNFTPurchase)
	if errList != nil || len(rows) != 1 {
		t.Fatalf("purchase records = %d, %v", len(rows), errList)
	}
}

func TestPurchaseRejections(t *testing.T) {
	conn := dbtest.Open(t)
	e := New(ledger.New(conn))
	ctx := context.Background()

	inactive := dbtest.CreateUser(t, conn, func(u *models.User) { u.Balance = decimal.NewFromInt(50) })
	frozen := dbtest.CreateUser(t, conn, func(u *models.User) {
		trader(50)(u)
		u.IsFrozen = true
	})
	poor := dbtest.CreateUser(t, conn, trader(5))
	today := time.Now().UTC()
	capped := dbtest.CreateUser(t, conn, func(u *models.User) {
		trader(50)(u)
		u.DailyInvestment = decimal.NewFromInt(95)
		u.LastInvestmentDate = &today
	})
	totalCapped := dbtest.CreateUser(t, conn, func(u *models.User) {
		trader(50)(u)
		u.TotalInvestment = decimal.NewFromInt(995)
	})

	cases := []struct {
		name string
		id   uint64
		want error
	}{
		{"inactive", inactive.ID, ledger.ErrTradingDisabled},
		{"frozen", frozen.ID, ledger.ErrTradingDisabled},
		{"insufficient", poor.ID, ledger.ErrInsufficientBalance},
		{"daily limit", capped.ID, ledger.ErrDailyLimitExceeded},
		{"total limit", totalCapped.ID, ledger.ErrTotalLimitExceeded},
	}
	for _, tc := range cases {
		if _, err := e.Purchase(ctx, tc.id); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
	if batch := loadBatch(t, conn, 1); batch.SoldNFTs != 0 {
		t.Fatalf("rejected purchases changed batch: %+v", batch)
	}
}

func TestPurchaseResetsDailyCounterOnNewDay(t *testing.T) {
	conn := dbtest.Open(t)
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	user := dbtest.CreateUser(t, conn, func(u *models.User) {
		trader(50)(u)
		u.DailyInvestment = decimal.NewFromInt(100)
		u.LastInvestmentDate = &yesterday
	})
	if _, err := New(ledger.New(conn)).Purchase(context.Background(), user.ID); err != nil {
		t.Fatalf("purchase after reset: %v", err)
	}
	if stored := dbtest.Reload(t, conn, user.ID); !stored.DailyInvestment.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("daily investment = %s, want 10", stored.DailyInvestment)
	}
}

func TestBatchExhaustionUnlocksNext(t *testing.T) {
	conn := dbtest.Open(t)
	e := New(ledger.New(conn))
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, trader(100))

	for i := 0; i < 3; i++ {
		if _, err := e.Purchase(ctx, user.ID); err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
	}
	if loadBatch(t, conn, 2).IsUnlocked {
		t.Fatalf("batch 2 unlocked before batch 1 sold out")
	}
	res, err := e.Purchase(ctx, user.ID)
	if err != nil {
		t.Fatalf("fourth purchase: %v", err)
	}
	if res.UnlockedBatch == nil || res.UnlockedBatch.BatchNumber != 2 {
		t.Fatalf("expected batch 2 unlocked, got %+v", res.UnlockedBatch)
	}
	first := loadBatch(t, conn, 1)
	if first.IsActive || first.SoldNFTs != first.TotalNFTs {
		t.Fatalf("batch 1 = %+v", first)
	}
	second := loadBatch(t, conn, 2)
	if !second.IsActive || !second.IsUnlocked {
		t.Fatalf("batch 2 = %+v", second)
	}
	if loadBatch(t, conn, 3).IsUnlocked {
		t.Fatalf("batch 3 must stay locked")
	}

	next, err := e.Purchase(ctx, user.ID)
	if err != nil {
		t.Fatalf("purchase from batch 2: %v", err)
	}
	if next.NFT.BatchNumber != 2 {
		t.Fatalf("nft batch = %d, want 2", next.NFT.BatchNumber)
	}
}

func TestPurchaseWithoutBatch(t *testing.T) {
	conn := dbtest.Open(t)
	if err := conn.Model(&models.NFTBatch{}).Where("1 = 1").Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	user := dbtest.CreateUser(t, conn, trader(50))
	if _, err := New(ledger.New(conn)).Purchase(context.Background(), user.ID); !errors.Is(err, ledger.ErrNoBatchAvailable) {
		t.Fatalf("expected no batch, got %v", err)
	}
	if stored := dbtest.Reload(t, conn, user.ID); !stored.Balance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("balance changed to %s", stored.Balance)
	}
}

func TestSellSplitsProceedsAndMintsChildren(t *testing.T) {
	conn := dbtest.Open(t)
	e := New(ledger.New(conn))
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, trader(50))

	first, err := e.Purchase(ctx, user.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if _, err := e.Sell(ctx, user.ID, first.NFT.NFTID); !errors.Is(err, ledger.ErrCannotSellLastAsset) {
		t.Fatalf("expected last asset rejection, got %v", err)
	}
	if _, err := e.Purchase(ctx, user.ID); err != nil {
		t.Fatalf("second purchase: %v", err)
	}

	sale, err := e.Sell(ctx, user.ID, first.NFT.NFTID)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if !sale.Profit.Equal(decimal.NewFromInt(8)) || !sale.Platform.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("profit=%s platform=%s", sale.Profit, sale.Platform)
	}
	if len(sale.Minted) != 2 {
		t.Fatalf("minted %d NFTs, want 2", len(sale.Minted))
	}
	var locked, listed int
	for _, child := range sale.Minted {
		if child.Generation != 2 || child.BatchNumber != 2 || !child.BuyPrice.Equal(decimal.NewFromInt(10)) || !child.SellPrice.Equal(decimal.NewFromInt(20)) {
			t.Fatalf("unexpected child: %+v", child)
		}
		if child.ParentNFTID == nil || *child.ParentNFTID != first.NFT.NFTID {
			t.Fatalf("child parent = %v", child.ParentNFTID)
		}
		switch child.Status {
		case models.NFTStatusLocked:
			locked++
			if !child.IsLocked {
				t.Fatalf("locked child without lock flag")
			}
		case models.NFTStatusListed:
			listed++
		}
	}
	if locked != 1 || listed != 1 {
		t.Fatalf("locked=%d listed=%d", locked, listed)
	}

	stored := dbtest.Reload(t, conn, user.ID)
	if !stored.Balance.Equal(decimal.NewFromInt(38)) || !stored.TotalEarnings.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("balance=%s earnings=%s", stored.Balance, stored.TotalEarnings)
	}
	if _, err := e.Sell(ctx, user.ID, first.NFT.NFTID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected sold NFT to be unavailable, got %v", err)
	}

	_, stats, err := e.MyNFTs(ctx, user.ID)
	if err != nil {
		t.Fatalf("my nfts: %v", err)
	}
	if stats.Total != 4 || stats.Holding != 1 || stats.Locked != 1 || stats.Listed != 1 || stats.Sold != 1 || !stats.TotalProfit.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("stats = %+v", stats)
	}

	sink, err := ledger.New(conn).SinkTotal(ctx)
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	if !sink.ByReason[models.SinkResaleShare].Equal(decimal.NewFromInt(12)) {
		t.Fatalf("resale sink = %s", sink.ByReason[models.SinkResaleShare])
	}
}

func TestSellRequiresTrading(t *testing.T) {
	conn := dbtest.Open(t)
	e := New(ledger.New(conn))
	ctx := context.Background()
	user := dbtest.CreateUser(t, conn, trader(50))
	res, err := e.Purchase(ctx, user.ID)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if errUpdate := conn.Model(&models.User{}).Where("id = ?", user.ID).Update("can_trade", false).Error; errUpdate != nil {
		t.Fatalf("disable trading: %v", errUpdate)
	}
	if _, err := e.Sell(ctx, user.ID, res.NFT.NFTID); !errors.Is(err, ledger.ErrTradingDisabled) {
		t.Fatalf("expected trading disabled, got %v", err)
	}
}

func TestMarketplaceShowsListedInActiveBatch(t *testing.T) {
	conn := dbtest.Open(t)
	e := New(ledger.New(conn))
	ctx := context.Background()
	owner := dbtest.CreateUser(t, conn, nil)
	now := time.Now().UTC()
	for i := 0; i < 6; i++ {
		item := models.NFT{
			NFTID:       "listed-" + string(rune('a'+i)),
			UserID:      owner.ID,
			BatchNumber: 1,
			BuyPrice:    decimal.NewFromInt(10),
			SellPrice:   decimal.NewFromInt(20),
			Status:      models.NFTStatusListed,
			Generation:  2,
			BuyDate:     now,
		}
		if err := conn.Omit("User").Create(&item).Error; err != nil {
			t.Fatalf("seed nft: %v", err)
		}
	}
	market, err := e.Marketplace(ctx)
	if err != nil {
		t.Fatalf("marketplace: %v", err)
	}
	if market.Batch == nil || market.Batch.BatchNumber != 1 {
		t.Fatalf("batch = %+v", market.Batch)
	}
	if len(market.NFTs) != 4 {
		t.Fatalf("listed = %d, want 4", len(market.NFTs))
	}
}

func TestAdminBatchOperations(t *testing.T) {
	conn := dbtest.Open(t)
	e := New(ledger.New(conn))
	ctx := context.Background()
	admin := superAdmin(t, conn)

	if _, err := e.CreateBatch(ctx, authz.Admin{}, 4, decimal.Zero); !errors.Is(err, ledger.ErrAdminRequired) {
		t.Fatalf("zero capability accepted: %v", err)
	}
	created, err := e.CreateBatch(ctx, admin, 0, decimal.Zero)
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if created.BatchNumber != 6 || created.TotalNFTs != 4 || !created.BasePrice.Equal(decimal.NewFromInt(10)) || created.IsUnlocked {
		t.Fatalf("created = %+v", created)
	}

	unlocked, err := e.ForceUnlock(ctx, admin, 3)
	if err != nil {
		t.Fatalf("force unlock: %v", err)
	}
	if !unlocked.IsActive || !unlocked.IsUnlocked {
		t.Fatalf("unlocked = %+v", unlocked)
	}
	if loadBatch(t, conn, 1).IsActive {
		t.Fatalf("batch 1 should be deactivated")
	}
	if _, err := e.ForceUnlock(ctx, admin, 99); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	batches, err := e.ListBatches(ctx, admin)
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	active := 0
	for _, b := range batches {
		if b.IsActive {
			active++
		}
	}
	if len(batches) != 6 || active != 1 {
		t.Fatalf("batches=%d active=%d", len(batches), active)
	}
}

func TestConcurrentPurchasesNeverOversellBatches(t *testing.T) {
	conn := dbtest.Open(t)
	e := New(ledger.New(conn))
	ctx := context.Background()

	const buyers, attempts = 10, 3
	users := make([]*models.User, buyers)
	for i := range users {
		users[i] = dbtest.CreateUser(t, conn, trader(100))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		bought  int
		soldOut int
		other   []error
	)
	for _, u := range users {
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(id uint64) {
				defer wg.Done()
				_, err := e.Purchase(ctx, id)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					bought++
				case errors.Is(err, ledger.ErrNoBatchAvailable):
					soldOut++
				default:
					other = append(other, err)
				}
			}(u.ID)
		}
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected purchase errors: %v", other)
	}
	var batches []models.NFTBatch
	if err := conn.Order("batch_number ASC").Find(&batches).Error; err != nil {
		t.Fatalf("list batches: %v", err)
	}
	capacity := 0
	for _, b := range batches {
		capacity += b.TotalNFTs
		var minted int64
		if err := conn.Model(&models.NFT{}).Where("batch_number = ?", b.BatchNumber).Count(&minted).Error; err != nil {
			t.Fatalf("count batch %d: %v", b.BatchNumber, err)
		}
		if b.SoldNFTs > b.TotalNFTs || int(minted) != b.SoldNFTs {
			t.Fatalf("batch %d sold=%d minted=%d capacity=%d", b.BatchNumber, b.SoldNFTs, minted, b.TotalNFTs)
		}
	}
	if bought != capacity || soldOut != buyers*attempts-capacity {
		t.Fatalf("bought=%d soldOut=%d capacity=%d", bought, soldOut, capacity)
	}

	total := decimal.Zero
	for _, u := range users {
		total = total.Add(dbtest.Reload(t, conn, u.ID).Balance)
	}
	want := decimal.NewFromInt(int64(buyers * 100)).Sub(decimal.NewFromInt(int64(bought * 10)))
	if !total.Equal(want) {
		t.Fatalf("total balance = %s, want %s", total, want)
	}
}
