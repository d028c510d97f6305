package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"simbot/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecentCloses_AscendingOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var candles []model.Candle
	for i := 0; i < 30; i++ {
		price := 100 + float64(i)
		candles = append(candles, model.Candle{
			Symbol: "BTC-USDT", Interval: "1h", TS: base.Add(time.Duration(i) * time.Hour),
			Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 10,
		})
	}
	if err := s.UpsertCandles(ctx, candles); err != nil {
		t.Fatalf("seed candles: %v", err)
	}

	closes, err := s.RecentCloses(ctx, "BTC-USDT", "1h", 25)
	if err != nil {
		t.Fatalf("recent closes: %v", err)
	}
	if len(closes) != 25 {
		t.Fatalf("expected 25 closes, got %d", len(closes))
	}
	// The 25 most recent, oldest-first: 105..129
	if closes[0] != 105 || closes[24] != 129 {
		t.Errorf("expected window [105..129], got [%v..%v]", closes[0], closes[24])
	}
	for i := 1; i < len(closes); i++ {
		if closes[i] < closes[i-1] {
			t.Fatalf("closes not ascending at %d: %v", i, closes)
		}
	}
}

func TestUpsertCandles_ReplacesDuplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	c := model.Candle{Symbol: "BTC-USDT", Interval: "1h", TS: ts, Open: 1, High: 1, Low: 1, Close: 100}
	if err := s.UpsertCandles(ctx, []model.Candle{c}); err != nil {
		t.Fatal(err)
	}
	c.Close = 200
	if err := s.UpsertCandles(ctx, []model.Candle{c}); err != nil {
		t.Fatal(err)
	}

	closes, err := s.RecentCloses(ctx, "BTC-USDT", "1h", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(closes) != 1 || closes[0] != 200 {
		t.Errorf("expected single replaced close 200, got %v", closes)
	}
}

func testAccount() *model.AccountState {
	return &model.AccountState{
		ID: "acct-1", Symbol: "BTC-USDT", Interval: "1h", Running: true,
		SizingMode: model.SizingFixed, BaseTradeUSD: 6, HoldZonePercent: 10,
		BalanceUSD: 10000,
	}
}

func TestAccount_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	acct := testAccount()
	acct.LastEvalBucket = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(ctx, "acct-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Symbol != "BTC-USDT" || !got.Running || got.SizingMode != model.SizingFixed {
		t.Errorf("unexpected account: %+v", got)
	}
	if !got.LastEvalBucket.Equal(acct.LastEvalBucket) {
		t.Errorf("expected bucket %v, got %v", acct.LastEvalBucket, got.LastEvalBucket)
	}

	running, err := s.RunningAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(running) != 1 {
		t.Fatalf("expected 1 running account, got %d", len(running))
	}
}

func TestUpdateAccount_VersionConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateAccount(ctx, testAccount()); err != nil {
		t.Fatal(err)
	}

	a, _ := s.Get(ctx, "acct-1")
	b, _ := s.Get(ctx, "acct-1")

	a.BalanceUSD = 9000
	if err := s.UpdateAccount(ctx, a); err != nil {
		t.Fatalf("first update should succeed: %v", err)
	}

	// b still holds the old version, so its write must be rejected
	b.BalanceUSD = 8000
	if err := s.UpdateAccount(ctx, b); err != ErrVersionConflict {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := s.Get(ctx, "acct-1")
	if got.BalanceUSD != 9000 {
		t.Errorf("expected first write to win, got balance %v", got.BalanceUSD)
	}
}

func TestCommitTrade_BuyThenSell(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	acct := testAccount()
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	lot := &model.Lot{ID: "lot-1", AccountID: acct.ID, Qty: 0.1, PriceUSD: 100,
		Remaining: 0.1, Status: model.LotOpen, CreatedAt: now}
	buy := &model.TradeRecord{ID: "t-1", AccountID: acct.ID, Symbol: acct.Symbol,
		Type: model.TradeBuy, Qty: 0.1, PriceUSD: 100, VolumeUSD: 10,
		Status: model.TradeOpen, CreatedAt: now}

	acct.BalanceUSD -= 10
	acct.HeldQty = 0.1
	acct.AvgCost = 100
	acct.TotalTrades = 1
	if err := s.CommitTrade(ctx, acct, buy, lot, nil); err != nil {
		t.Fatalf("commit buy: %v", err)
	}

	lots, err := s.OpenLots(ctx, acct.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(lots) != 1 || lots[0].Remaining != 0.1 {
		t.Fatalf("expected one open lot with 0.1 remaining, got %+v", lots)
	}

	// Partial sell: 0.04 consumed, lot stays open
	lots[0].Remaining = 0.06
	sell := &model.TradeRecord{ID: "t-2", AccountID: acct.ID, Symbol: acct.Symbol,
		Type: model.TradeSell, Qty: 0.04, PriceUSD: 110, VolumeUSD: 4.4,
		Status: model.TradeClosed, CostBasisUSD: 100, ProfitUSD: 0.4,
		CreatedAt: now.Add(time.Hour)}
	acct.HeldQty = 0.06
	acct.BalanceUSD += 4.4
	if err := s.CommitTrade(ctx, acct, sell, nil, lots); err != nil {
		t.Fatalf("commit sell: %v", err)
	}

	lots, _ = s.OpenLots(ctx, acct.ID)
	if len(lots) != 1 || math.Abs(lots[0].Remaining-0.06) > 1e-9 {
		t.Fatalf("expected lot with 0.06 remaining, got %+v", lots)
	}

	trades, err := s.RecentTrades(ctx, acct.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	// Newest first
	if trades[0].Type != model.TradeSell || trades[0].ProfitUSD != 0.4 {
		t.Errorf("unexpected newest trade: %+v", trades[0])
	}

	got, _ := s.Get(ctx, acct.ID)
	if math.Abs(got.HeldQty-0.06) > 1e-9 {
		t.Errorf("expected held 0.06, got %v", got.HeldQty)
	}
}

func TestOpenLots_FIFOOrderAndClosedExcluded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	acct := testAccount()
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatal(err)
	}

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id string, offset time.Duration, status model.LotStatus) (*model.Lot, *model.TradeRecord) {
		lot := &model.Lot{ID: id, AccountID: acct.ID, Qty: 0.1, PriceUSD: 100,
			Remaining: 0.1, Status: status, CreatedAt: base.Add(offset)}
		trade := &model.TradeRecord{ID: "t-" + id, AccountID: acct.ID,
			Symbol: acct.Symbol, Type: model.TradeBuy, Qty: 0.1, PriceUSD: 100,
			VolumeUSD: 10, Status: model.TradeOpen, CreatedAt: base.Add(offset)}
		return lot, trade
	}

	// Insert newest first to prove ordering comes from the query
	for _, spec := range []struct {
		id     string
		offset time.Duration
		status model.LotStatus
	}{
		{"lot-c", 2 * time.Hour, model.LotOpen},
		{"lot-a", 0, model.LotOpen},
		{"lot-closed", time.Hour, model.LotClosed},
		{"lot-b", time.Hour, model.LotOpen},
	} {
		lot, trade := mk(spec.id, spec.offset, spec.status)
		if err := s.CommitTrade(ctx, acct, trade, lot, nil); err != nil {
			t.Fatalf("commit %s: %v", spec.id, err)
		}
	}

	lots, err := s.OpenLots(ctx, acct.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(lots) != 3 {
		t.Fatalf("expected 3 open lots, got %d", len(lots))
	}
	if lots[0].ID != "lot-a" || lots[1].ID != "lot-b" || lots[2].ID != "lot-c" {
		t.Errorf("expected oldest-first order a,b,c got %s,%s,%s", lots[0].ID, lots[1].ID, lots[2].ID)
	}
}

func TestActions_InsertAndRewrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := &model.ActionLogEntry{
		ID: "e-1", AccountID: "acct-1", Symbol: "BTC-USDT",
		Action: model.ActionBuy, Reason: "buy: 40.0% of the way to the lower band",
		PriceUSD: 96, VolumeUSD: 8.4,
		Snapshot:  model.IndicatorSnapshot{Upper: 110, Middle: 100, Lower: 90, DistanceRatio: 0.4, Multiplier: 1.4},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Insert(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := s.UpdateAction(ctx, "e-1", model.ActionInsufficientBalance, "balance below trade volume"); err != nil {
		t.Fatalf("update: %v", err)
	}

	entries, err := s.RecentActions(ctx, "acct-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Action != model.ActionInsufficientBalance {
		t.Errorf("expected rewritten action, got %s", entries[0].Action)
	}
	if entries[0].Snapshot.Middle != 100 {
		t.Errorf("snapshot lost on rewrite: %+v", entries[0].Snapshot)
	}

	if err := s.UpdateAction(ctx, "missing", model.ActionHold, ""); err == nil {
		t.Error("expected error for unknown entry id")
	}
}
