package ledger

import (
	"math"
	"testing"
	"time"

	"simbot/internal/model"
)

const eps = 1e-9

func newAccount(balance float64) *model.AccountState {
	return &model.AccountState{
		ID:         "acct-1",
		Symbol:     "BTC-USDT",
		BalanceUSD: balance,
	}
}

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Errorf("%s: expected %v, got %v", name, want, got)
	}
}

func TestApplyBuy(t *testing.T) {
	acct := newAccount(1000)

	lot, err := ApplyBuy(acct, nil, 100, 10, time.Now())
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	approx(t, "lot qty", lot.Qty, 0.1)
	approx(t, "lot remaining", lot.Remaining, 0.1)
	if lot.Status != model.LotOpen {
		t.Errorf("expected open lot, got %s", lot.Status)
	}
	approx(t, "balance", acct.BalanceUSD, 990)
	approx(t, "held", acct.HeldQty, 0.1)
	approx(t, "avg cost", acct.AvgCost, 100)
	if acct.TotalTrades != 1 {
		t.Errorf("expected 1 trade, got %d", acct.TotalTrades)
	}
}

func TestApplyBuy_WeightedAverageAcrossLots(t *testing.T) {
	acct := newAccount(1000)

	lot1, err := ApplyBuy(acct, nil, 100, 10, time.Now())
	if err != nil {
		t.Fatalf("buy 1 failed: %v", err)
	}
	_, err = ApplyBuy(acct, []*model.Lot{lot1}, 120, 12, time.Now())
	if err != nil {
		t.Fatalf("buy 2 failed: %v", err)
	}

	// 0.1 @ 100 + 0.1 @ 120 → avg 110
	approx(t, "held", acct.HeldQty, 0.2)
	approx(t, "avg cost", acct.AvgCost, 110)
	approx(t, "balance", acct.BalanceUSD, 978)
}

func TestApplyBuy_InsufficientBalance(t *testing.T) {
	acct := newAccount(5)

	if _, err := ApplyBuy(acct, nil, 100, 10, time.Now()); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	approx(t, "balance untouched", acct.BalanceUSD, 5)
}

func TestApplySell_PartialLot(t *testing.T) {
	acct := newAccount(1000)
	lot, _ := ApplyBuy(acct, nil, 100, 10, time.Now()) // 0.1 @ 100
	lots := []*model.Lot{lot}

	// Sell 0.04 at 110
	res, err := ApplySell(acct, lots, 110, 0.04*110)
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	approx(t, "sold qty", res.Qty, 0.04)
	approx(t, "cost basis", res.CostBasisUSD, 100)
	approx(t, "profit", res.ProfitUSD, (110-100)*0.04)
	approx(t, "lot remaining", lot.Remaining, 0.06)
	if lot.Status != model.LotOpen {
		t.Errorf("expected lot still open, got %s", lot.Status)
	}
	approx(t, "held", acct.HeldQty, 0.06)
	approx(t, "avg cost unchanged", acct.AvgCost, 100)
	if acct.WinningTrades != 1 {
		t.Errorf("expected 1 winning trade, got %d", acct.WinningTrades)
	}
}

func TestApplySell_AcrossTwoLots(t *testing.T) {
	acct := newAccount(1000)
	lot1, _ := ApplyBuy(acct, nil, 100, 10, time.Now())                  // 0.1 @ 100
	lot2, _ := ApplyBuy(acct, []*model.Lot{lot1}, 120, 12, time.Now()) // 0.1 @ 120
	lots := []*model.Lot{lot1, lot2}

	// Sell 0.15 at 130: consumes all of lot1 plus 0.05 of lot2
	sellPrice := 130.0
	res, err := ApplySell(acct, lots, sellPrice, 0.15*sellPrice)
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	approx(t, "sold qty", res.Qty, 0.15)
	// cost basis = (0.1*100 + 0.05*120) / 0.15 = 16/0.15
	wantBasis := 16.0 / 0.15
	approx(t, "cost basis", res.CostBasisUSD, wantBasis)
	approx(t, "profit", res.ProfitUSD, (sellPrice-wantBasis)*0.15)

	if lot1.Status != model.LotClosed || lot1.Remaining != 0 {
		t.Errorf("expected lot1 closed with 0 remaining, got %s %v", lot1.Status, lot1.Remaining)
	}
	approx(t, "lot2 remaining", lot2.Remaining, 0.05)
	approx(t, "held", acct.HeldQty, 0.05)
	approx(t, "avg cost from surviving lot", acct.AvgCost, 120)
}

func TestApplySell_CappedAtHeldQuantity(t *testing.T) {
	acct := newAccount(1000)
	lot, _ := ApplyBuy(acct, nil, 100, 10, time.Now()) // 0.1 held

	// Ask for far more than held: disposal capped at 0.1
	res, err := ApplySell(acct, []*model.Lot{lot}, 100, 500)
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	approx(t, "sold qty", res.Qty, 0.1)
	approx(t, "held", acct.HeldQty, 0)
	approx(t, "avg cost reset", acct.AvgCost, 0)
	if lot.Status != model.LotClosed {
		t.Errorf("expected lot closed, got %s", lot.Status)
	}
}

func TestApplySell_NoPosition(t *testing.T) {
	acct := newAccount(1000)

	if _, err := ApplySell(acct, nil, 100, 10); err != ErrNoPosition {
		t.Fatalf("expected ErrNoPosition, got %v", err)
	}
}

func TestApplySell_LosingTradeDoesNotCountAsWin(t *testing.T) {
	acct := newAccount(1000)
	lot, _ := ApplyBuy(acct, nil, 100, 10, time.Now())

	res, err := ApplySell(acct, []*model.Lot{lot}, 90, 0.05*90)
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if res.ProfitUSD >= 0 {
		t.Fatalf("expected a loss, got %v", res.ProfitUSD)
	}
	if acct.WinningTrades != 0 {
		t.Errorf("expected 0 winning trades, got %d", acct.WinningTrades)
	}
	approx(t, "cumulative profit", acct.TotalProfitUSD, res.ProfitUSD)
}

func TestLedger_OpenLotsMatchHeldQuantity(t *testing.T) {
	acct := newAccount(10000)
	var lots []*model.Lot

	buy := func(price, volume float64) {
		lot, err := ApplyBuy(acct, lots, price, volume, time.Now())
		if err != nil {
			t.Fatalf("buy failed: %v", err)
		}
		lots = append(lots, lot)
	}

	buy(100, 10)
	buy(110, 8)
	if _, err := ApplySell(acct, lots, 120, 9); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	buy(95, 6)
	if _, err := ApplySell(acct, lots, 105, 4); err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	var open float64
	for _, lot := range lots {
		if lot.Status == model.LotOpen {
			open += lot.Remaining
		}
	}
	approx(t, "sum of open lot remaining == held", open, acct.HeldQty)
}
