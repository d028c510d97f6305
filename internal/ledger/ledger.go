// Package ledger implements FIFO lot accounting for simulated positions.
//
// Every BUY appends an open Lot; every SELL consumes open lots
// oldest-first and realizes profit against their cost basis. The ledger
// mutates the account state and lots in memory only; the caller persists
// the account, the lots, and the trade record in one transaction.
package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"simbot/internal/model"
)

var (
	// ErrNoPosition is returned when a SELL is applied with no held
	// quantity. The orchestrator records a NO_POSITION outcome instead of
	// calling the ledger in that case; this guards direct misuse.
	ErrNoPosition = errors.New("ledger: no open position to sell")

	// ErrInsufficientBalance is returned when a BUY exceeds the account
	// balance. The orchestrator checks first and records
	// INSUFFICIENT_BALANCE.
	ErrInsufficientBalance = errors.New("ledger: balance below trade volume")
)

// SellResult describes the effect of a SELL on the ledger.
type SellResult struct {
	Qty          float64      // quantity actually disposed
	CostBasisUSD float64      // per-unit cost basis of the consumed lots
	ProfitUSD    float64      // (price - cost basis) * qty
	Touched      []*model.Lot // lots whose remaining quantity changed
}

// ApplyBuy purchases volumeUSD worth at the given price: it appends a new
// open lot, recomputes held quantity and weighted average cost over all
// open lots, debits the balance, and increments the trade count.
// openLots must be the account's open lots ordered oldest-first.
func ApplyBuy(acct *model.AccountState, openLots []*model.Lot, price, volumeUSD float64, now time.Time) (*model.Lot, error) {
	if price <= 0 || volumeUSD <= 0 {
		return nil, errors.New("ledger: price and volume must be positive")
	}
	if acct.BalanceUSD < volumeUSD {
		return nil, ErrInsufficientBalance
	}

	lot := &model.Lot{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		Qty:       volumeUSD / price,
		PriceUSD:  price,
		Remaining: volumeUSD / price,
		Status:    model.LotOpen,
		CreatedAt: now.UTC(),
	}

	acct.BalanceUSD -= volumeUSD
	acct.TotalTrades++
	recompute(acct, append(openLots, lot))

	return lot, nil
}

// ApplySell disposes up to volumeUSD worth at the given price, consuming
// open lots oldest-first. Fully consumed lots are closed; a partially
// consumed lot keeps its decremented remaining quantity. Realized profit
// is measured against the quantity-weighted cost of the consumed lots.
// openLots must be ordered oldest-first.
func ApplySell(acct *model.AccountState, openLots []*model.Lot, price, volumeUSD float64) (SellResult, error) {
	if price <= 0 || volumeUSD <= 0 {
		return SellResult{}, errors.New("ledger: price and volume must be positive")
	}
	if acct.HeldQty <= 0 {
		return SellResult{}, ErrNoPosition
	}

	desired := volumeUSD / price
	if desired > acct.HeldQty {
		desired = acct.HeldQty
	}

	var (
		res       SellResult
		remaining = desired
		costTotal float64
	)
	for _, lot := range openLots {
		if remaining <= 0 {
			break
		}
		if lot.Status != model.LotOpen || lot.Remaining <= 0 {
			continue
		}

		consumed := lot.Remaining
		if consumed > remaining {
			consumed = remaining
		}

		costTotal += consumed * lot.PriceUSD
		lot.Remaining -= consumed
		remaining -= consumed
		if lot.Remaining <= 0 {
			lot.Remaining = 0
			lot.Status = model.LotClosed
		}
		res.Touched = append(res.Touched, lot)
	}

	res.Qty = desired - remaining
	if res.Qty <= 0 {
		return SellResult{}, ErrNoPosition
	}
	res.CostBasisUSD = costTotal / res.Qty
	res.ProfitUSD = (price - res.CostBasisUSD) * res.Qty

	acct.BalanceUSD += price * res.Qty
	acct.TotalProfitUSD += res.ProfitUSD
	if res.ProfitUSD > 0 {
		acct.WinningTrades++
	}
	recompute(acct, openLots)

	return res, nil
}

// recompute rebuilds held quantity and weighted average cost from the
// currently open lots. An account with no open lots is flat with zero
// average cost.
func recompute(acct *model.AccountState, lots []*model.Lot) {
	var qty, cost float64
	for _, lot := range lots {
		if lot.Status != model.LotOpen || lot.Remaining <= 0 {
			continue
		}
		qty += lot.Remaining
		cost += lot.Remaining * lot.PriceUSD
	}

	acct.HeldQty = qty
	if qty > 0 {
		acct.AvgCost = cost / qty
	} else {
		acct.AvgCost = 0
	}
}
