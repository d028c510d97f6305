package model

import "time"

// SizingMode selects how the per-evaluation base trade amount is derived.
type SizingMode string

const (
	// SizingFixed uses BaseTradeUSD as-is.
	SizingFixed SizingMode = "fixed"
	// SizingPercent uses TradePercent of the current balance,
	// floored at TradeMinUSD.
	SizingPercent SizingMode = "percent"
)

// AccountState is the per-account simulation state. It is created on first
// use, mutated only by the orchestrator/ledger, and never deleted during
// normal operation.
type AccountState struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`   // e.g. "BTC-USDT"
	Interval string `json:"interval"` // evaluation cadence, e.g. "1h"
	Running  bool   `json:"running"`

	SizingMode      SizingMode `json:"sizing_mode"`
	BaseTradeUSD    float64    `json:"base_trade_usd"`
	TradePercent    float64    `json:"trade_percent"`
	TradeMinUSD     float64    `json:"trade_min_usd"`
	HoldZonePercent float64    `json:"hold_zone_percent"`

	// LastEvalBucket is the start of the most recent throttle bucket in
	// which this account committed an evaluation outcome. Zero time means
	// the account has never been evaluated.
	LastEvalBucket time.Time `json:"last_eval_bucket"`

	BalanceUSD     float64 `json:"balance_usd"`
	HeldQty        float64 `json:"held_qty"`      // aggregate quantity across open lots
	AvgCost        float64 `json:"avg_cost"`      // weighted avg cost of open lots, 0 when flat
	TotalProfitUSD float64 `json:"total_profit_usd"`
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`

	// Version guards against lost updates from overlapping batch runs.
	// Every persisted mutation increments it.
	Version int64 `json:"version"`
}

// SizingBase returns the base USD amount the strategy scales from.
func (a *AccountState) SizingBase() float64 {
	if a.SizingMode == SizingPercent {
		base := a.BalanceUSD * a.TradePercent / 100
		if base < a.TradeMinUSD {
			base = a.TradeMinUSD
		}
		return base
	}
	return a.BaseTradeUSD
}
