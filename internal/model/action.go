package model

import "time"

// Action is the single discriminator for every evaluation outcome. Trade
// and non-trade outcomes share one tagged type so downstream handling can
// switch exhaustively instead of duck-typing.
type Action string

const (
	ActionHold                Action = "HOLD"
	ActionBuy                 Action = "BUY"
	ActionSell                Action = "SELL"
	ActionInsufficientBalance Action = "INSUFFICIENT_BALANCE"
	ActionNoPosition          Action = "NO_POSITION"
	ActionInsufficientData    Action = "INSUFFICIENT_DATA"
)

// ActionLogEntry records one evaluated tick for audit purposes. It is
// written unconditionally whenever an account is evaluated, whether or
// not a TradeRecord was created.
type ActionLogEntry struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Symbol    string            `json:"symbol"`
	Action    Action            `json:"action"`
	Reason    string            `json:"reason"`
	PriceUSD  float64           `json:"price_usd"`
	VolumeUSD float64           `json:"volume_usd"`
	Snapshot  IndicatorSnapshot `json:"snapshot"`
	CreatedAt time.Time         `json:"created_at"`
}
