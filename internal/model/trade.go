package model

import "time"

// TradeType is the direction of a simulated trade.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// TradeStatus mirrors the lot lifecycle: BUYs open a position slice,
// SELLs are closed at creation time.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// IndicatorSnapshot captures the band state at decision time so trade
// history can be replayed against the chart without recomputation.
type IndicatorSnapshot struct {
	Upper         float64 `json:"upper"`
	Middle        float64 `json:"middle"`
	Lower         float64 `json:"lower"`
	DistanceRatio float64 `json:"distance_ratio"`
	Multiplier    float64 `json:"multiplier"`
}

// TradeRecord is one executed simulated trade. Append-only.
type TradeRecord struct {
	ID        string      `json:"id"`
	AccountID string      `json:"account_id"`
	Symbol    string      `json:"symbol"`
	Type      TradeType   `json:"type"`
	Qty       float64     `json:"qty"`        // asset quantity
	PriceUSD  float64     `json:"price_usd"`  // execution price
	VolumeUSD float64     `json:"volume_usd"` // notional
	Status    TradeStatus `json:"status"`

	// SELL only: FIFO cost basis per unit of the consumed lots and the
	// realized profit against it.
	CostBasisUSD float64 `json:"cost_basis_usd"`
	ProfitUSD    float64 `json:"profit_usd"`

	Snapshot  IndicatorSnapshot `json:"snapshot"`
	CreatedAt time.Time         `json:"created_at"`
}
