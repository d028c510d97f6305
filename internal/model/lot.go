package model

import "time"

// LotStatus tracks whether a purchase lot still has quantity remaining.
type LotStatus string

const (
	LotOpen   LotStatus = "open"
	LotClosed LotStatus = "closed"
)

// Lot is a single purchase record in the FIFO ledger. A BUY creates one
// lot; SELLs consume open lots oldest-first by decrementing RemainingQty
// in place until the lot closes. Lots are never deleted.
type Lot struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Qty       float64   `json:"qty"`       // original purchased quantity
	PriceUSD  float64   `json:"price_usd"` // unit purchase price
	Remaining float64   `json:"remaining"` // quantity not yet sold
	Status    LotStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
