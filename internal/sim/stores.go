package sim

import (
	"context"

	"simbot/internal/model"
)

// PriceStore supplies recent close prices for a (symbol, interval) pair,
// ordered ascending by candle time. The price-ingestion job that fills
// the store is an external collaborator.
type PriceStore interface {
	RecentCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error)
}

// AccountStore reads and writes per-account simulation state.
//
// UpdateAccount and CommitTrade are version-guarded: they fail when the
// stored row no longer matches the account's loaded version, so two
// overlapping batch runs cannot both commit against the same account.
type AccountStore interface {
	RunningAccounts(ctx context.Context) ([]model.AccountState, error)

	// OpenLots returns the account's open lots ordered oldest-first.
	OpenLots(ctx context.Context, accountID string) ([]*model.Lot, error)

	// UpdateAccount persists account state for non-trade outcomes
	// (marker advances, counters).
	UpdateAccount(ctx context.Context, acct *model.AccountState) error

	// CommitTrade persists a trade's full effect in one transaction:
	// the trade record, the new lot (BUY) or touched lots (SELL), and
	// the updated account state.
	CommitTrade(ctx context.Context, acct *model.AccountState, trade *model.TradeRecord, newLot *model.Lot, touched []*model.Lot) error
}

// ActionStore persists the audit log. Every evaluated tick writes exactly
// one entry; BUY/SELL entries may be rewritten to a policy-rejection
// action before the tick completes.
type ActionStore interface {
	Insert(ctx context.Context, entry *model.ActionLogEntry) error
	UpdateAction(ctx context.Context, id string, action model.Action, reason string) error
}

// OutcomePublisher pushes evaluation outcomes to interested observers
// (e.g. a Redis channel feeding the dashboard). Delivery is best-effort.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome Outcome)
}
