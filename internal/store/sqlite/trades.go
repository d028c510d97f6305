package sqlite

import (
	"context"
	"fmt"
	"time"

	"simbot/internal/model"
)

// RecentTrades returns the last N trades for an account, newest first.
// Serves the trade-history display.
func (s *Store) RecentTrades(ctx context.Context, accountID string, limit int) ([]model.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, symbol, type, qty, price_usd, volume_usd, status,
			cost_basis_usd, profit_usd, band_upper, band_middle, band_lower,
			distance_ratio, multiplier, created_at
		FROM trades
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.TradeRecord
	for rows.Next() {
		var (
			t      model.TradeRecord
			tt     string
			status string
			ts     int64
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Symbol, &tt, &t.Qty,
			&t.PriceUSD, &t.VolumeUSD, &status, &t.CostBasisUSD, &t.ProfitUSD,
			&t.Snapshot.Upper, &t.Snapshot.Middle, &t.Snapshot.Lower,
			&t.Snapshot.DistanceRatio, &t.Snapshot.Multiplier, &ts); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		t.Type = model.TradeType(tt)
		t.Status = model.TradeStatus(status)
		t.CreatedAt = time.Unix(ts, 0).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
