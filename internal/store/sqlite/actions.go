package sqlite

import (
	"context"
	"fmt"
	"time"

	"simbot/internal/model"
)

// Insert writes one action log entry.
func (s *Store) Insert(ctx context.Context, e *model.ActionLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actions (id, account_id, symbol, action, reason, price_usd,
			volume_usd, band_upper, band_middle, band_lower, distance_ratio,
			multiplier, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.AccountID, e.Symbol, string(e.Action), e.Reason, e.PriceUSD,
		e.VolumeUSD, e.Snapshot.Upper, e.Snapshot.Middle, e.Snapshot.Lower,
		e.Snapshot.DistanceRatio, e.Snapshot.Multiplier, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert action: %w", err)
	}
	return nil
}

// UpdateAction rewrites an entry's action and reason in place. Used when
// a BUY/SELL decision is rejected by a balance or position check after
// the entry was written.
func (s *Store) UpdateAction(ctx context.Context, id string, action model.Action, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE actions SET action = ?, reason = ? WHERE id = ?`,
		string(action), reason, id)
	if err != nil {
		return fmt.Errorf("sqlite update action: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sqlite update action: entry %s not found", id)
	}
	return nil
}

// RecentActions returns the last N entries for an account, newest first.
func (s *Store) RecentActions(ctx context.Context, accountID string, limit int) ([]model.ActionLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, symbol, action, reason, price_usd, volume_usd,
			band_upper, band_middle, band_lower, distance_ratio, multiplier, created_at
		FROM actions
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query actions: %w", err)
	}
	defer rows.Close()

	var entries []model.ActionLogEntry
	for rows.Next() {
		var (
			e      model.ActionLogEntry
			action string
			ts     int64
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Symbol, &action, &e.Reason,
			&e.PriceUSD, &e.VolumeUSD, &e.Snapshot.Upper, &e.Snapshot.Middle,
			&e.Snapshot.Lower, &e.Snapshot.DistanceRatio, &e.Snapshot.Multiplier,
			&ts); err != nil {
			return nil, fmt.Errorf("sqlite scan action: %w", err)
		}
		e.Action = model.Action(action)
		e.CreatedAt = time.Unix(ts, 0).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
