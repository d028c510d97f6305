package sqlite

import (
	"context"
	"fmt"
	"time"

	"simbot/internal/model"
)

// RecentCloses returns the close prices of the most recent `limit`
// candles for (symbol, interval), ordered ascending by candle time.
func (s *Store) RecentCloses(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	// Newest-first with LIMIT, then reversed: avoids scanning the full
	// series for long-running symbols.
	rows, err := s.db.QueryContext(ctx, `
		SELECT close FROM price_history
		WHERE symbol = ? AND interval = ?
		ORDER BY ts DESC
		LIMIT ?
	`, symbol, interval, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query closes: %w", err)
	}
	defer rows.Close()

	var desc []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("sqlite scan close: %w", err)
		}
		desc = append(desc, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	closes := make([]float64, len(desc))
	for i, c := range desc {
		closes[len(desc)-1-i] = c
	}
	return closes, nil
}

// UpsertCandles inserts or replaces candles. The external ingestion job
// uses this; tests and local runs use it to seed history.
func (s *Store) UpsertCandles(ctx context.Context, candles []model.Candle) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO price_history (symbol, interval, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(c.Symbol, c.Interval, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LastCandleTime returns the newest stored candle timestamp for a series,
// or the zero time when the series is empty.
func (s *Store) LastCandleTime(ctx context.Context, symbol, interval string) (time.Time, error) {
	var ts *int64
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM price_history WHERE symbol = ? AND interval = ?`,
		symbol, interval,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, err
	}
	if ts == nil {
		return time.Time{}, nil
	}
	return time.Unix(*ts, 0).UTC(), nil
}
