package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"simbot/internal/model"
)

const accountColumns = `id, symbol, interval, running, sizing_mode, base_trade_usd,
	trade_percent, trade_min_usd, hold_zone_percent, last_eval_bucket,
	balance_usd, held_qty, avg_cost, total_profit_usd, total_trades,
	winning_trades, version`

// CreateAccount inserts a new account row.
func (s *Store) CreateAccount(ctx context.Context, acct *model.AccountState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, acct.ID, acct.Symbol, acct.Interval, boolToInt(acct.Running),
		string(acct.SizingMode), acct.BaseTradeUSD, acct.TradePercent,
		acct.TradeMinUSD, acct.HoldZonePercent, bucketUnix(acct.LastEvalBucket),
		acct.BalanceUSD, acct.HeldQty, acct.AvgCost, acct.TotalProfitUSD,
		acct.TotalTrades, acct.WinningTrades, acct.Version)
	if err != nil {
		return fmt.Errorf("sqlite insert account: %w", err)
	}
	return nil
}

// Get returns one account by id.
func (s *Store) Get(ctx context.Context, id string) (*model.AccountState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

// RunningAccounts returns all accounts with the running flag set.
func (s *Store) RunningAccounts(ctx context.Context) ([]model.AccountState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE running = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query running accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.AccountState
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acct)
	}
	return accounts, rows.Err()
}

// OpenLots returns the account's open lots ordered oldest-first, which is
// the FIFO consumption order.
func (s *Store) OpenLots(ctx context.Context, accountID string) ([]*model.Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, qty, price_usd, remaining, status, created_at
		FROM lots
		WHERE account_id = ? AND status = ?
		ORDER BY created_at ASC, id ASC
	`, accountID, string(model.LotOpen))
	if err != nil {
		return nil, fmt.Errorf("sqlite query open lots: %w", err)
	}
	defer rows.Close()

	var lots []*model.Lot
	for rows.Next() {
		var (
			lot    model.Lot
			status string
			ts     int64
		)
		if err := rows.Scan(&lot.ID, &lot.AccountID, &lot.Qty, &lot.PriceUSD,
			&lot.Remaining, &status, &ts); err != nil {
			return nil, fmt.Errorf("sqlite scan lot: %w", err)
		}
		lot.Status = model.LotStatus(status)
		lot.CreatedAt = time.Unix(ts, 0).UTC()
		lots = append(lots, &lot)
	}
	return lots, rows.Err()
}

// UpdateAccount persists account state for non-trade outcomes. The write
// is guarded by the loaded version; a conflict means another invocation
// committed first and this tick must be abandoned.
func (s *Store) UpdateAccount(ctx context.Context, acct *model.AccountState) error {
	res, err := s.db.ExecContext(ctx, accountUpdateSQL,
		accountUpdateArgs(acct)...)
	if err != nil {
		return fmt.Errorf("sqlite update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	acct.Version++
	return nil
}

// CommitTrade persists a trade's full effect in one transaction: the
// trade record, lot changes, and the version-guarded account update.
func (s *Store) CommitTrade(ctx context.Context, acct *model.AccountState, trade *model.TradeRecord, newLot *model.Lot, touched []*model.Lot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := insertTrade(tx, trade); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite insert trade: %w", err)
	}

	if newLot != nil {
		_, err = tx.Exec(`
			INSERT INTO lots (id, account_id, qty, price_usd, remaining, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, newLot.ID, newLot.AccountID, newLot.Qty, newLot.PriceUSD,
			newLot.Remaining, string(newLot.Status), newLot.CreatedAt.Unix())
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert lot: %w", err)
		}
	}
	for _, lot := range touched {
		_, err = tx.Exec(`UPDATE lots SET remaining = ?, status = ? WHERE id = ?`,
			lot.Remaining, string(lot.Status), lot.ID)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite update lot: %w", err)
		}
	}

	res, err := tx.Exec(accountUpdateSQL, accountUpdateArgs(acct)...)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite update account: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return ErrVersionConflict
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	acct.Version++
	return nil
}

const accountUpdateSQL = `
	UPDATE accounts SET
		running = ?, sizing_mode = ?, base_trade_usd = ?, trade_percent = ?,
		trade_min_usd = ?, hold_zone_percent = ?, last_eval_bucket = ?,
		balance_usd = ?, held_qty = ?, avg_cost = ?, total_profit_usd = ?,
		total_trades = ?, winning_trades = ?, version = version + 1
	WHERE id = ? AND version = ?`

func accountUpdateArgs(acct *model.AccountState) []interface{} {
	return []interface{}{
		boolToInt(acct.Running), string(acct.SizingMode), acct.BaseTradeUSD,
		acct.TradePercent, acct.TradeMinUSD, acct.HoldZonePercent,
		bucketUnix(acct.LastEvalBucket), acct.BalanceUSD, acct.HeldQty,
		acct.AvgCost, acct.TotalProfitUSD, acct.TotalTrades,
		acct.WinningTrades, acct.ID, acct.Version,
	}
}

func insertTrade(tx *sql.Tx, t *model.TradeRecord) error {
	_, err := tx.Exec(`
		INSERT INTO trades (id, account_id, symbol, type, qty, price_usd, volume_usd,
			status, cost_basis_usd, profit_usd, band_upper, band_middle, band_lower,
			distance_ratio, multiplier, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.AccountID, t.Symbol, string(t.Type), t.Qty, t.PriceUSD, t.VolumeUSD,
		string(t.Status), t.CostBasisUSD, t.ProfitUSD, t.Snapshot.Upper,
		t.Snapshot.Middle, t.Snapshot.Lower, t.Snapshot.DistanceRatio,
		t.Snapshot.Multiplier, t.CreatedAt.Unix())
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*model.AccountState, error) {
	var (
		acct    model.AccountState
		running int
		mode    string
		bucket  int64
	)
	err := row.Scan(&acct.ID, &acct.Symbol, &acct.Interval, &running, &mode,
		&acct.BaseTradeUSD, &acct.TradePercent, &acct.TradeMinUSD,
		&acct.HoldZonePercent, &bucket, &acct.BalanceUSD, &acct.HeldQty,
		&acct.AvgCost, &acct.TotalProfitUSD, &acct.TotalTrades,
		&acct.WinningTrades, &acct.Version)
	if err != nil {
		return nil, fmt.Errorf("sqlite scan account: %w", err)
	}
	acct.Running = running != 0
	acct.SizingMode = model.SizingMode(mode)
	if bucket != 0 {
		acct.LastEvalBucket = time.Unix(bucket, 0).UTC()
	}
	return &acct, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// bucketUnix stores the zero time as 0 so a never-evaluated account is
// never throttled.
func bucketUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
