// Package sqlite persists the simulation state: price history, accounts,
// FIFO lots, trades, and the action audit log.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"
)

// ErrVersionConflict is returned when an account row changed underneath
// the caller. The tick that hits it is abandoned: some other invocation
// already committed against this account.
var ErrVersionConflict = errors.New("sqlite: account version conflict")

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to the database file, e.g. "data/simbot.db"
}

// Store provides access to all simulation tables through one connection.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Open opens (or creates) the database with WAL mode and the schema.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer keeps lot/account updates serialized at the driver level
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS price_history (
			symbol   TEXT    NOT NULL,
			interval TEXT    NOT NULL,
			ts       INTEGER NOT NULL,
			open     REAL    NOT NULL,
			high     REAL    NOT NULL,
			low      REAL    NOT NULL,
			close    REAL    NOT NULL,
			volume   REAL,
			PRIMARY KEY (symbol, interval, ts)
		);

		CREATE TABLE IF NOT EXISTS accounts (
			id                TEXT PRIMARY KEY,
			symbol            TEXT NOT NULL,
			interval          TEXT NOT NULL,
			running           INTEGER NOT NULL DEFAULT 0,
			sizing_mode       TEXT NOT NULL DEFAULT 'fixed',
			base_trade_usd    REAL NOT NULL DEFAULT 0,
			trade_percent     REAL NOT NULL DEFAULT 0,
			trade_min_usd     REAL NOT NULL DEFAULT 0,
			hold_zone_percent REAL NOT NULL DEFAULT 0,
			last_eval_bucket  INTEGER NOT NULL DEFAULT 0,
			balance_usd       REAL NOT NULL DEFAULT 0,
			held_qty          REAL NOT NULL DEFAULT 0,
			avg_cost          REAL NOT NULL DEFAULT 0,
			total_profit_usd  REAL NOT NULL DEFAULT 0,
			total_trades      INTEGER NOT NULL DEFAULT 0,
			winning_trades    INTEGER NOT NULL DEFAULT 0,
			version           INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS lots (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			qty        REAL NOT NULL,
			price_usd  REAL NOT NULL,
			remaining  REAL NOT NULL,
			status     TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_lots_account ON lots(account_id, status, created_at);

		CREATE TABLE IF NOT EXISTS trades (
			id             TEXT PRIMARY KEY,
			account_id     TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			type           TEXT NOT NULL,
			qty            REAL NOT NULL,
			price_usd      REAL NOT NULL,
			volume_usd     REAL NOT NULL,
			status         TEXT NOT NULL,
			cost_basis_usd REAL NOT NULL DEFAULT 0,
			profit_usd     REAL NOT NULL DEFAULT 0,
			band_upper     REAL NOT NULL DEFAULT 0,
			band_middle    REAL NOT NULL DEFAULT 0,
			band_lower     REAL NOT NULL DEFAULT 0,
			distance_ratio REAL NOT NULL DEFAULT 0,
			multiplier     REAL NOT NULL DEFAULT 0,
			created_at     INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trades_account ON trades(account_id, created_at);

		CREATE TABLE IF NOT EXISTS actions (
			id             TEXT PRIMARY KEY,
			account_id     TEXT NOT NULL,
			symbol         TEXT NOT NULL,
			action         TEXT NOT NULL,
			reason         TEXT,
			price_usd      REAL NOT NULL DEFAULT 0,
			volume_usd     REAL NOT NULL DEFAULT 0,
			band_upper     REAL NOT NULL DEFAULT 0,
			band_middle    REAL NOT NULL DEFAULT 0,
			band_lower     REAL NOT NULL DEFAULT 0,
			distance_ratio REAL NOT NULL DEFAULT 0,
			multiplier     REAL NOT NULL DEFAULT 0,
			created_at     INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_actions_account ON actions(account_id, created_at);
	`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
