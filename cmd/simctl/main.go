// cmd/simctl is the operator tool for the simulation database: create
// accounts, load candle history from CSV, and inspect trade/action history.
//
// Usage:
//
//	simctl create-account --id=bot1 --symbol=BTC-USDT --balance=10000
//	simctl load-candles --symbol=BTC-USDT --interval=1h --file=candles.csv
//	simctl trades --account=bot1 --limit=20
//	simctl actions --account=bot1 --limit=20
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"simbot/internal/model"
	sqlitestore "simbot/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	ctx := context.Background()

	var err error
	switch cmd {
	case "create-account":
		err = createAccount(ctx, args)
	case "load-candles":
		err = loadCandles(ctx, args)
	case "account":
		err = showAccount(ctx, args)
	case "trades":
		err = listTrades(ctx, args)
	case "actions":
		err = listActions(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("[simctl] %s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: simctl <create-account|load-candles|account|trades|actions> [flags]")
}

func openStore(fs *flag.FlagSet, args []string) (*sqlitestore.Store, error) {
	dbPath := fs.String("db", "data/simbot.db", "Path to SQLite database")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return sqlitestore.Open(sqlitestore.Config{DBPath: *dbPath})
}

func createAccount(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-account", flag.ExitOnError)
	id := fs.String("id", "", "Account ID (required)")
	symbol := fs.String("symbol", "BTC-USDT", "Trading pair")
	interval := fs.String("interval", "1h", "Evaluation interval")
	balance := fs.Float64("balance", 10000, "Starting balance in USD")
	base := fs.Float64("base", 6, "Base trade amount in USD (fixed sizing)")
	percent := fs.Float64("percent", 0, "Trade percent of balance (enables percent sizing)")
	minUSD := fs.Float64("min", 5, "Minimum trade amount in USD (percent sizing)")
	zone := fs.Float64("zone", 10, "Hold zone as percent of band half-width")

	store, err := openStore(fs, args)
	if err != nil {
		return err
	}
	defer store.Close()

	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	if _, err := model.ParseInterval(*interval); err != nil {
		return err
	}

	acct := &model.AccountState{
		ID:              *id,
		Symbol:          *symbol,
		Interval:        *interval,
		Running:         true,
		SizingMode:      model.SizingFixed,
		BaseTradeUSD:    *base,
		TradeMinUSD:     *minUSD,
		HoldZonePercent: *zone,
		BalanceUSD:      *balance,
	}
	if *percent > 0 {
		acct.SizingMode = model.SizingPercent
		acct.TradePercent = *percent
	}

	if err := store.CreateAccount(ctx, acct); err != nil {
		return err
	}
	fmt.Printf("created account %s (%s %s, balance $%.2f, sizing=%s)\n",
		acct.ID, acct.Symbol, acct.Interval, acct.BalanceUSD, acct.SizingMode)
	return nil
}

// loadCandles reads "ts,open,high,low,close,volume" rows. ts is either a
// unix timestamp or RFC3339.
func loadCandles(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("load-candles", flag.ExitOnError)
	symbol := fs.String("symbol", "BTC-USDT", "Trading pair")
	interval := fs.String("interval", "1h", "Candle interval")
	file := fs.String("file", "", "CSV file path (required)")

	store, err := openStore(fs, args)
	if err != nil {
		return err
	}
	defer store.Close()

	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	var candles []model.Candle
	r := csv.NewReader(f)
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line+1, err)
		}
		line++
		if len(rec) < 6 {
			return fmt.Errorf("line %d: expected 6 columns, got %d", line, len(rec))
		}
		ts, err := parseTS(rec[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return fmt.Errorf("line %d: %w", line, err)
		}
		var vals [5]float64
		for i := 0; i < 5; i++ {
			vals[i], err = strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return fmt.Errorf("line %d col %d: %w", line, i+2, err)
			}
		}
		candles = append(candles, model.Candle{
			Symbol:   *symbol,
			Interval: *interval,
			TS:       ts,
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}

	if err := store.UpsertCandles(ctx, candles); err != nil {
		return err
	}
	last, err := store.LastCandleTime(ctx, *symbol, *interval)
	if err != nil {
		return err
	}
	fmt.Printf("loaded %d candles for %s %s, latest %s\n",
		len(candles), *symbol, *interval, last.UTC().Format(time.RFC3339))
	return nil
}

func parseTS(s string) (time.Time, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func showAccount(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("account", flag.ExitOnError)
	id := fs.String("id", "", "Account ID (required)")

	store, err := openStore(fs, args)
	if err != nil {
		return err
	}
	defer store.Close()

	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	acct, err := store.Get(ctx, *id)
	if err != nil {
		return err
	}

	winRate := 0.0
	if acct.TotalTrades > 0 {
		winRate = float64(acct.WinningTrades) / float64(acct.TotalTrades) * 100
	}
	fmt.Printf("account  %s  (%s %s, running=%v)\n", acct.ID, acct.Symbol, acct.Interval, acct.Running)
	fmt.Printf("balance  $%.2f  held %.8f @ avg $%.2f\n", acct.BalanceUSD, acct.HeldQty, acct.AvgCost)
	fmt.Printf("profit   $%.2f  trades %d  wins %d (%.1f%%)\n",
		acct.TotalProfitUSD, acct.TotalTrades, acct.WinningTrades, winRate)
	if !acct.LastEvalBucket.IsZero() {
		fmt.Printf("last eval bucket %s\n", acct.LastEvalBucket.UTC().Format(time.RFC3339))
	}
	return nil
}

func listTrades(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trades", flag.ExitOnError)
	account := fs.String("account", "", "Account ID (required)")
	limit := fs.Int("limit", 20, "Max rows")

	store, err := openStore(fs, args)
	if err != nil {
		return err
	}
	defer store.Close()

	if *account == "" {
		return fmt.Errorf("--account is required")
	}
	trades, err := store.RecentTrades(ctx, *account, *limit)
	if err != nil {
		return err
	}
	for _, t := range trades {
		line := fmt.Sprintf("%s  %-4s %.8f @ $%.2f  $%.2f  [%s]",
			t.CreatedAt.UTC().Format("2006-01-02 15:04"), t.Type, t.Qty, t.PriceUSD, t.VolumeUSD, t.Status)
		if t.Type == model.TradeSell {
			line += fmt.Sprintf("  profit $%.2f", t.ProfitUSD)
		}
		fmt.Println(line)
	}
	fmt.Printf("%d trades\n", len(trades))
	return nil
}

func listActions(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("actions", flag.ExitOnError)
	account := fs.String("account", "", "Account ID (required)")
	limit := fs.Int("limit", 20, "Max rows")

	store, err := openStore(fs, args)
	if err != nil {
		return err
	}
	defer store.Close()

	if *account == "" {
		return fmt.Errorf("--account is required")
	}
	entries, err := store.RecentActions(ctx, *account, *limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s  %-20s  $%.2f  %s\n",
			e.CreatedAt.UTC().Format("2006-01-02 15:04"), e.Action, e.PriceUSD, e.Reason)
	}
	fmt.Printf("%d actions\n", len(entries))
	return nil
}
