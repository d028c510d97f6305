// Package sim drives the per-account simulation loop: fetch inputs,
// compute bands and a signal, apply the ledger, persist outputs, and emit
// best-effort notifications.
//
// The Runner is stateless between batches: all state lives in the
// persistent account/lot/trade records. An external scheduler decides
// when a batch runs; the per-account throttle decides whether a tick has
// any effect.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"simbot/internal/indicator"
	"simbot/internal/ledger"
	"simbot/internal/logger"
	"simbot/internal/metrics"
	"simbot/internal/model"
	"simbot/internal/notification"
	"simbot/internal/strategy"
)

// ActionThrottled marks a tick that was skipped because the account's
// bucket marker already covers the current bucket. It only appears in
// batch results, never in the persisted action log.
const ActionThrottled model.Action = "THROTTLED"

// Outcome is the terminal result of one account's tick.
type Outcome struct {
	AccountID string       `json:"account_id"`
	Symbol    string       `json:"symbol"`
	Action    model.Action `json:"action"`
	Reason    string       `json:"reason,omitempty"`
	PriceUSD  float64      `json:"price_usd,omitempty"`
	VolumeUSD float64      `json:"volume_usd,omitempty"`
	ProfitUSD float64      `json:"profit_usd,omitempty"`
	TradeID   string       `json:"trade_id,omitempty"`
}

// BatchResult summarizes one full batch run.
type BatchResult struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Processed int           `json:"processed"`
	Errors    int           `json:"errors"`
	Outcomes  []Outcome     `json:"outcomes"`
}

// Config tunes the Runner.
type Config struct {
	Period         int           // indicator window, default 20
	BandMultiplier float64       // stddev multiplier, default 2
	Strategy       strategy.Func // sizing strategy, default DistanceVolume
	Now            func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Period <= 0 {
		c.Period = indicator.DefaultPeriod
	}
	if c.BandMultiplier <= 0 {
		c.BandMultiplier = indicator.DefaultMultiplier
	}
	if c.Strategy == nil {
		c.Strategy = strategy.DistanceVolume
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Runner evaluates all running accounts once per invocation.
type Runner struct {
	cfg       Config
	prices    PriceStore
	accounts  AccountStore
	actions   ActionStore
	notifier  notification.Notifier
	publisher OutcomePublisher // optional
	prom      *metrics.Metrics // optional
	log       *slog.Logger
}

// NewRunner wires a Runner from its collaborators. publisher and prom
// may be nil.
func NewRunner(cfg Config, prices PriceStore, accounts AccountStore, actions ActionStore, notifier notification.Notifier, publisher OutcomePublisher, prom *metrics.Metrics, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		cfg:       cfg.withDefaults(),
		prices:    prices,
		accounts:  accounts,
		actions:   actions,
		notifier:  notifier,
		publisher: publisher,
		prom:      prom,
		log:       log,
	}
}

// RunOnce processes every running account exactly once. A failing
// account is counted and skipped; it never aborts the batch.
func (r *Runner) RunOnce(ctx context.Context) BatchResult {
	start := r.cfg.Now().UTC()
	ctx = logger.WithBatchID(ctx, logger.GenerateBatchID(start))
	res := BatchResult{StartedAt: start}

	accounts, err := r.accounts.RunningAccounts(ctx)
	if err != nil {
		r.log.Error("loading running accounts failed", append(logger.WithBatch(ctx), "err", err)...)
		res.Errors++
		res.Duration = time.Since(start)
		return res
	}

	for i := range accounts {
		acct := accounts[i]
		evalStart := time.Now()

		outcome, err := r.evaluateAccount(ctx, &acct)
		if r.prom != nil {
			r.prom.AccountsTotal.Inc()
			r.prom.EvalDur.Observe(time.Since(evalStart).Seconds())
		}
		if err != nil {
			res.Errors++
			if r.prom != nil {
				r.prom.AccountErrors.Inc()
			}
			r.log.Error("account tick abandoned",
				append(logger.WithBatch(ctx), "account", acct.ID, "err", err)...)
			continue
		}

		res.Processed++
		res.Outcomes = append(res.Outcomes, outcome)
		if r.prom != nil {
			r.prom.OutcomesTotal.WithLabelValues(string(outcome.Action)).Inc()
		}
		if r.publisher != nil {
			r.publisher.PublishOutcome(ctx, outcome)
		}
	}

	res.Duration = time.Since(start)
	if r.prom != nil {
		r.prom.BatchesTotal.Inc()
		r.prom.BatchDur.Observe(res.Duration.Seconds())
	}
	r.log.Info("batch complete", append(logger.WithBatch(ctx),
		"processed", res.Processed, "errors", res.Errors, "duration", res.Duration.String())...)
	return res
}

// evaluateAccount runs one tick for one account. Every return path is
// terminal for the tick; there are no retries inside a tick.
func (r *Runner) evaluateAccount(ctx context.Context, acct *model.AccountState) (Outcome, error) {
	interval, err := model.ParseInterval(acct.Interval)
	if err != nil {
		return Outcome{}, fmt.Errorf("account %s: %w", acct.ID, err)
	}

	now := r.cfg.Now()
	bucket := Bucket(now, interval)
	if Throttled(acct.LastEvalBucket, bucket) {
		return Outcome{AccountID: acct.ID, Symbol: acct.Symbol, Action: ActionThrottled,
			Reason: "already evaluated this interval"}, nil
	}
	// Every evaluated tick commits the marker, HOLD and data gaps
	// included: strict once-per-interval cadence.
	acct.LastEvalBucket = bucket

	closes, err := r.prices.RecentCloses(ctx, acct.Symbol, acct.Interval, r.cfg.Period+5)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch candles for %s: %w", acct.Symbol, err)
	}
	if len(closes) < r.cfg.Period+1 {
		// Record the latest close we do have so the audit row still
		// carries a reference price.
		var price float64
		if len(closes) > 0 {
			price = closes[len(closes)-1]
		}
		reason := fmt.Sprintf("only %d of %d required candles available", len(closes), r.cfg.Period+1)
		return r.commitNonTrade(ctx, acct, model.ActionInsufficientData, reason, price, strategy.Signal{}, indicator.Bands{})
	}

	bands := indicator.Compute(closes, r.cfg.Period, r.cfg.BandMultiplier)

	base := acct.SizingBase()
	if base <= 0 {
		base = strategy.DefaultBaseUSD
	}
	zone := acct.HoldZonePercent
	if zone <= 0 {
		zone = strategy.DefaultHoldZonePercent
	}

	sig := r.cfg.Strategy(bands, strategy.Params{BaseUSD: base, HoldZonePercent: zone})

	switch sig.Action {
	case model.ActionHold:
		return r.commitNonTrade(ctx, acct, model.ActionHold, sig.Reason, bands.Price, sig, bands)
	case model.ActionBuy:
		return r.executeBuy(ctx, acct, sig, bands)
	case model.ActionSell:
		return r.executeSell(ctx, acct, sig, bands)
	default:
		return Outcome{}, fmt.Errorf("strategy returned unknown action %q", sig.Action)
	}
}

// commitNonTrade writes the audit entry for a non-trade outcome and
// advances the account's bucket marker.
func (r *Runner) commitNonTrade(ctx context.Context, acct *model.AccountState, action model.Action, reason string, price float64, sig strategy.Signal, bands indicator.Bands) (Outcome, error) {
	entry := r.newLogEntry(acct, action, reason, price, sig, bands)
	if err := r.actions.Insert(ctx, entry); err != nil {
		return Outcome{}, fmt.Errorf("write action log: %w", err)
	}
	if err := r.accounts.UpdateAccount(ctx, acct); err != nil {
		return Outcome{}, fmt.Errorf("advance bucket marker: %w", err)
	}
	return Outcome{AccountID: acct.ID, Symbol: acct.Symbol, Action: action,
		Reason: reason, PriceUSD: price}, nil
}

func (r *Runner) executeBuy(ctx context.Context, acct *model.AccountState, sig strategy.Signal, bands indicator.Bands) (Outcome, error) {
	entry := r.newLogEntry(acct, model.ActionBuy, sig.Reason, bands.Price, sig, bands)
	if err := r.actions.Insert(ctx, entry); err != nil {
		return Outcome{}, fmt.Errorf("write action log: %w", err)
	}

	if acct.BalanceUSD < sig.VolumeUSD {
		reason := fmt.Sprintf("balance $%.2f below trade volume $%.2f", acct.BalanceUSD, sig.VolumeUSD)
		if err := r.actions.UpdateAction(ctx, entry.ID, model.ActionInsufficientBalance, reason); err != nil {
			return Outcome{}, fmt.Errorf("rewrite action log: %w", err)
		}
		if err := r.accounts.UpdateAccount(ctx, acct); err != nil {
			return Outcome{}, fmt.Errorf("advance bucket marker: %w", err)
		}
		return Outcome{AccountID: acct.ID, Symbol: acct.Symbol,
			Action: model.ActionInsufficientBalance, Reason: reason, PriceUSD: bands.Price}, nil
	}

	lots, err := r.accounts.OpenLots(ctx, acct.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load open lots: %w", err)
	}
	lot, err := ledger.ApplyBuy(acct, lots, bands.Price, sig.VolumeUSD, r.cfg.Now())
	if err != nil {
		return Outcome{}, fmt.Errorf("apply buy: %w", err)
	}

	trade := r.newTrade(acct, model.TradeBuy, model.TradeOpen, lot.Qty, sig, bands)
	if err := r.accounts.CommitTrade(ctx, acct, trade, lot, nil); err != nil {
		return Outcome{}, fmt.Errorf("commit buy: %w", err)
	}

	r.notify(ctx, trade)
	if r.prom != nil {
		r.prom.TradeVolumeUSD.WithLabelValues(string(model.TradeBuy)).Add(trade.VolumeUSD)
	}
	return Outcome{AccountID: acct.ID, Symbol: acct.Symbol, Action: model.ActionBuy,
		Reason: sig.Reason, PriceUSD: bands.Price, VolumeUSD: sig.VolumeUSD, TradeID: trade.ID}, nil
}

func (r *Runner) executeSell(ctx context.Context, acct *model.AccountState, sig strategy.Signal, bands indicator.Bands) (Outcome, error) {
	entry := r.newLogEntry(acct, model.ActionSell, sig.Reason, bands.Price, sig, bands)
	if err := r.actions.Insert(ctx, entry); err != nil {
		return Outcome{}, fmt.Errorf("write action log: %w", err)
	}

	if acct.HeldQty <= 0 {
		reason := "no open position to sell"
		if err := r.actions.UpdateAction(ctx, entry.ID, model.ActionNoPosition, reason); err != nil {
			return Outcome{}, fmt.Errorf("rewrite action log: %w", err)
		}
		if err := r.accounts.UpdateAccount(ctx, acct); err != nil {
			return Outcome{}, fmt.Errorf("advance bucket marker: %w", err)
		}
		return Outcome{AccountID: acct.ID, Symbol: acct.Symbol,
			Action: model.ActionNoPosition, Reason: reason, PriceUSD: bands.Price}, nil
	}

	lots, err := r.accounts.OpenLots(ctx, acct.ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load open lots: %w", err)
	}
	res, err := ledger.ApplySell(acct, lots, bands.Price, sig.VolumeUSD)
	if err != nil {
		return Outcome{}, fmt.Errorf("apply sell: %w", err)
	}

	trade := r.newTrade(acct, model.TradeSell, model.TradeClosed, res.Qty, sig, bands)
	trade.VolumeUSD = model.RoundUSD(bands.Price * res.Qty) // capped by held quantity
	trade.CostBasisUSD = res.CostBasisUSD
	trade.ProfitUSD = res.ProfitUSD
	if err := r.accounts.CommitTrade(ctx, acct, trade, nil, res.Touched); err != nil {
		return Outcome{}, fmt.Errorf("commit sell: %w", err)
	}

	r.notify(ctx, trade)
	if r.prom != nil {
		r.prom.TradeVolumeUSD.WithLabelValues(string(model.TradeSell)).Add(trade.VolumeUSD)
	}
	return Outcome{AccountID: acct.ID, Symbol: acct.Symbol, Action: model.ActionSell,
		Reason: sig.Reason, PriceUSD: bands.Price, VolumeUSD: trade.VolumeUSD,
		ProfitUSD: res.ProfitUSD, TradeID: trade.ID}, nil
}

// notify sends the trade alert. Failures are logged and swallowed;
// notification delivery never affects ledger correctness.
func (r *Runner) notify(ctx context.Context, trade *model.TradeRecord) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Send(ctx, notification.TradeAlert(trade)); err != nil {
		if r.prom != nil {
			r.prom.NotifyFailures.Inc()
		}
		r.log.Warn("notification delivery failed",
			append(logger.WithBatch(ctx), "account", trade.AccountID, "err", err)...)
	}
}

func (r *Runner) newLogEntry(acct *model.AccountState, action model.Action, reason string, price float64, sig strategy.Signal, bands indicator.Bands) *model.ActionLogEntry {
	return &model.ActionLogEntry{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		Symbol:    acct.Symbol,
		Action:    action,
		Reason:    reason,
		PriceUSD:  price,
		VolumeUSD: sig.VolumeUSD,
		Snapshot:  snapshot(sig, bands),
		CreatedAt: r.cfg.Now().UTC(),
	}
}

func (r *Runner) newTrade(acct *model.AccountState, tt model.TradeType, status model.TradeStatus, qty float64, sig strategy.Signal, bands indicator.Bands) *model.TradeRecord {
	return &model.TradeRecord{
		ID:        uuid.NewString(),
		AccountID: acct.ID,
		Symbol:    acct.Symbol,
		Type:      tt,
		Qty:       qty,
		PriceUSD:  bands.Price,
		VolumeUSD: sig.VolumeUSD,
		Status:    status,
		Snapshot:  snapshot(sig, bands),
		CreatedAt: r.cfg.Now().UTC(),
	}
}

func snapshot(sig strategy.Signal, bands indicator.Bands) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Upper:         bands.Upper,
		Middle:        bands.Middle,
		Lower:         bands.Lower,
		DistanceRatio: sig.DistanceRatio,
		Multiplier:    sig.Multiplier,
	}
}
