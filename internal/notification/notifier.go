// Package notification delivers trade alerts to external channels
// (Telegram, webhooks). Delivery is best-effort: the orchestrator logs a
// failed send and moves on, so a dead channel can never affect ledger
// state.
package notification

import (
	"context"
	"fmt"
	"log"

	"simbot/internal/model"
)

// Alert is a notification payload: a short title plus a free-text body.
type Alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// TradeAlert builds the alert for an executed simulated trade.
func TradeAlert(trade *model.TradeRecord) Alert {
	title := fmt.Sprintf("Simulated %s %s", trade.Type, trade.Symbol)
	body := fmt.Sprintf("%s %.6f %s at $%.2f ($%.2f notional)",
		trade.Type, trade.Qty, trade.Symbol, trade.PriceUSD, trade.VolumeUSD)
	if trade.Type == model.TradeSell {
		body += fmt.Sprintf(", realized profit $%.2f", trade.ProfitUSD)
	}
	return Alert{Title: title, Body: body}
}

// LogNotifier logs alerts instead of delivering them (useful for
// development and tests).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] %s: %s", alert.Title, alert.Body)
	return nil
}
