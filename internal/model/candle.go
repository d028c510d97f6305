// Package model defines the persistent record types shared across the
// simulation engine: candles, accounts, lots, trades, and action log entries.
package model

import (
	"fmt"
	"time"
)

// Candle represents one OHLC candle for a (symbol, interval) pair.
// Candles are supplied by the external price-ingestion job and are
// immutable once stored. Prices are in USD.
type Candle struct {
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"` // e.g. "1h"
	TS       time.Time `json:"ts"`       // bucket start time (UTC)
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Key returns a unique key for this candle's series: "symbol:interval".
func (c *Candle) Key() string {
	return c.Symbol + ":" + c.Interval
}

// ParseInterval converts an interval string ("1m", "15m", "1h", "4h", "1d")
// into a time.Duration. Day intervals are expanded by hand since
// time.ParseDuration does not understand "d".
func ParseInterval(s string) (time.Duration, error) {
	switch s {
	case "1d":
		return 24 * time.Hour, nil
	case "1w":
		return 7 * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse interval %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval %q must be positive", s)
	}
	return d, nil
}
