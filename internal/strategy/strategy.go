// Package strategy turns band values into sized trading decisions.
//
// A strategy is a pure function from (Bands, Params) to a Signal: no I/O,
// no state. The sizing formula changed several times in this system's
// history, so the orchestrator takes a Func value and alternative
// formulas can be swapped in without touching ledger or throttle code.
package strategy

import (
	"simbot/internal/indicator"
	"simbot/internal/model"
)

// Params are the per-account inputs to a strategy evaluation.
type Params struct {
	// BaseUSD is the base trade amount the strategy scales from.
	BaseUSD float64
	// HoldZonePercent is the half-width of the neutral zone around the
	// moving average, as a percent of the band half-width.
	HoldZonePercent float64
}

// Signal is a sized trading decision.
type Signal struct {
	Action        model.Action `json:"action"` // BUY, SELL or HOLD
	VolumeUSD     float64      `json:"volume_usd"`
	DistanceRatio float64      `json:"distance_ratio"` // [0,1] position between MA and band edge
	Multiplier    float64      `json:"multiplier"`     // [1,2] volume scaling factor
	Reason        string       `json:"reason"`
}

// Func evaluates bands against params and returns a decision.
type Func func(bands indicator.Bands, p Params) Signal
