package strategy

import (
	"fmt"
	"math"

	"simbot/internal/indicator"
	"simbot/internal/model"
)

// Default strategy parameters.
const (
	DefaultBaseUSD         = 6
	DefaultHoldZonePercent = 10
)

// DistanceVolume sizes trades by how far price has travelled from the
// moving average toward the relevant band edge.
//
// Inside a neutral zone of ±holdZonePercent% of the half-width around the
// MA nothing happens. Outside it, the distance ratio in [0,1] scales the
// base amount by 1+ratio, so volume ranges from 100% to 200% of base.
// Price below the MA buys, above it sells.
func DistanceVolume(bands indicator.Bands, p Params) Signal {
	upperWidth := bands.Upper - bands.Middle
	lowerWidth := bands.Middle - bands.Lower

	// Degenerate series collapses the bands; force HOLD rather than
	// divide by zero.
	if upperWidth <= 0 || lowerWidth <= 0 {
		return Signal{
			Action:     model.ActionHold,
			Multiplier: 1,
			Reason:     "invalid band width",
		}
	}

	zone := p.HoldZonePercent / 100
	holdUpper := bands.Middle + upperWidth*zone
	holdLower := bands.Middle - lowerWidth*zone

	if bands.Price >= holdLower && bands.Price <= holdUpper {
		return Signal{
			Action:     model.ActionHold,
			Multiplier: 1,
			Reason:     fmt.Sprintf("price in neutral zone (±%g%% from MA)", p.HoldZonePercent),
		}
	}

	if bands.Price < bands.Middle {
		ratio := clamp01((bands.Middle - bands.Price) / lowerWidth)
		return sized(model.ActionBuy, ratio, p.BaseUSD,
			fmt.Sprintf("buy: %.1f%% of the way to the lower band", ratio*100))
	}

	ratio := clamp01((bands.Price - bands.Middle) / upperWidth)
	return sized(model.ActionSell, ratio, p.BaseUSD,
		fmt.Sprintf("sell: %.1f%% of the way to the upper band", ratio*100))
}

func sized(action model.Action, ratio, base float64, reason string) Signal {
	multiplier := 1 + ratio

	// multiplier already keeps volume in [base, 2*base]; the clamp is a
	// safety bound only.
	volume := base * multiplier
	volume = math.Max(base, math.Min(2*base, volume))

	return Signal{
		Action:        action,
		VolumeUSD:     model.RoundUSD(volume),
		DistanceRatio: ratio,
		Multiplier:    model.RoundUSD(multiplier),
		Reason:        reason,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
