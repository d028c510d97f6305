package strategy

import (
	"math"
	"testing"

	"simbot/internal/indicator"
	"simbot/internal/model"
)

func defaultParams() Params {
	return Params{BaseUSD: DefaultBaseUSD, HoldZonePercent: DefaultHoldZonePercent}
}

func TestDistanceVolume_InvalidBandWidth(t *testing.T) {
	// Collapsed bands from a flat or too-short series
	bands := indicator.Bands{Upper: 100, Middle: 100, Lower: 100, Price: 100}

	sig := DistanceVolume(bands, defaultParams())
	if sig.Action != model.ActionHold {
		t.Errorf("expected HOLD, got %s", sig.Action)
	}
	if sig.VolumeUSD != 0 {
		t.Errorf("expected volume 0, got %v", sig.VolumeUSD)
	}
	if sig.Reason != "invalid band width" {
		t.Errorf("unexpected reason %q", sig.Reason)
	}
}

func TestDistanceVolume_NeutralZoneHolds(t *testing.T) {
	bands := indicator.Bands{Upper: 110, Middle: 100, Lower: 90}

	// Half-width is 10, hold zone ±1. All prices within [99, 101] hold.
	for _, price := range []float64{99, 99.5, 100, 100.5, 101} {
		bands.Price = price
		sig := DistanceVolume(bands, defaultParams())
		if sig.Action != model.ActionHold {
			t.Errorf("price %v: expected HOLD, got %s", price, sig.Action)
		}
		if sig.VolumeUSD != 0 {
			t.Errorf("price %v: expected volume 0, got %v", price, sig.VolumeUSD)
		}
	}
}

func TestDistanceVolume_BuyBelowMiddle(t *testing.T) {
	// Price 40% of the way from MA to the lower band
	bands := indicator.Bands{Upper: 110, Middle: 100, Lower: 90, Price: 96}

	sig := DistanceVolume(bands, defaultParams())
	if sig.Action != model.ActionBuy {
		t.Fatalf("expected BUY, got %s", sig.Action)
	}
	if math.Abs(sig.DistanceRatio-0.4) > 1e-9 {
		t.Errorf("expected ratio 0.4, got %v", sig.DistanceRatio)
	}
	if math.Abs(sig.Multiplier-1.4) > 1e-9 {
		t.Errorf("expected multiplier 1.4, got %v", sig.Multiplier)
	}
	// volume = 6 * 1.4 = 8.40
	if math.Abs(sig.VolumeUSD-8.4) > 1e-9 {
		t.Errorf("expected volume 8.4, got %v", sig.VolumeUSD)
	}
}

func TestDistanceVolume_SellAboveMiddle(t *testing.T) {
	bands := indicator.Bands{Upper: 110, Middle: 100, Lower: 90, Price: 105}

	sig := DistanceVolume(bands, defaultParams())
	if sig.Action != model.ActionSell {
		t.Fatalf("expected SELL, got %s", sig.Action)
	}
	if math.Abs(sig.DistanceRatio-0.5) > 1e-9 {
		t.Errorf("expected ratio 0.5, got %v", sig.DistanceRatio)
	}
	if math.Abs(sig.VolumeUSD-9) > 1e-9 {
		t.Errorf("expected volume 9, got %v", sig.VolumeUSD)
	}
}

func TestDistanceVolume_RatioClampedBeyondBand(t *testing.T) {
	// Price far below the lower band: ratio clamps to 1, volume to 2x base
	bands := indicator.Bands{Upper: 110, Middle: 100, Lower: 90, Price: 60}

	sig := DistanceVolume(bands, defaultParams())
	if sig.Action != model.ActionBuy {
		t.Fatalf("expected BUY, got %s", sig.Action)
	}
	if sig.DistanceRatio != 1 {
		t.Errorf("expected ratio clamped to 1, got %v", sig.DistanceRatio)
	}
	if math.Abs(sig.VolumeUSD-12) > 1e-9 {
		t.Errorf("expected volume 12 (2x base), got %v", sig.VolumeUSD)
	}
}

func TestDistanceVolume_VolumeAlwaysBounded(t *testing.T) {
	bands := indicator.Bands{Upper: 110, Middle: 100, Lower: 90}
	p := defaultParams()

	for price := 60.0; price <= 140; price += 0.5 {
		bands.Price = price
		sig := DistanceVolume(bands, p)
		if sig.Action == model.ActionHold {
			continue
		}
		if sig.VolumeUSD < p.BaseUSD || sig.VolumeUSD > 2*p.BaseUSD {
			t.Errorf("price %v: volume %v outside [%v, %v]", price, sig.VolumeUSD, p.BaseUSD, 2*p.BaseUSD)
		}
		if sig.DistanceRatio < 0 || sig.DistanceRatio > 1 {
			t.Errorf("price %v: ratio %v outside [0,1]", price, sig.DistanceRatio)
		}
	}
}
