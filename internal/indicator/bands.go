// Package indicator computes moving-average band values from a price
// series.
//
// All functions are pure: they take an ascending-ordered slice of closes
// and return derived values with no side effects. Band values are derived
// per evaluation and never persisted on their own.
package indicator

import "math"

// Default parameters for band computation.
const (
	DefaultPeriod     = 20
	DefaultMultiplier = 2.0
)

// Bands holds the upper/middle/lower band values plus the reference price
// (the most recent close in the series).
type Bands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Price  float64 `json:"price"`
}

// SMA returns the arithmetic mean of the trailing period elements.
// A series shorter than the period degrades to the most recent price
// rather than erroring; an empty series yields 0.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		return prices[len(prices)-1]
	}
	var sum float64
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// StdDev returns the population standard deviation of the trailing period
// elements, or 0 when the series is shorter than the period.
func StdDev(prices []float64, period int) float64 {
	if len(prices) < period || period <= 0 {
		return 0
	}
	window := prices[len(prices)-period:]
	var sum float64
	for _, p := range window {
		sum += p
	}
	mean := sum / float64(period)

	var variance float64
	for _, p := range window {
		d := p - mean
		variance += d * d
	}
	variance /= float64(period)
	return math.Sqrt(variance)
}

// Compute derives Bands from the series: middle is the trailing SMA,
// upper/lower sit k standard deviations away, and Price is the last
// element of the series.
func Compute(prices []float64, period int, k float64) Bands {
	middle := SMA(prices, period)
	sd := StdDev(prices, period)

	var last float64
	if len(prices) > 0 {
		last = prices[len(prices)-1]
	}

	return Bands{
		Upper:  middle + k*sd,
		Middle: middle,
		Lower:  middle - k*sd,
		Price:  last,
	}
}
