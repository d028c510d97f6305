package model

import "math"

// RoundUSD rounds a dollar amount to cents, half away from zero. Volumes
// and notionals are rounded at the boundaries where they are produced so
// stored values match what is displayed.
func RoundUSD(v float64) float64 {
	return math.Round(v*100) / 100
}
