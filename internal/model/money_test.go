package model

import (
	"math"
	"testing"
)

func TestRoundUSD(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{1.234, 1.23},
		{1.236, 1.24},
		{12, 12},
		{0, 0},
		{-1.234, -1.23},
		{-1.236, -1.24},
		// midpoint below zero rounds away from zero, not toward it
		{-0.045, -0.05},
	}
	for _, c := range cases {
		if got := RoundUSD(c.in); math.Abs(got-c.want) > 1e-9 {
			t.Errorf("RoundUSD(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}
