package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChiSquareCritical_KnownQuantiles(t *testing.T) {
	tests := []struct {
		df           int
		significance float64
		want         float64
	}{
		{1, 0.05, 3.841},
		{2, 0.05, 5.991},
		{5, 0.05, 11.070},
		{9, 0.05, 16.919},
		{1, 0.01, 6.635},
	}
	for _, tt := range tests {
		got := chiSquareCritical(tt.df, tt.significance)
		assert.InDelta(t, tt.want, got, 5e-3, "df=%d alpha=%g", tt.df, tt.significance)
	}
}

func TestChiSquareCritical_DegenerateDegreesOfFreedom(t *testing.T) {
	assert.Zero(t, chiSquareCritical(0, 0.05))
	assert.Zero(t, chiSquareCritical(-1, 0.05))
}

func TestChiSquareCDF_Monotone(t *testing.T) {
	prev := 0.0
	for x := 0.5; x < 20; x += 0.5 {
		cur := chiSquareCDF(3, x)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.InDelta(t, 1.0, chiSquareCDF(3, 200), 1e-9)
}
