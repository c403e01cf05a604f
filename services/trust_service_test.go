package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testPolicy() Policy {
	return Policy{
		Weights: TrustWeights{
			CompleteClean: 25,
			CompleteDirty: 5,
			Draw:          15,
			Abandoned:     -5,
			Timeout:       0,
		},
		RevealThresholds: DefaultRevealThresholds,
		MaxTrustDelta:    40,
		DirtyFlagRate:    0.25,
	}
}

func TestComputeTrustDelta(t *testing.T) {
	p := testPolicy()

	tests := []struct {
		name     string
		outcome  string
		flagRate float64
		want     int64
	}{
		{"clean win", "win", 0, 25},
		{"clean draw", "draw", 0, 15},
		{"abandoned penalty", "abandoned", 0, -5},
		{"timeout is neutral", "timeout", 0, 0},
		{"unknown outcome", "something-else", 0, 0},
		{"dirty win strips bonus", "win", 0.5, 5},
		{"dirty rate exactly at cutoff", "win", 0.25, 5},
		{"dirty rate just below cutoff", "win", 0.24, 25},
		{"dirty draw strips bonus", "draw", 0.3, 5},
		{"dirty abandoned keeps penalty", "abandoned", 1.0, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTrustDelta(p, tt.outcome, tt.flagRate))
		})
	}
}

func TestComputeTrustDeltaClamp(t *testing.T) {
	p := testPolicy()
	p.Weights.CompleteClean = 500
	assert.Equal(t, int64(40), ComputeTrustDelta(p, "win", 0))

	p.Weights.Abandoned = -500
	assert.Equal(t, int64(-40), ComputeTrustDelta(p, "abandoned", 0))
}
