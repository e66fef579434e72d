package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyFlareIntensity(t *testing.T) {
	tests := []struct {
		flux float64
		want FlareClass
	}{
		{math.NaN(), FlareA},
		{-1, FlareA},
		{0, FlareA},
		{5e-9, FlareA},
		{1e-8, FlareB},
		{5e-8, FlareB},
		{1e-7, FlareC},
		{1e-6, FlareM},
		{9.99e-6, FlareM},
		{1e-5, FlareX},
		{2e-5, FlareX},
		{1e-3, FlareX},
		{math.Inf(1), FlareX},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyFlareIntensity(tt.flux), "flux=%g", tt.flux)
	}
}

func TestClassifyFlareIntensity_Monotonic(t *testing.T) {
	prev := -1
	for exp := -12.0; exp <= -2; exp += 0.05 {
		rank := ClassifyFlareIntensity(math.Pow(10, exp)).Rank()
		assert.GreaterOrEqual(t, rank, prev, "exp=%v", exp)
		prev = rank
	}
}

func TestClassifyGeomagStorm(t *testing.T) {
	tests := []struct {
		kp   float64
		want StormClass
	}{
		{math.NaN(), StormUnknown},
		{0, StormNone},
		{4.99, StormNone},
		{5, StormG1},
		{6, StormG2},
		{6.5, StormG2},
		{7, StormG3},
		{8, StormG4},
		{8.99, StormG4},
		{9, StormG5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyGeomagStorm(tt.kp), "kp=%v", tt.kp)
	}
}

func TestFlareClassSignificant(t *testing.T) {
	assert.False(t, FlareC.Significant())
	assert.True(t, FlareM.Significant())
	assert.True(t, FlareX.Significant())
}

func TestDstIndex(t *testing.T) {
	assert.InDelta(t, -20.0, DstIndex(5, 400, 5), 1e-9, "northward bz has no coupling")
	assert.InDelta(t, -20-15*6.0, DstIndex(-10, 600, 5), 1e-9)
	assert.Zero(t, DstIndex(math.NaN(), 400, 5))
}

func TestClassifyFramesLabels(t *testing.T) {
	f := NewFrame(hourly(3))
	f.SetColumn(ColXRayFlux, []float64{1e-9, 2e-6, 2e-5})
	f.SetColumn(ColKpIndex, []float64{2, 5, math.NaN()})

	ClassifyFlares(f)
	ClassifyStorms(f)

	assert.Equal(t, []string{"A", "M", "X"}, f.Label(ColFlareClass))
	assert.Equal(t, []float64{0, 1, 1}, f.Column(ColFlareOccurred))
	assert.Equal(t, []string{"None", "G1-Minor", "Unknown"}, f.Label(ColStormClass))
	assert.Equal(t, []float64{0, 1, 0}, f.Column(ColStormOccurred))
}
