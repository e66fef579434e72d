package domain

import "math"

// FlareClass is the GOES X-ray flare severity letter.
type FlareClass string

const (
	FlareA FlareClass = "A"
	FlareB FlareClass = "B"
	FlareC FlareClass = "C"
	FlareM FlareClass = "M"
	FlareX FlareClass = "X"
)

// Rank orders flare classes from 0 (A) to 4 (X).
func (c FlareClass) Rank() int {
	switch c {
	case FlareB:
		return 1
	case FlareC:
		return 2
	case FlareM:
		return 3
	case FlareX:
		return 4
	default:
		return 0
	}
}

// Significant reports whether the class counts as a flare event (M or X).
func (c FlareClass) Significant() bool { return c == FlareM || c == FlareX }

// StormClass is the NOAA G-scale geomagnetic storm level.
type StormClass string

const (
	StormNone    StormClass = "None"
	StormG1      StormClass = "G1-Minor"
	StormG2      StormClass = "G2-Moderate"
	StormG3      StormClass = "G3-Strong"
	StormG4      StormClass = "G4-Severe"
	StormG5      StormClass = "G5-Extreme"
	StormUnknown StormClass = "Unknown"
)

// StormKpCutoff is the Kp value at or above which a storm has occurred.
const StormKpCutoff = 5.0

// FlareBoostFlux is the X-ray flux above which radio blackouts raise the
// communication disruption probability.
const FlareBoostFlux = 1e-5

// ClassifyFlareIntensity maps X-ray flux (W/m²) to a flare class:
//   - <1e-8 A, <1e-7 B, <1e-6 C, <1e-5 M, else X
//
// Boundary values fall in the higher class. NaN and non-positive flux map
// to A so the function never fails.
func ClassifyFlareIntensity(flux float64) FlareClass {
	if math.IsNaN(flux) || flux <= 0 {
		return FlareA
	}
	switch {
	case flux < 1e-8:
		return FlareA
	case flux < 1e-7:
		return FlareB
	case flux < 1e-6:
		return FlareC
	case flux < 1e-5:
		return FlareM
	default:
		return FlareX
	}
}

// ClassifyGeomagStorm maps a Kp index to the G-scale:
//   - <5 None, <6 G1, <7 G2, <8 G3, <9 G4, else G5
//
// NaN maps to Unknown.
func ClassifyGeomagStorm(kp float64) StormClass {
	if math.IsNaN(kp) {
		return StormUnknown
	}
	switch {
	case kp < 5:
		return StormNone
	case kp < 6:
		return StormG1
	case kp < 7:
		return StormG2
	case kp < 8:
		return StormG3
	case kp < 9:
		return StormG4
	default:
		return StormG5
	}
}

// DstIndex estimates the disturbance storm-time index (nT) from a
// simplified Burton relation driven by the dawn-dusk electric field.
// Returns 0 when any input is missing.
func DstIndex(bz, speed, density float64) float64 {
	if math.IsNaN(bz) || math.IsNaN(speed) || math.IsNaN(density) {
		return 0
	}
	ey := speed * math.Abs(math.Min(bz, 0)) / 1000
	return -15*ey - 20
}

// ClassifyFlares labels every row of the frame from its xray_flux column,
// adding flare_class and flare_occurred.
func ClassifyFlares(f *Frame) {
	flux := f.Column(ColXRayFlux)
	classes := make([]string, f.Len())
	occurred := make([]float64, f.Len())
	for i := range classes {
		v := math.NaN()
		if flux != nil {
			v = flux[i]
		}
		c := ClassifyFlareIntensity(v)
		classes[i] = string(c)
		if c.Significant() {
			occurred[i] = 1
		}
	}
	f.SetLabel(ColFlareClass, classes)
	f.SetColumn(ColFlareOccurred, occurred)
}

// ClassifyStorms labels every row of the frame from its kp_index column,
// adding storm_class and storm_occurred.
func ClassifyStorms(f *Frame) {
	kp := f.Column(ColKpIndex)
	classes := make([]string, f.Len())
	occurred := make([]float64, f.Len())
	for i := range classes {
		v := math.NaN()
		if kp != nil {
			v = kp[i]
		}
		classes[i] = string(ClassifyGeomagStorm(v))
		if v >= StormKpCutoff {
			occurred[i] = 1
		}
	}
	f.SetLabel(ColStormClass, classes)
	f.SetColumn(ColStormOccurred, occurred)
}
