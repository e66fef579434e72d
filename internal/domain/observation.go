package domain

import (
	"math"
	"time"
)

// Observation column names.
const (
	ColSolarWindSpeed = "solar_wind_speed" // km/s
	ColProtonDensity  = "proton_density"   // p/cm³
	ColBt             = "bt"               // nT, total IMF magnitude
	ColBz             = "bz"               // nT, GSM north-south component
	ColTemperature    = "temperature"      // K
	ColXRayFlux       = "xray_flux"        // W/m², GOES 1-8 Å
	ColProtonFlux     = "proton_flux"      // pfu
	ColKpIndex        = "kp_index"
	ColDstIndex       = "dst_index" // nT
)

// Derived label column names.
const (
	ColFlareClass         = "flare_class"
	ColFlareOccurred      = "flare_occurred"
	ColStormClass         = "storm_class"
	ColStormOccurred      = "storm_occurred"
	ColSatelliteRisk      = "satellite_risk"
	ColCommDisruptionProb = "comm_disruption_prob"
)

// Prediction column names added to the recent-rows table.
const (
	ColFlarePrediction  = "flare_prediction"
	ColFlareProbability = "flare_probability"
	ColRiskPrediction   = "risk_prediction"
)

// DriverColumns are the solar-wind and X-ray drivers used for sequence
// forecasting and by default for feature engineering.
var DriverColumns = []string{
	ColSolarWindSpeed,
	ColProtonDensity,
	ColBt,
	ColBz,
	ColTemperature,
	ColXRayFlux,
}

// TargetColumns are labels and targets that must never be used as model inputs.
var TargetColumns = []string{
	ColFlareOccurred,
	ColStormOccurred,
	ColSatelliteRisk,
	ColCommDisruptionProb,
}

// PredictionColumns are model outputs. Like TargetColumns they are never
// model inputs, so a scored table can be scored again.
var PredictionColumns = []string{
	ColFlarePrediction,
	ColFlareProbability,
	ColRiskPrediction,
}

// Observation is a single row of space-weather telemetry. Missing values are NaN.
type Observation struct {
	Timestamp      time.Time `json:"timestamp"`
	SolarWindSpeed float64   `json:"solar_wind_speed"`
	ProtonDensity  float64   `json:"proton_density"`
	Bt             float64   `json:"bt"`
	Bz             float64   `json:"bz"`
	Temperature    float64   `json:"temperature"`
	XRayFlux       float64   `json:"xray_flux"`
	ProtonFlux     float64   `json:"proton_flux"`
	KpIndex        float64   `json:"kp_index"`
	DstIndex       float64   `json:"dst_index"`
}

// ObservationAt extracts row i of the frame. Columns absent from the frame
// are reported as NaN.
func (f *Frame) ObservationAt(i int) Observation {
	get := func(name string) float64 {
		c := f.Column(name)
		if c == nil {
			return math.NaN()
		}
		return c[i]
	}
	return Observation{
		Timestamp:      f.Timestamps[i],
		SolarWindSpeed: get(ColSolarWindSpeed),
		ProtonDensity:  get(ColProtonDensity),
		Bt:             get(ColBt),
		Bz:             get(ColBz),
		Temperature:    get(ColTemperature),
		XRayFlux:       get(ColXRayFlux),
		ProtonFlux:     get(ColProtonFlux),
		KpIndex:        get(ColKpIndex),
		DstIndex:       get(ColDstIndex),
	}
}
