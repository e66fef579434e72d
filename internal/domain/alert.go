package domain

import (
	"fmt"
	"time"
)

// Alert levels.
const (
	AlertHigh     = "HIGH"
	AlertModerate = "MODERATE"
)

// Alert types.
const (
	AlertSolarFlare     = "Solar Flare"
	AlertGeomagStorm    = "Geomagnetic Storm"
	AlertSatelliteRisk  = "Satellite Risk"
	AlertSolarWind      = "Solar Wind"
	AlertSouthwardIMFBz = "IMF Bz"
)

// Alert is an operator-facing warning derived from the latest conditions.
type Alert struct {
	Level    string    `json:"level"`
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	IssuedAt time.Time `json:"issued_at"`
}

// Conditions are the latest observed values plus model outputs for that row.
type Conditions struct {
	Observation
	FlareProbability float64    `json:"flare_probability"`
	RiskPrediction   float64    `json:"risk_prediction"`
	FlareClass       FlareClass `json:"flare_class"`
	StormClass       StormClass `json:"storm_class"`
}

// RiskStatus summarizes a satellite risk score:
//   - <3 LOW (normal operations), <7 MODERATE (monitor), else HIGH (take precautions)
func RiskStatus(risk float64) string {
	switch {
	case risk < 3:
		return "LOW"
	case risk < 7:
		return "MODERATE"
	default:
		return "HIGH"
	}
}

// GenerateAlerts evaluates the alert rules against current conditions. Each
// rule contributes at most one alert; the more severe level wins.
func GenerateAlerts(c Conditions) []Alert {
	now := clock.Now().UTC()
	var alerts []Alert
	add := func(level, typ, format string, args ...any) {
		alerts = append(alerts, Alert{
			Level:    level,
			Type:     typ,
			Message:  fmt.Sprintf(format, args...),
			IssuedAt: now,
		})
	}

	switch {
	case c.FlareProbability > 0.7:
		add(AlertHigh, AlertSolarFlare, "High probability (%.0f%%) of solar flare", c.FlareProbability*100)
	case c.FlareProbability > 0.4:
		add(AlertModerate, AlertSolarFlare, "Moderate probability (%.0f%%) of solar flare", c.FlareProbability*100)
	}

	switch {
	case c.KpIndex >= 7:
		add(AlertHigh, AlertGeomagStorm, "Strong geomagnetic storm in progress (Kp=%.1f)", c.KpIndex)
	case c.KpIndex >= 5:
		add(AlertModerate, AlertGeomagStorm, "Minor geomagnetic storm conditions (Kp=%.1f)", c.KpIndex)
	}

	switch {
	case c.RiskPrediction >= 7:
		add(AlertHigh, AlertSatelliteRisk, "High risk to satellite operations (Risk=%.1f/10)", c.RiskPrediction)
	case c.RiskPrediction >= 5:
		add(AlertModerate, AlertSatelliteRisk, "Elevated satellite risk (Risk=%.1f/10)", c.RiskPrediction)
	}

	if c.SolarWindSpeed > 700 {
		add(AlertModerate, AlertSolarWind, "High-speed solar wind stream (%.0f km/s)", c.SolarWindSpeed)
	}

	// Southward IMF couples efficiently with the magnetosphere.
	if c.Bz < -10 {
		add(AlertHigh, AlertSouthwardIMFBz, "Strong southward IMF Bz (%.1f nT), geoeffective", c.Bz)
	}

	return alerts
}
