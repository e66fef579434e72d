package domain

import "time"

// ForecastPoint is one hour of the Kp outlook.
type ForecastPoint struct {
	Timestamp  time.Time  `json:"timestamp"`
	HourAhead  int        `json:"hour_ahead"`
	KpForecast float64    `json:"kp_forecast"`
	StormLevel StormClass `json:"storm_level"`
}

// NewForecast builds an hourly outlook starting one hour after from. kp is
// called with the hour offset and returns the forecast Kp for that hour.
func NewForecast(from time.Time, hours int, kp func(hourAhead int) float64) []ForecastPoint {
	points := make([]ForecastPoint, 0, hours)
	for h := 1; h <= hours; h++ {
		v := kp(h)
		points = append(points, ForecastPoint{
			Timestamp:  from.Add(time.Duration(h) * time.Hour),
			HourAhead:  h,
			KpForecast: v,
			StormLevel: ClassifyGeomagStorm(v),
		})
	}
	return points
}
