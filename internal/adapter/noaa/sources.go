package noaa

import (
	"net/url"
	"time"
)

// Source names as reported in logs, metrics and CollectAll results.
const (
	SourceSolarWind    = "solar_wind"
	SourceGeomagnetic  = "geomagnetic"
	SourceXRay         = "xray"
	SourceProton       = "proton"
	SourceMagnetometer = "magnetometer"
	SourceFlares       = "flares"
	SourceCME          = "cme"
)

// donkiWindow is how far back the DONKI event queries reach.
const donkiWindow = 30 * 24 * time.Hour

// Config holds the upstream endpoints. Nothing is read from package state.
type Config struct {
	ProductsURL string // NOAA SWPC products base, e.g. https://services.swpc.noaa.gov/products
	JSONURL     string // NOAA SWPC json base, e.g. https://services.swpc.noaa.gov/json
	DonkiURL    string // NASA DONKI base, e.g. https://api.nasa.gov/DONKI
	APIKey      string
	Timeout     time.Duration
}

// Source describes one upstream dataset: the endpoints to try in order,
// the field carrying the timestamp and the fields coerced to numbers.
type Source struct {
	Name      string
	URLs      []string
	TimeField string
	Numeric   []string
}

// Sources returns the collector's datasets in collection order. DONKI
// queries cover the 30 days before now.
func Sources(cfg Config, now time.Time) []Source {
	p := cfg.ProductsURL
	j := cfg.JSONURL
	return []Source{
		{
			Name: SourceSolarWind,
			URLs: []string{
				p + "/solar-wind/plasma-7-day.json",
				p + "/solar-wind/plasma-3-day.json",
				p + "/solar-wind/plasma-1-day.json",
			},
			TimeField: "time_tag",
			Numeric:   []string{"density", "speed", "temperature"},
		},
		{
			Name:      SourceGeomagnetic,
			URLs:      []string{j + "/planetary_k_index_1m.json"},
			TimeField: "time_tag",
			Numeric:   []string{"kp_index"},
		},
		{
			Name:      SourceXRay,
			URLs:      []string{j + "/goes/primary/xrays-7-day.json"},
			TimeField: "time_tag",
			Numeric:   []string{"flux"},
		},
		{
			Name:      SourceProton,
			URLs:      []string{j + "/goes/primary/integral-protons-plot-6-hour.json"},
			TimeField: "time_tag",
			Numeric:   []string{"flux"},
		},
		{
			Name: SourceMagnetometer,
			URLs: []string{
				p + "/solar-wind/mag-7-day.json",
				p + "/solar-wind/mag-3-day.json",
				p + "/solar-wind/mag-2-hour.json",
				j + "/goes/primary/magnetometers-7-day.json",
			},
			TimeField: "time_tag",
			Numeric:   []string{"bx_gsm", "by_gsm", "bz_gsm", "bt", "lat_gsm", "lon_gsm"},
		},
		{
			Name:      SourceFlares,
			URLs:      []string{donkiURL(cfg, "FLR", now)},
			TimeField: "beginTime",
		},
		{
			Name:      SourceCME,
			URLs:      []string{donkiURL(cfg, "CME", now)},
			TimeField: "startTime",
		},
	}
}

func donkiURL(cfg Config, endpoint string, now time.Time) string {
	end := now.UTC()
	params := url.Values{
		"startDate": {end.Add(-donkiWindow).Format(time.DateOnly)},
		"endDate":   {end.Format(time.DateOnly)},
		"api_key":   {cfg.APIKey},
	}
	return cfg.DonkiURL + "/" + endpoint + "?" + params.Encode()
}
