package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/parquet-go/parquet-go"
)

// PredictionRecord is one row of the prediction table as written to Parquet,
// served over HTTP and inserted into ClickHouse.
type PredictionRecord struct {
	Timestamp        time.Time `parquet:"timestamp" json:"timestamp"`
	SolarWindSpeed   float64   `parquet:"solar_wind_speed" json:"solar_wind_speed"`
	ProtonDensity    float64   `parquet:"proton_density" json:"proton_density"`
	Bz               float64   `parquet:"bz" json:"bz"`
	XRayFlux         float64   `parquet:"xray_flux" json:"xray_flux"`
	KpIndex          float64   `parquet:"kp_index" json:"kp_index"`
	FlareClass       string    `parquet:"flare_class" json:"flare_class"`
	StormClass       string    `parquet:"storm_class" json:"storm_class"`
	FlarePrediction  int32     `parquet:"flare_prediction" json:"flare_prediction"`
	FlareProbability float64   `parquet:"flare_probability" json:"flare_probability"`
	RiskPrediction   float64   `parquet:"risk_prediction" json:"risk_prediction"`
}

// ForecastRecord is one hour of the Kp outlook as written to Parquet.
type ForecastRecord struct {
	Timestamp  time.Time `parquet:"timestamp"`
	HourAhead  int32     `parquet:"hour_ahead"`
	KpForecast float64   `parquet:"kp_forecast"`
	StormLevel string    `parquet:"storm_level"`
}

// PredictionRecords flattens a prediction frame into records. Absent or
// missing numeric values become zero so every record is JSON-encodable.
func PredictionRecords(f *domain.Frame) []PredictionRecord {
	num := func(name string, i int) float64 {
		col := f.Column(name)
		if col == nil || math.IsNaN(col[i]) || math.IsInf(col[i], 0) {
			return 0
		}
		return col[i]
	}
	label := func(name string, i int) string {
		if col := f.Label(name); col != nil {
			return col[i]
		}
		return ""
	}

	out := make([]PredictionRecord, f.Len())
	for i, ts := range f.Timestamps {
		out[i] = PredictionRecord{
			Timestamp:        ts.UTC(),
			SolarWindSpeed:   num(domain.ColSolarWindSpeed, i),
			ProtonDensity:    num(domain.ColProtonDensity, i),
			Bz:               num(domain.ColBz, i),
			XRayFlux:         num(domain.ColXRayFlux, i),
			KpIndex:          num(domain.ColKpIndex, i),
			FlareClass:       label(domain.ColFlareClass, i),
			StormClass:       label(domain.ColStormClass, i),
			FlarePrediction:  int32(num(domain.ColFlarePrediction, i)),
			FlareProbability: num(domain.ColFlareProbability, i),
			RiskPrediction:   num(domain.ColRiskPrediction, i),
		}
	}
	return out
}

// ForecastRecords converts forecast points into Parquet rows.
func ForecastRecords(points []domain.ForecastPoint) []ForecastRecord {
	out := make([]ForecastRecord, len(points))
	for i, p := range points {
		out[i] = ForecastRecord{
			Timestamp:  p.Timestamp.UTC(),
			HourAhead:  int32(p.HourAhead),
			KpForecast: p.KpForecast,
			StormLevel: string(p.StormLevel),
		}
	}
	return out
}

// WriteParquet writes rows as a single Parquet file to w.
func WriteParquet[T any](w io.Writer, rows []T) error {
	pw := parquet.NewGenericWriter[T](w)
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// WriteParquetFile writes rows to path, creating parent directories.
func WriteParquetFile[T any](path string, rows []T) error {
	return writeFile(path, func(w io.Writer) error { return WriteParquet(w, rows) })
}

// ReadParquetFile reads every row of a Parquet file written by WriteParquet.
func ReadParquetFile[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	reader := parquet.NewGenericReader[T](pf)
	defer reader.Close()
	rows := make([]T, pf.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows[:n], nil
}
