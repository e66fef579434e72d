package export

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 10, 16, 0, 0, 0, time.UTC)

func sampleFrame() *domain.Frame {
	f := domain.NewFrame([]time.Time{t0, t0.Add(time.Hour), t0.Add(2 * time.Hour)})
	f.SetColumn(domain.ColKpIndex, []float64{3, math.NaN(), 8.33})
	f.SetColumn(domain.ColXRayFlux, []float64{1e-7, 2.5e-5, 1e-9})
	f.SetLabel(domain.ColFlareClass, []string{"C", "X", "A"})
	return f
}

func TestWriteFrameCSV_Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrameCSV(&buf, sampleFrame()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "timestamp,kp_index,xray_flux,flare_class", lines[0])
	assert.Equal(t, "2024-05-10T16:00:00Z,3,1e-07,C", lines[1])
	assert.Equal(t, "2024-05-10T17:00:00Z,,2.5e-05,X", lines[2], "missing value is an empty field")
}

func TestReadCSV_RoundTrip(t *testing.T) {
	want := sampleFrame()
	var buf bytes.Buffer
	require.NoError(t, WriteFrameCSV(&buf, want))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, want.Columns(), got.Columns())
	assert.Equal(t, want.LabelColumns(), got.LabelColumns())
	for i := range want.Timestamps {
		assert.True(t, want.Timestamps[i].Equal(got.Timestamps[i]))
	}
	kp := got.Column(domain.ColKpIndex)
	assert.Equal(t, 3.0, kp[0])
	assert.True(t, math.IsNaN(kp[1]))
	assert.Equal(t, 8.33, kp[2])
	assert.Equal(t, want.Column(domain.ColXRayFlux), got.Column(domain.ColXRayFlux))
	assert.Equal(t, want.Label(domain.ColFlareClass), got.Label(domain.ColFlareClass))
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "empty", input: "", wantErr: "missing header"},
		{name: "no timestamp column", input: "kp_index\n3\n", wantErr: "first column"},
		{name: "bad timestamp", input: "timestamp,kp_index\nyesterday,3\n", wantErr: "parse timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadCSV_MixedColumnIsCategorical(t *testing.T) {
	input := "timestamp,status\n2024-05-10T16:00:00Z,1\n2024-05-10T17:00:00Z,active\n"
	f, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.False(t, f.Has("status"))
	assert.Equal(t, []string{"1", "active"}, f.Label("status"))
}

func TestWriteForecastCSV(t *testing.T) {
	points := domain.NewForecast(t0, 2, func(h int) float64 { return 4.5 + float64(h) })
	var buf bytes.Buffer
	require.NoError(t, WriteForecastCSV(&buf, points))
	assert.Equal(t,
		"timestamp,hour_ahead,kp_forecast,storm_level\n"+
			"2024-05-10T17:00:00Z,1,5.5,G1-Minor\n"+
			"2024-05-10T18:00:00Z,2,6.5,G2-Moderate\n",
		buf.String())
}

func TestFiles_CreateParentDirectories(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	path := filepath.Join(dir, "predictions.csv")
	require.NoError(t, WriteFrameFile(path, sampleFrame()))

	f, err := ReadFrameFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())

	require.NoError(t, WriteForecastFile(filepath.Join(dir, "forecast.csv"), nil))
	assert.FileExists(t, filepath.Join(dir, "forecast.csv"))
}

func TestPredictionRecords(t *testing.T) {
	f := sampleFrame()
	f.SetColumn(domain.ColFlarePrediction, []float64{0, 1, 0})
	f.SetColumn(domain.ColFlareProbability, []float64{0.1, 0.9, 0.05})
	f.SetColumn(domain.ColRiskPrediction, []float64{2, 7.5, 1})

	records := PredictionRecords(f)
	require.Len(t, records, 3)
	assert.Equal(t, PredictionRecord{
		Timestamp:        t0.Add(time.Hour),
		XRayFlux:         2.5e-5,
		FlareClass:       "X",
		FlarePrediction:  1,
		FlareProbability: 0.9,
		RiskPrediction:   7.5,
	}, records[1], "missing kp and absent columns are zero")
}

func TestParquet_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := sampleFrame()
	f.SetColumn(domain.ColRiskPrediction, []float64{2, 7.5, 1})
	f.SetColumn(domain.ColFlarePrediction, []float64{0, 1, 0})
	records := PredictionRecords(f)

	path := filepath.Join(dir, "predictions.parquet")
	require.NoError(t, WriteParquetFile(path, records))
	got, err := ReadParquetFile[PredictionRecord](path)
	require.NoError(t, err)
	require.Len(t, got, len(records))
	for i := range records {
		assert.True(t, records[i].Timestamp.Equal(got[i].Timestamp))
		assert.Equal(t, records[i].RiskPrediction, got[i].RiskPrediction)
		assert.Equal(t, records[i].FlareClass, got[i].FlareClass)
		assert.Equal(t, records[i].FlarePrediction, got[i].FlarePrediction)
	}
	assert.Equal(t, int32(1), got[1].FlarePrediction)

	points := domain.NewForecast(t0, 24, func(int) float64 { return 5 })
	fpath := filepath.Join(dir, "forecast.parquet")
	require.NoError(t, WriteParquetFile(fpath, ForecastRecords(points)))
	forecast, err := ReadParquetFile[ForecastRecord](fpath)
	require.NoError(t, err)
	require.Len(t, forecast, 24)
	assert.Equal(t, int32(24), forecast[23].HourAhead)
	assert.Equal(t, string(domain.StormG1), forecast[0].StormLevel)
}

func TestWriteParquet_FlagRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NotPanics(t, func() {
		require.NoError(t, WriteParquet(&buf, []PredictionRecord{{Timestamp: t0, FlarePrediction: 1}}))
	})
	assert.NotZero(t, buf.Len())
}
