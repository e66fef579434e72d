// Package export writes frames, prediction tables and forecasts as CSV and
// Parquet, and reads CSV tables back into frames.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
)

// TimestampColumn is the first column of every exported table.
const TimestampColumn = "timestamp"

// WriteFrameCSV writes f with a header row: timestamp (RFC 3339) first, then
// numeric columns, then categorical columns. Missing numeric values are
// written as empty fields.
func WriteFrameCSV(w io.Writer, f *domain.Frame) error {
	numeric, labels := f.Columns(), f.LabelColumns()
	cw := csv.NewWriter(w)

	header := make([]string, 0, 1+len(numeric)+len(labels))
	header = append(header, TimestampColumn)
	header = append(header, numeric...)
	header = append(header, labels...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(header))
	for i, ts := range f.Timestamps {
		record[0] = ts.UTC().Format(time.RFC3339)
		for j, name := range numeric {
			record[1+j] = formatFloat(f.Column(name)[i])
		}
		for j, name := range labels {
			record[1+len(numeric)+j] = f.Label(name)[i]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteFrameCSV. A column is numeric when
// every non-empty field parses as a float; empty fields become NaN. Other
// columns are categorical.
func ReadCSV(r io.Reader) (*domain.Frame, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("read csv: missing header")
	}
	header := rows[0]
	if len(header) == 0 || header[0] != TimestampColumn {
		return nil, fmt.Errorf("read csv: first column must be %q", TimestampColumn)
	}

	data := rows[1:]
	ts := make([]time.Time, len(data))
	for i, row := range data {
		t, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: parse timestamp: %w", i+1, err)
		}
		ts[i] = t
	}

	f := domain.NewFrame(ts)
	for j := 1; j < len(header); j++ {
		if values, ok := parseNumeric(data, j); ok {
			f.SetColumn(header[j], values)
			continue
		}
		labels := make([]string, len(data))
		for i, row := range data {
			labels[i] = row[j]
		}
		f.SetLabel(header[j], labels)
	}
	return f, nil
}

// WriteFrameFile writes f as CSV to path, creating parent directories.
func WriteFrameFile(path string, f *domain.Frame) error {
	return writeFile(path, func(w io.Writer) error { return WriteFrameCSV(w, f) })
}

// ReadFrameFile reads a CSV table from path.
func ReadFrameFile(path string) (*domain.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return ReadCSV(file)
}

// WriteForecastCSV writes the hourly Kp outlook.
func WriteForecastCSV(w io.Writer, points []domain.ForecastPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{TimestampColumn, "hour_ahead", "kp_forecast", "storm_level"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range points {
		err := cw.Write([]string{
			p.Timestamp.UTC().Format(time.RFC3339),
			strconv.Itoa(p.HourAhead),
			formatFloat(p.KpForecast),
			string(p.StormLevel),
		})
		if err != nil {
			return fmt.Errorf("write forecast hour %d: %w", p.HourAhead, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecastFile writes the outlook as CSV to path.
func WriteForecastFile(path string, points []domain.ForecastPoint) error {
	return writeFile(path, func(w io.Writer) error { return WriteForecastCSV(w, points) })
}

func parseNumeric(rows [][]string, j int) ([]float64, bool) {
	values := make([]float64, len(rows))
	for i, row := range rows {
		if row[j] == "" {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(row[j], 64)
		if err != nil {
			return nil, false
		}
		values[i] = v
	}
	return values, true
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}
