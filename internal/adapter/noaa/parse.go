package noaa

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
)

// ErrNoRows is returned when a payload parses but carries no usable rows.
var ErrNoRows = errors.New("payload has no rows")

var timeLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

// Parse decodes an upstream payload into a frame. Two shapes are accepted:
// an array of objects, and an array of arrays whose first entry is the
// header row. Rows without a parseable timeField are dropped and the rest
// are ordered by time. Fields named in numeric become numeric columns with
// unparseable values as NaN; every other field is kept as a label column.
func Parse(body []byte, timeField string, numeric []string) (*domain.Frame, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoRows
	}

	var (
		header  []string
		records []map[string]any
		err     error
	)
	if first := bytes.TrimSpace(raw[0]); len(first) > 0 && first[0] == '[' {
		header, records, err = parseTable(raw)
	} else {
		header, records, err = parseObjects(raw)
	}
	if err != nil {
		return nil, err
	}
	return buildFrame(header, records, timeField, numeric)
}

func parseTable(raw []json.RawMessage) ([]string, []map[string]any, error) {
	if len(raw) < 2 {
		return nil, nil, ErrNoRows
	}
	var header []string
	if err := json.Unmarshal(raw[0], &header); err != nil {
		return nil, nil, fmt.Errorf("decode header row: %w", err)
	}
	records := make([]map[string]any, 0, len(raw)-1)
	for i, r := range raw[1:] {
		var values []any
		if err := json.Unmarshal(r, &values); err != nil {
			return nil, nil, fmt.Errorf("decode row %d: %w", i+1, err)
		}
		rec := make(map[string]any, len(header))
		for j, name := range header {
			if j < len(values) {
				rec[name] = values[j]
			}
		}
		records = append(records, rec)
	}
	return header, records, nil
}

func parseObjects(raw []json.RawMessage) ([]string, []map[string]any, error) {
	seen := make(map[string]bool)
	records := make([]map[string]any, 0, len(raw))
	for i, r := range raw {
		var rec map[string]any
		if err := json.Unmarshal(r, &rec); err != nil {
			return nil, nil, fmt.Errorf("decode record %d: %w", i, err)
		}
		for k := range rec {
			seen[k] = true
		}
		records = append(records, rec)
	}
	header := make([]string, 0, len(seen))
	for k := range seen {
		header = append(header, k)
	}
	sort.Strings(header)
	return header, records, nil
}

type row struct {
	ts  time.Time
	rec map[string]any
}

func buildFrame(header []string, records []map[string]any, timeField string, numeric []string) (*domain.Frame, error) {
	rows := make([]row, 0, len(records))
	for _, rec := range records {
		s, _ := rec[timeField].(string)
		ts, ok := parseTime(s)
		if !ok {
			continue
		}
		rows = append(rows, row{ts: ts, rec: rec})
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	timestamps := make([]time.Time, len(rows))
	for i, r := range rows {
		timestamps[i] = r.ts
	}
	f := domain.NewFrame(timestamps)

	for _, name := range header {
		if name == timeField {
			continue
		}
		if slices.Contains(numeric, name) {
			col := make([]float64, len(rows))
			for i, r := range rows {
				col[i] = toFloat(r.rec[name])
			}
			f.SetColumn(name, col)
			continue
		}
		col := make([]string, len(rows))
		for i, r := range rows {
			col[i] = toLabel(r.rec[name])
		}
		f.SetLabel(name, col)
	}
	return f, nil
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func toLabel(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
