package domain

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Frame is a time-indexed table of observations. Numeric columns hold
// float64 values with NaN marking a missing value; categorical columns hold
// strings. Column order is insertion order and is preserved on export.
type Frame struct {
	Timestamps []time.Time

	numeric      map[string][]float64
	numericOrder []string
	labels       map[string][]string
	labelOrder   []string
}

// NewFrame creates an empty frame indexed by the given timestamps.
func NewFrame(timestamps []time.Time) *Frame {
	return &Frame{
		Timestamps: timestamps,
		numeric:    make(map[string][]float64),
		labels:     make(map[string][]string),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Timestamps) }

// Columns returns the numeric column names in insertion order.
func (f *Frame) Columns() []string { return slices.Clone(f.numericOrder) }

// LabelColumns returns the categorical column names in insertion order.
func (f *Frame) LabelColumns() []string { return slices.Clone(f.labelOrder) }

// Has reports whether a numeric column exists.
func (f *Frame) Has(name string) bool {
	_, ok := f.numeric[name]
	return ok
}

// Column returns the numeric column with the given name, or nil when absent.
// The returned slice aliases the frame's storage.
func (f *Frame) Column(name string) []float64 { return f.numeric[name] }

// Label returns the categorical column with the given name, or nil when absent.
func (f *Frame) Label(name string) []string { return f.labels[name] }

// SetColumn adds or replaces a numeric column. Values must have one entry per row.
func (f *Frame) SetColumn(name string, values []float64) {
	if len(values) != f.Len() {
		panic(fmt.Sprintf("domain: column %q has %d values for %d rows", name, len(values), f.Len()))
	}
	if _, ok := f.numeric[name]; !ok {
		f.numericOrder = append(f.numericOrder, name)
	}
	f.numeric[name] = values
}

// SetLabel adds or replaces a categorical column. Values must have one entry per row.
func (f *Frame) SetLabel(name string, values []string) {
	if len(values) != f.Len() {
		panic(fmt.Sprintf("domain: label %q has %d values for %d rows", name, len(values), f.Len()))
	}
	if _, ok := f.labels[name]; !ok {
		f.labelOrder = append(f.labelOrder, name)
	}
	f.labels[name] = values
}

// Clone returns a deep copy so transforms can extend a frame without
// touching the caller's data.
func (f *Frame) Clone() *Frame {
	out := NewFrame(slices.Clone(f.Timestamps))
	for _, name := range f.numericOrder {
		out.SetColumn(name, slices.Clone(f.numeric[name]))
	}
	for _, name := range f.labelOrder {
		out.SetLabel(name, slices.Clone(f.labels[name]))
	}
	return out
}

// Slice returns a deep copy of rows [i, j).
func (f *Frame) Slice(i, j int) *Frame {
	i = max(i, 0)
	j = min(j, f.Len())
	if i > j {
		i = j
	}
	out := NewFrame(slices.Clone(f.Timestamps[i:j]))
	for _, name := range f.numericOrder {
		out.SetColumn(name, slices.Clone(f.numeric[name][i:j]))
	}
	for _, name := range f.labelOrder {
		out.SetLabel(name, slices.Clone(f.labels[name][i:j]))
	}
	return out
}

// Tail returns a copy of the last n rows.
func (f *Frame) Tail(n int) *Frame {
	return f.Slice(f.Len()-n, f.Len())
}

// Matrix returns the named numeric columns as row-major samples. Missing
// values are replaced with fill.
func (f *Frame) Matrix(columns []string, fill float64) ([][]float64, error) {
	cols := make([][]float64, len(columns))
	for j, name := range columns {
		c, ok := f.numeric[name]
		if !ok {
			return nil, fmt.Errorf("column %q not in frame", name)
		}
		cols[j] = c
	}
	out := make([][]float64, f.Len())
	for i := range out {
		row := make([]float64, len(columns))
		for j, c := range cols {
			v := c[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = fill
			}
			row[j] = v
		}
		out[i] = row
	}
	return out, nil
}
