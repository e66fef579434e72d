// Package features derives model inputs from a time-ordered observation frame.
// Every transform returns an extended copy and leaves its input untouched.
package features

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Interaction column names.
const (
	ColDynamicPressure = "dynamic_pressure"
	ColElectricField   = "electric_field"
	ColAlfvenMach      = "alfven_mach"
)

// TimeFeatures adds calendar fields and cyclical encodings of hour and month.
// Day of week counts from Monday = 0.
func TimeFeatures(f *domain.Frame) *domain.Frame {
	out := f.Clone()
	n := f.Len()
	hour := make([]float64, n)
	day := make([]float64, n)
	month := make([]float64, n)
	dow := make([]float64, n)
	doy := make([]float64, n)
	quarter := make([]float64, n)
	hourSin := make([]float64, n)
	hourCos := make([]float64, n)
	monthSin := make([]float64, n)
	monthCos := make([]float64, n)

	for i, ts := range f.Timestamps {
		hour[i] = float64(ts.Hour())
		day[i] = float64(ts.Day())
		month[i] = float64(ts.Month())
		dow[i] = float64((int(ts.Weekday()) + 6) % 7)
		doy[i] = float64(ts.YearDay())
		quarter[i] = float64((int(ts.Month())-1)/3 + 1)
		hourSin[i] = math.Sin(2 * math.Pi * hour[i] / 24)
		hourCos[i] = math.Cos(2 * math.Pi * hour[i] / 24)
		monthSin[i] = math.Sin(2 * math.Pi * month[i] / 12)
		monthCos[i] = math.Cos(2 * math.Pi * month[i] / 12)
	}

	out.SetColumn("hour", hour)
	out.SetColumn("day", day)
	out.SetColumn("month", month)
	out.SetColumn("day_of_week", dow)
	out.SetColumn("day_of_year", doy)
	out.SetColumn("quarter", quarter)
	out.SetColumn("hour_sin", hourSin)
	out.SetColumn("hour_cos", hourCos)
	out.SetColumn("month_sin", monthSin)
	out.SetColumn("month_cos", monthCos)
	return out
}

// RollingFeatures adds trailing mean, std, max and min for each column and
// window. A window needs one observed value to be defined, so the first row
// equals the raw value. Std is the sample standard deviation and stays
// missing until two values are in the window. Missing values inside a window
// are skipped. Columns absent from the frame are ignored.
func RollingFeatures(f *domain.Frame, columns []string, windows []int) *domain.Frame {
	out := f.Clone()
	for _, col := range columns {
		values := f.Column(col)
		if values == nil {
			continue
		}
		for _, w := range windows {
			mean, std, hi, lo := rolling(values, w)
			out.SetColumn(fmt.Sprintf("%s_rolling_mean_%d", col, w), mean)
			out.SetColumn(fmt.Sprintf("%s_rolling_std_%d", col, w), std)
			out.SetColumn(fmt.Sprintf("%s_rolling_max_%d", col, w), hi)
			out.SetColumn(fmt.Sprintf("%s_rolling_min_%d", col, w), lo)
		}
	}
	return out
}

func rolling(values []float64, w int) (mean, std, hi, lo []float64) {
	n := len(values)
	mean = make([]float64, n)
	std = make([]float64, n)
	hi = make([]float64, n)
	lo = make([]float64, n)
	buf := make([]float64, 0, w)

	for i := range values {
		buf = buf[:0]
		for j := max(0, i-w+1); j <= i; j++ {
			if !math.IsNaN(values[j]) {
				buf = append(buf, values[j])
			}
		}
		switch len(buf) {
		case 0:
			mean[i], std[i], hi[i], lo[i] = math.NaN(), math.NaN(), math.NaN(), math.NaN()
			continue
		case 1:
			std[i] = math.NaN()
		default:
			std[i] = stat.StdDev(buf, nil)
		}
		mean[i] = stat.Mean(buf, nil)
		hi[i] = floats.Max(buf)
		lo[i] = floats.Min(buf)
	}
	return mean, std, hi, lo
}

// LagFeatures adds columns shifted forward by each lag. The first lag rows
// of each are missing.
func LagFeatures(f *domain.Frame, columns []string, lags []int) *domain.Frame {
	out := f.Clone()
	for _, col := range columns {
		values := f.Column(col)
		if values == nil {
			continue
		}
		for _, lag := range lags {
			out.SetColumn(fmt.Sprintf("%s_lag_%d", col, lag), shift(values, lag))
		}
	}
	return out
}

func shift(values []float64, lag int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i < lag {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i-lag]
	}
	return out
}

// RateOfChange adds the fractional change (_roc), first difference (_diff)
// and two-step difference (_diff_2) of each column. A change relative to a
// zero value is reported as missing.
func RateOfChange(f *domain.Frame, columns []string) *domain.Frame {
	out := f.Clone()
	for _, col := range columns {
		values := f.Column(col)
		if values == nil {
			continue
		}
		n := len(values)
		roc := make([]float64, n)
		diff := make([]float64, n)
		diff2 := make([]float64, n)
		for i := range values {
			roc[i], diff[i], diff2[i] = math.NaN(), math.NaN(), math.NaN()
			if i >= 1 {
				diff[i] = values[i] - values[i-1]
				if r := diff[i] / values[i-1]; !math.IsInf(r, 0) {
					roc[i] = r
				}
			}
			if i >= 2 {
				diff2[i] = values[i] - values[i-2]
			}
		}
		out.SetColumn(col+"_roc", roc)
		out.SetColumn(col+"_diff", diff)
		out.SetColumn(col+"_diff_2", diff2)
	}
	return out
}

// InteractionFeatures adds solar-wind coupling terms when their inputs exist:
// dynamic pressure, a simplified dawn-dusk electric field, and an Alfvén Mach
// proxy with bt offset by one.
func InteractionFeatures(f *domain.Frame) *domain.Frame {
	out := f.Clone()
	speed := f.Column(domain.ColSolarWindSpeed)
	if speed == nil {
		return out
	}
	if density := f.Column(domain.ColProtonDensity); density != nil {
		out.SetColumn(ColDynamicPressure, combine(speed, density, func(v, n float64) float64 { return n * v * v }))
	}
	if bz := f.Column(domain.ColBz); bz != nil {
		out.SetColumn(ColElectricField, combine(speed, bz, func(v, b float64) float64 { return v * math.Abs(b) }))
	}
	if bt := f.Column(domain.ColBt); bt != nil {
		out.SetColumn(ColAlfvenMach, combine(speed, bt, func(v, b float64) float64 { return v / (b + 1) }))
	}
	return out
}

func combine(a, b []float64, fn func(x, y float64) float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = fn(a[i], b[i])
	}
	return out
}

// timestampsSorted reports whether timestamps strictly increase.
func timestampsSorted(ts []time.Time) bool {
	for i := 1; i < len(ts); i++ {
		if !ts[i].After(ts[i-1]) {
			return false
		}
	}
	return true
}
