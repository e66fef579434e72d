// Package synthetic generates hourly space-weather telemetry with physically
// motivated correlations for model training when no live history exists.
package synthetic

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"gonum.org/v1/gonum/stat/distuv"
)

// Start is the timestamp of the first generated row.
var Start = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Event rates for the injected disturbances.
const (
	highSpeedStreamRate = 0.05
	southwardBzRate     = 0.10
	flareRate           = 0.02
)

// Generate returns n hourly observations with derived labels. The same seed
// always produces the same table.
func Generate(n int, seed uint64) *domain.Frame {
	src := rand.NewPCG(seed, seed)
	r := rand.New(src)

	timestamps := make([]time.Time, n)
	for i := range timestamps {
		timestamps[i] = Start.Add(time.Duration(i) * time.Hour)
	}

	// Solar wind speed with occasional high-speed streams.
	speed := draw(n, distuv.Normal{Mu: 450, Sigma: 100, Src: src})
	clip(speed, 250, 900)
	boost := distuv.Uniform{Min: 200, Max: 400, Src: src}
	for i := range speed {
		if r.Float64() < highSpeedStreamRate {
			speed[i] += boost.Rand()
		}
	}
	clip(speed, 250, 1200)

	density := draw(n, distuv.LogNormal{Mu: 1.5, Sigma: 0.5, Src: src})
	clip(density, 0.5, 50)

	// Gamma with shape 2, scale 2.
	bt := draw(n, distuv.Gamma{Alpha: 2, Beta: 0.5, Src: src})
	clip(bt, 0.5, 30)

	bz := draw(n, distuv.Normal{Mu: 0, Sigma: 3, Src: src})
	southward := distuv.Uniform{Min: -20, Max: -5, Src: src}
	for i := range bz {
		if r.Float64() < southwardBzRate {
			bz[i] = southward.Rand()
		}
	}

	temperature := draw(n, distuv.LogNormal{Mu: 11, Sigma: 0.5, Src: src})
	clip(temperature, 1e4, 1e6)

	xray := draw(n, distuv.Normal{Mu: -7, Sigma: 1.5, Src: src})
	for i := range xray {
		xray[i] = math.Pow(10, xray[i])
	}
	clip(xray, 1e-9, 1e-3)
	flare := distuv.Uniform{Min: -5.5, Max: -3.5, Src: src}
	for i := range xray {
		if r.Float64() < flareRate {
			xray[i] = math.Pow(10, flare.Rand())
		}
	}

	protonFlux := draw(n, distuv.LogNormal{Mu: 0, Sigma: 2, Src: src})
	clip(protonFlux, 0.01, 1e5)

	// Kp and Dst are computed after Bz is final so southward excursions
	// drive geomagnetic activity.
	kpNoise := distuv.Normal{Mu: 0, Sigma: 0.5, Src: src}
	kp := make([]float64, n)
	for i := range kp {
		southwardBz := math.Abs(math.Min(bz[i], 0))
		kp[i] = (speed[i]-300)/150 + southwardBz/3 + (density[i]-5)/10 + kpNoise.Rand()
	}
	clip(kp, 0, 9)

	dstNoise := distuv.Normal{Mu: 0, Sigma: 10, Src: src}
	dst := make([]float64, n)
	for i := range dst {
		dst[i] = domain.DstIndex(bz[i], speed[i], density[i]) + dstNoise.Rand()
	}
	clip(dst, -300, 20)

	risk := make([]float64, n)
	comm := make([]float64, n)
	for i := range risk {
		risk[i] = (kp[i]/9)*5 + (math.Log10(xray[i]+1e-9)+9)*0.5 + (protonFlux[i]/1000)*0.1
		comm[i] = 1 / (1 + math.Exp(-0.5*(kp[i]-5)))
		if xray[i] > domain.FlareBoostFlux {
			comm[i] += 0.3
		}
	}
	clip(risk, 0, 10)
	clip(comm, 0, 1)

	f := domain.NewFrame(timestamps)
	f.SetColumn(domain.ColSolarWindSpeed, speed)
	f.SetColumn(domain.ColProtonDensity, density)
	f.SetColumn(domain.ColBt, bt)
	f.SetColumn(domain.ColBz, bz)
	f.SetColumn(domain.ColTemperature, temperature)
	f.SetColumn(domain.ColXRayFlux, xray)
	f.SetColumn(domain.ColProtonFlux, protonFlux)
	f.SetColumn(domain.ColKpIndex, kp)
	f.SetColumn(domain.ColDstIndex, dst)
	domain.ClassifyFlares(f)
	domain.ClassifyStorms(f)
	f.SetColumn(domain.ColSatelliteRisk, risk)
	f.SetColumn(domain.ColCommDisruptionProb, comm)
	return f
}

// Summary describes the label balance of a generated table.
type Summary struct {
	Rows         int
	FlareClasses map[string]int
	StormClasses map[string]int
	FlareEvents  int
	StormEvents  int
}

// FlareRate returns the fraction of rows with an M or X flare.
func (s Summary) FlareRate() float64 { return rate(s.FlareEvents, s.Rows) }

// StormRate returns the fraction of rows with Kp ≥ 5.
func (s Summary) StormRate() float64 { return rate(s.StormEvents, s.Rows) }

// SortedKeys returns map keys in lexical order for stable printing.
func SortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Summarize counts class labels and event flags in a labelled frame.
func Summarize(f *domain.Frame) Summary {
	s := Summary{
		Rows:         f.Len(),
		FlareClasses: map[string]int{},
		StormClasses: map[string]int{},
	}
	for _, c := range f.Label(domain.ColFlareClass) {
		s.FlareClasses[c]++
	}
	for _, c := range f.Label(domain.ColStormClass) {
		s.StormClasses[c]++
	}
	for _, v := range f.Column(domain.ColFlareOccurred) {
		if v == 1 {
			s.FlareEvents++
		}
	}
	for _, v := range f.Column(domain.ColStormOccurred) {
		if v == 1 {
			s.StormEvents++
		}
	}
	return s
}

type sampler interface{ Rand() float64 }

func draw(n int, d sampler) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = d.Rand()
	}
	return out
}

func clip(x []float64, lo, hi float64) {
	for i, v := range x {
		x[i] = math.Min(math.Max(v, lo), hi)
	}
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
