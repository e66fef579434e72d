package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillMissing(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"leading gap takes next value", []float64{nan, nan, 3, 4}, []float64{3, 3, 3, 4}},
		{"interior gap takes next value", []float64{1, nan, 3}, []float64{1, 3, 3}},
		{"trailing gap takes previous value", []float64{1, 2, nan}, []float64{1, 2, 2}},
		{"all missing becomes zero", []float64{nan, nan}, []float64{0, 0}},
		{"infinity is missing", []float64{1, math.Inf(1), 5}, []float64{1, 5, 5}},
		{"complete column unchanged", []float64{1, 2}, []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := frameWith(map[string][]float64{"x": tt.in}, len(tt.in))
			out := FillMissing(f)
			assert.Equal(t, tt.want, out.Column("x"))
		})
	}
}

func TestFillMissing_DoesNotModifyInput(t *testing.T) {
	f := frameWith(map[string][]float64{"x": {math.NaN(), 1}}, 2)
	FillMissing(f)
	assert.True(t, math.IsNaN(f.Column("x")[0]))
}

func TestForwardZeroFill(t *testing.T) {
	nan := math.NaN()
	in := []float64{nan, 2, nan, 4}
	assert.Equal(t, []float64{0, 2, 2, 4}, ForwardZeroFill(in))
	assert.True(t, math.IsNaN(in[0]))
}
