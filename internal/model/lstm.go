package model

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// lstmCell is one direction of an LSTM layer. Gate rows are ordered input,
// forget, cell, output; W is 4H×In and U is 4H×H, both row-major.
type lstmCell struct {
	In     int       `json:"in"`
	Hidden int       `json:"hidden"`
	W      []float64 `json:"w"`
	U      []float64 `json:"u"`
	B      []float64 `json:"b"`
}

func newLSTMCell(in, hidden int, r *rand.Rand) lstmCell {
	c := lstmCell{
		In:     in,
		Hidden: hidden,
		W:      glorot(4*hidden*in, in, 4*hidden, r),
		U:      glorot(4*hidden*hidden, hidden, 4*hidden, r),
		B:      make([]float64, 4*hidden),
	}
	// Unit forget bias keeps early gradients flowing through the cell state.
	for k := hidden; k < 2*hidden; k++ {
		c.B[k] = 1
	}
	return c
}

type cellCache struct {
	xs    [][]float64
	hs    [][]float64 // hs[t+1] is the output at step t
	cs    [][]float64
	gates [][]float64 // activated i, f, g, o
	tanhC [][]float64
}

func (c *lstmCell) forward(xs [][]float64) *cellCache {
	T, H := len(xs), c.Hidden
	cache := &cellCache{
		xs:    xs,
		hs:    make([][]float64, T+1),
		cs:    make([][]float64, T+1),
		gates: make([][]float64, T),
		tanhC: make([][]float64, T),
	}
	cache.hs[0] = make([]float64, H)
	cache.cs[0] = make([]float64, H)

	for t, x := range xs {
		z := make([]float64, 4*H)
		copy(z, c.B)
		hPrev, cPrev := cache.hs[t], cache.cs[t]
		for r := range z {
			z[r] += floats.Dot(c.W[r*c.In:(r+1)*c.In], x) + floats.Dot(c.U[r*H:(r+1)*H], hPrev)
		}
		h := make([]float64, H)
		cNew := make([]float64, H)
		tc := make([]float64, H)
		for k := range H {
			z[k] = sigmoid(z[k])
			z[H+k] = sigmoid(z[H+k])
			z[2*H+k] = math.Tanh(z[2*H+k])
			z[3*H+k] = sigmoid(z[3*H+k])
			cNew[k] = z[H+k]*cPrev[k] + z[k]*z[2*H+k]
			tc[k] = math.Tanh(cNew[k])
			h[k] = z[3*H+k] * tc[k]
		}
		cache.gates[t] = z
		cache.hs[t+1] = h
		cache.cs[t+1] = cNew
		cache.tanhC[t] = tc
	}
	return cache
}

// backward accumulates parameter gradients into g and returns the gradient
// with respect to each input. dhs[t] is the upstream gradient of the output
// at step t and may be nil.
func (c *lstmCell) backward(cache *cellCache, dhs [][]float64, g *lstmCell) [][]float64 {
	T, H, In := len(cache.xs), c.Hidden, c.In
	dxs := make([][]float64, T)
	dhNext := make([]float64, H)
	dcNext := make([]float64, H)
	dz := make([]float64, 4*H)

	for t := T - 1; t >= 0; t-- {
		gates, tc, cPrev := cache.gates[t], cache.tanhC[t], cache.cs[t]
		for k := range H {
			dh := dhNext[k]
			if dhs[t] != nil {
				dh += dhs[t][k]
			}
			i, f, gg, o := gates[k], gates[H+k], gates[2*H+k], gates[3*H+k]
			dc := dh*o*(1-tc[k]*tc[k]) + dcNext[k]
			dcNext[k] = dc * f
			dz[k] = dc * gg * i * (1 - i)
			dz[H+k] = dc * cPrev[k] * f * (1 - f)
			dz[2*H+k] = dc * i * (1 - gg*gg)
			dz[3*H+k] = dh * tc[k] * o * (1 - o)
		}

		x, hPrev := cache.xs[t], cache.hs[t]
		dx := make([]float64, In)
		dh := make([]float64, H)
		for r, d := range dz {
			if d == 0 {
				continue
			}
			floats.AddScaled(g.W[r*In:(r+1)*In], d, x)
			floats.AddScaled(g.U[r*H:(r+1)*H], d, hPrev)
			g.B[r] += d
			floats.AddScaled(dx, d, c.W[r*In:(r+1)*In])
			floats.AddScaled(dh, d, c.U[r*H:(r+1)*H])
		}
		dxs[t] = dx
		dhNext = dh
	}
	return dxs
}

// biLayer runs a forward and a reversed LSTM over the same sequence and
// concatenates their outputs. Sequences layers emit every step; the final
// layer emits only the last state of each direction.
type biLayer struct {
	Fwd       lstmCell `json:"fwd"`
	Bwd       lstmCell `json:"bwd"`
	Sequences bool     `json:"sequences"`
}

type biCache struct {
	fwd, bwd *cellCache
}

func (l *biLayer) forward(seq [][]float64) ([][]float64, *biCache) {
	T, H := len(seq), l.Fwd.Hidden
	cache := &biCache{
		fwd: l.Fwd.forward(seq),
		bwd: l.Bwd.forward(reversed(seq)),
	}
	if !l.Sequences {
		out := make([]float64, 2*H)
		copy(out[:H], cache.fwd.hs[T])
		copy(out[H:], cache.bwd.hs[T])
		return [][]float64{out}, cache
	}
	out := make([][]float64, T)
	for t := range T {
		v := make([]float64, 2*H)
		copy(v[:H], cache.fwd.hs[t+1])
		copy(v[H:], cache.bwd.hs[T-t])
		out[t] = v
	}
	return out, cache
}

// backward takes the gradient of the layer output (one row per step, or a
// single row for the final layer) and returns the gradient of its input.
func (l *biLayer) backward(cache *biCache, dout [][]float64, g *biLayer) [][]float64 {
	T, H := len(cache.fwd.xs), l.Fwd.Hidden
	dhF := make([][]float64, T)
	dhB := make([][]float64, T)
	if l.Sequences {
		for t := range T {
			dhF[t] = dout[t][:H]
			dhB[T-1-t] = dout[t][H:]
		}
	} else {
		dhF[T-1] = dout[0][:H]
		dhB[T-1] = dout[0][H:]
	}
	dxF := l.Fwd.backward(cache.fwd, dhF, &g.Fwd)
	dxB := l.Bwd.backward(cache.bwd, dhB, &g.Bwd)
	for t := range T {
		floats.Add(dxF[t], dxB[T-1-t])
	}
	return dxF
}

// denseLayer is a fully connected layer with W stored Out×In row-major.
type denseLayer struct {
	In  int       `json:"in"`
	Out int       `json:"out"`
	W   []float64 `json:"w"`
	B   []float64 `json:"b"`
}

func newDense(in, out int, r *rand.Rand) denseLayer {
	return denseLayer{In: in, Out: out, W: glorot(in*out, in, out, r), B: make([]float64, out)}
}

func (d *denseLayer) forward(x []float64) []float64 {
	out := make([]float64, d.Out)
	for k := range out {
		out[k] = d.B[k] + floats.Dot(d.W[k*d.In:(k+1)*d.In], x)
	}
	return out
}

func (d *denseLayer) backward(x, dout []float64, g *denseLayer) []float64 {
	dx := make([]float64, d.In)
	for k, dk := range dout {
		if dk == 0 {
			continue
		}
		floats.AddScaled(g.W[k*d.In:(k+1)*d.In], dk, x)
		g.B[k] += dk
		floats.AddScaled(dx, dk, d.W[k*d.In:(k+1)*d.In])
	}
	return dx
}

// network is a stack of bidirectional LSTM layers followed by ReLU dense
// layers and a linear scalar output. Dropout follows every hidden layer
// during training.
type network struct {
	Inputs    int          `json:"inputs"`
	Timesteps int          `json:"timesteps"`
	Dropout   float64      `json:"dropout"`
	Recurrent []biLayer    `json:"recurrent"`
	Dense     []denseLayer `json:"dense"`
	Output    denseLayer   `json:"output"`
}

func newNetwork(inputs, timesteps int, recurrent, dense []int, dropout float64, r *rand.Rand) *network {
	n := &network{Inputs: inputs, Timesteps: timesteps, Dropout: dropout}
	in := inputs
	for i, h := range recurrent {
		n.Recurrent = append(n.Recurrent, biLayer{
			Fwd:       newLSTMCell(in, h, r),
			Bwd:       newLSTMCell(in, h, r),
			Sequences: i < len(recurrent)-1,
		})
		in = 2 * h
	}
	for _, units := range dense {
		n.Dense = append(n.Dense, newDense(in, units, r))
		in = units
	}
	n.Output = newDense(in, 1, r)
	return n
}

// zeroClone returns a network of the same shape with all weights zero, used
// as a gradient accumulator.
func (n *network) zeroClone() *network {
	g := &network{Inputs: n.Inputs, Timesteps: n.Timesteps, Dropout: n.Dropout}
	zero := func(s []float64) []float64 { return make([]float64, len(s)) }
	zc := func(c lstmCell) lstmCell {
		return lstmCell{In: c.In, Hidden: c.Hidden, W: zero(c.W), U: zero(c.U), B: zero(c.B)}
	}
	zd := func(d denseLayer) denseLayer {
		return denseLayer{In: d.In, Out: d.Out, W: zero(d.W), B: zero(d.B)}
	}
	for _, l := range n.Recurrent {
		g.Recurrent = append(g.Recurrent, biLayer{Fwd: zc(l.Fwd), Bwd: zc(l.Bwd), Sequences: l.Sequences})
	}
	for _, d := range n.Dense {
		g.Dense = append(g.Dense, zd(d))
	}
	g.Output = zd(n.Output)
	return g
}

// params lists every weight slice in a fixed order shared by clones.
func (n *network) params() [][]float64 {
	var out [][]float64
	for i := range n.Recurrent {
		l := &n.Recurrent[i]
		out = append(out, l.Fwd.W, l.Fwd.U, l.Fwd.B, l.Bwd.W, l.Bwd.U, l.Bwd.B)
	}
	for i := range n.Dense {
		out = append(out, n.Dense[i].W, n.Dense[i].B)
	}
	return append(out, n.Output.W, n.Output.B)
}

// copyWeightsFrom overwrites n's weights with src's. Shapes must match.
func (n *network) copyWeightsFrom(src *network) {
	dst, from := n.params(), src.params()
	for i := range dst {
		copy(dst[i], from[i])
	}
}

type forwardCache struct {
	inputs    [][][]float64 // input sequence of each recurrent layer
	recurrent []*biCache
	seqMasks  [][][]float64 // dropout masks on recurrent outputs
	denseIn   [][]float64   // input to each dense layer
	densePre  [][]float64
	denseMask [][]float64
	outputIn  []float64
}

// forward computes the scalar output of one sample. With r non-nil, dropout
// is applied and the cache records the masks for backward.
func (n *network) forward(seq [][]float64, r *rand.Rand) (float64, *forwardCache) {
	cache := &forwardCache{}
	cur := seq
	for i := range n.Recurrent {
		cache.inputs = append(cache.inputs, cur)
		out, bc := n.Recurrent[i].forward(cur)
		cache.recurrent = append(cache.recurrent, bc)
		cache.seqMasks = append(cache.seqMasks, dropoutSeq(out, n.Dropout, r))
		cur = out
	}
	x := cur[0]
	for i := range n.Dense {
		cache.denseIn = append(cache.denseIn, x)
		pre := n.Dense[i].forward(x)
		cache.densePre = append(cache.densePre, pre)
		act := make([]float64, len(pre))
		for k, v := range pre {
			act[k] = math.Max(v, 0)
		}
		cache.denseMask = append(cache.denseMask, dropout(act, n.Dropout, r))
		x = act
	}
	cache.outputIn = x
	return n.Output.forward(x)[0], cache
}

// backward accumulates into g the gradient of a loss whose derivative with
// respect to the output is dy.
func (n *network) backward(cache *forwardCache, dy float64, g *network) {
	dx := n.Output.backward(cache.outputIn, []float64{dy}, &g.Output)
	for i := len(n.Dense) - 1; i >= 0; i-- {
		if m := cache.denseMask[i]; m != nil {
			floats.Mul(dx, m)
		}
		pre := cache.densePre[i]
		for k := range dx {
			if pre[k] <= 0 {
				dx[k] = 0
			}
		}
		dx = n.Dense[i].backward(cache.denseIn[i], dx, &g.Dense[i])
	}
	dseq := [][]float64{dx}
	for i := len(n.Recurrent) - 1; i >= 0; i-- {
		if masks := cache.seqMasks[i]; masks != nil {
			for t := range dseq {
				floats.Mul(dseq[t], masks[t])
			}
		}
		dseq = n.Recurrent[i].backward(cache.recurrent[i], dseq, &g.Recurrent[i])
	}
}

func dropoutSeq(seq [][]float64, p float64, r *rand.Rand) [][]float64 {
	if r == nil || p <= 0 {
		return nil
	}
	masks := make([][]float64, len(seq))
	for t := range seq {
		masks[t] = dropout(seq[t], p, r)
	}
	return masks
}

// dropout zeroes each element with probability p and rescales survivors,
// in place. It returns the mask applied, or nil at inference.
func dropout(x []float64, p float64, r *rand.Rand) []float64 {
	if r == nil || p <= 0 {
		return nil
	}
	keep := 1 / (1 - p)
	mask := make([]float64, len(x))
	for i := range x {
		if r.Float64() >= p {
			mask[i] = keep
		}
		x[i] *= mask[i]
	}
	return mask
}

func reversed(seq [][]float64) [][]float64 {
	out := make([][]float64, len(seq))
	for i, v := range seq {
		out[len(seq)-1-i] = v
	}
	return out
}

func glorot(size, fanIn, fanOut int, r *rand.Rand) []float64 {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	w := make([]float64, size)
	for i := range w {
		w[i] = (2*r.Float64() - 1) * limit
	}
	return w
}

// adam implements the Adam optimizer over a fixed list of parameter slices.
type adam struct {
	lr, beta1, beta2, eps float64
	step                  int
	m, v                  [][]float64
}

func newAdam(params [][]float64, lr float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

func (a *adam) update(params, grads [][]float64) {
	a.step++
	c1 := 1 - math.Pow(a.beta1, float64(a.step))
	c2 := 1 - math.Pow(a.beta2, float64(a.step))
	for i, p := range params {
		g, m, v := grads[i], a.m[i], a.v[i]
		for j := range p {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g[j]
			v[j] = a.beta2*v[j] + (1-a.beta2)*g[j]*g[j]
			p[j] -= a.lr * (m[j] / c1) / (math.Sqrt(v[j]/c2) + a.eps)
		}
	}
}

// clipNorm rescales grads so their global L2 norm is at most limit.
func clipNorm(grads [][]float64, limit float64) {
	var sq float64
	for _, g := range grads {
		n := floats.Norm(g, 2)
		sq += n * n
	}
	norm := math.Sqrt(sq)
	if norm <= limit || norm == 0 {
		return
	}
	for _, g := range grads {
		floats.Scale(limit/norm, g)
	}
}
