package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// gradients accumulates head gradients over a (partial) batch.
type gradients struct {
	w1, w2, w3 *mat.Dense
	b1, b2     []float64
	b3         float64
	n          int
}

func newGradients(h *Head) *gradients {
	r1, c1 := h.W1.Dims()
	r2, c2 := h.W2.Dims()
	r3, c3 := h.W3.Dims()
	return &gradients{
		w1: mat.NewDense(r1, c1, nil),
		w2: mat.NewDense(r2, c2, nil),
		w3: mat.NewDense(r3, c3, nil),
		b1: make([]float64, len(h.B1)),
		b2: make([]float64, len(h.B2)),
	}
}

// accumulate backpropagates one example's binary cross-entropy gradient.
func (g *gradients) accumulate(h *Head, act activations, y float64) {
	w2 := h.W2.RawMatrix()
	w3 := h.W3.RawMatrix().Data

	dz3 := act.p - y

	// output layer
	gw3 := g.w3.RawMatrix().Data
	for i, v := range act.a2 {
		gw3[i] += v * dz3
	}
	g.b3 += dz3

	// second hidden layer
	dz2 := make([]float64, len(act.z2))
	for i := range dz2 {
		if act.z2[i] > 0 {
			dz2[i] = w3[i] * dz3
		}
	}
	gw2 := g.w2.RawMatrix()
	for i, a := range act.a1 {
		row := gw2.Data[i*gw2.Stride : i*gw2.Stride+gw2.Cols]
		for j, d := range dz2 {
			row[j] += a * d
		}
	}
	for i, d := range dz2 {
		g.b2[i] += d
	}

	// first hidden layer
	dz1 := make([]float64, len(act.z1))
	for i := range dz1 {
		if act.z1[i] <= 0 {
			continue
		}
		row := w2.Data[i*w2.Stride : i*w2.Stride+w2.Cols]
		var sum float64
		for j, d := range dz2 {
			sum += row[j] * d
		}
		dz1[i] = sum
	}
	gw1 := g.w1.RawMatrix()
	for i, x := range act.x {
		row := gw1.Data[i*gw1.Stride : i*gw1.Stride+gw1.Cols]
		for j, d := range dz1 {
			row[j] += x * d
		}
	}
	for i, d := range dz1 {
		g.b1[i] += d
	}

	g.n++
}

// merge adds another replica's gradients into g.
func (g *gradients) merge(other *gradients) {
	g.w1.Add(g.w1, other.w1)
	g.w2.Add(g.w2, other.w2)
	g.w3.Add(g.w3, other.w3)
	for i, v := range other.b1 {
		g.b1[i] += v
	}
	for i, v := range other.b2 {
		g.b2[i] += v
	}
	g.b3 += other.b3
	g.n += other.n
}

// adagrad keeps per-parameter accumulated squared gradients, giving the
// adaptive learning rates of the optimizer.
type adagrad struct {
	lr  float64
	eps float64

	w1, w2, w3 *mat.Dense
	b1, b2     []float64
	b3         float64
}

func newAdagrad(h *Head, lr float64) *adagrad {
	r1, c1 := h.W1.Dims()
	r2, c2 := h.W2.Dims()
	r3, c3 := h.W3.Dims()
	return &adagrad{
		lr:  lr,
		eps: 1e-7,
		w1:  mat.NewDense(r1, c1, nil),
		w2:  mat.NewDense(r2, c2, nil),
		w3:  mat.NewDense(r3, c3, nil),
		b1:  make([]float64, len(h.B1)),
		b2:  make([]float64, len(h.B2)),
	}
}

// step applies averaged gradients to the head.
func (a *adagrad) step(h *Head, g *gradients) {
	if g.n == 0 {
		return
	}
	inv := 1 / float64(g.n)

	a.applyDense(h.W1, g.w1, a.w1, inv)
	a.applyDense(h.W2, g.w2, a.w2, inv)
	a.applyDense(h.W3, g.w3, a.w3, inv)
	a.applySlice(h.B1, g.b1, a.b1, inv)
	a.applySlice(h.B2, g.b2, a.b2, inv)

	gb3 := g.b3 * inv
	a.b3 += gb3 * gb3
	h.B3 -= a.lr * gb3 / (math.Sqrt(a.b3) + a.eps)
}

func (a *adagrad) applyDense(w, g, acc *mat.Dense, inv float64) {
	wd := w.RawMatrix().Data
	gd := g.RawMatrix().Data
	ad := acc.RawMatrix().Data
	for i := range wd {
		grad := gd[i] * inv
		ad[i] += grad * grad
		wd[i] -= a.lr * grad / (math.Sqrt(ad[i]) + a.eps)
	}
}

func (a *adagrad) applySlice(w, g, acc []float64, inv float64) {
	for i := range w {
		grad := g[i] * inv
		acc[i] += grad * grad
		wd := w[i] - a.lr*grad/(math.Sqrt(acc[i])+a.eps)
		w[i] = wd
	}
}
