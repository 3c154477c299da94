// Package model builds, trains and serves the sentiment classifier: a frozen
// pretrained encoder under a small feed-forward head.
package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Head layer widths.
const (
	Hidden1 = 256
	Hidden2 = 64
)

// Head is the trainable feed-forward classifier: dense 256 ReLU, dense 64
// ReLU, single sigmoid output.
type Head struct {
	// W1 is in x 256, W2 is 256 x 64, W3 is 64 x 1.
	W1, W2, W3 *mat.Dense
	B1, B2     []float64
	B3         float64
}

// NewHead initializes a head for pooled encoder vectors of width in.
func NewHead(in int, seed int64) *Head {
	rng := rand.New(rand.NewSource(seed))
	return &Head{
		W1: randomDense(rng, in, Hidden1),
		W2: randomDense(rng, Hidden1, Hidden2),
		W3: randomDense(rng, Hidden2, 1),
		B1: make([]float64, Hidden1),
		B2: make([]float64, Hidden2),
	}
}

func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	scale := math.Sqrt(2 / float64(r))
	for i := range data {
		data[i] = rng.NormFloat64() * scale
	}
	return mat.NewDense(r, c, data)
}

// Forward runs the head on a pooled encoder vector and returns the sigmoid
// output in [0, 1].
func (h *Head) Forward(x []float64) float64 {
	p, _ := h.forward(x)
	return p
}

// activations holds the intermediate layer values needed for backprop.
type activations struct {
	x      []float64
	z1, a1 []float64
	z2, a2 []float64
	z3, p  float64
}

func (h *Head) forward(x []float64) (float64, activations) {
	act := activations{x: x}

	act.z1 = affine(h.W1, x, h.B1)
	act.a1 = relu(act.z1)

	act.z2 = affine(h.W2, act.a1, h.B2)
	act.a2 = relu(act.z2)

	w3 := h.W3.RawMatrix().Data
	act.z3 = h.B3
	for i, v := range act.a2 {
		act.z3 += w3[i] * v
	}
	act.p = sigmoid(act.z3)
	return act.p, act
}

// affine computes W'x + b for W of shape len(x) x len(b).
func affine(w *mat.Dense, x, b []float64) []float64 {
	out := mat.NewVecDense(len(b), nil)
	out.MulVec(w.T(), mat.NewVecDense(len(x), x))

	res := make([]float64, len(b))
	for i := range res {
		res[i] = out.AtVec(i) + b[i]
	}
	return res
}

func relu(z []float64) []float64 {
	out := make([]float64, len(z))
	for i, v := range z {
		if v > 0 {
			out[i] = v
		}
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// logLoss is the binary cross-entropy for one prediction, clamped away from
// the poles so malformed extremes do not produce infinities.
func logLoss(p float64, y float64) float64 {
	const eps = 1e-12
	p = math.Min(math.Max(p, eps), 1-eps)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}
