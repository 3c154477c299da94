package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/example"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/pretrained"
	"github.com/sentiml/sentiml/serialization"
	"github.com/sentiml/sentiml/transform"
)

// Layout of a saved model directory.
const (
	TransformDir = "transform"
	EncoderDir   = "encoder"
	HeadFile     = "head.gob.gz"
)

// headWeights is the serialized form of a Head.
type headWeights struct {
	In         int
	W1, W2, W3 []float64
	B1, B2     []float64
	B3         float64
}

// Save writes a self-contained model directory: head weights, the frozen
// encoder, and the transform graph the serving path re-applies.
func (m *Model) Save(dir string) error {
	if err := m.Graph.Save(fileutil.Join(dir, TransformDir)); err != nil {
		return err
	}
	if err := m.Encoder.Save(fileutil.Join(dir, EncoderDir)); err != nil {
		return err
	}

	in, _ := m.Head.W1.Dims()
	w := headWeights{
		In: in,
		W1: append([]float64(nil), m.Head.W1.RawMatrix().Data...),
		W2: append([]float64(nil), m.Head.W2.RawMatrix().Data...),
		W3: append([]float64(nil), m.Head.W3.RawMatrix().Data...),
		B1: append([]float64(nil), m.Head.B1...),
		B2: append([]float64(nil), m.Head.B2...),
		B3: m.Head.B3,
	}
	if err := serialization.Encode(fileutil.Join(dir, HeadFile), w); err != nil {
		return errors.Wrapf(err, "unable to write head weights")
	}
	return nil
}

// Load reloads a saved model directory.
func Load(dir string) (*Model, error) {
	g, err := transform.LoadGraph(fileutil.Join(dir, TransformDir))
	if err != nil {
		return nil, err
	}

	enc, err := pretrained.Load(dir, EncoderDir)
	if err != nil {
		return nil, err
	}

	var w headWeights
	if err := serialization.Decode(fileutil.Join(dir, HeadFile), &w); err != nil {
		return nil, errors.Wrapf(err, "unable to read head weights from %s", dir)
	}
	if w.In != enc.HiddenSize() {
		return nil, errors.Errorf("head expects width %d, encoder produces %d", w.In, enc.HiddenSize())
	}
	if len(w.W1) != w.In*Hidden1 || len(w.W2) != Hidden1*Hidden2 || len(w.W3) != Hidden2 {
		return nil, errors.Errorf("head weights in %s have inconsistent shapes", dir)
	}

	head := &Head{
		W1: mat.NewDense(w.In, Hidden1, w.W1),
		W2: mat.NewDense(Hidden1, Hidden2, w.W2),
		W3: mat.NewDense(Hidden2, 1, w.W3),
		B1: w.B1,
		B2: w.B2,
		B3: w.B3,
	}
	return &Model{Graph: g, Encoder: enc, Head: head}, nil
}

// Score is the serving signature: it accepts a batch of raw serialized
// records, re-applies the transform graph internally, and returns one score
// in [0, 1] per record.
func (m *Model) Score(rawRecords [][]byte) ([]float64, error) {
	scores := make([]float64, 0, len(rawRecords))
	for i, raw := range rawRecords {
		ex, err := example.Unmarshal(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", i)
		}
		scores = append(scores, m.scoreText(ex.Text))
	}
	return scores, nil
}

// ScoreTexts wraps plain strings as raw records and scores them through the
// same serving path.
func (m *Model) ScoreTexts(texts []string) ([]float64, error) {
	raw := make([][]byte, 0, len(texts))
	for _, text := range texts {
		data, err := example.Example{Text: text}.Marshal()
		if err != nil {
			return nil, err
		}
		raw = append(raw, data)
	}
	return m.Score(raw)
}

func (m *Model) scoreText(text string) float64 {
	feats := m.Graph.Apply(text)
	x := m.Encoder.Encode(feats.InputIDs, feats.InputMask)
	return m.Head.Forward(x)
}
