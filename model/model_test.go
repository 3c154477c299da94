package model

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/pretrained"
	"github.com/sentiml/sentiml/tokenizer"
	"github.com/sentiml/sentiml/transform"
)

var testTokens = []string{
	tokenizer.PadToken, tokenizer.UnkToken, tokenizer.ClsToken, tokenizer.SepToken,
	"i", "loved", "it", "great", "amazing",
	"the", "worst", "terrible", "awful", "product",
	"!", ".",
}

// testFixture writes a synthetic encoder, builds its transform graph, and
// transforms a small separable corpus.
func testFixture(t *testing.T) (*transform.Graph, *pretrained.Encoder, []transform.Transformed, func()) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)

	encDir := filepath.Join(dir, "enc")
	conf := pretrained.EncoderConfig{HiddenSize: 8, MaxPositions: transform.MaxSeqLen, DoLowerCase: true}
	require.NoError(t, pretrained.WriteSynthetic(encDir, testTokens, conf, 7))

	enc, err := pretrained.Load(dir, "enc")
	require.NoError(t, err)

	g := transform.NewGraph(enc)

	texts := []struct {
		text  string
		label int
	}{
		{"i loved it !", 1},
		{"loved it great", 1},
		{"great amazing product", 1},
		{"amazing ! loved it", 1},
		{"the worst product", 0},
		{"terrible awful product", 0},
		{"awful . the worst", 0},
		{"worst terrible awful", 0},
	}
	var records []transform.Transformed
	for _, c := range texts {
		records = append(records, transform.Transformed{
			Features: g.Apply(c.text),
			Label:    c.label,
		})
	}

	return g, enc, records, func() { os.RemoveAll(dir) }
}

func trainConf() config.Train {
	return config.Train{
		TrainSteps:   300,
		BatchSize:    8,
		LearningRate: 0.01,
		Replicas:     2,
	}
}

func TestTrainReducesLoss(t *testing.T) {
	g, enc, records, cleanup := testFixture(t)
	defer cleanup()

	xs, ys, err := pooledFeatures(enc, records)
	require.NoError(t, err)

	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	before := meanLoss(NewHead(enc.HiddenSize(), trainSeed), xs, ys, idx)

	m, err := Train(trainConf(), g, enc, records)
	require.NoError(t, err)

	after := meanLoss(m.Head, xs, ys, idx)
	assert.Less(t, after, before, "training should reduce loss on its own data")
}

func TestTrainEmpty(t *testing.T) {
	g, enc, _, cleanup := testFixture(t)
	defer cleanup()

	_, err := Train(trainConf(), g, enc, nil)
	require.Error(t, err)
}

func TestScoresInRange(t *testing.T) {
	_, enc, records, cleanup := testFixture(t)
	defer cleanup()

	head := NewHead(enc.HiddenSize(), trainSeed)
	for _, rec := range records {
		p := head.Forward(enc.Encode(rec.InputIDs, rec.InputMask))
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestSaveLoadParity(t *testing.T) {
	g, enc, records, cleanup := testFixture(t)
	defer cleanup()

	m, err := Train(trainConf(), g, enc, records)
	require.NoError(t, err)

	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	modelDir := filepath.Join(dir, "model")
	require.NoError(t, m.Save(modelDir))

	reloaded, err := Load(modelDir)
	require.NoError(t, err)

	texts := []string{"i loved it !", "the worst product", "something unseen entirely"}
	want, err := m.ScoreTexts(texts)
	require.NoError(t, err)
	got, err := reloaded.ScoreTexts(texts)
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "reloaded model must score identically")
	}
}

func TestScoreMalformedRecord(t *testing.T) {
	g, enc, records, cleanup := testFixture(t)
	defer cleanup()

	m, err := Train(trainConf(), g, enc, records)
	require.NoError(t, err)

	_, err = m.Score([][]byte{[]byte("not json")})
	require.Error(t, err)
}

func TestReplicaCountDoesNotChangeShapes(t *testing.T) {
	g, enc, records, cleanup := testFixture(t)
	defer cleanup()

	conf := trainConf()
	conf.Replicas = 1
	one, err := Train(conf, g, enc, records)
	require.NoError(t, err)

	conf.Replicas = 4
	four, err := Train(conf, g, enc, records)
	require.NoError(t, err)

	r1, c1 := one.Head.W1.Dims()
	r4, c4 := four.Head.W1.Dims()
	assert.Equal(t, r1, r4)
	assert.Equal(t, c1, c4)

	// both land on usable models
	s1, err := one.ScoreTexts([]string{"i loved it !"})
	require.NoError(t, err)
	s4, err := four.ScoreTexts([]string{"i loved it !"})
	require.NoError(t, err)
	assert.InDelta(t, s1[0], s4[0], 0.25, "replica split changes accumulation order only")
}
