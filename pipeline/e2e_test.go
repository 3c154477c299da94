package pipeline

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/model"
	"github.com/sentiml/sentiml/pretrained"
	"github.com/sentiml/sentiml/pusher"
	"github.com/sentiml/sentiml/registry"
	"github.com/sentiml/sentiml/tokenizer"
	"github.com/sentiml/sentiml/transform"
)

// writeCorpus materializes a small separable sentiment corpus as a
// tab-separated file with a header row.
func writeCorpus(t *testing.T, path string) {
	rows := []struct {
		sentiment, text string
	}{
		{"pos", "i loved it !"},
		{"pos", "great product , loved it"},
		{"pos", "amazing . simply great"},
		{"pos", "loved every minute"},
		{"pos", "great great great"},
		{"pos", "it was amazing !"},
		{"pos", "loved the product"},
		{"pos", "simply great !"},
		{"pos", "amazing product"},
		{"pos", "i loved the ending"},
		{"neg", "the worst product ever ."},
		{"neg", "terrible , simply terrible"},
		{"neg", "awful and worst"},
		{"neg", "the worst ever"},
		{"neg", "terrible awful product"},
		{"neg", "awful . just awful"},
		{"neg", "worst purchase ever"},
		{"neg", "terrible ending"},
		{"neg", "the product was awful"},
		{"neg", "worst worst worst"},
	}

	corpus := "sentiment\ttext\n"
	for _, r := range rows {
		corpus += fmt.Sprintf("%s\t%s\n", r.sentiment, r.text)
	}
	require.NoError(t, ioutil.WriteFile(path, []byte(corpus), 0644))
}

func e2eConf(t *testing.T, dir string) config.Config {
	tokens := []string{
		tokenizer.PadToken, tokenizer.UnkToken, tokenizer.ClsToken, tokenizer.SepToken,
		"i", "loved", "it", "great", "amazing", "simply", "every", "minute",
		"the", "worst", "product", "ever", "terrible", "awful", "and", "just",
		"was", "purchase", "ending",
		"!", ".", ",",
	}
	host := filepath.Join(dir, "encoders")
	conf := config.Default()
	require.NoError(t, pretrained.WriteSynthetic(
		pretrained.Dir(host, conf.Encoder.ID),
		tokens,
		pretrained.EncoderConfig{HiddenSize: 8, MaxPositions: transform.MaxSeqLen, DoLowerCase: true},
		11,
	))

	corpus := filepath.Join(dir, "corpus.tsv")
	writeCorpus(t, corpus)

	conf.Root = filepath.Join(dir, "root")
	conf.ServingRoot = filepath.Join(dir, "serving")
	conf.Dataset.URL = corpus
	conf.Dataset.NumShards = 2
	conf.Encoder.Host = host
	conf.Train = config.Train{
		TrainSteps:   200,
		EvalSteps:    1,
		BatchSize:    8,
		LearningRate: 0.01,
		Replicas:     2,
	}
	// small corpus, skip the absolute accuracy gate
	conf.Eval.AccuracyLowerBound = 0
	require.NoError(t, conf.Validate())
	return conf
}

func TestEndToEnd(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	conf := e2eConf(t, dir)
	require.NoError(t, Sentiment().Run(conf))

	// exactly one run, blessed and pushed as version 1
	runs, err := registry.Runs(conf.RunsRoot())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	b, ok, err := registry.ReadBlessing(conf.RunsRoot(), runs[0])
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, b.Blessed)
	assert.Nil(t, b.Baseline, "first run has no baseline")
	assert.Equal(t, 4, b.Metrics.NumExamples, "eval split holds a fifth of 20 rows")

	served, err := pusher.LatestModelDir(conf.ServingRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(conf.ServingRoot, "1"), served)

	m, err := model.Load(served)
	require.NoError(t, err)
	scores, err := m.ScoreTexts([]string{"I loved it!", "The worst product ever."})
	require.NoError(t, err)
	require.Len(t, scores, 2)
	for _, s := range scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestEndToEndSecondRunUsesBaseline(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	conf := e2eConf(t, dir)
	p := Sentiment()
	require.NoError(t, p.Run(conf))
	require.NoError(t, p.Run(conf))

	runs, err := registry.Runs(conf.RunsRoot())
	require.NoError(t, err)
	require.Len(t, runs, 2)

	latest, ok, err := registry.LatestRun(conf.RunsRoot())
	require.NoError(t, err)
	require.True(t, ok)

	b, ok, err := registry.ReadBlessing(conf.RunsRoot(), latest)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, b.Baseline, "second run must compare against the first")
}
