package pretrained

import (
	"encoding/json"
	"math/rand"
	"strings"

	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/serialization"
)

// WriteSynthetic materializes an encoder directory with deterministically
// seeded random weights. Used to bootstrap local demo runs and test
// fixtures when no real pretrained encoder is reachable.
func WriteSynthetic(dir string, tokens []string, conf EncoderConfig, seed int64) error {
	data, err := json.MarshalIndent(conf, "", "  ")
	if err != nil {
		return err
	}
	if err := fileutil.WriteFile(fileutil.Join(dir, ConfigFile), data); err != nil {
		return errors.Wrapf(err, "unable to write encoder config")
	}

	vocab := strings.Join(tokens, "\n") + "\n"
	if err := fileutil.WriteFile(fileutil.Join(dir, VocabFile), []byte(vocab)); err != nil {
		return errors.Wrapf(err, "unable to write encoder vocab")
	}

	rng := rand.New(rand.NewSource(seed))
	w := weights{
		Token:    randomTable(rng, len(tokens)*conf.HiddenSize),
		Position: randomTable(rng, conf.MaxPositions*conf.HiddenSize),
	}
	if err := serialization.Encode(fileutil.Join(dir, WeightsFile), w); err != nil {
		return errors.Wrapf(err, "unable to write encoder weights")
	}
	return nil
}

// Save writes the encoder out as a self-contained encoder directory.
func (e *Encoder) Save(dir string) error {
	data, err := json.MarshalIndent(e.Config, "", "  ")
	if err != nil {
		return err
	}
	if err := fileutil.WriteFile(fileutil.Join(dir, ConfigFile), data); err != nil {
		return errors.Wrapf(err, "unable to write encoder config")
	}

	vocab := strings.Join(e.Vocab.Tokens(), "\n") + "\n"
	if err := fileutil.WriteFile(fileutil.Join(dir, VocabFile), []byte(vocab)); err != nil {
		return errors.Wrapf(err, "unable to write encoder vocab")
	}

	w := weights{
		Token:    append([]float64(nil), e.token.RawMatrix().Data...),
		Position: append([]float64(nil), e.position.RawMatrix().Data...),
	}
	if err := serialization.Encode(fileutil.Join(dir, WeightsFile), w); err != nil {
		return errors.Wrapf(err, "unable to write encoder weights")
	}
	return nil
}

func randomTable(rng *rand.Rand, n int) []float64 {
	table := make([]float64, n)
	for i := range table {
		table[i] = rng.NormFloat64() * 0.1
	}
	return table
}
