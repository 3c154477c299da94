// Package pretrained loads the fixed, externally supplied text encoder. The
// encoder's parameters are never updated by training.
package pretrained

import (
	"encoding/json"

	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/serialization"
	"github.com/sentiml/sentiml/tokenizer"
	"gonum.org/v1/gonum/mat"
)

// Well-known file names inside an encoder directory.
const (
	VocabFile   = "vocab.txt"
	ConfigFile  = "encoder.json"
	WeightsFile = "weights.gob.gz"
)

// EncoderConfig is the declarative part of an encoder directory.
type EncoderConfig struct {
	HiddenSize   int  `json:"hidden_size"`
	MaxPositions int  `json:"max_positions"`
	DoLowerCase  bool `json:"do_lower_case"`
}

// weights is the serialized parameter block.
type weights struct {
	// Token is the vocab-size x hidden token embedding table, row-major.
	Token []float64
	// Position is the max-positions x hidden positional table, row-major.
	Position []float64
}

// Encoder is a frozen text encoder: a token embedding table plus positional
// table, pooled over unmasked positions into one fixed-width vector.
type Encoder struct {
	ID     string
	Config EncoderConfig
	Vocab  *tokenizer.Vocab

	token    *mat.Dense
	position *mat.Dense
}

// Dir resolves the directory for an encoder id under a model host.
func Dir(host, id string) string {
	return fileutil.Join(host, id)
}

// Load fetches an encoder by id from the given host (local dir, http(s) URL
// or s3:// URI).
func Load(host, id string) (*Encoder, error) {
	dir := Dir(host, id)

	data, err := fileutil.ReadFile(fileutil.Join(dir, ConfigFile))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read encoder config for %s", id)
	}
	var conf EncoderConfig
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, errors.Wrapf(err, "malformed encoder config for %s", id)
	}
	if conf.HiddenSize <= 0 || conf.MaxPositions <= 0 {
		return nil, errors.Errorf("invalid encoder config for %s", id)
	}

	vocab, err := tokenizer.LoadVocab(fileutil.Join(dir, VocabFile))
	if err != nil {
		return nil, err
	}

	var w weights
	if err := serialization.Decode(fileutil.Join(dir, WeightsFile), &w); err != nil {
		return nil, errors.Wrapf(err, "unable to read encoder weights for %s", id)
	}
	if len(w.Token) != vocab.Size()*conf.HiddenSize {
		return nil, errors.Errorf("encoder %s token table has %d values, want %d",
			id, len(w.Token), vocab.Size()*conf.HiddenSize)
	}
	if len(w.Position) != conf.MaxPositions*conf.HiddenSize {
		return nil, errors.Errorf("encoder %s position table has %d values, want %d",
			id, len(w.Position), conf.MaxPositions*conf.HiddenSize)
	}

	return &Encoder{
		ID:       id,
		Config:   conf,
		Vocab:    vocab,
		token:    mat.NewDense(vocab.Size(), conf.HiddenSize, w.Token),
		position: mat.NewDense(conf.MaxPositions, conf.HiddenSize, w.Position),
	}, nil
}

// HiddenSize is the width of the pooled output vector.
func (e *Encoder) HiddenSize() int {
	return e.Config.HiddenSize
}

// Encode pools token+position embeddings over the unmasked positions of a
// fixed-length id sequence into a single vector.
func (e *Encoder) Encode(ids, mask []int) []float64 {
	out := make([]float64, e.Config.HiddenSize)
	var n float64
	for pos, id := range ids {
		if pos >= len(mask) || mask[pos] == 0 {
			continue
		}
		if pos >= e.Config.MaxPositions || id < 0 || id >= e.Vocab.Size() {
			continue
		}
		tok := e.token.RawRowView(id)
		p := e.position.RawRowView(pos)
		for j := range out {
			out[j] += tok[j] + p[j]
		}
		n++
	}
	if n > 0 {
		for j := range out {
			out[j] /= n
		}
	}
	return out
}
