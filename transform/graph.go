// Package transform converts raw text examples into the fixed-shape numeric
// features the classifier consumes. The serialized Graph is re-applied
// unchanged at serving time, which is what guarantees train/serve parity.
package transform

import (
	"encoding/json"
	"strings"

	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/pretrained"
	"github.com/sentiml/sentiml/tokenizer"
)

// MaxSeqLen is the fixed token sequence length. Longer inputs are truncated,
// never rejected.
const MaxSeqLen = 64

// File names inside a persisted graph directory.
const (
	GraphFile = "graph.json"
	VocabFile = "vocab.txt"
)

// Graph is the serialized raw-example -> features function. All fields that
// affect the output are persisted, so reloading the graph reproduces
// identical tensors.
type Graph struct {
	EncoderID   string `json:"encoder_id"`
	DoLowerCase bool   `json:"do_lower_case"`
	MaxSeqLen   int    `json:"max_seq_len"`
	PadID       int    `json:"pad_id"`
	UnkID       int    `json:"unk_id"`
	ClsID       int    `json:"cls_id"`
	SepID       int    `json:"sep_id"`

	tok *tokenizer.Tokenizer
}

// Features are the fixed-shape tensors derived from one raw example.
type Features struct {
	InputIDs   []int `json:"input_ids"`
	InputMask  []int `json:"input_mask"`
	SegmentIDs []int `json:"segment_ids"`
}

// Transformed pairs features with the raw example's label.
type Transformed struct {
	Features
	Label int `json:"label"`
}

// NewGraph builds a transform graph from a pretrained encoder's vocabulary
// and casing convention.
func NewGraph(enc *pretrained.Encoder) *Graph {
	v := enc.Vocab
	return &Graph{
		EncoderID:   enc.ID,
		DoLowerCase: enc.Config.DoLowerCase,
		MaxSeqLen:   MaxSeqLen,
		PadID:       v.MustID(tokenizer.PadToken),
		UnkID:       v.MustID(tokenizer.UnkToken),
		ClsID:       v.MustID(tokenizer.ClsToken),
		SepID:       v.MustID(tokenizer.SepToken),
		tok:         tokenizer.New(v, enc.Config.DoLowerCase),
	}
}

// Save persists the graph together with a copy of its vocabulary, making the
// directory self-contained.
func (g *Graph) Save(dir string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	if err := fileutil.WriteFile(fileutil.Join(dir, GraphFile), data); err != nil {
		return errors.Wrapf(err, "unable to write transform graph")
	}

	vocab := strings.Join(g.tok.Vocab().Tokens(), "\n") + "\n"
	if err := fileutil.WriteFile(fileutil.Join(dir, VocabFile), []byte(vocab)); err != nil {
		return errors.Wrapf(err, "unable to write transform vocab")
	}
	return nil
}

// LoadGraph reloads a persisted graph.
func LoadGraph(dir string) (*Graph, error) {
	data, err := fileutil.ReadFile(fileutil.Join(dir, GraphFile))
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read transform graph from %s", dir)
	}

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errors.Wrapf(err, "malformed transform graph in %s", dir)
	}
	if g.MaxSeqLen <= 2 {
		return nil, errors.Errorf("transform graph in %s has invalid max_seq_len %d", dir, g.MaxSeqLen)
	}

	vocab, err := tokenizer.LoadVocab(fileutil.Join(dir, VocabFile))
	if err != nil {
		return nil, err
	}
	g.tok = tokenizer.New(vocab, g.DoLowerCase)
	return &g, nil
}

// Apply maps text to fixed-shape features: [CLS] tokens... [SEP], truncated
// to MaxSeqLen, right-padded with the pad id. The mask marks positions whose
// token id is greater than the pad id; segment ids are all zero
// (single-segment input).
func (g *Graph) Apply(text string) Features {
	ids := g.tok.TokenizeIDs(text)
	if len(ids) > g.MaxSeqLen-2 {
		ids = ids[:g.MaxSeqLen-2]
	}

	seq := make([]int, 0, g.MaxSeqLen)
	seq = append(seq, g.ClsID)
	seq = append(seq, ids...)
	seq = append(seq, g.SepID)
	for len(seq) < g.MaxSeqLen {
		seq = append(seq, g.PadID)
	}

	mask := make([]int, g.MaxSeqLen)
	for i, id := range seq {
		if id > g.PadID {
			mask[i] = 1
		}
	}

	return Features{
		InputIDs:   seq,
		InputMask:  mask,
		SegmentIDs: make([]int, g.MaxSeqLen),
	}
}
