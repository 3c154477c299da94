package main

import (
	"strings"

	arg "github.com/alexflint/go-arg"

	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/logging"
	"github.com/sentiml/sentiml/pretrained"
	"github.com/sentiml/sentiml/tokenizer"
	"github.com/sentiml/sentiml/transform"
)

// encoder-init materializes a synthetic pretrained encoder directory so the
// pipeline can run locally without fetching a real checkpoint.
func main() {
	args := struct {
		Host       string `arg:"required" help:"encoder host directory"`
		ID         string `arg:"required" help:"encoder id, e.g. small_uncased_L-2_H-128"`
		VocabFile  string `arg:"required" help:"wordpiece vocab, one token per line"`
		HiddenSize int    `help:"pooled vector width"`
		Seed       int64  `help:"weight seed"`
		Cased      bool   `help:"keep input casing"`
	}{
		HiddenSize: 128,
		Seed:       1,
	}
	arg.MustParse(&args)

	data, err := fileutil.ReadFile(args.VocabFile)
	if err != nil {
		logging.Sugar.Fatal(err)
	}
	var tokens []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tokens = append(tokens, line)
		}
	}

	dir := pretrained.Dir(args.Host, args.ID)
	conf := pretrained.EncoderConfig{
		HiddenSize:   args.HiddenSize,
		MaxPositions: transform.MaxSeqLen,
		DoLowerCase:  !args.Cased,
	}
	if err := pretrained.WriteSynthetic(dir, tokens, conf, args.Seed); err != nil {
		logging.Sugar.Fatal(err)
	}

	// fail fast on vocabs missing the reserved tokens
	if _, err := tokenizer.LoadVocab(fileutil.Join(dir, pretrained.VocabFile)); err != nil {
		logging.Sugar.Fatal(err)
	}
	logging.Sugar.Infof("wrote synthetic encoder %s (%d tokens, width %d) to %s",
		args.ID, len(tokens), args.HiddenSize, dir)
}
