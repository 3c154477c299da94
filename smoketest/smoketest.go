// Package smoketest exercises an exported model's serving signature with a
// few literal inputs. Output is for human inspection, no assertions.
package smoketest

import (
	"fmt"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/example"
	"github.com/sentiml/sentiml/model"
	"github.com/sentiml/sentiml/pusher"
)

// DefaultInputs are the literal texts scored when none are supplied.
var DefaultInputs = []string{
	"I loved it!",
	"The worst product ever.",
	"Perfectly fine, nothing special.",
}

// Run loads the latest served model and prints a score per input.
func Run(conf config.Config, inputs []string) error {
	if len(inputs) == 0 {
		inputs = DefaultInputs
	}

	dir, err := pusher.LatestModelDir(conf.ServingRoot)
	if err != nil {
		return err
	}
	m, err := model.Load(dir)
	if err != nil {
		return err
	}

	// feed serialized records, the same shape serving sees in production
	raw := make([][]byte, 0, len(inputs))
	for _, text := range inputs {
		data, err := example.Example{Text: text}.Marshal()
		if err != nil {
			return err
		}
		raw = append(raw, data)
	}

	scores, err := m.Score(raw)
	if err != nil {
		return err
	}

	for i, text := range inputs {
		fmt.Printf("%.4f  %q\n", scores[i], text)
	}
	return nil
}
