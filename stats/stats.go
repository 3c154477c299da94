// Package stats computes per-feature statistics over raw example shards.
package stats

import (
	"sort"

	mfstats "github.com/montanaflynn/stats"
	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/example"
	"github.com/sentiml/sentiml/logging"
	"github.com/sentiml/sentiml/serialization"
)

// FeatureType tags the value type of a feature.
type FeatureType string

// The two feature types raw examples carry.
const (
	BytesFeature FeatureType = "BYTES"
	IntFeature   FeatureType = "INT"
)

// Feature names of the raw example record.
const (
	TextFeature  = "text"
	LabelFeature = "label"
)

// FeatureStats are aggregate statistics for one feature across a split.
type FeatureStats struct {
	Name    string      `json:"name"`
	Type    FeatureType `json:"type"`
	Count   int         `json:"count"`
	Missing int         `json:"missing"`

	// Numeric summary. For BYTES features this summarizes value lengths.
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`

	// Domain holds the distinct values seen for small-domain INT features.
	Domain []int `json:"domain,omitempty"`
}

// Summary aggregates per-feature statistics for one dataset split.
type Summary struct {
	Split       string         `json:"split"`
	NumExamples int            `json:"num_examples"`
	Features    []FeatureStats `json:"features"`
}

// maxDomainValues caps how many distinct INT values are recorded as a domain.
const maxDomainValues = 16

// Compute scans the raw shards under dir and aggregates statistics.
// Deterministic given identical shards.
func Compute(dir, split string) (Summary, error) {
	var textLens, labels []float64
	var missingText int
	labelValues := make(map[int]struct{})

	err := example.Iterate(dir, func(key string, ex example.Example) error {
		if len(ex.Text) == 0 {
			missingText++
		}
		textLens = append(textLens, float64(len(ex.Text)))
		labels = append(labels, float64(ex.Label))
		labelValues[ex.Label] = struct{}{}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	text, err := summarize(TextFeature, BytesFeature, textLens)
	if err != nil {
		return Summary{}, err
	}
	text.Missing = missingText

	label, err := summarize(LabelFeature, IntFeature, labels)
	if err != nil {
		return Summary{}, err
	}
	if len(labelValues) <= maxDomainValues {
		for v := range labelValues {
			label.Domain = append(label.Domain, v)
		}
		sort.Ints(label.Domain)
	}

	return Summary{
		Split:       split,
		NumExamples: len(labels),
		Features:    []FeatureStats{text, label},
	}, nil
}

func summarize(name string, typ FeatureType, values []float64) (FeatureStats, error) {
	fs := FeatureStats{Name: name, Type: typ, Count: len(values)}
	if len(values) == 0 {
		return fs, nil
	}

	data := mfstats.Float64Data(values)
	var err error
	if fs.Min, err = data.Min(); err != nil {
		return fs, errors.Wrapf(err, "unable to compute min of %s", name)
	}
	if fs.Max, err = data.Max(); err != nil {
		return fs, errors.Wrapf(err, "unable to compute max of %s", name)
	}
	if fs.Mean, err = data.Mean(); err != nil {
		return fs, errors.Wrapf(err, "unable to compute mean of %s", name)
	}
	if fs.StdDev, err = data.StandardDeviation(); err != nil {
		return fs, errors.Wrapf(err, "unable to compute std dev of %s", name)
	}
	return fs, nil
}

// Feature returns the named feature's statistics.
func (s Summary) Feature(name string) (FeatureStats, bool) {
	for _, f := range s.Features {
		if f.Name == name {
			return f, true
		}
	}
	return FeatureStats{}, false
}

// Run computes and persists statistics for both splits.
func Run(conf config.Config) error {
	for _, split := range []string{config.TrainSplit, config.EvalSplit} {
		summary, err := Compute(conf.ExamplesDir(split), split)
		if err != nil {
			return errors.Wrapf(err, "unable to compute stats for %s split", split)
		}
		if err := serialization.Encode(conf.StatsPath(split), summary); err != nil {
			return errors.Wrapf(err, "unable to write stats for %s split", split)
		}
		logging.Sugar.Infof("computed stats over %d %s examples", summary.NumExamples, split)
	}
	return nil
}

// Load reads a persisted Summary.
func Load(path string) (Summary, error) {
	var s Summary
	if err := serialization.Decode(path, &s); err != nil {
		return Summary{}, errors.Wrapf(err, "unable to load stats %s", path)
	}
	return s, nil
}
