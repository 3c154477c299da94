// Package schema infers a declarative description of the raw example format
// from computed statistics, and checks later splits against it.
package schema

import (
	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/logging"
	"github.com/sentiml/sentiml/serialization"
	"github.com/sentiml/sentiml/stats"
)

// Presence describes whether a feature must appear in every example.
type Presence string

// Presence values.
const (
	Required Presence = "REQUIRED"
	Optional Presence = "OPTIONAL"
)

// Feature describes one expected feature.
type Feature struct {
	Name     string            `json:"name"`
	Type     stats.FeatureType `json:"type"`
	Presence Presence          `json:"presence"`
	// Domain restricts the allowed values of an INT feature; empty means
	// unrestricted.
	Domain []int `json:"domain,omitempty"`
}

// Schema is the inferred structural description of raw examples. It must stay
// consistent with the raw example format across reruns.
type Schema struct {
	Features []Feature `json:"features"`
}

// Feature returns the named feature.
func (s Schema) Feature(name string) (Feature, bool) {
	for _, f := range s.Features {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// Infer derives a Schema from a split's statistics: every observed feature is
// required, and small INT domains become value restrictions.
func Infer(summary stats.Summary) Schema {
	var features []Feature
	for _, fs := range summary.Features {
		f := Feature{
			Name:     fs.Name,
			Type:     fs.Type,
			Presence: Required,
		}
		if fs.Missing > 0 {
			f.Presence = Optional
		}
		if fs.Type == stats.IntFeature && len(fs.Domain) > 0 {
			f.Domain = append([]int(nil), fs.Domain...)
		}
		features = append(features, f)
	}
	return Schema{Features: features}
}

// Run infers the schema from the train split's statistics and persists it.
func Run(conf config.Config) error {
	summary, err := stats.Load(conf.StatsPath(config.TrainSplit))
	if err != nil {
		return err
	}

	inferred := Infer(summary)
	if err := serialization.Encode(conf.SchemaPath(), inferred); err != nil {
		return errors.Wrapf(err, "unable to write schema")
	}
	logging.Sugar.Infof("inferred schema with %d features", len(inferred.Features))
	return nil
}

// Load reads a persisted Schema.
func Load(path string) (Schema, error) {
	var s Schema
	if err := serialization.Decode(path, &s); err != nil {
		return Schema{}, errors.Wrapf(err, "unable to load schema %s", path)
	}
	return s, nil
}
