package schema

import (
	"fmt"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/logging"
	"github.com/sentiml/sentiml/serialization"
	"github.com/sentiml/sentiml/stats"
)

// Anomaly is one violation of the schema found in a split's statistics.
type Anomaly struct {
	Feature     string `json:"feature"`
	Description string `json:"description"`
}

// Report lists the anomalies found for one split. Advisory only: a non-empty
// report never blocks downstream stages.
type Report struct {
	Split     string    `json:"split"`
	Anomalies []Anomaly `json:"anomalies"`
}

// Clean reports whether no anomalies were found.
func (r Report) Clean() bool {
	return len(r.Anomalies) == 0
}

// Validate checks a split's statistics against the schema. Pure function of
// its inputs.
func Validate(s Schema, summary stats.Summary) Report {
	report := Report{Split: summary.Split}

	seen := make(map[string]bool)
	for _, fs := range summary.Features {
		seen[fs.Name] = true

		expected, ok := s.Feature(fs.Name)
		if !ok {
			report.Anomalies = append(report.Anomalies, Anomaly{
				Feature:     fs.Name,
				Description: "feature not present in schema",
			})
			continue
		}

		if expected.Type != fs.Type {
			report.Anomalies = append(report.Anomalies, Anomaly{
				Feature:     fs.Name,
				Description: fmt.Sprintf("expected type %s, got %s", expected.Type, fs.Type),
			})
		}

		if expected.Presence == Required && fs.Missing > 0 {
			report.Anomalies = append(report.Anomalies, Anomaly{
				Feature:     fs.Name,
				Description: fmt.Sprintf("required feature missing in %d examples", fs.Missing),
			})
		}

		if len(expected.Domain) > 0 {
			allowed := make(map[int]bool, len(expected.Domain))
			for _, v := range expected.Domain {
				allowed[v] = true
			}
			for _, v := range fs.Domain {
				if !allowed[v] {
					report.Anomalies = append(report.Anomalies, Anomaly{
						Feature:     fs.Name,
						Description: fmt.Sprintf("value %d outside schema domain", v),
					})
				}
			}
		}
	}

	for _, expected := range s.Features {
		if !seen[expected.Name] {
			report.Anomalies = append(report.Anomalies, Anomaly{
				Feature:     expected.Name,
				Description: "feature missing from statistics",
			})
		}
	}

	return report
}

// RunValidation checks both splits against the persisted schema and writes
// anomaly reports. Anomalies are logged but never fail the stage.
func RunValidation(conf config.Config) error {
	loaded, err := Load(conf.SchemaPath())
	if err != nil {
		return err
	}

	for _, split := range []string{config.TrainSplit, config.EvalSplit} {
		summary, err := stats.Load(conf.StatsPath(split))
		if err != nil {
			return err
		}

		report := Validate(loaded, summary)
		if err := serialization.Encode(conf.AnomaliesPath(split), report); err != nil {
			return errors.Wrapf(err, "unable to write anomaly report for %s split", split)
		}

		if report.Clean() {
			logging.Sugar.Infof("no anomalies in %s split", split)
		} else {
			for _, a := range report.Anomalies {
				logging.Sugar.Warnf("%s split anomaly: %s: %s", split, a.Feature, a.Description)
			}
		}
	}
	return nil
}
