package pipeline

import (
	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/evaluate"
	"github.com/sentiml/sentiml/ingest"
	"github.com/sentiml/sentiml/model"
	"github.com/sentiml/sentiml/pusher"
	"github.com/sentiml/sentiml/schema"
	"github.com/sentiml/sentiml/smoketest"
	"github.com/sentiml/sentiml/stats"
	"github.com/sentiml/sentiml/transform"
)

// Artifact type tags.
const (
	ExamplesArtifact    = "Examples"
	StatsArtifact       = "ExampleStatistics"
	SchemaArtifact      = "Schema"
	GraphArtifact       = "TransformGraph"
	TransformedArtifact = "TransformedExamples"
	RunsArtifact        = "ModelRuns"
	ServedArtifact      = "ServedModel"
)

// Sentiment builds the standard sentiment classification pipeline: ingest,
// statistics, schema validation, transform, training, evaluation, push and a
// final smoke test against the serving directory.
func Sentiment() Pipeline {
	examples := func(conf config.Config) []Artifact {
		return []Artifact{
			{Type: ExamplesArtifact, URI: conf.ExamplesDir(config.TrainSplit)},
			{Type: ExamplesArtifact, URI: conf.ExamplesDir(config.EvalSplit)},
		}
	}

	return Pipeline{
		Name: "sentiment",
		Stages: []Stage{
			{
				Name: "ingest",
				Run:  ingest.Run,
			},
			{
				Name:   "stats",
				Inputs: examples,
				Run:    stats.Run,
			},
			{
				Name: "schema",
				Inputs: func(conf config.Config) []Artifact {
					return []Artifact{
						{Type: StatsArtifact, URI: conf.StatsPath(config.TrainSplit)},
					}
				},
				Run: schema.Run,
			},
			{
				Name: "validate",
				Inputs: func(conf config.Config) []Artifact {
					return []Artifact{
						{Type: SchemaArtifact, URI: conf.SchemaPath()},
						{Type: StatsArtifact, URI: conf.StatsPath(config.TrainSplit)},
						{Type: StatsArtifact, URI: conf.StatsPath(config.EvalSplit)},
					}
				},
				Run: schema.RunValidation,
			},
			{
				Name:   "transform",
				Inputs: examples,
				Run:    transform.Run,
			},
			{
				Name: "train",
				Inputs: func(conf config.Config) []Artifact {
					return []Artifact{
						{Type: GraphArtifact, URI: conf.GraphDir()},
						{Type: TransformedArtifact, URI: conf.TransformedDir(config.TrainSplit)},
						{Type: TransformedArtifact, URI: conf.TransformedDir(config.EvalSplit)},
					}
				},
				Run: model.Run,
			},
			{
				Name: "evaluate",
				Inputs: func(conf config.Config) []Artifact {
					return []Artifact{
						{Type: RunsArtifact, URI: conf.RunsRoot()},
						{Type: ExamplesArtifact, URI: conf.ExamplesDir(config.EvalSplit)},
					}
				},
				Run: evaluate.Run,
			},
			{
				Name: "push",
				Inputs: func(conf config.Config) []Artifact {
					return []Artifact{
						{Type: RunsArtifact, URI: conf.RunsRoot()},
					}
				},
				Run: func(conf config.Config) error {
					_, err := pusher.Run(conf)
					return err
				},
			},
			{
				Name: "smoketest",
				Inputs: func(conf config.Config) []Artifact {
					return []Artifact{
						{Type: ServedArtifact, URI: conf.ServingRoot},
					}
				},
				Run: func(conf config.Config) error {
					return smoketest.Run(conf, nil)
				},
			},
		},
	}
}
