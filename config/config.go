// Package config holds the pipeline configuration. A single Config is loaded
// once and threaded explicitly through every stage; stages keep no global
// state.
package config

import (
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
	yaml "gopkg.in/yaml.v2"
)

// Dataset configures the acquisition stage.
type Dataset struct {
	// Name identifies the corpus, used for logging and artifact naming.
	Name string `yaml:"name"`
	// URL points at a TSV corpus of "label<TAB>text" rows; may be a local
	// path, an http(s) URL or an s3:// URI.
	URL string `yaml:"url"`
	// EvalFraction of examples held out for the eval split.
	EvalFraction float64 `yaml:"eval_fraction"`
	// NumShards per split.
	NumShards int `yaml:"num_shards"`
	// Seed for the split shuffle.
	Seed int64 `yaml:"seed"`
}

// Encoder configures the pretrained text encoder.
type Encoder struct {
	// ID of the pretrained encoder, e.g. "small_uncased_L-2_H-128".
	ID string `yaml:"id"`
	// Host is the root the encoder directory is resolved under; may be a
	// local dir, an http(s) URL or an s3:// URI.
	Host string `yaml:"host"`
}

// Train configures the training stage.
type Train struct {
	TrainSteps   int     `yaml:"train_steps"`
	EvalSteps    int     `yaml:"eval_steps"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	// Replicas is the number of data-parallel training replicas. Affects
	// throughput only; gradients are averaged across replicas.
	Replicas int `yaml:"replicas"`
}

// Eval configures the blessing policy.
type Eval struct {
	// AccuracyLowerBound is the absolute accuracy a candidate must reach.
	AccuracyLowerBound float64 `yaml:"accuracy_lower_bound"`
	// Tolerance is the largest accuracy regression versus the baseline
	// that still blesses the candidate.
	Tolerance float64 `yaml:"tolerance"`
}

// Config is the full pipeline configuration.
type Config struct {
	// Root directory under which all intermediate artifacts are written.
	Root string `yaml:"root"`
	// ServingRoot is the versioned export directory for blessed models.
	ServingRoot string `yaml:"serving_root"`

	Dataset Dataset `yaml:"dataset"`
	Encoder Encoder `yaml:"encoder"`
	Train   Train   `yaml:"train"`
	Eval    Eval    `yaml:"eval"`
}

// Default returns a Config with the values used by the demo pipeline.
func Default() Config {
	return Config{
		Dataset: Dataset{
			Name:         "sentiment",
			EvalFraction: 0.2,
			NumShards:    2,
			Seed:         42,
		},
		Encoder: Encoder{
			ID: "small_uncased_L-2_H-128",
		},
		Train: Train{
			TrainSteps:   500,
			EvalSteps:    100,
			BatchSize:    32,
			LearningRate: 0.01,
			Replicas:     2,
		},
		Eval: Eval{
			AccuracyLowerBound: 0.6,
			Tolerance:          0.01,
		},
	}
}

// Load reads a YAML config file, applying Default values for unset fields.
func Load(path string) (Config, error) {
	data, err := fileutil.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to read config %s", path)
	}

	conf := Default()
	if err := yaml.UnmarshalStrict(data, &conf); err != nil {
		return Config{}, errors.Wrapf(err, "unable to parse config %s", path)
	}

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// Validate checks that the required fields are set.
func (c Config) Validate() error {
	var errs errors.Errors
	if c.Root == "" {
		errs = errors.Append(errs, errors.New("root must be set"))
	}
	if c.ServingRoot == "" {
		errs = errors.Append(errs, errors.New("serving_root must be set"))
	}
	if c.Dataset.URL == "" {
		errs = errors.Append(errs, errors.New("dataset.url must be set"))
	}
	if c.Dataset.EvalFraction <= 0 || c.Dataset.EvalFraction >= 1 {
		errs = errors.Append(errs, errors.New("dataset.eval_fraction must be in (0, 1)"))
	}
	if errs != nil {
		return errs
	}
	return nil
}

// Split names for the two example sets.
const (
	TrainSplit = "train"
	EvalSplit  = "eval"
)

// ExamplesDir returns the raw example shard directory for a split.
func (c Config) ExamplesDir(split string) string {
	return fileutil.Join(c.Root, "examples", split)
}

// LabelVocabPath is the label vocabulary written by acquisition.
func (c Config) LabelVocabPath() string {
	return fileutil.Join(c.Root, "examples", "label_vocab.json")
}

// StatsPath returns the statistics artifact for a split.
func (c Config) StatsPath(split string) string {
	return fileutil.Join(c.Root, "stats", split+".json.gz")
}

// SchemaPath is the inferred schema artifact.
func (c Config) SchemaPath() string {
	return fileutil.Join(c.Root, "schema", "schema.json")
}

// AnomaliesPath returns the anomaly report for a split.
func (c Config) AnomaliesPath(split string) string {
	return fileutil.Join(c.Root, "anomalies", split+".json")
}

// TransformedDir returns the transformed example shard directory for a split.
func (c Config) TransformedDir(split string) string {
	return fileutil.Join(c.Root, "transformed", split)
}

// GraphDir is the persisted transform graph directory.
func (c Config) GraphDir() string {
	return fileutil.Join(c.Root, "transform_graph")
}

// RunsRoot is the run registry holding (model, blessing) pairs.
func (c Config) RunsRoot() string {
	return fileutil.Join(c.Root, "runs")
}
