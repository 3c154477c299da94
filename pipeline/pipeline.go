// Package pipeline sequences the stages of the sentiment workflow. Each
// stage declares the artifacts it consumes; the runner refuses to start a
// stage until all of its inputs exist, and stages only ever create new
// artifacts, never patch a previous stage's output.
package pipeline

import (
	"time"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/logging"
)

// Artifact identifies a stage input or output: a type tag plus the storage
// location that holds it.
type Artifact struct {
	Type string
	URI  string
}

// Stage is one step of the pipeline.
type Stage struct {
	// Name of the stage, unique within a pipeline.
	Name string
	// Inputs declares the artifacts that must exist before Run starts.
	Inputs func(conf config.Config) []Artifact
	// Run executes the stage.
	Run func(conf config.Config) error
}

// Pipeline is an ordered sequence of stages.
type Pipeline struct {
	Name   string
	Stages []Stage
}

// Validate checks that the pipeline is well-formed.
func (p Pipeline) Validate() error {
	if len(p.Name) == 0 {
		return errors.New("pipeline name cannot be empty")
	}

	names := make(map[string]struct{})
	for i, s := range p.Stages {
		if s.Name == "" {
			return errors.Errorf("stage %d has no name", i)
		}
		if s.Run == nil {
			return errors.Errorf("stage %s has no run function", s.Name)
		}
		if _, found := names[s.Name]; found {
			return errors.Errorf("duplicate name for stage: %s", s.Name)
		}
		names[s.Name] = struct{}{}
	}
	return nil
}

// Run executes the stages sequentially. The first failing stage aborts the
// whole run.
func (p Pipeline) Run(conf config.Config) error {
	if err := p.Validate(); err != nil {
		return err
	}

	for _, s := range p.Stages {
		if err := p.runStage(s, conf); err != nil {
			return errors.Wrapf(err, "stage %s failed", s.Name)
		}
	}
	return nil
}

// RunStage executes a single named stage, checking its inputs first.
func (p Pipeline) RunStage(name string, conf config.Config) error {
	for _, s := range p.Stages {
		if s.Name == name {
			return p.runStage(s, conf)
		}
	}
	return errors.Errorf("unknown stage %s in pipeline %s", name, p.Name)
}

func (p Pipeline) runStage(s Stage, conf config.Config) error {
	if s.Inputs != nil {
		for _, in := range s.Inputs(conf) {
			if !fileutil.Exists(in.URI) {
				return errors.Errorf("input %s (%s) does not exist", in.URI, in.Type)
			}
		}
	}

	start := time.Now()
	logging.Sugar.Infof("running stage %s", s.Name)
	if err := s.Run(conf); err != nil {
		return err
	}
	logging.Sugar.Infof("stage %s finished in %s", s.Name, time.Since(start).Round(time.Millisecond))
	return nil
}
