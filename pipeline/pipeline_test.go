package pipeline

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentiml/sentiml/config"
)

func TestValidate(t *testing.T) {
	ok := Pipeline{
		Name: "p",
		Stages: []Stage{
			{Name: "a", Run: func(config.Config) error { return nil }},
			{Name: "b", Run: func(config.Config) error { return nil }},
		},
	}
	require.NoError(t, ok.Validate())

	dup := ok
	dup.Stages = append(dup.Stages, Stage{Name: "a", Run: func(config.Config) error { return nil }})
	require.Error(t, dup.Validate())

	noRun := Pipeline{Name: "p", Stages: []Stage{{Name: "a"}}}
	require.Error(t, noRun.Validate())

	unnamed := Pipeline{Stages: nil}
	require.Error(t, unnamed.Validate())
}

func TestRunOrderAndAbort(t *testing.T) {
	var order []string
	stage := func(name string, fail bool) Stage {
		return Stage{
			Name: name,
			Run: func(config.Config) error {
				order = append(order, name)
				if fail {
					return assert.AnError
				}
				return nil
			},
		}
	}

	p := Pipeline{
		Name:   "p",
		Stages: []Stage{stage("a", false), stage("b", true), stage("c", false)},
	}
	err := p.Run(config.Config{})
	require.Error(t, err)
	assert.Equal(t, []string{"a", "b"}, order, "failure must abort before later stages")
}

func TestMissingInputRefusesToRun(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	ran := false
	p := Pipeline{
		Name: "p",
		Stages: []Stage{{
			Name: "consume",
			Inputs: func(config.Config) []Artifact {
				return []Artifact{{Type: ExamplesArtifact, URI: filepath.Join(dir, "missing")}}
			},
			Run: func(config.Config) error {
				ran = true
				return nil
			},
		}},
	}

	require.Error(t, p.Run(config.Config{}))
	assert.False(t, ran, "stage must not start without its inputs")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "missing"), 0755))
	require.NoError(t, p.Run(config.Config{}))
	assert.True(t, ran)
}

func TestRunStageUnknown(t *testing.T) {
	p := Sentiment()
	require.NoError(t, p.Validate())
	require.Error(t, p.RunStage("nope", config.Config{}))
}
