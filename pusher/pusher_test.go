package pusher

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/registry"
)

func testConf(t *testing.T) (config.Config, func()) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)

	conf := config.Default()
	conf.Root = filepath.Join(dir, "root")
	conf.ServingRoot = filepath.Join(dir, "serving")
	return conf, func() { os.RemoveAll(dir) }
}

func addRun(t *testing.T, root string, blessed bool) string {
	runID := registry.NewRunID()
	modelDir := registry.ModelDir(registry.RunDir(root, runID))
	require.NoError(t, os.MkdirAll(modelDir, 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(modelDir, "head.gob.gz"), []byte("weights"), 0644))
	require.NoError(t, registry.WriteBlessing(root, registry.Blessing{
		RunID:   runID,
		Blessed: blessed,
	}))
	return runID
}

func TestPushBlessed(t *testing.T) {
	conf, cleanup := testConf(t)
	defer cleanup()

	runID := addRun(t, conf.RunsRoot(), true)

	res, err := Run(conf)
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	assert.Equal(t, runID, res.RunID)
	assert.Equal(t, "1", res.Version)

	_, err = os.Stat(filepath.Join(conf.ServingRoot, "1", "head.gob.gz"))
	require.NoError(t, err, "model files must land under the new version")
}

func TestPushNotBlessedSkips(t *testing.T) {
	conf, cleanup := testConf(t)
	defer cleanup()

	runID := addRun(t, conf.RunsRoot(), false)

	res, err := Run(conf)
	require.NoError(t, err, "a negative blessing is not an error")
	assert.False(t, res.Pushed)
	assert.Equal(t, runID, res.RunID)

	_, statErr := os.Stat(conf.ServingRoot)
	assert.True(t, os.IsNotExist(statErr), "serving root must be untouched")
}

func TestPushUnevaluatedRun(t *testing.T) {
	conf, cleanup := testConf(t)
	defer cleanup()

	runID := registry.NewRunID()
	require.NoError(t, os.MkdirAll(registry.ModelDir(registry.RunDir(conf.RunsRoot(), runID)), 0755))

	_, err := Run(conf)
	require.Error(t, err, "pushing before evaluation must fail")
}

func TestPushNoRuns(t *testing.T) {
	conf, cleanup := testConf(t)
	defer cleanup()

	_, err := Run(conf)
	require.Error(t, err)
}

func TestVersionOrdering(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	for _, v := range []string{"1", "2", "9", "10"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, v), 0755))
	}
	// non-version entries are ignored
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "README"), nil, 0644))

	latest, ok, err := LatestVersion(dir)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10", latest, "versions compare numerically, not lexically")

	next, err := NextVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, "11", next)
}

func TestNextVersionEmpty(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	next, err := NextVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, "1", next)
}

func TestSuccessivePushes(t *testing.T) {
	conf, cleanup := testConf(t)
	defer cleanup()

	addRun(t, conf.RunsRoot(), true)
	res, err := Run(conf)
	require.NoError(t, err)
	assert.Equal(t, "1", res.Version)

	addRun(t, conf.RunsRoot(), true)
	res, err = Run(conf)
	require.NoError(t, err)
	assert.Equal(t, "2", res.Version)

	dir, err := LatestModelDir(conf.ServingRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(conf.ServingRoot, "2"), dir)
}
