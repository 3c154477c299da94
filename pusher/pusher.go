// Package pusher exports a blessed model into a versioned serving directory.
package pusher

import (
	"os"
	"strconv"

	goversion "github.com/hashicorp/go-version"
	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/logging"
	"github.com/sentiml/sentiml/registry"
)

// Result reports whether the push happened. A negative blessing produces
// Pushed == false with no error, so callers must inspect the result rather
// than rely on an error to learn the model was not exported.
type Result struct {
	Pushed  bool
	RunID   string
	Version string
}

// Run exports the latest run's model if and only if its blessing is positive.
func Run(conf config.Config) (Result, error) {
	root := conf.RunsRoot()

	runID, ok, err := registry.LatestRun(root)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errors.New("no run to push")
	}

	b, ok, err := registry.ReadBlessing(root, runID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errors.Errorf("run %s has not been evaluated", runID)
	}
	if !b.Blessed {
		logging.Sugar.Warnf("run %s not blessed (%s), skipping push", runID, b.Reason)
		return Result{Pushed: false, RunID: runID}, nil
	}

	version, err := NextVersion(conf.ServingRoot)
	if err != nil {
		return Result{}, err
	}

	src := registry.ModelDir(registry.RunDir(root, runID))
	dst := fileutil.Join(conf.ServingRoot, version)
	if err := fileutil.CopyDir(src, dst); err != nil {
		return Result{}, errors.Wrapf(err, "unable to copy model to %s", dst)
	}

	logging.Sugar.Infof("pushed run %s to serving version %s", runID, version)
	return Result{Pushed: true, RunID: runID, Version: version}, nil
}

// NextVersion chooses a serving version that sorts after all existing
// versions under root.
func NextVersion(root string) (string, error) {
	latest, ok, err := LatestVersion(root)
	if err != nil {
		return "", err
	}
	if !ok {
		return "1", nil
	}
	n, err := strconv.Atoi(latest)
	if err != nil {
		return "", errors.Wrapf(err, "unparseable serving version %s", latest)
	}
	return strconv.Itoa(n + 1), nil
}

// LatestVersion returns the greatest version directory under root, compared
// as version tokens rather than raw strings so "10" sorts after "9".
func LatestVersion(root string) (string, bool, error) {
	if !fileutil.Exists(root) {
		return "", false, nil
	}
	entries, err := fileutil.ListDir(root)
	if err != nil {
		return "", false, err
	}

	var latest *goversion.Version
	var name string
	for _, entry := range entries {
		info, err := os.Stat(entry)
		if err != nil || !info.IsDir() {
			continue
		}
		v, err := goversion.NewVersion(fileutil.Base(entry))
		if err != nil {
			continue
		}
		if latest == nil || v.GreaterThan(latest) {
			latest = v
			name = fileutil.Base(entry)
		}
	}
	if latest == nil {
		return "", false, nil
	}
	return name, true, nil
}

// LatestModelDir resolves the serving directory of the most recent version.
func LatestModelDir(root string) (string, error) {
	version, ok, err := LatestVersion(root)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Errorf("no served model under %s", root)
	}
	return fileutil.Join(root, version), nil
}
