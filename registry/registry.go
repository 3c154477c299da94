// Package registry tracks pipeline runs: each run directory pairs a trained
// model with the blessing verdict its evaluation produced.
package registry

import (
	"os"
	"sort"
	"time"

	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/serialization"
)

// Metrics are the evaluation results supporting a blessing verdict.
type Metrics struct {
	Accuracy    float64 `json:"accuracy"`
	AUC         float64 `json:"auc"`
	Loss        float64 `json:"loss"`
	NumExamples int     `json:"num_examples"`
}

// Blessing is the verdict gating whether a run's model may be exported,
// together with the metrics that produced it.
type Blessing struct {
	RunID    string   `json:"run_id"`
	Blessed  bool     `json:"blessed"`
	Metrics  Metrics  `json:"metrics"`
	Baseline *Metrics `json:"baseline,omitempty"`
	Reason   string   `json:"reason"`
}

// BlessingFile is the blessing artifact name inside a run directory.
const BlessingFile = "blessing.json"

// NewRunID returns a fresh run identifier. Ids sort chronologically, so the
// lexicographically greatest run is the most recent.
func NewRunID() string {
	return time.Now().UTC().Format("20060102T150405.000000000")
}

// RunDir returns the directory for a run id under the registry root.
func RunDir(root, runID string) string {
	return fileutil.Join(root, runID)
}

// ModelDir returns the model directory inside a run directory.
func ModelDir(runDir string) string {
	return fileutil.Join(runDir, "model")
}

// BlessingPath returns the blessing artifact path inside a run directory.
func BlessingPath(runDir string) string {
	return fileutil.Join(runDir, BlessingFile)
}

// WriteBlessing persists a run's blessing verdict.
func WriteBlessing(root string, b Blessing) error {
	path := BlessingPath(RunDir(root, b.RunID))
	if err := serialization.Encode(path, b); err != nil {
		return errors.Wrapf(err, "unable to write blessing for run %s", b.RunID)
	}
	return nil
}

// ReadBlessing loads a run's blessing, if present.
func ReadBlessing(root, runID string) (Blessing, bool, error) {
	path := BlessingPath(RunDir(root, runID))
	if !fileutil.Exists(path) {
		return Blessing{}, false, nil
	}
	var b Blessing
	if err := serialization.Decode(path, &b); err != nil {
		return Blessing{}, false, errors.Wrapf(err, "unable to read blessing for run %s", runID)
	}
	return b, true, nil
}

// Runs lists run ids under root in ascending (chronological) order.
func Runs(root string) ([]string, error) {
	if !fileutil.Exists(root) {
		return nil, nil
	}
	entries, err := fileutil.ListDir(root)
	if err != nil {
		return nil, err
	}

	var runs []string
	for _, entry := range entries {
		info, err := os.Stat(entry)
		if err != nil || !info.IsDir() {
			continue
		}
		runs = append(runs, fileutil.Base(entry))
	}
	sort.Strings(runs)
	return runs, nil
}

// LatestRun returns the most recent run id. Deterministic, no side effects.
func LatestRun(root string) (string, bool, error) {
	runs, err := Runs(root)
	if err != nil || len(runs) == 0 {
		return "", false, err
	}
	return runs[len(runs)-1], true, nil
}

// LatestBlessed resolves the most recently blessed run, optionally excluding
// one run id (the candidate under evaluation). Returns false if no prior
// blessed run exists.
func LatestBlessed(root, exclude string) (string, bool, error) {
	runs, err := Runs(root)
	if err != nil {
		return "", false, err
	}

	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i] == exclude {
			continue
		}
		b, ok, err := ReadBlessing(root, runs[i])
		if err != nil {
			return "", false, err
		}
		if ok && b.Blessed {
			return runs[i], true, nil
		}
	}
	return "", false, nil
}
