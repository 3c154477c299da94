// Package evaluate computes evaluation metrics for a candidate model over
// raw eval examples, compares it against the resolved baseline, and produces
// the blessing verdict.
package evaluate

import (
	"fmt"
	"math"
	"sort"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/example"
	"github.com/sentiml/sentiml/logging"
	"github.com/sentiml/sentiml/model"
	"github.com/sentiml/sentiml/registry"
)

// Metrics scores every raw example under dir through the model's serving
// path. Fails, rather than defaulting, if examples are malformed or absent.
func Metrics(m *model.Model, dir string) (registry.Metrics, error) {
	var scores []float64
	var labels []int

	err := example.Iterate(dir, func(key string, ex example.Example) error {
		raw, err := ex.Marshal()
		if err != nil {
			return err
		}
		out, err := m.Score([][]byte{raw})
		if err != nil {
			return errors.Wrapf(err, "unable to score example %s", key)
		}
		scores = append(scores, out[0])
		labels = append(labels, ex.Label)
		return nil
	})
	if err != nil {
		return registry.Metrics{}, err
	}
	if len(scores) == 0 {
		return registry.Metrics{}, errors.New("no examples to evaluate")
	}

	var correct int
	var loss float64
	for i, p := range scores {
		if (p >= 0.5) == (labels[i] == 1) {
			correct++
		}
		loss += logLoss(p, labels[i])
	}

	n := float64(len(scores))
	return registry.Metrics{
		Accuracy:    float64(correct) / n,
		AUC:         auc(scores, labels),
		Loss:        loss / n,
		NumExamples: len(scores),
	}, nil
}

func logLoss(p float64, label int) float64 {
	const eps = 1e-12
	if p < eps {
		p = eps
	}
	if p > 1-eps {
		p = 1 - eps
	}
	if label == 1 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

// auc is the rank-based (Mann-Whitney) area under the ROC curve, with
// average ranks for tied scores. Degenerate single-class inputs score 0.5.
func auc(scores []float64, labels []int) float64 {
	type pair struct {
		score float64
		label int
	}
	pairs := make([]pair, len(scores))
	for i := range scores {
		pairs[i] = pair{scores[i], labels[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	var pos, neg float64
	var rankSum float64
	i := 0
	for i < len(pairs) {
		j := i
		for j < len(pairs) && pairs[j].score == pairs[i].score {
			j++
		}
		// average rank for the tie group, 1-based
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if pairs[k].label == 1 {
				rankSum += avgRank
			}
		}
		i = j
	}
	for _, p := range pairs {
		if p.label == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}
	return (rankSum - pos*(pos+1)/2) / (pos * neg)
}

// Decide applies the blessing policy: the candidate's accuracy must reach the
// absolute lower bound, and must not regress against the baseline by more
// than the tolerance. With no baseline only the absolute condition applies.
func Decide(conf config.Eval, cand registry.Metrics, baseline *registry.Metrics) (bool, string) {
	if cand.Accuracy < conf.AccuracyLowerBound {
		return false, fmt.Sprintf("accuracy %.4f below lower bound %.4f",
			cand.Accuracy, conf.AccuracyLowerBound)
	}
	if baseline != nil && cand.Accuracy < baseline.Accuracy-conf.Tolerance {
		return false, fmt.Sprintf("accuracy %.4f regresses baseline %.4f beyond tolerance %.4f",
			cand.Accuracy, baseline.Accuracy, conf.Tolerance)
	}
	return true, "thresholds met"
}

// Run evaluates the latest run's model against the resolved baseline and
// writes its blessing.
func Run(conf config.Config) error {
	root := conf.RunsRoot()

	runID, ok, err := registry.LatestRun(root)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("no run to evaluate")
	}

	candidate, err := model.Load(registry.ModelDir(registry.RunDir(root, runID)))
	if err != nil {
		return err
	}
	candMetrics, err := Metrics(candidate, conf.ExamplesDir(config.EvalSplit))
	if err != nil {
		return errors.Wrapf(err, "unable to evaluate run %s", runID)
	}

	var baseMetrics *registry.Metrics
	baseID, ok, err := registry.LatestBlessed(root, runID)
	if err != nil {
		return err
	}
	if ok {
		baseline, err := model.Load(registry.ModelDir(registry.RunDir(root, baseID)))
		if err != nil {
			return err
		}
		m, err := Metrics(baseline, conf.ExamplesDir(config.EvalSplit))
		if err != nil {
			return errors.Wrapf(err, "unable to evaluate baseline run %s", baseID)
		}
		baseMetrics = &m
		logging.Sugar.Infof("resolved baseline run %s accuracy %.4f", baseID, m.Accuracy)
	} else {
		logging.Sugar.Infof("no prior blessed run, applying absolute thresholds only")
	}

	blessed, reason := Decide(conf.Eval, candMetrics, baseMetrics)
	b := registry.Blessing{
		RunID:    runID,
		Blessed:  blessed,
		Metrics:  candMetrics,
		Baseline: baseMetrics,
		Reason:   reason,
	}
	if err := registry.WriteBlessing(root, b); err != nil {
		return err
	}

	if blessed {
		logging.Sugar.Infof("run %s blessed: accuracy %.4f auc %.4f", runID, candMetrics.Accuracy, candMetrics.AUC)
	} else {
		logging.Sugar.Warnf("run %s not blessed: %s", runID, reason)
	}
	return nil
}
