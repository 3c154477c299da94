package model

import (
	"math/rand"
	"time"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/logging"
	"github.com/sentiml/sentiml/pretrained"
	"github.com/sentiml/sentiml/registry"
	"github.com/sentiml/sentiml/transform"
	"github.com/sentiml/sentiml/workerpool"
)

// Model couples the frozen encoder, the transform graph it was trained
// against, and the trained head. The graph rides along so the saved model can
// score raw serialized records directly.
type Model struct {
	Graph   *transform.Graph
	Encoder *pretrained.Encoder
	Head    *Head
}

// trainSeed fixes head initialization and batch sampling. Training remains
// run-dependent only up to floating-point accumulation order across replicas.
const trainSeed = 1

// Train fits a head on transformed records. Gradients may be computed by
// several data-parallel replicas; replica count affects throughput only.
func Train(conf config.Train, g *transform.Graph, enc *pretrained.Encoder, records []transform.Transformed) (*Model, error) {
	if len(records) == 0 {
		return nil, errors.New("no transformed records to train on")
	}

	xs, ys, err := pooledFeatures(enc, records)
	if err != nil {
		return nil, err
	}

	head := NewHead(enc.HiddenSize(), trainSeed)
	opt := newAdagrad(head, conf.LearningRate)

	replicas := conf.Replicas
	if replicas < 1 {
		replicas = 1
	}
	batch := conf.BatchSize
	if batch < 1 {
		batch = 32
	}
	pool := workerpool.New(replicas)
	defer pool.Stop()

	rng := rand.New(rand.NewSource(trainSeed))
	start := time.Now()
	for step := 0; step < conf.TrainSteps; step++ {
		idx := make([]int, batch)
		for i := range idx {
			idx[i] = rng.Intn(len(xs))
		}

		grads := replicaGradients(pool, head, xs, ys, idx, replicas)
		opt.step(head, grads)

		if (step+1)%100 == 0 {
			loss := meanLoss(head, xs, ys, idx)
			logging.Sugar.Infof("step %d/%d loss %.4f elapsed %s",
				step+1, conf.TrainSteps, loss, time.Since(start).Round(time.Millisecond))
		}
	}

	return &Model{Graph: g, Encoder: enc, Head: head}, nil
}

// replicaGradients splits a batch across replicas, runs them concurrently,
// and merges the per-replica gradient sums.
func replicaGradients(pool *workerpool.Pool, head *Head, xs [][]float64, ys []float64, idx []int, replicas int) *gradients {
	parts := make([]*gradients, replicas)
	var jobs []workerpool.Job
	for r := 0; r < replicas; r++ {
		r := r
		jobs = append(jobs, func() error {
			g := newGradients(head)
			for i := r; i < len(idx); i += replicas {
				_, act := head.forward(xs[idx[i]])
				g.accumulate(head, act, ys[idx[i]])
			}
			parts[r] = g
			return nil
		})
	}
	pool.Add(jobs)
	pool.Wait()

	total := parts[0]
	for _, g := range parts[1:] {
		total.merge(g)
	}
	return total
}

func meanLoss(head *Head, xs [][]float64, ys []float64, idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += logLoss(head.Forward(xs[i]), ys[i])
	}
	return sum / float64(len(idx))
}

// pooledFeatures runs the frozen encoder over every record once. The encoder
// is not updated during training, so its outputs are constants.
func pooledFeatures(enc *pretrained.Encoder, records []transform.Transformed) ([][]float64, []float64, error) {
	xs := make([][]float64, len(records))
	ys := make([]float64, len(records))
	for i, rec := range records {
		if len(rec.InputIDs) != len(rec.InputMask) {
			return nil, nil, errors.Errorf("malformed transformed record %d: %d ids, %d mask values",
				i, len(rec.InputIDs), len(rec.InputMask))
		}
		xs[i] = enc.Encode(rec.InputIDs, rec.InputMask)
		ys[i] = float64(rec.Label)
	}
	return xs, ys, nil
}

// Run trains a model from the persisted transform outputs and registers it
// as a new run.
func Run(conf config.Config) error {
	g, err := transform.LoadGraph(conf.GraphDir())
	if err != nil {
		return err
	}
	enc, err := pretrained.Load(conf.Encoder.Host, conf.Encoder.ID)
	if err != nil {
		return err
	}

	trainRecs, err := transform.ReadAll(conf.TransformedDir(config.TrainSplit))
	if err != nil {
		return err
	}
	evalRecs, err := transform.ReadAll(conf.TransformedDir(config.EvalSplit))
	if err != nil {
		return err
	}

	m, err := Train(conf.Train, g, enc, trainRecs)
	if err != nil {
		return err
	}

	if conf.Train.EvalSteps > 0 {
		loss, acc, err := m.evalRecords(evalRecs, conf.Train.EvalSteps*conf.Train.BatchSize)
		if err != nil {
			return err
		}
		logging.Sugar.Infof("eval loss %.4f accuracy %.4f", loss, acc)
	}

	runID := registry.NewRunID()
	modelDir := registry.ModelDir(registry.RunDir(conf.RunsRoot(), runID))
	if err := m.Save(modelDir); err != nil {
		return err
	}
	logging.Sugar.Infof("saved run %s model to %s", runID, modelDir)
	return nil
}

// evalRecords scores up to limit transformed records, returning mean loss and
// accuracy.
func (m *Model) evalRecords(records []transform.Transformed, limit int) (float64, float64, error) {
	if len(records) == 0 {
		return 0, 0, errors.New("no records to evaluate")
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	var loss float64
	var correct int
	for _, rec := range records {
		x := m.Encoder.Encode(rec.InputIDs, rec.InputMask)
		p := m.Head.Forward(x)
		y := float64(rec.Label)
		loss += logLoss(p, y)
		if (p >= 0.5) == (rec.Label == 1) {
			correct++
		}
	}
	n := float64(len(records))
	return loss / n, float64(correct) / n, nil
}
