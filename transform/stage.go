package transform

import (
	"encoding/json"

	"github.com/sentiml/sentiml/config"
	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/example"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/logging"
	"github.com/sentiml/sentiml/pretrained"
	"github.com/sentiml/sentiml/recordio"
	"github.com/sentiml/sentiml/workerpool"
)

// Run loads the pretrained encoder's tokenizer configuration, transforms the
// raw shards of both splits, and persists the transform graph for serving.
func Run(conf config.Config) error {
	enc, err := pretrained.Load(conf.Encoder.Host, conf.Encoder.ID)
	if err != nil {
		return err
	}

	g := NewGraph(enc)
	if err := g.Save(conf.GraphDir()); err != nil {
		return err
	}
	logging.Sugar.Infof("saved transform graph for encoder %s to %s", enc.ID, conf.GraphDir())

	for _, split := range []string{config.TrainSplit, config.EvalSplit} {
		if err := transformSplit(g, conf.ExamplesDir(split), conf.TransformedDir(split)); err != nil {
			return errors.Wrapf(err, "unable to transform %s split", split)
		}
	}
	return nil
}

// transformSplit rewrites every raw shard under rawDir as a transformed shard
// under outDir, shard-parallel.
func transformSplit(g *Graph, rawDir, outDir string) error {
	shards, err := recordio.Shards(rawDir)
	if err != nil {
		return err
	}

	if err := fileutil.ClearDir(outDir); err != nil {
		return err
	}

	pool := workerpool.New(len(shards))
	var jobs []workerpool.Job
	for i, shard := range shards {
		i, shard := i, shard
		jobs = append(jobs, func() error {
			return transformShard(g, shard, fileutil.Join(outDir, recordio.ShardName(i)))
		})
	}
	pool.Add(jobs)
	defer pool.Stop()
	return pool.Wait()
}

func transformShard(g *Graph, rawPath, outPath string) (err error) {
	in, err := fileutil.NewReader(rawPath)
	if err != nil {
		return errors.Wrapf(err, "unable to open raw shard %s", rawPath)
	}
	defer errors.Defer(&err, in.Close)

	out, err := fileutil.NewBufferedWriter(outPath)
	if err != nil {
		return errors.Wrapf(err, "unable to create transformed shard %s", outPath)
	}
	defer errors.Defer(&err, out.Close)

	w := recordio.NewWriter(out)
	defer errors.Defer(&err, w.Close)

	var count int
	it := recordio.NewIterator(in)
	for it.Next() {
		ex, err := example.Unmarshal(it.Value())
		if err != nil {
			return errors.Wrapf(err, "shard %s key %s", rawPath, it.Key())
		}

		rec := Transformed{
			Features: g.Apply(ex.Text),
			Label:    ex.Label,
		}
		value, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := w.Emit(it.Key(), value); err != nil {
			return err
		}
		count++
	}
	if err := it.Err(); err != nil {
		return err
	}

	logging.Sugar.Infof("transformed %d records %s -> %s", count, rawPath, outPath)
	return nil
}

// ReadAll loads every transformed record under dir into memory.
func ReadAll(dir string) ([]Transformed, error) {
	shards, err := recordio.Shards(dir)
	if err != nil {
		return nil, err
	}

	var records []Transformed
	for _, shard := range shards {
		if err := readShard(shard, &records); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func readShard(path string, records *[]Transformed) (err error) {
	f, err := fileutil.NewReader(path)
	if err != nil {
		return errors.Wrapf(err, "unable to open transformed shard %s", path)
	}
	defer errors.Defer(&err, f.Close)

	it := recordio.NewIterator(f)
	for it.Next() {
		var rec Transformed
		if err := json.Unmarshal(it.Value(), &rec); err != nil {
			return errors.Wrapf(err, "malformed transformed record in %s key %s", path, it.Key())
		}
		*records = append(*records, rec)
	}
	return it.Err()
}
