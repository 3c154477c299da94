// Package example defines the raw labeled-text record passed between
// pipeline stages and its shard IO.
package example

import (
	"encoding/json"
	"fmt"

	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
	"github.com/sentiml/sentiml/recordio"
)

// Example is a raw labeled example: free text paired with a binary sentiment
// label. Immutable once written.
type Example struct {
	Text  string `json:"text"`
	Label int    `json:"label"`
}

// Marshal serializes the example to its on-disk record form.
func (e Example) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses a serialized record. Fails on malformed input.
func Unmarshal(data []byte) (Example, error) {
	var e Example
	if err := json.Unmarshal(data, &e); err != nil {
		return Example{}, errors.Wrapf(err, "malformed example record")
	}
	return e, nil
}

// LabelVocab maps label indices to their string names.
type LabelVocab []string

// WriteShards distributes the examples round-robin over numShards part files
// under dir.
func WriteShards(dir string, examples []Example, numShards int) error {
	if numShards < 1 {
		numShards = 1
	}

	for shard := 0; shard < numShards; shard++ {
		if err := writeShard(dir, examples, shard, numShards); err != nil {
			return err
		}
	}
	return nil
}

func writeShard(dir string, examples []Example, shard, numShards int) (err error) {
	path := fileutil.Join(dir, recordio.ShardName(shard))
	f, err := fileutil.NewBufferedWriter(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create shard %s", path)
	}
	defer errors.Defer(&err, f.Close)

	w := recordio.NewWriter(f)
	defer errors.Defer(&err, w.Close)

	for i := shard; i < len(examples); i += numShards {
		value, err := examples[i].Marshal()
		if err != nil {
			return err
		}
		if err := w.Emit(fmt.Sprintf("%d", i), value); err != nil {
			return errors.Wrapf(err, "unable to write record %d to %s", i, path)
		}
	}
	return nil
}

// Iterate calls fn for every example in every shard under dir, in shard
// order. Malformed records fail the iteration.
func Iterate(dir string, fn func(key string, ex Example) error) error {
	shards, err := recordio.Shards(dir)
	if err != nil {
		return err
	}

	for _, shard := range shards {
		if err := iterateShard(shard, fn); err != nil {
			return err
		}
	}
	return nil
}

func iterateShard(path string, fn func(key string, ex Example) error) (err error) {
	f, err := fileutil.NewReader(path)
	if err != nil {
		return errors.Wrapf(err, "unable to open shard %s", path)
	}
	defer errors.Defer(&err, f.Close)

	it := recordio.NewIterator(f)
	for it.Next() {
		ex, err := Unmarshal(it.Value())
		if err != nil {
			return errors.Wrapf(err, "shard %s key %s", path, it.Key())
		}
		if err := fn(it.Key(), ex); err != nil {
			return err
		}
	}
	return it.Err()
}

// ReadAll loads every example under dir into memory.
func ReadAll(dir string) ([]Example, error) {
	var examples []Example
	err := Iterate(dir, func(key string, ex Example) error {
		examples = append(examples, ex)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return examples, nil
}
