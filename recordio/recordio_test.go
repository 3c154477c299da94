package recordio

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	numRecords := 3

	var b bytes.Buffer
	w := NewWriter(&b)
	for i := 0; i < numRecords; i++ {
		key := fmt.Sprintf("%d", i)
		value := fmt.Sprintf("hello %d", i)
		err := w.Emit(key, []byte(value))
		require.NoError(t, err)
	}
	w.Close()

	var i int
	r := NewReader(&b)
	for {
		key, value, err := r.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("%d", i), key, "key mismatch")
		assert.Equal(t, fmt.Sprintf("hello %d", i), string(value), "value mismatch")
		i++
	}

	assert.Equal(t, i, numRecords, "record count mismatch")
}

func TestIterator(t *testing.T) {
	numRecords := 3

	var b bytes.Buffer
	w := NewWriter(&b)
	for i := 0; i < numRecords; i++ {
		key := fmt.Sprintf("%d", i)
		value := fmt.Sprintf("hello %d", i)
		err := w.Emit(key, []byte(value))
		require.NoError(t, err)
	}
	w.Close()

	var i int
	r := NewIterator(&b)
	for r.Next() {
		assert.Equal(t, fmt.Sprintf("%d", i), r.Key(), "key mismatch")
		assert.Equal(t, fmt.Sprintf("hello %d", i), string(r.Value()), "value mismatch")
		i++
	}
	assert.NoError(t, r.Err())
	assert.Equal(t, i, numRecords, "record count mismatch")
}

func TestMultipleBlocks(t *testing.T) {
	var b bytes.Buffer
	w := NewWriterSize(&b, 64) // force several blocks

	numRecords := 100
	for i := 0; i < numRecords; i++ {
		require.NoError(t, w.Emit(fmt.Sprintf("key-%d", i), bytes.Repeat([]byte{byte(i)}, 32)))
	}
	require.NoError(t, w.Close())

	var i int
	it := NewIterator(&b)
	for it.Next() {
		assert.Equal(t, fmt.Sprintf("key-%d", i), it.Key())
		assert.Len(t, it.Value(), 32)
		i++
	}
	require.NoError(t, it.Err())
	assert.Equal(t, numRecords, i)
}

func TestEmptyValue(t *testing.T) {
	var b bytes.Buffer
	w := NewWriter(&b)
	require.NoError(t, w.Emit("k", nil))
	require.NoError(t, w.Close())

	r := NewReader(&b)
	key, value, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "k", key)
	assert.Empty(t, value)

	_, _, err = r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestShards(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	for i := 2; i >= 0; i-- {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, ShardName(i)), nil, 0644))
	}
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "not-a-shard"), nil, 0644))

	shards, err := Shards(dir)
	require.NoError(t, err)
	require.Len(t, shards, 3)
	assert.Equal(t, filepath.Join(dir, "part-00000"), shards[0])
	assert.Equal(t, filepath.Join(dir, "part-00002"), shards[2])

	empty, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(empty)
	_, err = Shards(empty)
	assert.Error(t, err)
}
