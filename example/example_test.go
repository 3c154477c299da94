package example

import (
	"io/ioutil"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShardRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var examples []Example
	for i := 0; i < 10; i++ {
		examples = append(examples, Example{
			Text:  "example number " + strconv.Itoa(i),
			Label: i % 2,
		})
	}

	require.NoError(t, WriteShards(dir, examples, 3))

	got, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, got, 10)

	// round-robin sharding reorders; check contents as a set
	seen := make(map[string]int)
	for _, ex := range got {
		seen[ex.Text] = ex.Label
	}
	for i, ex := range examples {
		label, ok := seen[ex.Text]
		require.True(t, ok, "missing example %d", i)
		assert.Equal(t, ex.Label, label)
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	_, err := Unmarshal([]byte("{not json"))
	require.Error(t, err)
}

func TestIterateKeysStable(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	examples := []Example{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	require.NoError(t, WriteShards(dir, examples, 1))

	var keys []string
	require.NoError(t, Iterate(dir, func(key string, ex Example) error {
		keys = append(keys, key)
		return nil
	}))
	assert.Equal(t, []string{"0", "1", "2"}, keys)
}
