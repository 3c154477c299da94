package pretrained

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/sentiml/sentiml/tokenizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokens = []string{
	tokenizer.PadToken, tokenizer.UnkToken, tokenizer.ClsToken, tokenizer.SepToken,
	"good", "bad", "movie",
}

func writeTestEncoder(t *testing.T, host, id string) EncoderConfig {
	conf := EncoderConfig{
		HiddenSize:   8,
		MaxPositions: 16,
		DoLowerCase:  true,
	}
	require.NoError(t, WriteSynthetic(Dir(host, id), testTokens, conf, 1))
	return conf
}

func TestLoad(t *testing.T) {
	host, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(host)

	writeTestEncoder(t, host, "tiny")

	enc, err := Load(host, "tiny")
	require.NoError(t, err)
	assert.Equal(t, 8, enc.HiddenSize())
	assert.True(t, enc.Config.DoLowerCase)
	assert.Equal(t, len(testTokens), enc.Vocab.Size())
}

func TestEncodePooling(t *testing.T) {
	host, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(host)

	writeTestEncoder(t, host, "tiny")
	enc, err := Load(host, "tiny")
	require.NoError(t, err)

	ids := []int{2, 4, 3, 0, 0}
	mask := []int{1, 1, 1, 0, 0}

	out := enc.Encode(ids, mask)
	require.Len(t, out, 8)

	// masked-out pad positions must not change the pooled vector
	ids2 := []int{2, 4, 3, 5, 6}
	out2 := enc.Encode(ids2, mask)
	assert.Equal(t, out, out2)

	// deterministic
	assert.Equal(t, out, enc.Encode(ids, mask))
}

func TestLoadMissing(t *testing.T) {
	host, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(host)

	_, err = Load(host, "nope")
	require.Error(t, err)
}
