package tokenizer

import (
	"bufio"
	"strings"

	"github.com/sentiml/sentiml/errors"
	"github.com/sentiml/sentiml/fileutil"
)

// Reserved tokens every encoder vocabulary carries.
const (
	PadToken = "[PAD]"
	UnkToken = "[UNK]"
	ClsToken = "[CLS]"
	SepToken = "[SEP]"
)

// Vocab maps wordpiece tokens to ids. Ids are line numbers in the vocab file,
// so the same file always produces the same mapping.
type Vocab struct {
	tokens []string
	ids    map[string]int
}

// NewVocab builds a Vocab from an ordered token list.
func NewVocab(tokens []string) *Vocab {
	ids := make(map[string]int, len(tokens))
	for i, tok := range tokens {
		ids[tok] = i
	}
	return &Vocab{tokens: tokens, ids: ids}
}

// LoadVocab reads a vocab file with one token per line. The path may be local
// or remote.
func LoadVocab(path string) (*Vocab, error) {
	r, err := fileutil.NewReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open vocab %s", path)
	}
	defer r.Close()

	var tokens []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimRight(scanner.Text(), "\r\n"))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "error reading vocab %s", path)
	}
	if len(tokens) == 0 {
		return nil, errors.Errorf("empty vocab %s", path)
	}

	v := NewVocab(tokens)
	for _, reserved := range []string{PadToken, UnkToken, ClsToken, SepToken} {
		if _, ok := v.ids[reserved]; !ok {
			return nil, errors.Errorf("vocab %s is missing reserved token %s", path, reserved)
		}
	}
	return v, nil
}

// ID returns the id for a token.
func (v *Vocab) ID(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// MustID returns the id for a token known to be present (reserved tokens).
func (v *Vocab) MustID(token string) int {
	id, ok := v.ids[token]
	if !ok {
		panic("missing reserved token " + token)
	}
	return id
}

// Token returns the token for an id.
func (v *Vocab) Token(id int) string {
	return v.tokens[id]
}

// Size returns the vocabulary size.
func (v *Vocab) Size() int {
	return len(v.tokens)
}

// Tokens returns the ordered token list.
func (v *Vocab) Tokens() []string {
	return append([]string(nil), v.tokens...)
}
