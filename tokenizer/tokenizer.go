// Package tokenizer implements wordpiece tokenization over a pretrained
// encoder vocabulary.
package tokenizer

import (
	"strings"
	"unicode"
)

// maxWordChars bounds the length of a single word before it is mapped to
// [UNK] wholesale.
const maxWordChars = 200

// continuation prefixes a wordpiece that does not start a word.
const continuation = "##"

// Tokenizer splits text into wordpiece tokens from a fixed vocabulary.
type Tokenizer struct {
	vocab *Vocab
	lower bool
}

// New creates a Tokenizer. doLowerCase must match the casing convention the
// encoder vocabulary was built with.
func New(vocab *Vocab, doLowerCase bool) *Tokenizer {
	return &Tokenizer{vocab: vocab, lower: doLowerCase}
}

// Vocab returns the underlying vocabulary.
func (t *Tokenizer) Vocab() *Vocab {
	return t.vocab
}

// Tokenize splits text into wordpiece tokens.
func (t *Tokenizer) Tokenize(text string) []string {
	var tokens []string
	for _, word := range t.basicTokenize(text) {
		tokens = append(tokens, t.wordpiece(word)...)
	}
	return tokens
}

// TokenizeIDs tokenizes text and maps each token to its vocabulary id.
func (t *Tokenizer) TokenizeIDs(text string) []int {
	tokens := t.Tokenize(text)
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		id, ok := t.vocab.ID(tok)
		if !ok {
			id = t.vocab.MustID(UnkToken)
		}
		ids = append(ids, id)
	}
	return ids
}

// basicTokenize cleans the text, optionally lower-cases it, and splits it
// into words and single-rune punctuation tokens.
func (t *Tokenizer) basicTokenize(text string) []string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || unicode.IsControl(r):
			// drop
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// isolate punctuation as its own token
			b.WriteRune(' ')
			b.WriteRune(r)
			b.WriteRune(' ')
		default:
			if t.lower {
				r = unicode.ToLower(r)
			}
			b.WriteRune(r)
		}
	}
	return strings.Fields(b.String())
}

// wordpiece greedily matches the longest vocabulary entry, using the ##
// continuation form after the first piece. Words with no valid decomposition
// become a single [UNK].
func (t *Tokenizer) wordpiece(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordChars {
		return []string{UnkToken}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		var cur string
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = continuation + sub
			}
			if _, ok := t.vocab.ID(sub); ok {
				cur = sub
				break
			}
			end--
		}
		if cur == "" {
			return []string{UnkToken}
		}
		pieces = append(pieces, cur)
		start = end
	}
	return pieces
}
