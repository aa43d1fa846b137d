// Package tokenize splits raw text into punctuation/symbol tokens and
// letter/mark/number runs.
//
// A punctuation or symbol character is always a token of its own. A maximal
// run of letters, marks and numbers is one token. Every other character
// (whitespace, controls, code points outside the scanned plane) separates
// tokens and is dropped. For every token, text[t.Start:t.End] == t.Text.
package tokenize

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/sarf/pkg/charset"
)

// Kind classifies a token by the character class that produced it.
type Kind int

const (
	Punct Kind = iota // single punctuation or symbol character
	Word              // run of letter, mark and number characters
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case Punct:
		return "Punct"
	case Word:
		return "Word"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind as "punct" or "word".
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(k.String())), nil
}

// Token is a contiguous substring of the input.
type Token struct {
	Text  string `json:"text"`
	Start int    `json:"start"` // byte offset, inclusive
	End   int    `json:"end"`   // byte offset, exclusive
	Kind  Kind   `json:"kind"`
}

// String returns a debug representation, e.g. Word("عالم")[7:15].
func (t Token) String() string {
	return fmt.Sprintf("%s(%q)[%d:%d]", t.Kind, t.Text, t.Start, t.End)
}

// Tokenizer segments text using an Oracle.
type Tokenizer struct {
	oracle *charset.Oracle
}

// New returns a Tokenizer backed by o. A nil oracle uses charset.Default().
func New(o *charset.Oracle) *Tokenizer {
	if o == nil {
		o = charset.Default()
	}
	return &Tokenizer{oracle: o}
}

// Tokens returns the tokens of text in input order. The sequence is lazy and
// may be ranged over any number of times.
func (tk *Tokenizer) Tokens(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		i := 0
		for i < len(text) {
			r, size := utf8.DecodeRuneInString(text[i:])

			if tk.oracle.Is(charset.PunctSymbol, r) {
				if !yield(Token{Text: text[i : i+size], Start: i, End: i + size, Kind: Punct}) {
					return
				}
				i += size
				continue
			}

			if tk.oracle.Is(charset.LetterMarkNumber, r) {
				start := i
				i += size
				for i < len(text) {
					nr, ns := utf8.DecodeRuneInString(text[i:])
					if !tk.oracle.Is(charset.LetterMarkNumber, nr) {
						break
					}
					i += ns
				}
				if !yield(Token{Text: text[start:i], Start: start, End: i, Kind: Word}) {
					return
				}
				continue
			}

			i += size
		}
	}
}

// Words returns the token texts of text.
func (tk *Tokenizer) Words(text string) []string {
	var words []string
	for t := range tk.Tokens(text) {
		words = append(words, t.Text)
	}
	return words
}

// Words tokenizes text with the default oracle.
func Words(text string) []string {
	return New(nil).Words(text)
}
