package analyzer

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/sarf/pkg/lexicon"
)

// POS tags assigned without a lexicon lookup.
const (
	POSNumber      = "number"
	POSPunctuation = "punctuation"
	POSForeign     = "foreign"
)

// Record is the analysis of one token. Nil pointers mean "unset"; Frequency
// is 0 when no lexicon entry matched.
type Record struct {
	Token     string  `json:"token"`
	Lemma     *string `json:"lemma"`
	LemmaID   *int64  `json:"lemma_id"`
	POS       *string `json:"pos"`
	Root      *string `json:"root"`
	Frequency int     `json:"frequency"`
}

func fromCandidate(token string, c lexicon.Candidate) Record {
	return Record{
		Token:     token,
		Lemma:     ptr(c.Lemma),
		LemmaID:   ptr(c.LemmaID),
		POS:       ptr(c.POS),
		Root:      ptr(c.Root),
		Frequency: c.Frequency,
	}
}

func tagged(token, pos string) Record {
	return Record{Token: token, POS: ptr(pos)}
}

func ptr[T any](v T) *T { return &v }

// Equal reports whether r and o carry the same values.
func (r Record) Equal(o Record) bool {
	return r.Token == o.Token &&
		eqPtr(r.Lemma, o.Lemma) &&
		eqPtr(r.LemmaID, o.LemmaID) &&
		eqPtr(r.POS, o.POS) &&
		eqPtr(r.Root, o.Root) &&
		r.Frequency == o.Frequency
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Shape selects which record fields survive projection.
type Shape string

const (
	Full          Shape = "full"
	Lemmatization Shape = "lemmatization"
	POS           Shape = "pos"
	Root          Shape = "root"
)

// ErrUnknownShape is returned by ParseShape for names outside the four shapes.
var ErrUnknownShape = errors.New("unknown output shape")

// ParseShape resolves a shape name. The empty string is Full. An unknown name
// also yields Full, together with ErrUnknownShape for callers that want to
// reject it.
func ParseShape(s string) (Shape, error) {
	switch sh := Shape(s); sh {
	case "":
		return Full, nil
	case Full, Lemmatization, POS, Root:
		return sh, nil
	default:
		return Full, fmt.Errorf("%w %q", ErrUnknownShape, s)
	}
}

// Project keeps the token and frequency of r plus the fields that belong to
// shape. Full and unknown shapes return r unchanged.
func Project(r Record, shape Shape) Record {
	out := Record{Token: r.Token, Frequency: r.Frequency}
	switch shape {
	case Lemmatization:
		out.Lemma, out.LemmaID = r.Lemma, r.LemmaID
	case POS:
		out.POS = r.POS
	case Root:
		out.Root = r.Root
	default:
		return r
	}
	return out
}
