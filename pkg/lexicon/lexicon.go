// Package lexicon defines the lookup contract between the analyzer and a
// morphological dictionary, plus in-memory, SQLite, cached and directory
// registry backends.
//
// Lookups are exact string matches on an already normalized form. Every
// backend returns candidates ranked by frequency, highest first; ties keep
// insertion order. An unknown form yields an empty result and a nil error.
package lexicon

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
)

// ErrClosed is returned by lookups on a closed backend.
var ErrClosed = errors.New("lexicon closed")

// Candidate is one analysis stored under a normalized form.
type Candidate struct {
	Frequency int    `json:"frequency"`
	Lemma     string `json:"lemma"`
	LemmaID   int64  `json:"lemma_id"`
	Root      string `json:"root"`
	POS       string `json:"pos"`
}

// Limit selects how many candidates a lookup returns.
type Limit int

const (
	First Limit = iota // the best candidate only
	All                // every candidate
)

// String returns the wire name of the limit.
func (l Limit) String() string {
	if l == All {
		return "all"
	}
	return "first"
}

// ParseLimit accepts "first" (or "1", or "") and "all".
func ParseLimit(s string) (Limit, error) {
	switch s {
	case "", "first", "1":
		return First, nil
	case "all":
		return All, nil
	default:
		return First, fmt.Errorf("unknown limit %q (want first or all)", s)
	}
}

// Lexicon resolves a normalized form to its candidates.
type Lexicon interface {
	Lookup(ctx context.Context, form string, limit Limit) ([]Candidate, error)
}

// Rank sorts candidates by frequency, highest first, keeping the relative
// order of equal frequencies.
func Rank(cs []Candidate) {
	slices.SortStableFunc(cs, func(a, b Candidate) int {
		return cmp.Compare(b.Frequency, a.Frequency)
	})
}

// truncate applies limit to an already ranked slice.
func truncate(cs []Candidate, limit Limit) []Candidate {
	if limit == First && len(cs) > 1 {
		return cs[:1]
	}
	return cs
}

// Map is an in-memory lexicon built from literals. Candidates are ranked on
// every lookup, so a Map can be declared in any order.
type Map map[string][]Candidate

// Lookup implements Lexicon.
func (m Map) Lookup(_ context.Context, form string, limit Limit) ([]Candidate, error) {
	cs, ok := m[form]
	if !ok || len(cs) == 0 {
		return nil, nil
	}
	out := slices.Clone(cs)
	Rank(out)
	return truncate(out, limit), nil
}

// NewMock returns the single-entry demonstration lexicon.
func NewMock() Map {
	return Map{
		"ذهب": {{
			Frequency: 82202,
			Lemma:     "ذَهَبَ",
			LemmaID:   202001617,
			Root:      "ذ ه ب",
			POS:       "فعل ماضي",
		}},
	}
}
