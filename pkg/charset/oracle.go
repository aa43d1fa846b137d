// Package charset answers membership questions for the fixed character
// classes used by tokenization and classification.
//
// The Unicode-derived sets are built by scanning the Basic Multilingual Plane
// once. An Oracle is immutable after New returns and is safe for concurrent
// use by multiple goroutines.
package charset

import (
	"fmt"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/rangetable"
)

// Set names one of the fixed character classes.
type Set int

const (
	PunctSymbol      Set = iota // Unicode punctuation and symbol categories
	LetterMarkNumber            // Unicode letter, mark and number categories
	Arabic                      // Arabic base letters and diacritics
)

// String returns the name of the set.
func (s Set) String() string {
	switch s {
	case PunctSymbol:
		return "PunctSymbol"
	case LetterMarkNumber:
		return "LetterMarkNumber"
	case Arabic:
		return "Arabic"
	default:
		return fmt.Sprintf("Set(%d)", int(s))
	}
}

// maxScanned is the last code point inspected when resolving categories.
const maxScanned = 0xFFFF

var punctSymbolCategories = []*unicode.RangeTable{
	unicode.Pd, unicode.Ps, unicode.Pe, unicode.Pf, unicode.Po, unicode.Pi, unicode.Pc,
	unicode.Sm, unicode.So, unicode.Sc, unicode.Sk,
}

var letterMarkNumberCategories = []*unicode.RangeTable{
	unicode.Lo, unicode.Lm, unicode.Ll, unicode.Lt, unicode.Lu,
	unicode.Mc, unicode.Me, unicode.Mn,
	unicode.No, unicode.Nl, unicode.Nd,
}

// ArabicLetters lists the Arabic base letters, including tatweel and the
// Persian/Urdu extensions found in Arabic-script corpora.
const ArabicLetters = "ءآأؤإئابةتثجحخدذرزسشصضطظعغـفقكلمنهوىيپچڤگ"

// ArabicDiacritics lists tanween, harakat, shaddah, sukun, superscript alif
// and tatweel.
const ArabicDiacritics = "ًٌٍَُِّْٰـ"

// Oracle holds one range table per Set.
type Oracle struct {
	tables [3]*unicode.RangeTable
}

// New scans the BMP and builds every set.
func New() *Oracle {
	var punct, lmn []rune
	for r := rune(0); r <= maxScanned; r++ {
		if !utf8.ValidRune(r) {
			continue // surrogates
		}
		switch {
		case unicode.IsOneOf(punctSymbolCategories, r):
			punct = append(punct, r)
		case unicode.IsOneOf(letterMarkNumberCategories, r):
			lmn = append(lmn, r)
		}
	}

	arabic := []rune(ArabicLetters + ArabicDiacritics)

	o := &Oracle{}
	o.tables[PunctSymbol] = rangetable.New(punct...)
	o.tables[LetterMarkNumber] = rangetable.New(lmn...)
	o.tables[Arabic] = rangetable.New(arabic...)
	return o
}

var (
	defaultOnce   sync.Once
	defaultOracle *Oracle
)

// Default returns the process-wide oracle, building it on first use.
func Default() *Oracle {
	defaultOnce.Do(func() {
		defaultOracle = New()
	})
	return defaultOracle
}

// Is reports whether r belongs to set.
func (o *Oracle) Is(set Set, r rune) bool {
	t := o.Table(set)
	if t == nil {
		return false
	}
	return unicode.Is(t, r)
}

// Table returns the range table backing set, or nil for an unknown set.
func (o *Oracle) Table(set Set) *unicode.RangeTable {
	if set < 0 || int(set) >= len(o.tables) {
		return nil
	}
	return o.tables[set]
}

// All reports whether s is non-empty and every rune of s belongs to set.
func (o *Oracle) All(set Set, s string) bool {
	if s == "" {
		return false
	}
	t := o.Table(set)
	if t == nil {
		return false
	}
	for _, r := range s {
		if !unicode.Is(t, r) {
			return false
		}
	}
	return true
}
