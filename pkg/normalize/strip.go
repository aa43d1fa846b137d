// Package normalize rewrites Arabic text into lookup forms.
//
// Strip applies up to six independent rewrites in a fixed order, followed by
// a cleanup pass that always runs. Every rewrite is idempotent and so is
// Strip for any fixed Flags value.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/rangetable"
)

// Flags selects the rewrites applied by Strip. The zero value applies only
// the cleanup pass.
type Flags struct {
	Diacs        bool // short vowels, tanween and sukun
	SmallDiacs   bool // small high/low Quranic annotation signs
	Shaddah      bool // consonant-doubling mark
	Digit        bool // Latin and Arabic-Indic digit runs become one space
	Alif         bool // alif variants become bare alif
	SpecialChars bool // runs of ?؟!@#$%-
}

// All enables every rewrite.
var All = Flags{
	Diacs:        true,
	SmallDiacs:   true,
	Shaddah:      true,
	Digit:        true,
	Alif:         true,
	SpecialChars: true,
}

const (
	Alif    = 'ا'
	Wasla   = 'ٱ'
	Tatweel = 'ـ'
)

var (
	// U+064B..U+0650 and sukun U+0652; shaddah U+0651 is its own flag.
	diacsTable      = rangetable.New(0x064B, 0x064C, 0x064D, 0x064E, 0x064F, 0x0650, 0x0652)
	shaddahTable    = rangetable.New(0x0651)
	smallDiacsTable = &unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x06D6, Hi: 0x06ED, Stride: 1}}}

	removeDiacs      = runes.Remove(runes.In(diacsTable))
	removeShaddah    = runes.Remove(runes.In(shaddahTable))
	removeSmallDiacs = runes.Remove(runes.In(smallDiacsTable))

	digitRe   = regexp.MustCompile(`[0-9]+|[\x{0660}-\x{0669}]+`)
	specialRe = regexp.MustCompile(`[?؟!@#$%-]+`)

	alifReplacer = strings.NewReplacer(
		string(Wasla), string(Alif),
		"أ", string(Alif),
		"إ", string(Alif),
		"آ", string(Alif),
	)
	cleanupReplacer = strings.NewReplacer("_", "", string(Tatweel), "")
)

// Strip rewrites text according to f. The order is diacs, shaddah,
// smallDiacs, digit, alif, specialChars, then cleanup.
func Strip(text string, f Flags) string {
	s := text
	if f.Diacs {
		s = apply(removeDiacs, s)
	}
	if f.Shaddah {
		s = apply(removeShaddah, s)
	}
	if f.SmallDiacs {
		s = apply(removeSmallDiacs, s)
	}
	if f.Digit {
		s = digitRe.ReplaceAllString(s, " ")
	}
	if f.Alif {
		s = alifReplacer.Replace(s)
	}
	if f.SpecialChars {
		s = specialRe.ReplaceAllString(s, "")
	}
	return cleanup(s)
}

// cleanup deletes underscores and tatweel, then collapses whitespace runs to
// one space and trims. Deletion runs first so a second pass has nothing left
// to collapse.
func cleanup(s string) string {
	s = cleanupReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// UnifyWasla replaces alif wasla with bare alif.
func UnifyWasla(s string) string {
	return strings.ReplaceAll(s, string(Wasla), string(Alif))
}

func apply(t transform.Transformer, s string) string {
	out, _, err := transform.String(t, s)
	if err != nil {
		// runes.Remove never fails on a complete string.
		return s
	}
	return out
}
