package lexicon

import "github.com/hazyhaar/sarf/pkg/normalize"

// KeyNormalizer canonicalizes a form before it is stored as a key.
type KeyNormalizer func(string) string

var diacriticFlags = normalize.Flags{Diacs: true, SmallDiacs: true, Shaddah: true}

// NormalizeNone keeps the form as written, apart from the cleanup pass.
func NormalizeNone(s string) string {
	return normalize.Strip(s, normalize.Flags{})
}

// NormalizeStripDiacritics removes harakat, shaddah and Quranic marks.
func NormalizeStripDiacritics(s string) string {
	return normalize.Strip(s, diacriticFlags)
}

// NormalizeStripAll applies every Strip rewrite.
func NormalizeStripAll(s string) string {
	return normalize.Strip(s, normalize.All)
}

// GetKeyNormalizer returns the normalizer for a manifest mode.
// Default is none: the analyzer's cascade produces the variant forms itself.
func GetKeyNormalizer(mode string) KeyNormalizer {
	switch mode {
	case "strip_diacritics":
		return NormalizeStripDiacritics
	case "strip_all":
		return NormalizeStripAll
	default:
		return NormalizeNone
	}
}
