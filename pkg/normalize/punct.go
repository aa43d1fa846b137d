package normalize

import "regexp"

// punctRe covers ASCII punctuation plus the Arabic comma, semicolon, triple
// dot, question mark, tatweel, madda above, small v above, thousands
// separator and percent sign.
var punctRe = regexp.MustCompile(`[\x{0021}-\x{002F}\x{003A}-\x{0040}\x{005B}-\x{0060}\x{007B}-\x{007E}` +
	`\x{060C}\x{061B}\x{061E}\x{061F}\x{0640}\x{0653}\x{065C}\x{066C}\x{066A}]+`)

var latinRe = regexp.MustCompile(`[a-zA-Z]+`)

// RemovePunctuation deletes ASCII and Arabic punctuation from s.
func RemovePunctuation(s string) string {
	return punctRe.ReplaceAllString(s, "")
}

// RemoveLatin deletes ASCII Latin letters from s.
func RemoveLatin(s string) string {
	return latinRe.ReplaceAllString(s, "")
}
