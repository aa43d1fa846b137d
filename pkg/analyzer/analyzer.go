// Package analyzer turns Arabic text into per-token analysis records.
//
// Each token is classified as a number, punctuation or foreign word, or else
// sent through a fixed cascade of normalization strategies until the lexicon
// returns candidates. The order and guards of the cascade decide which
// candidate wins when the lexicon stores entries under several normalized
// keys, so they must not be reordered.
//
// An Analyzer holds no mutable state. It is safe for concurrent use as long
// as its Lexicon is.
package analyzer

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hazyhaar/sarf/pkg/charset"
	"github.com/hazyhaar/sarf/pkg/lexicon"
	"github.com/hazyhaar/sarf/pkg/normalize"
	"github.com/hazyhaar/sarf/pkg/tokenize"
)

// minAlifStripped is the rune count the leading-alif strategy's key must
// exceed before it is looked up.
const minAlifStripped = 5

// ClassArabic is the Explain class of tokens that reach the cascade.
const ClassArabic = "arabic"

var workingFlags = normalize.Flags{SmallDiacs: true}

type strategy struct {
	name string
	key  func(string) (string, bool)
}

var cascade = []strategy{
	{"raw", func(s string) (string, bool) { return s, true }},
	{"strip_leading_alif", func(s string) (string, bool) {
		k := strings.TrimLeft(s, string(normalize.Alif))
		return k, utf8.RuneCountInString(k) > minAlifStripped
	}},
	{"ha_to_ta_marbuta", func(s string) (string, bool) {
		return strings.ReplaceAll(s, "ه", "ة"), true
	}},
	{"unify_alif", stripWith(normalize.Flags{Alif: true})},
	{"strip_diacritics_digits", stripWith(normalize.Flags{Diacs: true, Shaddah: true, Digit: true})},
	{"strip_marks_alif", stripWith(normalize.Flags{Diacs: true, SmallDiacs: true, Shaddah: true, Alif: true})},
}

func stripWith(f normalize.Flags) func(string) (string, bool) {
	return func(s string) (string, bool) {
		return normalize.Strip(s, f), true
	}
}

// Strategies returns the cascade's strategy names in the order they are tried.
func Strategies() []string {
	names := make([]string, len(cascade))
	for i, s := range cascade {
		names[i] = s.name
	}
	return names
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithOracle sets the character-class oracle. The default is charset.Default.
func WithOracle(o *charset.Oracle) Option {
	return func(a *Analyzer) {
		if o != nil {
			a.oracle = o
		}
	}
}

// WithLogger sets the logger used to report lexicon failures.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// Analyzer classifies tokens and resolves Arabic ones against a Lexicon.
type Analyzer struct {
	lex       lexicon.Lexicon
	oracle    *charset.Oracle
	tokenizer *tokenize.Tokenizer
	logger    *slog.Logger
}

// New creates an analyzer over lex.
func New(lex lexicon.Lexicon, opts ...Option) *Analyzer {
	a := &Analyzer{lex: lex}
	for _, opt := range opts {
		opt(a)
	}
	if a.oracle == nil {
		a.oracle = charset.Default()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.tokenizer = tokenize.New(a.oracle)
	return a
}

// Analyze tokenizes text and returns the records of every token in order,
// projected to shape. A failing lexicon lookup counts as a miss.
func (a *Analyzer) Analyze(ctx context.Context, text string, shape Shape, limit lexicon.Limit) []Record {
	var out []Record
	for _, tok := range a.tokenizer.Words(text) {
		for _, rec := range a.explain(ctx, tok, limit, nil).Records {
			out = append(out, Project(rec, shape))
		}
	}
	return out
}

// Attempt is one cascade step as seen by Explain.
type Attempt struct {
	Strategy   string `json:"strategy"`
	Key        string `json:"key"`
	Skipped    bool   `json:"skipped,omitempty"`
	Candidates int    `json:"candidates"`
	Error      string `json:"error,omitempty"`
}

// Explanation traces how a single token was resolved.
type Explanation struct {
	Token       string    `json:"token"`
	WorkingForm string    `json:"working_form"`
	Class       string    `json:"class"`
	Attempts    []Attempt `json:"attempts,omitempty"`
	Strategy    string    `json:"strategy,omitempty"`
	Key         string    `json:"key,omitempty"`
	Records     []Record  `json:"records"`
}

// Explain resolves one token and reports its class and, for Arabic tokens,
// every cascade attempt up to the winning strategy. The token is used as
// given, without tokenization.
func (a *Analyzer) Explain(ctx context.Context, token string, limit lexicon.Limit) Explanation {
	var attempts []Attempt
	e := a.explain(ctx, token, limit, func(at Attempt) { attempts = append(attempts, at) })
	e.Attempts = attempts
	return e
}

func (a *Analyzer) explain(ctx context.Context, token string, limit lexicon.Limit, trace func(Attempt)) Explanation {
	working := normalize.UnifyWasla(normalize.Strip(token, workingFlags))
	e := Explanation{Token: token, WorkingForm: working}

	if class, ok := a.classify(working); ok {
		e.Class = class
		e.Records = []Record{tagged(working, class)}
		return e
	}
	e.Class = ClassArabic

	for _, st := range cascade {
		key, ok := st.key(working)
		at := Attempt{Strategy: st.name, Key: key, Skipped: !ok || key == ""}
		if at.Skipped {
			if trace != nil {
				trace(at)
			}
			continue
		}

		cs, err := a.lex.Lookup(ctx, key, limit)
		if err != nil {
			a.logger.Warn("lexicon lookup failed", "form", key, "strategy", st.name, "error", err)
			at.Error = err.Error()
		}
		at.Candidates = len(cs)
		if trace != nil {
			trace(at)
		}
		if len(cs) == 0 {
			continue
		}

		e.Strategy, e.Key = st.name, key
		e.Records = make([]Record, len(cs))
		for i, c := range cs {
			e.Records[i] = fromCandidate(working, c)
		}
		return e
	}

	e.Records = []Record{{Token: working}}
	return e
}

// classify returns the terminal tag of a working form, or false when the form
// goes to the cascade.
func (a *Analyzer) classify(working string) (string, bool) {
	switch {
	case isNumeric(working):
		return POSNumber, true
	case normalize.RemovePunctuation(working) == "":
		return POSPunctuation, true
	case !a.oracle.All(charset.Arabic, working):
		return POSForeign, true
	}
	return "", false
}

// isNumeric reports whether every rune of s is numeric. It holds for the
// empty string, so a token that strips to nothing is tagged as a number.
func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
