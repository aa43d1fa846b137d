package analyzer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/hazyhaar/sarf/pkg/lexicon"
)

func str(s string) *string { return &s }
func i64(n int64) *int64   { return &n }

func TestAnalyze_MockHit(t *testing.T) {
	a := New(lexicon.NewMock())
	got := a.Analyze(context.Background(), "ذهب", Full, lexicon.First)

	want := Record{
		Token:     "ذهب",
		Lemma:     str("ذَهَبَ"),
		LemmaID:   i64(202001617),
		POS:       str("فعل ماضي"),
		Root:      str("ذ ه ب"),
		Frequency: 82202,
	}
	if len(got) != 1 || !got[0].Equal(want) {
		t.Fatalf("Analyze = %+v, want [%+v]", got, want)
	}
}

func TestAnalyze_Classification(t *testing.T) {
	a := New(lexicon.NewMock())
	tests := []struct {
		text string
		want []Record
	}{
		{"123", []Record{{Token: "123", POS: str(POSNumber)}}},
		{"١٢٣", []Record{{Token: "١٢٣", POS: str(POSNumber)}}},
		{"Hello, عالم!", []Record{
			{Token: "Hello", POS: str(POSForeign)},
			{Token: ",", POS: str(POSPunctuation)},
			{Token: "عالم"},
			{Token: "!", POS: str(POSPunctuation)},
		}},
		{"؟", []Record{{Token: "؟", POS: str(POSPunctuation)}}},
		{"abc123", []Record{{Token: "abc123", POS: str(POSForeign)}}},
		{"ـ", []Record{{Token: "", POS: str(POSNumber)}}},
		{"_", []Record{{Token: "", POS: str(POSNumber)}}},
		{"ۖ", []Record{{Token: "", POS: str(POSNumber)}}},
		{"", nil},
		{"   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := a.Analyze(context.Background(), tt.text, Full, lexicon.First)
			if !slices.EqualFunc(got, tt.want, Record.Equal) {
				t.Errorf("Analyze(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestAnalyze_WaslaUnified(t *testing.T) {
	lex := lexicon.Map{"الحمد": {{Lemma: "حَمْد", LemmaID: 1, Frequency: 5}}}
	got := New(lex).Analyze(context.Background(), "ٱلحمد", Full, lexicon.First)
	if len(got) != 1 || got[0].Token != "الحمد" || got[0].Lemma == nil {
		t.Errorf("Analyze = %+v", got)
	}
}

func TestAnalyze_CascadeStrategies(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		key      string
		strategy string
	}{
		{"raw", "كتاب", "كتاب", "raw"},
		{"leading alif", "استقبال", "ستقبال", "strip_leading_alif"},
		{"ha to ta marbuta", "مدرسه", "مدرسة", "ha_to_ta_marbuta"},
		{"unify alif", "أحمد", "احمد", "unify_alif"},
		{"diacritics", "كَتَبَ", "كتب", "strip_diacritics_digits"},
		{"marks and alif", "أَحْمَد", "احمد", "strip_marks_alif"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lex := lexicon.Map{tt.key: {{Lemma: tt.key, LemmaID: 7, Frequency: 3}}}
			a := New(lex)

			e := a.Explain(context.Background(), tt.token, lexicon.First)
			if e.Strategy != tt.strategy || e.Key != tt.key {
				t.Errorf("Explain = strategy %q key %q, want %q %q", e.Strategy, e.Key, tt.strategy, tt.key)
			}

			got := a.Analyze(context.Background(), tt.token, Full, lexicon.First)
			if len(got) != 1 || got[0].Token != tt.token || got[0].LemmaID == nil || *got[0].LemmaID != 7 {
				t.Errorf("Analyze = %+v", got)
			}
		})
	}
}

func TestAnalyze_LeadingAlifGuard(t *testing.T) {
	// "الكتاب" stripped of its leading alif has five runes: too short to try.
	lex := lexicon.Map{"لكتاب": {{Lemma: "x", LemmaID: 1}}}
	a := New(lex)

	e := a.Explain(context.Background(), "الكتاب", lexicon.First)
	if e.Strategy != "" {
		t.Fatalf("unexpected hit via %q", e.Strategy)
	}
	if !e.Attempts[1].Skipped || e.Attempts[1].Strategy != "strip_leading_alif" {
		t.Errorf("attempt 1 = %+v, want skipped strip_leading_alif", e.Attempts[1])
	}
	if len(e.Records) != 1 || !e.Records[0].Equal(Record{Token: "الكتاب"}) {
		t.Errorf("records = %+v", e.Records)
	}
}

func TestAnalyze_CascadeOrderWins(t *testing.T) {
	lex := lexicon.Map{
		"مدرسه": {{Lemma: "raw", LemmaID: 1}},
		"مدرسة": {{Lemma: "ta", LemmaID: 2}},
	}
	got := New(lex).Analyze(context.Background(), "مدرسه", Full, lexicon.First)
	if len(got) != 1 || *got[0].Lemma != "raw" {
		t.Errorf("Analyze = %+v, want the raw-form entry", got)
	}
}

func TestAnalyze_LimitAll(t *testing.T) {
	lex := lexicon.Map{"عين": {
		{Lemma: "عَيْن", LemmaID: 1, Frequency: 10},
		{Lemma: "عَيَّنَ", LemmaID: 2, Frequency: 300},
	}}
	a := New(lex)
	ctx := context.Background()

	all := a.Analyze(ctx, "عين", Full, lexicon.All)
	if len(all) != 2 || *all[0].LemmaID != 2 || *all[1].LemmaID != 1 {
		t.Errorf("all = %+v", all)
	}
	for _, r := range all {
		if r.Token != "عين" {
			t.Errorf("token = %q", r.Token)
		}
	}

	first := a.Analyze(ctx, "عين", Full, lexicon.First)
	if len(first) != 1 || *first[0].LemmaID != 2 {
		t.Errorf("first = %+v", first)
	}
}

type failingLexicon struct {
	partial []lexicon.Candidate
}

func (f failingLexicon) Lookup(context.Context, string, lexicon.Limit) ([]lexicon.Candidate, error) {
	return f.partial, errors.New("backend unavailable")
}

func TestAnalyze_LexiconFailureDegrades(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	a := New(failingLexicon{}, WithLogger(logger))
	got := a.Analyze(context.Background(), "ذهب 12", Full, lexicon.First)

	want := []Record{{Token: "ذهب"}, {Token: "12", POS: str(POSNumber)}}
	if !slices.EqualFunc(got, want, Record.Equal) {
		t.Errorf("Analyze = %+v, want %+v", got, want)
	}
	if !strings.Contains(buf.String(), "lexicon lookup failed") {
		t.Errorf("expected warning in log, got %q", buf.String())
	}
}

func TestAnalyze_PartialResultsUsed(t *testing.T) {
	partial := []lexicon.Candidate{{Lemma: "ذَهَبَ", LemmaID: 3, Frequency: 1}}
	a := New(failingLexicon{partial: partial}, WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	e := a.Explain(context.Background(), "ذهب", lexicon.First)
	if e.Strategy != "raw" || len(e.Records) != 1 || *e.Records[0].LemmaID != 3 {
		t.Errorf("Explain = %+v", e)
	}
	if e.Attempts[0].Error == "" {
		t.Error("attempt error not recorded")
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	lex := lexicon.Map{
		"ذهب": {{Lemma: "b", LemmaID: 2, Frequency: 5}, {Lemma: "a", LemmaID: 1, Frequency: 5}},
	}
	a := New(lex)
	text := "ذهب الولد إلى المدرسه، و123 Hello!"
	ctx := context.Background()

	first := a.Analyze(ctx, text, Full, lexicon.All)
	for range 10 {
		again := a.Analyze(ctx, text, Full, lexicon.All)
		if !slices.EqualFunc(first, again, Record.Equal) {
			t.Fatalf("non-deterministic output:\n%+v\n%+v", first, again)
		}
	}
}

func TestAnalyze_Projection(t *testing.T) {
	a := New(lexicon.NewMock())
	ctx := context.Background()

	lem := a.Analyze(ctx, "ذهب", Lemmatization, lexicon.First)
	if len(lem) != 1 || lem[0].Lemma == nil || lem[0].LemmaID == nil || lem[0].POS != nil || lem[0].Root != nil {
		t.Errorf("lemmatization = %+v", lem)
	}
	pos := a.Analyze(ctx, "123", POS, lexicon.First)
	if len(pos) != 1 || pos[0].POS == nil || *pos[0].POS != POSNumber {
		t.Errorf("pos = %+v", pos)
	}
	root := a.Analyze(ctx, "123", Root, lexicon.First)
	if len(root) != 1 || root[0].POS != nil {
		t.Errorf("root projection kept pos: %+v", root)
	}
}

func TestExplain_Class(t *testing.T) {
	a := New(lexicon.NewMock())
	tests := []struct {
		token, class string
	}{
		{"123", POSNumber},
		{"!", POSPunctuation},
		{"Hello", POSForeign},
		{"ذهب", ClassArabic},
	}
	for _, tt := range tests {
		e := a.Explain(context.Background(), tt.token, lexicon.First)
		if e.Class != tt.class {
			t.Errorf("Explain(%q).Class = %q, want %q", tt.token, e.Class, tt.class)
		}
		if tt.class != ClassArabic && len(e.Attempts) != 0 {
			t.Errorf("Explain(%q) ran the cascade", tt.token)
		}
	}
}

func TestStrategies(t *testing.T) {
	want := []string{"raw", "strip_leading_alif", "ha_to_ta_marbuta", "unify_alif", "strip_diacritics_digits", "strip_marks_alif"}
	if got := Strategies(); !slices.Equal(got, want) {
		t.Errorf("Strategies = %v, want %v", got, want)
	}
}

func TestAnalyze_Concurrent(t *testing.T) {
	a := New(lexicon.NewMock())
	done := make(chan []Record, 8)
	for range 8 {
		go func() {
			done <- a.Analyze(context.Background(), "ذهب، 123", Full, lexicon.First)
		}()
	}
	for range 8 {
		if got := <-done; len(got) != 3 || got[0].Frequency != 82202 {
			t.Errorf("concurrent Analyze = %+v", got)
		}
	}
}
