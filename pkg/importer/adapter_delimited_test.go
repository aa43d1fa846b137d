package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/sarf/pkg/lexicon"
)

const testTSV = "form\tlemma\tlemma_id\troot\tpos\tfrequency\n" +
	"ذَهَبَ\tذَهَب\t202001617\tذ ه ب\tV\t2\n" +
	"ذَهَب\tذَهَب\t202001618\tذ ه ب\tN\t5\n" +
	"كِتاب\tكِتاب\t7\tك ت ب\tN\t1\n" +
	"َ\tx\t1\t\t\t1\n"

func testSpec(storage string) SourceSpec {
	return SourceSpec{
		ID:          "test-source",
		LexiconID:   "quran",
		Description: "test lexicon",
		License:     "CC0",
		Version:     "1",
		Storage:     storage,
		Format: lexicon.FormatSpec{
			Delimiter: "\t",
			HasHeader: true,
			Normalize: "strip_diacritics",
		},
	}
}

func serveBytes(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func checkImported(t *testing.T, dir string) lexicon.Loaded {
	t.Helper()
	lex, err := lexicon.Open(filepath.Join(dir, "quran"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { lex.Close() })

	if lex.Len() != 2 {
		t.Errorf("Len = %d, want 2", lex.Len())
	}
	cs, err := lex.Lookup(context.Background(), "ذهب", lexicon.All)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(cs) != 2 {
		t.Fatalf("candidates = %d, want 2", len(cs))
	}
	if cs[0].LemmaID != 202001618 || cs[1].LemmaID != 202001617 {
		t.Errorf("order = %d, %d; want 202001618, 202001617", cs[0].LemmaID, cs[1].LemmaID)
	}
	if cs[0].Root != "ذ ه ب" || cs[0].POS != "N" {
		t.Errorf("candidate = %+v", cs[0])
	}
	return lex
}

func TestDelimitedImport_Memory(t *testing.T) {
	ts := serveBytes(t, []byte(testTSV))
	a, err := NewDelimited(testSpec(""))
	if err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	res, err := a.Import(context.Background(), ts.URL, out)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Rows != 3 || res.Keys != 2 || res.Storage != lexicon.StorageMemory || res.At.IsZero() {
		t.Errorf("result = %+v", res)
	}

	lex := checkImported(t, out)
	m := lex.Manifest()
	if m.Storage != lexicon.StorageMemory || m.DataFile != "data.gob" {
		t.Errorf("manifest storage = %q, data file = %q", m.Storage, m.DataFile)
	}
	if m.SourceURL != ts.URL {
		t.Errorf("SourceURL = %q, want %q", m.SourceURL, ts.URL)
	}
	if _, err := os.Stat(filepath.Join(out, "_download", "test-source")); !os.IsNotExist(err) {
		t.Error("download dir not cleaned up")
	}
}

func TestDelimitedImport_SQLiteTwice(t *testing.T) {
	ts := serveBytes(t, []byte(testTSV))
	a, err := NewDelimited(testSpec(lexicon.StorageSQLite))
	if err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	for i := 0; i < 2; i++ {
		if _, err := a.Import(context.Background(), ts.URL, out); err != nil {
			t.Fatalf("Import #%d: %v", i+1, err)
		}
	}

	lex := checkImported(t, out)
	if lex.Manifest().DataFile != "data.db" {
		t.Errorf("DataFile = %q, want data.db", lex.Manifest().DataFile)
	}
}

func TestDelimitedImport_Zip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("corpus/LICENSE")
	w.Write([]byte("CC0"))
	w, _ = zw.Create("corpus/lexicon.tsv")
	w.Write([]byte(testTSV))
	zw.Close()

	ts := serveBytes(t, buf.Bytes())
	a, err := NewDelimited(testSpec(""))
	if err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	if _, err := a.Import(context.Background(), ts.URL+"/lexicon.zip", out); err != nil {
		t.Fatalf("Import: %v", err)
	}
	checkImported(t, out)
}

func TestDelimitedImport_DefaultURL(t *testing.T) {
	src := filepath.Join(t.TempDir(), "lexicon.tsv")
	os.WriteFile(src, []byte(testTSV), 0o644)

	spec := testSpec("")
	spec.URL = src
	a, err := NewDelimited(spec)
	if err != nil {
		t.Fatal(err)
	}

	out := t.TempDir()
	if _, err := a.Import(context.Background(), "", out); err != nil {
		t.Fatalf("Import: %v", err)
	}
	checkImported(t, out)
}

func TestDelimitedImport_Errors(t *testing.T) {
	a, _ := NewDelimited(testSpec(""))
	if _, err := a.Import(context.Background(), "", t.TempDir()); err == nil {
		t.Error("expected error without any source url")
	}

	empty := filepath.Join(t.TempDir(), "empty.tsv")
	os.WriteFile(empty, []byte("form\tlemma\n"), 0o644)
	if _, err := a.Import(context.Background(), empty, t.TempDir()); err == nil {
		t.Error("expected error for a source with no entries")
	}

	bad := filepath.Join(t.TempDir(), "bad.tsv")
	os.WriteFile(bad, []byte("word\tlemma\nذهب\tذهب\n"), 0o644)
	if _, err := a.Import(context.Background(), bad, t.TempDir()); err == nil {
		t.Error("expected error when the form column is missing")
	}
}

func TestNewDelimited_Validate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*SourceSpec)
	}{
		{"missing id", func(s *SourceSpec) { s.ID = "" }},
		{"missing lexicon id", func(s *SourceSpec) { s.LexiconID = "" }},
		{"path lexicon id", func(s *SourceSpec) { s.LexiconID = "../etc" }},
		{"dot lexicon id", func(s *SourceSpec) { s.LexiconID = ".." }},
		{"bad storage", func(s *SourceSpec) { s.Storage = "redis" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testSpec("")
			tt.edit(&spec)
			if _, err := NewDelimited(spec); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
