package importer

import (
	"os"
	"path/filepath"
	"testing"
)

const testSources = `sources:
  - id: test-quran-morph
    lexicon_id: quran
    description: Quranic morphology
    url: https://example.com/quran.zip
    license: GPL
    version: "0.4"
    storage: sqlite
    format:
      delimiter: "\t"
      has_header: true
      normalize: strip_diacritics
      columns:
        form: word
`

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	os.WriteFile(path, []byte(testSources), 0o644)

	specs, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("sources = %d, want 1", len(specs))
	}
	s := specs[0]
	if s.LexiconID != "quran" || s.Storage != "sqlite" {
		t.Errorf("spec = %+v", s)
	}
	if s.Format.Delimiter != "\t" || s.Format.Columns.Form != "word" || !s.Format.HasHeader {
		t.Errorf("format = %+v", s.Format)
	}
}

func TestLoadSources_Missing(t *testing.T) {
	specs, err := LoadSources(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil || specs != nil {
		t.Errorf("LoadSources(missing) = %v, %v; want nil, nil", specs, err)
	}
}

func TestLoadSources_Invalid(t *testing.T) {
	tests := map[string]string{
		"duplicate":  "sources:\n  - {id: a, lexicon_id: x}\n  - {id: a, lexicon_id: y}\n",
		"no lexicon": "sources:\n  - {id: a}\n",
		"bad yaml":   "sources: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sources.yaml")
			os.WriteFile(path, []byte(body), 0o644)
			if _, err := LoadSources(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRegisterSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	os.WriteFile(path, []byte(testSources), 0o644)

	n, err := RegisterSources(path)
	if err != nil {
		t.Fatalf("RegisterSources: %v", err)
	}
	if n != 1 {
		t.Errorf("registered = %d, want 1", n)
	}

	a, err := Get("test-quran-morph")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.LexiconID() != "quran" || a.DefaultURL() != "https://example.com/quran.zip" {
		t.Errorf("adapter = %s/%s", a.LexiconID(), a.DefaultURL())
	}

	found := false
	for _, x := range All() {
		if x.ID() == "test-quran-morph" {
			found = true
		}
	}
	if !found {
		t.Error("All() missing registered adapter")
	}

	if _, err := Get("nope"); err == nil {
		t.Error("expected error for unknown adapter")
	}
}
