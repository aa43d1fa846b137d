package importer

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/sarf/pkg/lexicon"
)

func TestDownloadFile(t *testing.T) {
	content := "hello world"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "test.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", string(data), content)
	}
}

func TestDownloadFile_Retry(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "retry.txt")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile with retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDownloadFile_AllFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "fail.txt")
	err := downloadFile(context.Background(), ts.URL, dest)
	if err == nil {
		t.Error("expected error after all retries exhausted")
	}
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	m := &lexicon.Manifest{
		ID:       "test-lex",
		Version:  "2026-10",
		Source:   "test",
		License:  "CC0",
		DataFile: "data.gob",
	}

	if err := writeManifest(dir, m); err != nil {
		t.Fatalf("writeManifest: %v", err)
	}

	loaded, err := lexicon.LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if loaded.ID != "test-lex" {
		t.Errorf("ID = %q, want test-lex", loaded.ID)
	}
	if loaded.DataFile != "data.gob" {
		t.Errorf("DataFile = %q, want data.gob", loaded.DataFile)
	}
	if loaded.Storage != lexicon.StorageMemory {
		t.Errorf("Storage = %q, want memory", loaded.Storage)
	}
}

func TestFetchSource_Local(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.csv")
	os.WriteFile(src, []byte("ذهب,ذَهَب\n"), 0o644)

	for _, ref := range []string{src, "file://" + src} {
		dest := filepath.Join(dir, "out.csv")
		if err := fetchSource(context.Background(), ref, dest); err != nil {
			t.Fatalf("fetchSource(%q): %v", ref, err)
		}
		data, _ := os.ReadFile(dest)
		if string(data) != "ذهب,ذَهَب\n" {
			t.Errorf("fetchSource(%q) content = %q", ref, data)
		}
	}

	if err := fetchSource(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "x")); err == nil {
		t.Error("expected error for missing local source")
	}
}

func TestUnzipFile(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "lex.zip")
	writeZip(t, archive, map[string]string{
		"README":         "notes",
		"nested/lex.tsv": "form\tlemma\n",
	})

	if !isZip(archive) {
		t.Fatal("isZip = false for a zip archive")
	}
	out := filepath.Join(dir, "out")
	os.Mkdir(out, 0o755)
	paths, err := unzipFile(archive, out)
	if err != nil {
		t.Fatalf("unzipFile: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("extracted %d files, want 2", len(paths))
	}
	data, err := pickDataFile(paths)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(data) != "lex.tsv" {
		t.Errorf("pickDataFile = %s, want lex.tsv", data)
	}

	plain := filepath.Join(dir, "plain.csv")
	os.WriteFile(plain, []byte("a,b\n"), 0o644)
	if isZip(plain) {
		t.Error("isZip = true for plain text")
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}
