package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/sarf/pkg/lexicon"
)

// SourceSpec declares one delimited lexicon source.
type SourceSpec struct {
	ID          string             `yaml:"id"`
	LexiconID   string             `yaml:"lexicon_id"`
	Description string             `yaml:"description"`
	URL         string             `yaml:"url"`
	License     string             `yaml:"license"`
	Version     string             `yaml:"version"`
	Storage     string             `yaml:"storage"`
	Format      lexicon.FormatSpec `yaml:"format"`
}

func (s SourceSpec) validate() error {
	if s.ID == "" {
		return errors.New("source: missing id")
	}
	if s.LexiconID == "" || strings.ContainsAny(s.LexiconID, `/\`) || s.LexiconID == "." || s.LexiconID == ".." {
		return fmt.Errorf("source %s: invalid lexicon_id %q", s.ID, s.LexiconID)
	}
	switch s.Storage {
	case "", lexicon.StorageMemory, lexicon.StorageSQLite:
	default:
		return fmt.Errorf("source %s: unknown storage %q", s.ID, s.Storage)
	}
	return nil
}

// Delimited imports a CSV/TSV lexicon, plain or zipped. Keys are
// canonicalized with Format.Normalize at import time.
type Delimited struct {
	spec SourceSpec
}

// NewDelimited validates spec and returns its adapter.
func NewDelimited(spec SourceSpec) (*Delimited, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	if spec.Storage == "" {
		spec.Storage = lexicon.StorageMemory
	}
	return &Delimited{spec: spec}, nil
}

func (d *Delimited) ID() string          { return d.spec.ID }
func (d *Delimited) LexiconID() string   { return d.spec.LexiconID }
func (d *Delimited) Description() string { return d.spec.Description }
func (d *Delimited) DefaultURL() string  { return d.spec.URL }
func (d *Delimited) License() string     { return d.spec.License }

// Import fetches sourceURL (DefaultURL when empty) and writes
// outputDir/<lexicon id>/.
func (d *Delimited) Import(ctx context.Context, sourceURL, outputDir string) (ImportResult, error) {
	if sourceURL == "" {
		sourceURL = d.spec.URL
	}
	if sourceURL == "" {
		return ImportResult{}, fmt.Errorf("%s: no source url", d.spec.ID)
	}

	dlDir := filepath.Join(outputDir, "_download", d.spec.ID)
	if err := ensureDir(dlDir); err != nil {
		return ImportResult{}, err
	}
	defer os.RemoveAll(dlDir)

	raw := filepath.Join(dlDir, "source")
	slog.Info("fetching lexicon source", "adapter", d.spec.ID, "url", sourceURL)
	if err := fetchSource(ctx, sourceURL, raw); err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", d.spec.ID, err)
	}

	dataPath := raw
	if isZip(raw) {
		extractDir := filepath.Join(dlDir, "extract")
		if err := ensureDir(extractDir); err != nil {
			return ImportResult{}, err
		}
		paths, err := unzipFile(raw, extractDir)
		if err != nil {
			return ImportResult{}, fmt.Errorf("%s: %w", d.spec.ID, err)
		}
		if dataPath, err = pickDataFile(paths); err != nil {
			return ImportResult{}, fmt.Errorf("%s: %w", d.spec.ID, err)
		}
	}

	entries, rows, err := readEntries(ctx, dataPath, d.spec.Format)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", d.spec.ID, err)
	}
	if len(entries) == 0 {
		return ImportResult{}, fmt.Errorf("%s: no entries parsed", d.spec.ID)
	}

	lexDir := filepath.Join(outputDir, d.spec.LexiconID)
	if err := ensureDir(lexDir); err != nil {
		return ImportResult{}, err
	}

	m := &lexicon.Manifest{
		ID:        d.spec.LexiconID,
		Version:   d.spec.Version,
		Source:    d.spec.Description,
		SourceURL: sourceURL,
		License:   d.spec.License,
		Storage:   d.spec.Storage,
		Format:    lexicon.FormatSpec{Normalize: d.spec.Format.Normalize},
	}

	switch d.spec.Storage {
	case lexicon.StorageSQLite:
		m.DataFile = "data.db"
		dbPath := filepath.Join(lexDir, m.DataFile)
		if err := removeIfExists(dbPath, dbPath+"-wal", dbPath+"-shm"); err != nil {
			return ImportResult{}, err
		}
		if err := lexicon.SaveSQLite(ctx, entries, dbPath); err != nil {
			return ImportResult{}, fmt.Errorf("%s: %w", d.spec.ID, err)
		}
	default:
		m.DataFile = "data.gob"
		if err := lexicon.SaveGob(entries, filepath.Join(lexDir, m.DataFile)); err != nil {
			return ImportResult{}, fmt.Errorf("%s: %w", d.spec.ID, err)
		}
	}

	if err := writeManifest(lexDir, m); err != nil {
		return ImportResult{}, fmt.Errorf("%s: %w", d.spec.ID, err)
	}

	res := ImportResult{Rows: rows, Keys: len(entries), Storage: d.spec.Storage, At: time.Now()}
	slog.Info("lexicon imported",
		"adapter", d.spec.ID,
		"lexicon", d.spec.LexiconID,
		"rows", res.Rows,
		"keys", res.Keys,
		"storage", res.Storage,
	)
	return res, nil
}

// readEntries parses path into normalized key to candidates. Rows whose key
// normalizes to empty are dropped.
func readEntries(ctx context.Context, path string, format lexicon.FormatSpec) (map[string][]lexicon.Candidate, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	seq, err := lexicon.ReadDelimited(f, format)
	if err != nil {
		return nil, 0, err
	}

	normalize := lexicon.GetKeyNormalizer(format.Normalize)
	entries := make(map[string][]lexicon.Candidate)
	var n int
	for row, err := range seq {
		if err != nil {
			return nil, 0, err
		}
		if n%10000 == 0 && ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		key := normalize(row.Form)
		if key == "" {
			continue
		}
		entries[key] = append(entries[key], row.Candidate)
		n++
	}
	for _, cs := range entries {
		lexicon.Rank(cs)
	}
	return entries, n, nil
}

func removeIfExists(paths ...string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
