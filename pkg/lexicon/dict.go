package lexicon

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Column positions, also the positional layout of header-less files.
const (
	colForm = iota
	colLemma
	colLemmaID
	colRoot
	colPOS
	colFrequency
	numColumns
)

// Loaded is a lexicon opened from a directory.
type Loaded interface {
	Lexicon
	Manifest() *Manifest
	Len() int
	Close() error
}

// Open loads the lexicon in dir according to its manifest.yaml.
func Open(dir string) (Loaded, error) {
	manifest, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}
	if manifest.Storage == StorageSQLite {
		path := filepath.Join(dir, manifest.DataFile)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("lexicon %s: %w", manifest.ID, err)
		}
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("lexicon %s: %w", manifest.ID, err)
		}
		s.manifest = manifest
		return s, nil
	}
	return loadDictionary(dir, manifest)
}

// Dictionary is an in-memory lexicon keyed by normalized form.
type Dictionary struct {
	manifest  *Manifest
	entries   map[string][]Candidate
	normalize KeyNormalizer
}

// NewDictionary wraps entries, ranking every candidate list.
func NewDictionary(m *Manifest, entries map[string][]Candidate) *Dictionary {
	for _, cs := range entries {
		Rank(cs)
	}
	return &Dictionary{
		manifest:  m,
		entries:   entries,
		normalize: GetKeyNormalizer(m.Format.Normalize),
	}
}

// LoadDictionary reads a memory-storage lexicon from dir.
func LoadDictionary(dir string) (*Dictionary, error) {
	manifest, err := LoadManifest(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, err
	}
	return loadDictionary(dir, manifest)
}

func loadDictionary(dir string, manifest *Manifest) (*Dictionary, error) {
	d := &Dictionary{
		manifest:  manifest,
		entries:   make(map[string][]Candidate),
		normalize: GetKeyNormalizer(manifest.Format.Normalize),
	}

	// Gob takes priority over CSV.
	gobPath := filepath.Join(dir, "data.gob")
	if _, err := os.Stat(gobPath); err == nil {
		err = d.loadGob(gobPath)
		if err != nil {
			return nil, fmt.Errorf("lexicon %s: %w", manifest.ID, err)
		}
	} else if err := d.loadCSV(filepath.Join(dir, manifest.DataFile)); err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", manifest.ID, err)
	}

	for _, cs := range d.entries {
		Rank(cs)
	}
	return d, nil
}

func (d *Dictionary) loadCSV(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	rows, err := ReadDelimited(f, d.manifest.Format)
	if err != nil {
		return err
	}

	var skipped int
	for row, err := range rows {
		if err != nil {
			return err
		}
		key := d.normalize(row.Form)
		if key == "" {
			skipped++
			continue
		}
		d.entries[key] = append(d.entries[key], row.Candidate)
	}

	if skipped > 0 {
		slog.Warn("rows with empty form after normalization", "lexicon", d.manifest.ID, "skipped", skipped)
	}
	return nil
}

// Row is one parsed line of a delimited lexicon file.
type Row struct {
	Form string
	Candidate
}

// ReadDelimited parses a delimited lexicon stream according to format. Rows
// with a malformed lemma_id or frequency are skipped and counted in a
// warning once the sequence is exhausted.
func ReadDelimited(src io.Reader, format FormatSpec) (iter.Seq2[Row, error], error) {
	reader := src
	if enc := format.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		reader = transform.NewReader(src, e.NewDecoder())
	}

	r := csv.NewReader(reader)
	if delim := format.Delimiter; delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	idx := [numColumns]int{colForm, colLemma, colLemmaID, colRoot, colPOS, colFrequency}
	if format.HasHeader {
		header, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}
		for col, name := range format.Columns.names() {
			idx[col] = -1
			for i, h := range header {
				if h == name {
					idx[col] = i
					break
				}
			}
		}
		if idx[colForm] < 0 {
			return nil, fmt.Errorf("form column %q not found in header %v", format.Columns.names()[colForm], header)
		}
	}

	return func(yield func(Row, error) bool) {
		var malformed int
		defer func() {
			if malformed > 0 {
				slog.Warn("malformed lexicon rows skipped", "rows", malformed)
			}
		}()
		for {
			record, err := r.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Row{}, fmt.Errorf("read row: %w", err))
				return
			}
			row, ok := parseRow(record, idx)
			if !ok {
				malformed++
				continue
			}
			if !yield(row, nil) {
				return
			}
		}
	}, nil
}

func parseRow(record []string, idx [numColumns]int) (Row, bool) {
	field := func(col int) string {
		i := idx[col]
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row := Row{
		Form: field(colForm),
		Candidate: Candidate{
			Lemma: field(colLemma),
			Root:  field(colRoot),
			POS:   field(colPOS),
		},
	}
	if v := field(colLemmaID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Row{}, false
		}
		row.LemmaID = id
	}
	if v := field(colFrequency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Row{}, false
		}
		row.Frequency = n
	}
	return row, true
}

// Lookup implements Lexicon. The form is matched exactly.
func (d *Dictionary) Lookup(_ context.Context, form string, limit Limit) ([]Candidate, error) {
	cs := d.entries[form]
	if len(cs) == 0 {
		return nil, nil
	}
	return slices.Clone(truncate(cs, limit)), nil
}

// NormalizeKey applies this dictionary's key normalizer to a form.
func (d *Dictionary) NormalizeKey(form string) string {
	return d.normalize(form)
}

// Manifest returns the dictionary's manifest.
func (d *Dictionary) Manifest() *Manifest { return d.manifest }

// Len returns the number of distinct keys.
func (d *Dictionary) Len() int { return len(d.entries) }

// Close is a no-op for in-memory dictionaries.
func (d *Dictionary) Close() error { return nil }

// Entries returns the underlying key to candidates map. Callers must not
// modify it.
func (d *Dictionary) Entries() map[string][]Candidate { return d.entries }

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
