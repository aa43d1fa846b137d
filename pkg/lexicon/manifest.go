package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Storage backends a manifest can declare.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// Manifest describes a lexicon directory: its source, storage and format.
type Manifest struct {
	ID        string     `yaml:"id" json:"id"`
	Version   string     `yaml:"version" json:"version"`
	Source    string     `yaml:"source" json:"source"`
	SourceURL string     `yaml:"source_url,omitempty" json:"source_url,omitempty"`
	License   string     `yaml:"license" json:"license"`
	DataFile  string     `yaml:"data_file" json:"data_file"`
	Storage   string     `yaml:"storage,omitempty" json:"storage,omitempty"`
	Format    FormatSpec `yaml:"format" json:"-"`
}

// FormatSpec describes the delimited text layout of data files.
type FormatSpec struct {
	Delimiter string     `yaml:"delimiter,omitempty"`
	Encoding  string     `yaml:"encoding,omitempty"`
	HasHeader bool       `yaml:"has_header"`
	Columns   ColumnSpec `yaml:"columns,omitempty"`
	Normalize string     `yaml:"normalize,omitempty"`
}

// ColumnSpec maps candidate fields to header names. Empty names fall back to
// the field's default header (form, lemma, lemma_id, root, pos, frequency).
type ColumnSpec struct {
	Form      string `yaml:"form,omitempty"`
	Lemma     string `yaml:"lemma,omitempty"`
	LemmaID   string `yaml:"lemma_id,omitempty"`
	Root      string `yaml:"root,omitempty"`
	POS       string `yaml:"pos,omitempty"`
	Frequency string `yaml:"frequency,omitempty"`
}

// names returns header names in positional order.
func (c ColumnSpec) names() [numColumns]string {
	pick := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	return [numColumns]string{
		colForm:      pick(c.Form, "form"),
		colLemma:     pick(c.Lemma, "lemma"),
		colLemmaID:   pick(c.LemmaID, "lemma_id"),
		colRoot:      pick(c.Root, "root"),
		colPOS:       pick(c.POS, "pos"),
		colFrequency: pick(c.Frequency, "frequency"),
	}
}

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	switch m.Storage {
	case "":
		m.Storage = StorageMemory
	case StorageMemory, StorageSQLite:
	default:
		return nil, fmt.Errorf("manifest %s: unknown storage %q", path, m.Storage)
	}
	if m.DataFile == "" {
		if m.Storage == StorageSQLite {
			m.DataFile = "data.db"
		} else {
			m.DataFile = "data.csv"
		}
	}
	return &m, nil
}

// SaveManifest writes m as YAML to path.
func SaveManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
