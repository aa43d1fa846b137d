// Package importer downloads external lexicon sources and writes them as
// lexicon directories (manifest.yaml plus data.gob or data.db).
package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Adapter defines a data source importer that downloads, transforms and
// serializes a lexicon.
type Adapter interface {
	// ID returns the unique identifier of this adapter (e.g. "quran-morph").
	ID() string
	// LexiconID returns the target lexicon ID.
	LexiconID() string
	// Description returns a human-readable description.
	Description() string
	// DefaultURL returns the default source URL used for seeding the database.
	DefaultURL() string
	// License returns the license identifier for this source.
	License() string
	// Import downloads the source from sourceURL, transforms it, and writes
	// the lexicon into a subdirectory of outputDir named after LexiconID().
	Import(ctx context.Context, sourceURL, outputDir string) (ImportResult, error)
}

// ImportResult describes a written lexicon.
type ImportResult struct {
	Rows    int // rows kept after key normalization
	Keys    int // distinct keys
	Storage string
	At      time.Time
}

// Run imports adapter a from the URL stored in sdb into outputDir and
// records the outcome, failed or not.
func Run(ctx context.Context, sdb *SourceDB, a Adapter, outputDir string) (ImportResult, error) {
	url, err := sdb.URL(ctx, a.ID())
	if err != nil {
		return ImportResult{}, err
	}
	res, importErr := a.Import(ctx, url, outputDir)
	if err := sdb.RecordImport(ctx, a.ID(), res, importErr); err != nil {
		return res, errors.Join(importErr, err)
	}
	return res, importErr
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry, replacing any adapter
// with the same ID.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.ID()] = a
}

// Get returns a registered adapter by ID, or an error if not found.
func Get(id string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown import source: %q", id)
	}
	return a, nil
}

// All returns all registered adapters sorted by ID.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}
