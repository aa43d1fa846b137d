package lexicon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Registry holds every lexicon found under a directory and serves lookups
// across all of them.
type Registry struct {
	mu          sync.RWMutex
	lexicons    map[string]Loaded
	lexiconsDir string
}

// NewRegistry creates a new empty registry for the given directory.
func NewRegistry(lexiconsDir string) *Registry {
	return &Registry{
		lexicons:    make(map[string]Loaded),
		lexiconsDir: lexiconsDir,
	}
}

// Load scans the lexicons directory and opens every lexicon. The previous
// set is closed once the new one is in place.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.lexiconsDir)
	if err != nil {
		return fmt.Errorf("read lexicons dir %s: %w", r.lexiconsDir, err)
	}

	loaded := make(map[string]Loaded)
	closeAll := func(m map[string]Loaded) {
		for _, l := range m {
			l.Close()
		}
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.lexiconsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "manifest.yaml")); err != nil {
			continue
		}
		l, err := Open(dir)
		if err != nil {
			closeAll(loaded)
			return fmt.Errorf("load lexicon %s: %w", entry.Name(), err)
		}
		if _, dup := loaded[l.Manifest().ID]; dup {
			l.Close()
			closeAll(loaded)
			return fmt.Errorf("load lexicon %s: duplicate id %q", entry.Name(), l.Manifest().ID)
		}
		loaded[l.Manifest().ID] = l
	}

	r.mu.Lock()
	old := r.lexicons
	r.lexicons = loaded
	r.mu.Unlock()

	closeAll(old)
	return nil
}

// Reload reloads all lexicons from disk (hot reload).
func (r *Registry) Reload() error {
	return r.Load()
}

// Lookup implements Lexicon. Lexicons are queried in sorted ID order and
// their candidates merged, then ranked by frequency; equal frequencies keep
// lexicon order. A failing lexicon does not hide the others' candidates: its
// error is joined into the returned error alongside the partial result.
func (r *Registry) Lookup(ctx context.Context, form string, limit Limit) ([]Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		out  []Candidate
		errs []error
	)
	for _, id := range r.sortedIDs() {
		cs, err := r.lexicons[id].Lookup(ctx, form, limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("lexicon %s: %w", id, err))
			continue
		}
		out = append(out, cs...)
	}
	Rank(out)
	return truncate(out, limit), errors.Join(errs...)
}

func (r *Registry) sortedIDs() []string {
	ids := make([]string, 0, len(r.lexicons))
	for id := range r.lexicons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Info is the public metadata for a loaded lexicon.
type Info struct {
	ID        string `json:"id"`
	Version   string `json:"version"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url,omitempty"`
	License   string `json:"license"`
	Storage   string `json:"storage"`
	Entries   int    `json:"entries"`
}

// List returns metadata for all loaded lexicons, sorted by ID.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.lexicons))
	for _, id := range r.sortedIDs() {
		l := r.lexicons[id]
		m := l.Manifest()
		infos = append(infos, Info{
			ID:        m.ID,
			Version:   m.Version,
			Source:    m.Source,
			SourceURL: m.SourceURL,
			License:   m.License,
			Storage:   m.Storage,
			Entries:   l.Len(),
		})
	}
	return infos
}

// Count returns the number of loaded lexicons.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lexicons)
}

// TotalEntries returns the number of distinct forms summed over lexicons.
func (r *Registry) TotalEntries() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, l := range r.lexicons {
		total += l.Len()
	}
	return total
}

// Close closes every loaded lexicon.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, l := range r.lexicons {
		errs = append(errs, l.Close())
	}
	r.lexicons = make(map[string]Loaded)
	return errors.Join(errs...)
}
