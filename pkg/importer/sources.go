package importer

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type sourcesFile struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadSources reads a sources.yaml file. A missing file yields no sources.
func LoadSources(path string) ([]SourceSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", path, err)
	}
	seen := make(map[string]bool, len(f.Sources))
	for _, s := range f.Sources {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("sources %s: %w", path, err)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("sources %s: duplicate id %q", path, s.ID)
		}
		seen[s.ID] = true
	}
	return f.Sources, nil
}

// LoadAdapters loads path and builds one Delimited adapter per source.
func LoadAdapters(path string) ([]Adapter, error) {
	specs, err := LoadSources(path)
	if err != nil {
		return nil, err
	}
	out := make([]Adapter, 0, len(specs))
	for _, s := range specs {
		a, err := NewDelimited(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// RegisterSources loads path and registers its adapters. It returns the
// number of adapters registered.
func RegisterSources(path string) (int, error) {
	as, err := LoadAdapters(path)
	if err != nil {
		return 0, err
	}
	for _, a := range as {
		Register(a)
	}
	return len(as), nil
}
