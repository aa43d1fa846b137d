package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/sarf/pkg/lexicon"
	"gopkg.in/yaml.v3"
)

type tlsConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type config struct {
	Addr          string    `yaml:"addr"`
	LexiconsDir   string    `yaml:"lexicons_dir"`
	SourcesFile   string    `yaml:"sources_file"`
	CacheSize     int       `yaml:"cache_size"`
	LogLevel      string    `yaml:"log_level"`
	TLS           tlsConfig `yaml:"tls"`
	MCP           bool      `yaml:"mcp"`
	CheckInterval string    `yaml:"check_interval"`

	checkEvery time.Duration
}

func defaultConfig() config {
	return config{
		Addr:        ":8421",
		LexiconsDir: "lexicons",
		CacheSize:   lexicon.DefaultCacheSize,
		LogLevel:    "info",
		MCP:         true,
	}
}

// loadConfig reads path over the defaults. A missing file means defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if cfg.SourcesFile == "" {
		cfg.SourcesFile = filepath.Join(cfg.LexiconsDir, "sources.yaml")
	}
	if cfg.CacheSize < 0 {
		return cfg, fmt.Errorf("config: cache_size must be >= 0, got %d", cfg.CacheSize)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	if cfg.CheckInterval != "" {
		d, err := time.ParseDuration(cfg.CheckInterval)
		if err != nil {
			return cfg, fmt.Errorf("config: check_interval: %w", err)
		}
		if d <= 0 {
			return cfg, fmt.Errorf("config: check_interval must be positive, got %s", d)
		}
		cfg.checkEvery = d
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log_level %q", s)
	}
}

func newLogger(level string) *slog.Logger {
	lvl, _ := parseLevel(level)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
