package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hazyhaar/sarf/pkg/analyzer"
	"github.com/hazyhaar/sarf/pkg/api"
	"github.com/hazyhaar/sarf/pkg/charset"
	"github.com/hazyhaar/sarf/pkg/chassis"
	"github.com/hazyhaar/sarf/pkg/importer"
	"github.com/hazyhaar/sarf/pkg/lexicon"
	"github.com/hazyhaar/sarf/pkg/tokenize"
	"github.com/mark3labs/mcp-go/server"
)

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// Load lexicons.
	reg := lexicon.NewRegistry(cfg.LexiconsDir)
	if err := reg.Load(); err != nil {
		logger.Error("failed to load lexicons", "error", err)
		os.Exit(1)
	}
	defer reg.Close()
	logger.Info("lexicons loaded", "count", reg.Count(), "entries", reg.TotalEntries())

	var lex lexicon.Lexicon = reg
	var cache *lexicon.Cache
	if cfg.CacheSize > 0 {
		cache, err = lexicon.NewCache(reg, cfg.CacheSize)
		if err != nil {
			logger.Error("lexicon cache", "error", err)
			os.Exit(1)
		}
		lex = cache
	}

	oracle := charset.Default()
	svc := &api.Service{
		Analyzer:  analyzer.New(lex, analyzer.WithOracle(oracle), analyzer.WithLogger(logger)),
		Tokenizer: tokenize.New(oracle),
		Catalog:   reg,
		Logger:    logger,
	}

	var mcpSrv *server.MCPServer
	if cfg.MCP {
		mcpSrv = api.NewMCPServer(svc, version)
	}

	srv, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		CertFile:  cfg.TLS.CertFile,
		KeyFile:   cfg.TLS.KeyFile,
		Handler:   api.NewRouter(svc),
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("chassis", "error", err)
		os.Exit(1)
	}

	// SIGHUP: hot reload lexicons.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading lexicons")
			if err := reg.Reload(); err != nil {
				logger.Error("reload failed", "error", err)
				continue
			}
			if cache != nil {
				cache.Purge()
			}
			logger.Info("lexicons reloaded", "count", reg.Count(), "entries", reg.TotalEntries())
		}
	}()

	if cfg.checkEvery > 0 {
		sdb, err := openSources(ctx, cfg)
		if err != nil {
			logger.Error("source checker disabled", "error", err)
		} else {
			defer sdb.Close()
			go importer.NewChecker(sdb, logger, cfg.checkEvery).Start(ctx)
		}
	}

	logger.Info("sarf listening", "addr", cfg.Addr, "version", version)
	if err := srv.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("shutdown", "error", err)
	}
}

// openSources registers the declared sources and opens the source database
// in the lexicons directory, synced with every registered adapter.
func openSources(ctx context.Context, cfg config) (*importer.SourceDB, error) {
	if _, err := importer.RegisterSources(cfg.SourcesFile); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.LexiconsDir, 0o755); err != nil {
		return nil, err
	}
	sdb, err := importer.OpenSourceDB(filepath.Join(cfg.LexiconsDir, "sources.db"))
	if err != nil {
		return nil, err
	}
	if err := sdb.Sync(ctx, importer.All()); err != nil {
		sdb.Close()
		return nil, err
	}
	return sdb, nil
}
