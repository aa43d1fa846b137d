package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/hazyhaar/sarf/pkg/analyzer"
	"github.com/hazyhaar/sarf/pkg/kit"
	"github.com/hazyhaar/sarf/pkg/lexicon"
)

// lexiconFlags are shared by analyze and explain.
type lexiconFlags struct {
	config   *string
	lexicons *string
	mock     *bool
	limit    *string
}

func addLexiconFlags(fs *flag.FlagSet) lexiconFlags {
	return lexiconFlags{
		config:   fs.String("config", "config.yaml", "path to config file"),
		lexicons: fs.String("lexicons", "", "lexicons directory (overrides config)"),
		mock:     fs.Bool("mock", false, "use the built-in one-entry lexicon"),
		limit:    fs.String("limit", "first", "candidates per token: first or all"),
	}
}

// open builds an analyzer and returns a cleanup func.
func (f lexiconFlags) open(logger *slog.Logger) (*analyzer.Analyzer, func(), error) {
	if *f.mock {
		return analyzer.New(lexicon.NewMock(), analyzer.WithLogger(logger)), func() {}, nil
	}

	dir := *f.lexicons
	if dir == "" {
		cfg, err := loadConfig(*f.config)
		if err != nil {
			return nil, nil, err
		}
		dir = cfg.LexiconsDir
	}
	reg := lexicon.NewRegistry(dir)
	if err := reg.Load(); err != nil {
		return nil, nil, err
	}
	return analyzer.New(reg, analyzer.WithLogger(logger)), func() { reg.Close() }, nil
}

func cmdAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	lf := addLexiconFlags(fs)
	shapeName := fs.String("shape", "full", "output shape: full, lemmatization, pos or root")
	fs.Parse(args)

	// An unknown shape behaves as full.
	shape, _ := analyzer.ParseShape(*shapeName)
	limit, err := lexicon.ParseLimit(*lf.limit)
	if err != nil {
		fatalf("%v", err)
	}

	text := strings.Join(fs.Args(), " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatalf("read stdin: %v", err)
		}
		text = string(data)
	}

	logger := newLogger("warn")
	an, closeFn, err := lf.open(logger)
	if err != nil {
		fatalf("load lexicons: %v", err)
	}
	defer closeFn()

	ctx := kit.WithTransport(context.Background(), kit.TransportCLI)
	records := an.Analyze(ctx, text, shape, limit)
	if records == nil {
		records = []analyzer.Record{}
	}
	printJSON(records)
}

func cmdExplain(args []string) {
	fs := flag.NewFlagSet("explain", flag.ExitOnError)
	lf := addLexiconFlags(fs)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatalf("usage: sarf explain [flags] <token>")
	}
	limit, err := lexicon.ParseLimit(*lf.limit)
	if err != nil {
		fatalf("%v", err)
	}

	logger := newLogger("warn")
	an, closeFn, err := lf.open(logger)
	if err != nil {
		fatalf("load lexicons: %v", err)
	}
	defer closeFn()

	ctx := kit.WithTransport(context.Background(), kit.TransportCLI)
	printJSON(an.Explain(ctx, fs.Arg(0), limit))
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalf("encode: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sarf: "+format+"\n", args...)
	os.Exit(1)
}
