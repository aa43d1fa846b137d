package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hazyhaar/sarf/pkg/importer"
)

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	source := fs.String("source", "", "adapter ID to import")
	all := fs.Bool("all", false, "import all declared sources")
	list := fs.Bool("list", false, "show every source with its import and check state")
	setURL := fs.String("set-url", "", "pin the URL of -source (\"-\" restores the declared URL)")
	check := fs.Bool("check", false, "check every remote source URL once")
	outputDir := fs.String("output-dir", "", "output directory for lexicons (overrides config)")
	fs.Parse(args)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fatalf("%v", err)
	}
	if *outputDir != "" {
		cfg.LexiconsDir = *outputDir
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	sdb, err := openSources(ctx, cfg)
	if err != nil {
		fatalf("open sources: %v", err)
	}
	defer sdb.Close()

	switch {
	case *check:
		r := importer.NewChecker(sdb, newLogger(cfg.LogLevel), time.Hour).CheckAll(ctx)
		fmt.Printf("checked: %d ok, %d failed, %d local\n\n", r.OK, r.Failed, r.Skipped)
		listSources(ctx, sdb)
		return
	case *setURL != "":
		if *source == "" {
			fatalf("-set-url requires -source")
		}
		url := *setURL
		if url == "-" {
			url = ""
		}
		if err := sdb.SetURL(ctx, *source, url); err != nil {
			fatalf("%v", err)
		}
		if url == "" {
			fmt.Printf("[%s] url override cleared\n", *source)
		} else {
			fmt.Printf("[%s] url -> %s\n", *source, url)
		}
		return
	case *list:
		listSources(ctx, sdb)
		return
	case !*all && *source == "":
		listSources(ctx, sdb)
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  sarf import -source <id> [-output-dir <dir>]")
		fmt.Println("  sarf import -all [-output-dir <dir>]")
		fmt.Println("  sarf import -source <id> -set-url <url|->")
		fmt.Println("  sarf import -list | -check")
		return
	}

	if *all {
		failed := 0
		for _, a := range importer.All() {
			if !runImport(ctx, sdb, a, cfg.LexiconsDir) {
				failed++
			}
		}
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	a, err := importer.Get(*source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nAvailable sources:")
		for _, a := range importer.All() {
			fmt.Fprintf(os.Stderr, "  %s\n", a.ID())
		}
		os.Exit(1)
	}
	if !runImport(ctx, sdb, a, cfg.LexiconsDir) {
		os.Exit(1)
	}
}

func runImport(ctx context.Context, sdb *importer.SourceDB, a importer.Adapter, outputDir string) bool {
	fmt.Printf("[%s] importing...\n", a.ID())
	res, err := importer.Run(ctx, sdb, a, outputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[%s] ERROR: %v\n", a.ID(), err)
		return false
	}
	fmt.Printf("[%s] OK -> %s/%s/ (%d rows, %d keys, %s)\n",
		a.ID(), outputDir, a.LexiconID(), res.Rows, res.Keys, res.Storage)
	return true
}

func listSources(ctx context.Context, sdb *importer.SourceDB) {
	sources, err := sdb.List(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	if len(sources) == 0 {
		fmt.Println("No sources declared. Add them to sources.yaml in the lexicons directory.")
		return
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tLEXICON\tSTORAGE\tKEYS\tIMPORTED\tCHECK\tURL")
	for _, src := range sources {
		imported := "never"
		if !src.ImportedAt.IsZero() {
			imported = src.ImportedAt.Format(time.DateTime)
		}
		if src.ImportError != "" {
			imported += " (last failed)"
		}
		check := "-"
		if !src.CheckedAt.IsZero() {
			check = fmt.Sprintf("%d", src.CheckStatus)
		}
		url := src.SourceURL
		if src.Overridden {
			url += " (pinned)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			src.AdapterID, src.LexiconID, src.Storage, src.Keys, imported, check, url)
	}
	tw.Flush()
}
