package main

import (
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "analyze":
		cmdAnalyze(os.Args[2:])
	case "explain":
		cmdExplain(os.Args[2:])
	case "import":
		cmdImport(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: sarf <command>

Commands:
  serve     Start the HTTP/3 + MCP server
  analyze   Analyze text from arguments or stdin
  explain   Trace the lookup cascade for one token
  import    Download and build lexicons from declared sources
  version   Print the version
`)
}
