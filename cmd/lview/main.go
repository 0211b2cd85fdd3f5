// Command lview records the game objects of a running client.
//
//	lview record [-config dir] [-pid n] [-frames n]
//	lview replay [-config dir] [-o dir] dump.json.gz
//	lview fetch  [-o dir] source...
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lviewgo/recorder/internal/logging"
	intOtel "github.com/lviewgo/recorder/internal/otel"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	Version   string = "0.1.0"
	BuildDate string = "unknown"

	AppName string = "lview_recorder"
)

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime time.Time = time.Now()
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: lview <command> [flags]

commands:
  record   scan a running process and record every frame
  replay   decode a memory dump offline
  fetch    download kind tables and layouts
  version  print the version
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch strings.ToLower(os.Args[1]) {
	case "record":
		err = runRecord(os.Args[2:])
	case "replay":
		err = runReplay(os.Args[2:])
	case "fetch":
		err = runFetch(os.Args[2:])
	case "version":
		fmt.Printf("%s %s (built %s)\n", AppName, Version, BuildDate)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}
