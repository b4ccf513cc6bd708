package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var (
	projectPath = flag.String("project", "", "Path to the obfuscation project file (may also be given as the first argument)")
	configPath  = flag.String("config", "./obscura.toml", "Path to the tool config file")
	watch       = flag.Bool("watch", false, "Rerun whenever the project or its inputs change")
	useHistory  = flag.Bool("history", false, "Record the run in the history database")
	lookup      = flag.String("lookup", "", "Find an obfuscated or original name in recorded runs and exit")
	metricsFile = flag.String("metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	version     = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("obscura v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	opts := options{
		ProjectPath: *projectPath,
		ConfigPath:  *configPath,
		Watch:       *watch,
		History:     *useHistory,
		Lookup:      *lookup,
		MetricsFile: *metricsFile,
	}
	if opts.ProjectPath == "" && flag.NArg() > 0 {
		opts.ProjectPath = flag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
