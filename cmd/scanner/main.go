package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/pauljones0/property-scanner/internal/app"
	"github.com/pauljones0/property-scanner/internal/config"
	"github.com/pauljones0/property-scanner/internal/logging"
	"github.com/pauljones0/property-scanner/internal/models"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

type options struct {
	Config     string `short:"c" long:"config" env:"SCANNER_CONFIG" default:"config.yaml" description:"Path to the YAML or JSON config file"`
	BypassSeen bool   `long:"bypass-seen" description:"Treat every fetched listing as new for this run"`
	LogLevel   string `long:"log-level" description:"Override debug.log_level (debug, info, warn, error)"`
	LogFile    string `long:"log-file" description:"Also append logs to this file"`

	Args struct {
		Config string `positional-arg-name:"config" description:"Config file path (overrides --config)"`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return exitOK
		}
		return exitUsage
	}

	path := opts.Config
	if opts.Args.Config != "" {
		path = opts.Args.Config
	}

	printBanner(stdout)

	cfg, err := config.Load(path)
	if err != nil {
		// The logger is not configured yet.
		logging.Setup(slog.LevelInfo, os.Stderr)
		slog.Error("Critical error loading configuration", "path", path, "error", err)
		return exitFailed
	}
	if opts.BypassSeen {
		cfg.Debug.BypassSeenCheck = true
	}
	level := cfg.SlogLevel()
	if opts.LogLevel != "" {
		level = config.ParseLevel(opts.LogLevel)
	}
	closeLog, err := logging.SetupFile(level, opts.LogFile)
	if err != nil {
		logging.Setup(level, os.Stderr)
		slog.Error("Failed to open log file", "error", err)
		return exitFailed
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("Critical error initializing scanner", "error", err)
		return exitFailed
	}
	defer a.Close()

	slog.Info("Starting property scan", "config", path, "sort_type", cfg.SortType, "sites", cfg.Sites.Sources())
	report, err := a.Scanner.Run(ctx)
	if err != nil {
		slog.Error("Scan failed", "error", err)
		return exitFailed
	}

	printReport(stdout, report.Summary(), len(report.Listings))
	if report.AllSourcesFailed() {
		// The run still completed; the summary names each failed source.
		slog.Error("Every source failed", "sources", report.FailedSources())
	}
	return exitOK
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w, "Property scanner")
	fmt.Fprintln(w, "Available sort strategies:")
	descriptions := models.SortStrategies()
	for _, s := range models.SortStrategyList() {
		fmt.Fprintf(w, "  %-18s %s\n", s, descriptions[s])
	}
	fmt.Fprintln(w)
}

func printReport(w io.Writer, summary string, matched int) {
	fmt.Fprintf(w, "Scan complete: %d matching new listings\n%s\n", matched, summary)
}
