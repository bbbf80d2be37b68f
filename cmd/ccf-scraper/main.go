package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/ccf-scraper/pkg/config"
	"github.com/Sriram-PR/ccf-scraper/pkg/export"
	"github.com/Sriram-PR/ccf-scraper/pkg/fetch"
	"github.com/Sriram-PR/ccf-scraper/pkg/parse"
	"github.com/Sriram-PR/ccf-scraper/pkg/scrape"
	"github.com/Sriram-PR/ccf-scraper/pkg/storage"
	"github.com/Sriram-PR/ccf-scraper/pkg/utils"
)

const (
	version           = "1.0.0"
	defaultConfigPath = "config.yaml"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scrape":
		runScrape(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "list-fields":
		runListFields(os.Args[2:])
	case "history":
		runHistory(os.Args[2:])
	case "version":
		fmt.Printf("ccf-scraper %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `ccf-scraper - CCF recommended venue list scraper

Usage:
  ccf-scraper <command> [options]

Commands:
  scrape       Scrape every configured listing page and write the CSV
  validate     Validate configuration file
  list-fields  List configured fields and their listing pages
  history      Show the last recorded outcome per listing page
  version      Show version info

Without a config file the built-in list of CCF pages is used.
Run 'ccf-scraper <command> -h' for command-specific help.`)
}

// configSource is where a command reads its configuration from
type configSource struct {
	path     string
	explicit bool // -config was given on the command line
}

// configFlag registers -config on fs; call resolve after fs.Parse
func configFlag(fs *flag.FlagSet) func() configSource {
	path := fs.String("config", defaultConfigPath, "Path to config file (built-in defaults when the default path is absent)")
	return func() configSource {
		src := configSource{path: *path}
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "config" {
				src.explicit = true
			}
		})
		return src
	}
}

// loadConfig loads and parses the config file
func loadConfig(path string) (*config.AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg config.AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w: %w", utils.ErrParsing, err)
	}

	return &cfg, nil
}

// resolveConfig loads src, falling back to an empty (all-defaults) config when the
// default path does not exist. An explicitly named file must exist.
// The returned config is not yet validated.
func resolveConfig(src configSource) (cfg *config.AppConfig, fromFile bool, err error) {
	cfg, err = loadConfig(src.path)
	if err == nil {
		return cfg, true, nil
	}
	if !src.explicit && errors.Is(err, os.ErrNotExist) {
		return config.DefaultAppConfig(), false, nil
	}
	return nil, false, err
}

// runScrape handles the scrape subcommand
func runScrape(args []string) {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	source := configFlag(fs)
	output := fs.String("output", "", "Output CSV path (overrides output_file)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	history := fs.Bool("history", false, "Record per-page outcomes in the run history store")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ccf-scraper scrape [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  ccf-scraper scrape\n")
		fmt.Fprintf(os.Stderr, "  ccf-scraper scrape -config ccf.yaml -output out/ccf_venues.csv -history\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Warnf("Received signal: %v. Stopping after the current page...", sig)
		cancel()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()
	defer signal.Stop(sigChan)

	opts := scrapeOptions{
		source:        source(),
		outputFile:    *output,
		enableHistory: *history,
	}
	exitCode := doScrape(ctx, opts, log, os.Stdout)
	cancel()
	os.Exit(exitCode)
}

// scrapeOptions carries the scrape subcommand's flags
type scrapeOptions struct {
	source        configSource
	outputFile    string // Overrides AppConfig.OutputFile when set
	enableHistory bool   // Forces AppConfig.EnableHistory on
}

// doScrape runs the whole pipeline and writes the distribution report to stdout.
// Returns exit code: 1 for an unusable config or an output file that cannot be written, else 0.
func doScrape(ctx context.Context, opts scrapeOptions, log *logrus.Logger, stdout io.Writer) int {
	appCfg, ok := loadAndValidateConfig(opts.source, log)
	if !ok {
		return 1
	}
	if opts.outputFile != "" {
		appCfg.OutputFile = opts.outputFile
	}
	if opts.enableHistory {
		appCfg.EnableHistory = true
	}
	logAppConfig(appCfg, log)

	logEntry := log.WithField("component", "scrape")

	// --- History (optional, never fatal) ---
	var history storage.PageHistory
	if appCfg.EnableHistory {
		store, err := storage.NewBadgerStore(appCfg.StateDir, log.WithField("component", "history"))
		if err != nil {
			log.Warnf("Run history disabled, could not open store: %v", err)
		} else {
			defer store.Close()
			history = store
		}
	}

	// --- Components ---
	httpClient := fetch.NewClient(appCfg.HTTPClientSettings, log.WithField("component", "http"))
	fetcher := fetch.NewFetcher(httpClient, appCfg, log.WithField("component", "fetch"))
	parser := parse.NewListingParser(appCfg.Markers, log.WithField("component", "parse"))
	scraper := scrape.NewScraper(appCfg.Fields, fetcher, parser, history, logEntry)

	result, runErr := scraper.Run(ctx)
	if runErr != nil {
		log.Warnf("Scrape stopped early: %v. Exporting the %d venues gathered so far.", runErr, len(result.Records))
	}

	// --- Report, then export ---
	if len(result.Records) > 0 {
		if err := export.RenderSummary(stdout, export.Summarize(result.Records)); err != nil {
			log.Warnf("Failed to print summary: %v", err)
		}
	}

	if err := export.WriteFile(appCfg.OutputFile, result.Records); err != nil {
		if errors.Is(err, utils.ErrNoRecords) {
			log.Warn("No venues were scraped; no output file written.")
			return 0
		}
		log.WithField("error_type", utils.CategorizeError(err)).Errorf("Failed to write output: %v", err)
		return 1
	}
	log.Infof("Saved %d venues to %s", len(result.Records), appCfg.OutputFile)
	return 0
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	source := configFlag(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ccf-scraper validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(source(), os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(src configSource, stdout, stderr io.Writer) int {
	appCfg, fromFile, err := resolveConfig(src)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if !fromFile {
		fmt.Fprintf(stdout, "INFO: %s not found, validating built-in defaults\n", src.path)
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	for _, f := range appCfg.Fields {
		fmt.Fprintf(stdout, "OK: [%s]\n", f.Name)
	}
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runListFields handles the list-fields subcommand
func runListFields(args []string) {
	fs := flag.NewFlagSet("list-fields", flag.ExitOnError)
	source := configFlag(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ccf-scraper list-fields [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doListFields(source(), os.Stdout, os.Stderr))
}

// doListFields lists fields in scrape order and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doListFields(src configSource, stdout, stderr io.Writer) int {
	appCfg, fromFile, err := resolveConfig(src)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if _, err := appCfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	origin := src.path
	if !fromFile {
		origin = "built-in defaults"
	}
	fmt.Fprintf(stdout, "Fields in %s:\n\n", origin)
	for i, f := range appCfg.Fields {
		fmt.Fprintf(stdout, "  %2d. %s\n", i+1, f.Name)
		fmt.Fprintf(stdout, "      URL: %s\n", f.URL)
	}
	fmt.Fprintf(stdout, "\nOutput file: %s\n", appCfg.OutputFile)
	return 0
}

// runHistory handles the history subcommand
func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	source := configFlag(fs)
	logLevel := fs.String("loglevel", "warn", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ccf-scraper history [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	os.Exit(doHistory(source(), log, os.Stdout, os.Stderr))
}

// doHistory prints the latest outcome of every recorded page.
// Returns exit code (0 = success, 1 = error).
func doHistory(src configSource, log *logrus.Logger, stdout, stderr io.Writer) int {
	appCfg, _, err := resolveConfig(src)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if _, err := appCfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	store, err := storage.NewBadgerStore(appCfg.StateDir, log.WithField("component", "history"))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	entries, err := store.ListLatest()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintf(stdout, "No run history in %s. Run 'ccf-scraper scrape -history' first.\n", appCfg.StateDir)
		return 0
	}

	export.RenderHistory(stdout, entries)
	return 0
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
		log.Debugf("Setting log level to: %s", level.String())
	}

	return log
}

// loadAndValidateConfig resolves and validates the config, logging warnings.
// Returns false when the config cannot be used.
func loadAndValidateConfig(src configSource, log *logrus.Logger) (*config.AppConfig, bool) {
	appCfg, fromFile, err := resolveConfig(src)
	if err != nil {
		log.Errorf("Config error: %v", err)
		return nil, false
	}
	if fromFile {
		log.Infof("Loaded configuration from %s", src.path)
	} else {
		log.Infof("No config file at %s, using built-in defaults", src.path)
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if err != nil {
		log.WithField("error_type", utils.CategorizeError(err)).Errorf("Invalid configuration: %v", err)
		return nil, false
	}
	return appCfg, true
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config: Fields:%d, Output:%s, History:%t, StateDir:%s",
		len(appCfg.Fields), appCfg.OutputFile, appCfg.EnableHistory, appCfg.StateDir)
	log.Debugf("Config HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, TLSTimeout:%v, DialerTimeout:%v, MaxBody:%d bytes",
		appCfg.HTTPClientSettings.Timeout, appCfg.HTTPClientSettings.MaxIdleConns, appCfg.HTTPClientSettings.MaxIdleConnsPerHost,
		appCfg.HTTPClientSettings.TLSHandshakeTimeout, appCfg.HTTPClientSettings.DialerTimeout, appCfg.MaxBodyBytes)
	log.Debugf("Config Markers: %+v", appCfg.Markers)
}
