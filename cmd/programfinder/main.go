package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"programfinder/internal/cache"
	"programfinder/internal/config"
	"programfinder/internal/filter"
	"programfinder/internal/geocode"
	"programfinder/internal/programs"
	"programfinder/internal/programs/types"
	"programfinder/internal/telemetry"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

type options struct {
	region  string
	search  string
	address string
	cached  bool
	serve   bool
	addr    string
}

func main() {
	var opts options
	var help bool

	flag.StringVar(&opts.region, "region", "", "List programs for a region (e.g., Virginia, DMV)")
	flag.StringVar(&opts.region, "r", "", "List programs for a region (short form)")
	flag.StringVar(&opts.search, "search", "", "List programs whose address contains the text")
	flag.StringVar(&opts.search, "s", "", "List programs whose address contains the text (short form)")
	flag.StringVar(&opts.address, "geocode", "", "Print the coordinate for an address")
	flag.BoolVar(&opts.cached, "cached", false, "Count coordinates in the durable geocode cache")
	flag.BoolVar(&opts.serve, "serve", false, "Run HTTP server mode")
	flag.StringVar(&opts.addr, "addr", ":8080", "Address to bind in server mode")
	flag.BoolVar(&help, "help", false, "Show help message")
	flag.BoolVar(&help, "h", false, "Show help message")
	flag.Parse()

	if help {
		showHelp()
		return
	}
	if !opts.serve && !opts.cached && opts.address == "" && opts.region == "" && opts.search == "" {
		fmt.Println("Error: -region, -search, -geocode or -cached is required (or use -serve for web mode)")
		showHelp()
		os.Exit(2)
	}
	os.Exit(execute(opts))
}

// execute returns the process exit code. Logs and telemetry are flushed on every path.
func execute(opts options) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		return 1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, cfg.Tracing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up telemetry: %v\n", err)
		return 1
	}
	closeLogs, err := setupLogging(ctx, cfg, tel.LogHandler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		_ = tel.Shutdown(ctx)
		return 1
	}
	defer func() {
		closeLogs()
		if err := tel.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "telemetry shutdown: %v\n", err)
		}
	}()
	tel.LogStatus(ctx, slog.Default())

	if err := dispatch(ctx, cfg, opts, os.Stdout); err != nil {
		slog.ErrorContext(ctx, "programfinder failed", "error", err)
		return 1
	}
	return 0
}

func dispatch(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	switch {
	case opts.serve:
		if err := runServer(cfg, opts.addr); err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case opts.address != "":
		return runGeocode(ctx, cfg, opts.address, out)
	case opts.cached:
		return runCached(ctx, cfg, out)
	default:
		return run(ctx, cfg, opts.region, opts.search, out)
	}
}

func run(ctx context.Context, cfg *config.Config, region, search string, out io.Writer) error {
	store, err := programs.New(ctx, cfg)
	if err != nil {
		return err
	}
	records := filter.Apply(store.Current().All(), region, search)
	fmt.Fprintf(out, "%d Local Chapters Found (%s)\n", len(records), filter.ModeFor(region, search))
	if len(records) == 0 {
		return nil
	}
	return printPrograms(out, records)
}

func printPrograms(out io.Writer, records []types.ProgramRecord) error {
	table := tablewriter.NewWriter(out)
	table.Header("Region", "Type", "Address", "Meets")
	for _, p := range records {
		meets := strings.TrimSpace(p.MeetingDay + " " + p.MeetingTime)
		if err := table.Append(p.Region, p.ProgramType, p.DisplayAddress(), meets); err != nil {
			return err
		}
	}
	return table.Render()
}

func runGeocode(ctx context.Context, cfg *config.Config, address string, out io.Writer) error {
	store, err := cache.MakeCache(cfg)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	resolver, err := geocode.New(cfg, store)
	if err != nil {
		return fmt.Errorf("failed to create geocoder: %w", err)
	}
	c, err := resolver.Resolve(ctx, address)
	if err != nil {
		return fmt.Errorf("could not geocode %q: %w", address, err)
	}
	fmt.Fprintf(out, "%s: %s\n", address, c)
	return nil
}

// runCached counts the coordinates the geocoder has persisted.
func runCached(ctx context.Context, cfg *config.Config, out io.Writer) error {
	store, err := cache.MakeCache(cfg)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	keys, err := store.List(ctx, geocode.StorePrefix)
	if err != nil {
		return fmt.Errorf("failed to list geocode cache: %w", err)
	}
	fmt.Fprintf(out, "%d cached geocodes\n", len(keys))
	return nil
}

func showHelp() {
	fmt.Println("programfinder - find a local chapter")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  programfinder -region <name>")
	fmt.Println("  programfinder -search <address text>")
	fmt.Println("  programfinder -geocode <address>")
	fmt.Println("  programfinder -cached")
	fmt.Println("  programfinder -serve [-addr :8080]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -region, -r     Region from the dropdown (Select Location lists everything)")
	fmt.Println("  -search, -s     Address text; overrides -region")
	fmt.Println("  -geocode        Resolve an address to lon,lat")
	fmt.Println("  -cached         Count coordinates in the durable geocode cache")
	fmt.Println("  -serve          Run the web server")
	fmt.Println("  -help, -h       Show this help message")
}
