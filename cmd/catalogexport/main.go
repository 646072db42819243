package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"programfinder/internal/config"
	"programfinder/internal/export"
	"programfinder/internal/filter"
	"programfinder/internal/mapview"
	"programfinder/internal/programs"
)

func main() {
	var region string
	var search string
	var output string

	flag.StringVar(&region, "region", "", "Only export programs in this region (e.g., Virginia, DMV)")
	flag.StringVar(&search, "q", "", "Only export programs whose address contains the text")
	flag.StringVar(&output, "o", "programs.xlsx", "Output file, - for stdout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx := context.Background()
	var out io.Writer = os.Stdout
	if output != "-" {
		f, err := os.Create(output)
		if err != nil {
			log.Fatalf("failed to create %s: %v", output, err)
		}
		defer f.Close()
		out = f
	}

	n, err := exportCatalog(ctx, cfg, region, search, out)
	if err != nil {
		log.Fatalf("export failed: %v", err)
	}
	slog.InfoContext(ctx, "exported programs", "count", n, "region", region, "q", search, "output", output)
}

func exportCatalog(ctx context.Context, cfg *config.Config, region, search string, out io.Writer) (int, error) {
	store, err := programs.New(ctx, cfg)
	if err != nil {
		return 0, err
	}
	records := filter.Apply(store.Current().All(), region, search)
	if err := export.Write(out, records, mapview.DirectionsURL); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	return len(records), nil
}
