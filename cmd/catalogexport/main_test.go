package main

import (
	"bytes"
	"context"
	"testing"

	"programfinder/internal/config"
	"programfinder/internal/export"

	"github.com/xuri/excelize/v2"
)

func TestExportCatalogWritesFilteredRows(t *testing.T) {
	var buf bytes.Buffer
	n, err := exportCatalog(context.Background(), &config.Config{}, "Virginia", "", &buf)
	if err != nil {
		t.Fatalf("exportCatalog returned error: %v", err)
	}
	if n == 0 {
		t.Fatal("expected bundled Virginia programs")
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("output is not a workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	if err != nil {
		t.Fatalf("GetRows returned error: %v", err)
	}
	if len(rows) != n+1 {
		t.Fatalf("expected %d rows, got %d", n+1, len(rows))
	}
	for _, row := range rows[1:] {
		if len(row) < 5 || row[4] != "VA" {
			t.Fatalf("unexpected row %v", row)
		}
	}
}
