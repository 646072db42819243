package geocode

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// zip_centroids.csv is a "zip,lat,lon" extract of the U.S. Census Bureau Gazetteer ZCTA
// centroids, trimmed to the ZIPs the bundled catalog and local development use.
//
//go:embed zip_centroids.csv
var zipCentroidsCSV []byte

// CentroidResolver answers for text that ends in a US ZIP code. It needs no network and backs
// MOCKS mode and deployments without a Mapbox token.
type CentroidResolver struct {
	centroids map[string]Coordinate
}

var _ Resolver = (*CentroidResolver)(nil)

func NewCentroidResolver() (*CentroidResolver, error) {
	centroids, err := parseZipCentroidsCSV(zipCentroidsCSV)
	if err != nil {
		return nil, fmt.Errorf("failed to load zip centroids: %w", err)
	}
	return &CentroidResolver{centroids: centroids}, nil
}

func (r *CentroidResolver) Resolve(_ context.Context, text string) (Coordinate, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Coordinate{}, ErrNotFound
	}
	zip, ok := normalizeZIP(strings.Trim(fields[len(fields)-1], ",.;"))
	if !ok {
		return Coordinate{}, ErrNotFound
	}
	c, ok := r.centroids[zip]
	if !ok {
		return Coordinate{}, ErrNotFound
	}
	return c, nil
}

func parseZipCentroidsCSV(raw []byte) (map[string]Coordinate, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("empty centroid dataset")
	}

	data := make(map[string]Coordinate, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if len(row) < 3 {
			continue
		}
		lat, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		data[row[0]] = Coordinate{Lon: lon, Lat: lat}
	}
	return data, nil
}

func normalizeZIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) == 5 && isAllDigits(raw) {
		return raw, true
	}
	if len(raw) == 10 && raw[5] == '-' && isAllDigits(raw[:5]) && isAllDigits(raw[6:]) {
		return raw[:5], true
	}
	return "", false
}

func isAllDigits(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
