// Package geocode turns free-form address text into coordinates.
//
// The live backend is Mapbox forward geocoding; without a token (or with MOCKS set) a ZIP
// centroid table stands in. Both are wrapped in a Memo so each distinct text is resolved once.
package geocode

import (
	"context"
	"log/slog"
	"strings"

	"programfinder/internal/cache"
	"programfinder/internal/config"

	"golang.org/x/text/cases"
)

type Resolver interface {
	Resolve(ctx context.Context, text string) (Coordinate, error)
}

// New builds the configured resolver chain. store may be nil.
func New(cfg *config.Config, store cache.Cache) (*Memo, error) {
	var next Resolver
	if cfg.UseMapbox() {
		slog.Info("geocoding with mapbox", "base_url", cfg.Mapbox.BaseURL)
		next = NewMapboxClient(cfg.Mapbox.BaseURL, cfg.Mapbox.AccessToken, cfg.Geocode.MaxRetries, cfg.Geocode.Timeout)
	} else {
		slog.Info("geocoding with zip centroids")
		centroids, err := NewCentroidResolver()
		if err != nil {
			return nil, err
		}
		next = centroids
	}
	return NewMemo(next, store, cfg.Geocode.RatePerSec), nil
}

// Normalize is the memo key for a query: whitespace collapsed and case folded.
func Normalize(text string) string {
	return cases.Fold().String(strings.Join(strings.Fields(text), " "))
}
