package cache

import (
	"log/slog"

	"programfinder/internal/config"
)

// MakeCache picks the blob backend when storage credentials are configured. MOCKS runs keep
// everything in memory; otherwise entries are files under cfg.Cache.Dir.
func MakeCache(cfg *config.Config) (ListCache, error) {
	if cfg.Cache.AccountName != "" {
		slog.Info("Using Azure Blob Storage for cache", "container", cfg.Cache.Container)
		return NewBlobCache(cfg.Cache.AccountName, cfg.Cache.AccountKey, cfg.Cache.Container)
	}
	if cfg.Mocks.Enable {
		slog.Info("Using in-memory cache for mocks")
		return NewInMemoryCache(), nil
	}
	slog.Info("Using file cache", "dir", cfg.Cache.Dir)
	return NewFileCache(cfg.Cache.Dir), nil
}
