package service

import (
	"booklist/internal/adapters/source"
	"booklist/internal/adapters/storage"
	"booklist/internal/adapters/util"
	"booklist/internal/config"
	"booklist/internal/core/domain/ports"
	"fmt"
	"net/http"
)

// NewSearchHTTPClient builds the client shared by search adapters. Per-request
// deadlines come from the SearchDataSource, not from the client.
func NewSearchHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{
		Transport: util.NewRateLimitTransport(&util.LoggingTransport{}, cfg.SearchRatePerSec),
	}
}

func CreateBookSearcher(cfg *config.Config) ports.BookSearcher {
	client := NewSearchHTTPClient(cfg)
	switch cfg.SearchSourceType {
	case config.SourceOPDS:
		return source.NewOPDSAdapter(cfg.OPDSSearchURL, cfg.OPDSUsername, cfg.OPDSPassword, client)
	default:
		return source.NewGoogleBooksAdapter(cfg.GoogleBooksURL, client)
	}
}

func CreateKeyValueStore(cfg *config.Config) (ports.KeyValueStore, error) {
	switch cfg.StorageType {
	case config.StorageFile:
		return storage.NewFileStore(cfg.StoragePath)
	case config.StorageSQLite:
		return storage.OpenSQLiteStore(cfg.SQLiteDSN)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.StorageType)
	}
}

func CreateIDAllocator(cfg *config.Config) ports.IDAllocator {
	if cfg.IDAllocator == config.AllocatorClock {
		return &ClockAllocator{}
	}
	return SequenceAllocator{}
}

// CreateSearchDataSource wires the configured searcher into a data source.
func CreateSearchDataSource(cfg *config.Config) *SearchDataSource {
	return NewSearchDataSource(CreateBookSearcher(cfg), cfg.SearchMaxResults, cfg.SearchTimeout)
}
