package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"

	SourceGoogle = "google"
	SourceOPDS   = "opds"

	AllocatorSequence = "sequence"
	AllocatorClock    = "clock"
)

type Config struct {
	APIPort  int    `env:"BL_PORT" envDefault:"8000"`
	LogLevel string `env:"BL_LOG_LEVEL" envDefault:"info"`

	StorageType string `env:"BL_STORAGE_TYPE" envDefault:"file"`
	StoragePath string `env:"BL_STORAGE_PATH" envDefault:"booklist.json"`
	SQLiteDSN   string `env:"BL_SQLITE_DSN" envDefault:"file:booklist.db?cache=shared"`
	StorageKey  string `env:"BL_STORAGE_KEY" envDefault:"hooks-book"`
	IDAllocator string `env:"BL_ID_ALLOCATOR" envDefault:"sequence"`

	SearchSourceType string        `env:"BL_SEARCH_SOURCE_TYPE" envDefault:"google"`
	GoogleBooksURL   string        `env:"BL_GOOGLE_BOOKS_BASE_URL" envDefault:"https://www.googleapis.com/books/v1/volumes"`
	OPDSSearchURL    string        `env:"BL_OPDS_SEARCH_URL"`
	OPDSUsername     string        `env:"BL_OPDS_USERNAME"`
	OPDSPassword     string        `env:"BL_OPDS_PASSWORD"`
	SearchMaxResults int           `env:"BL_SEARCH_MAX_RESULTS" envDefault:"20"`
	SearchTimeout    time.Duration `env:"BL_SEARCH_TIMEOUT" envDefault:"10s"`
	SearchRatePerSec float64       `env:"BL_SEARCH_RATE_PER_SEC" envDefault:"0"`
}

func (c *Config) Validate() error {
	switch c.StorageType {
	case StorageFile:
		if c.StoragePath == "" {
			return fmt.Errorf("BL_STORAGE_PATH is required when BL_STORAGE_TYPE is file")
		}
	case StorageSQLite:
		if c.SQLiteDSN == "" {
			return fmt.Errorf("BL_SQLITE_DSN is required when BL_STORAGE_TYPE is sqlite")
		}
	default:
		return fmt.Errorf("BL_STORAGE_TYPE must be %q or %q, got %q", StorageFile, StorageSQLite, c.StorageType)
	}

	if c.StorageKey == "" {
		return fmt.Errorf("BL_STORAGE_KEY cannot be empty")
	}

	if c.IDAllocator != AllocatorSequence && c.IDAllocator != AllocatorClock {
		return fmt.Errorf("BL_ID_ALLOCATOR must be %q or %q", AllocatorSequence, AllocatorClock)
	}

	switch c.SearchSourceType {
	case SourceGoogle:
		if c.GoogleBooksURL == "" {
			return fmt.Errorf("BL_GOOGLE_BOOKS_BASE_URL is required when BL_SEARCH_SOURCE_TYPE is google")
		}
	case SourceOPDS:
		if c.OPDSSearchURL == "" {
			return fmt.Errorf("BL_OPDS_SEARCH_URL is required when BL_SEARCH_SOURCE_TYPE is opds")
		}
	default:
		return fmt.Errorf("BL_SEARCH_SOURCE_TYPE must be %q or %q, got %q", SourceGoogle, SourceOPDS, c.SearchSourceType)
	}

	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("BL_PORT must be between 1 and 65535")
	}

	if c.SearchMaxResults < 1 {
		return fmt.Errorf("BL_SEARCH_MAX_RESULTS must be at least 1")
	}

	if c.SearchTimeout < 0 {
		return fmt.Errorf("BL_SEARCH_TIMEOUT cannot be negative")
	}

	if c.SearchRatePerSec < 0 {
		return fmt.Errorf("BL_SEARCH_RATE_PER_SEC cannot be negative")
	}

	return nil
}

// Load reads an optional .env file and the BL_* environment into a Config.
// The result is not validated; callers apply overrides first and then call Validate.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
