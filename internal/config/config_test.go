package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, StorageFile, cfg.StorageType)
	assert.Equal(t, "booklist.json", cfg.StoragePath)
	assert.Equal(t, "hooks-book", cfg.StorageKey)
	assert.Equal(t, AllocatorSequence, cfg.IDAllocator)
	assert.Equal(t, SourceGoogle, cfg.SearchSourceType)
	assert.Equal(t, "https://www.googleapis.com/books/v1/volumes", cfg.GoogleBooksURL)
	assert.Equal(t, 20, cfg.SearchMaxResults)
	assert.Equal(t, 10*time.Second, cfg.SearchTimeout)
	assert.Zero(t, cfg.SearchRatePerSec)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BL_STORAGE_TYPE", "sqlite")
	t.Setenv("BL_STORAGE_KEY", "my-books")
	t.Setenv("BL_SEARCH_TIMEOUT", "2s")
	t.Setenv("BL_SEARCH_RATE_PER_SEC", "1.5")
	t.Setenv("BL_SEARCH_MAX_RESULTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageSQLite, cfg.StorageType)
	assert.Equal(t, "my-books", cfg.StorageKey)
	assert.Equal(t, 2*time.Second, cfg.SearchTimeout)
	assert.Equal(t, 1.5, cfg.SearchRatePerSec)
	assert.Equal(t, 5, cfg.SearchMaxResults)
}

func TestLoadInvalidDuration(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BL_SEARCH_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		APIPort:          8000,
		LogLevel:         "info",
		StorageType:      StorageFile,
		StoragePath:      "books.json",
		StorageKey:       "hooks-book",
		IDAllocator:      AllocatorSequence,
		SearchSourceType: SourceGoogle,
		GoogleBooksURL:   "http://example.com/volumes",
		SearchMaxResults: 10,
		SearchTimeout:    time.Second,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown storage", func(c *Config) { c.StorageType = "redis" }, "BL_STORAGE_TYPE"},
		{"missing file path", func(c *Config) { c.StoragePath = "" }, "BL_STORAGE_PATH"},
		{"missing sqlite dsn", func(c *Config) { c.StorageType = StorageSQLite; c.SQLiteDSN = "" }, "BL_SQLITE_DSN"},
		{"empty key", func(c *Config) { c.StorageKey = "" }, "BL_STORAGE_KEY"},
		{"unknown allocator", func(c *Config) { c.IDAllocator = "uuid" }, "BL_ID_ALLOCATOR"},
		{"opds without url", func(c *Config) { c.SearchSourceType = SourceOPDS }, "BL_OPDS_SEARCH_URL"},
		{"unknown source", func(c *Config) { c.SearchSourceType = "amazon" }, "BL_SEARCH_SOURCE_TYPE"},
		{"bad port", func(c *Config) { c.APIPort = 70000 }, "BL_PORT"},
		{"zero max results", func(c *Config) { c.SearchMaxResults = 0 }, "BL_SEARCH_MAX_RESULTS"},
		{"negative rate", func(c *Config) { c.SearchRatePerSec = -1 }, "BL_SEARCH_RATE_PER_SEC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
