package main

import (
	"booklist/internal/config"
	"booklist/internal/core/service"
	"booklist/internal/logger"
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Keys shared by persistent flags and the optional YAML config file.
const (
	keyLogLevel     = "log-level"
	keyStorageType  = "storage-type"
	keyStoragePath  = "storage-path"
	keySQLiteDSN    = "sqlite-dsn"
	keyStorageKey   = "storage-key"
	keySearchSource = "search-source"
	keyGoogleURL    = "google-books-url"
	keyOPDSURL      = "opds-search-url"
	keyMaxResults   = "max-results"
)

// cli holds what every subcommand needs once the root pre-run has resolved
// the configuration.
type cli struct {
	out io.Writer
	v   *viper.Viper
	cfg *config.Config
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, v: viper.New()}
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "booklist",
		Short: "Personal to-read book list",
		Long:  "Search Google Books or an OPDS catalog and keep a memo-annotated list of books to read.",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.resolveConfig(configFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML config file with the same keys as the flags")
	flags.String(keyLogLevel, "", "log level (debug, info, warn, error)")
	flags.String(keyStorageType, "", "storage backend: file or sqlite")
	flags.String(keyStoragePath, "", "path of the JSON file store")
	flags.String(keySQLiteDSN, "", "SQLite data source name")
	flags.String(keyStorageKey, "", "key holding the reading list")
	flags.String(keySearchSource, "", "search backend: google or opds")
	flags.String(keyGoogleURL, "", "Google Books volumes endpoint")
	flags.String(keyOPDSURL, "", "OPDS search URL template")
	flags.Int(keyMaxResults, 0, "default number of search results")
	_ = c.v.BindPFlags(flags)

	rootCmd.AddCommand(
		c.newServeCmd(),
		c.newListCmd(),
		c.newSearchCmd(),
		c.newAddCmd(),
		c.newMemoCmd(),
		c.newDeleteCmd(),
		c.newExportCmd(),
	)
	return rootCmd
}

// resolveConfig loads the environment configuration and lets the config file
// and explicitly set flags override it.
func (c *cli) resolveConfig(configFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if configFile != "" {
		c.v.SetConfigFile(configFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	overrideString(c.v, keyLogLevel, &cfg.LogLevel)
	overrideString(c.v, keyStorageType, &cfg.StorageType)
	overrideString(c.v, keyStoragePath, &cfg.StoragePath)
	overrideString(c.v, keySQLiteDSN, &cfg.SQLiteDSN)
	overrideString(c.v, keyStorageKey, &cfg.StorageKey)
	overrideString(c.v, keySearchSource, &cfg.SearchSourceType)
	overrideString(c.v, keyGoogleURL, &cfg.GoogleBooksURL)
	overrideString(c.v, keyOPDSURL, &cfg.OPDSSearchURL)
	if c.v.IsSet(keyMaxResults) && c.v.GetInt(keyMaxResults) > 0 {
		cfg.SearchMaxResults = c.v.GetInt(keyMaxResults)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	c.cfg = cfg
	return nil
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
}

// openReadingList opens the configured store and loads the list from it.
// The returned close function releases the store.
func (c *cli) openReadingList(ctx context.Context) (*service.ReadingListService, func(), error) {
	kv, err := service.CreateKeyValueStore(c.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	closeFn := func() {
		if err := kv.Close(); err != nil {
			logger.For(ctx).Warnf("Failed to close storage: %v", err)
		}
	}

	books := service.NewReadingListService(kv, c.cfg.StorageKey, service.CreateIDAllocator(c.cfg))
	if err := books.Load(ctx); err != nil {
		closeFn()
		return nil, nil, err
	}
	return books, closeFn, nil
}
