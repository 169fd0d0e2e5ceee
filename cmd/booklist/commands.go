package main

import (
	"booklist/internal/adapters/httpapi"
	"booklist/internal/core/domain/models"
	"booklist/internal/core/service"
	"booklist/internal/logger"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the reading list and search over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

// serve runs the HTTP API until ctx is cancelled, then drains connections.
func (c *cli) serve(ctx context.Context) error {
	books, closeStore, err := c.openReadingList(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	search := service.CreateSearchDataSource(c.cfg)
	api := httpapi.NewServer(books, search)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.cfg.APIPort),
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.For(ctx).Infof("Starting booklist API on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.For(ctx).Info("Shutting down booklist API")
		search.Cancel()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown failed: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (c *cli) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the reading list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			books, closeStore, err := c.openReadingList(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			list := books.Books()
			if len(list) == 0 {
				fmt.Fprintln(c.out, "Reading list is empty.")
				return nil
			}
			fmt.Fprintf(c.out, "%-14s | %-30s | %-25s | %s\n", "ID", "Title", "Authors", "Memo")
			fmt.Fprintln(c.out, strings.Repeat("-", 90))
			for _, b := range list {
				fmt.Fprintf(c.out, "%-14d | %-30s | %-25s | %s\n", b.ID, b.Title, b.Authors, b.Memo)
			}
			return nil
		},
	}
}

type searchFlags struct {
	title  string
	author string
	max    int
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "title filter")
	cmd.Flags().StringVarP(&f.author, "author", "a", "", "author filter")
	cmd.Flags().IntVarP(&f.max, "max", "n", 0, "maximum number of results")
}

// runSearch performs one search. A failed round trip is reported as a warning
// and yields no results; only an empty filter is an error.
func (c *cli) runSearch(ctx context.Context, f searchFlags) ([]models.BookDescription, error) {
	search := service.CreateSearchDataSource(c.cfg)
	search.SetFilters(f.title, f.author, f.max)

	outcome, err := search.Search(ctx)
	if err != nil {
		if errors.Is(err, models.ErrEmptyFilter) {
			return nil, fmt.Errorf("--title or --author is required")
		}
		return nil, err
	}
	if outcome.Err != nil {
		fmt.Fprintf(c.out, "Warning: search failed: %v\n", outcome.Err)
		return nil, nil
	}
	return outcome.Books, nil
}

func (c *cli) printResults(books []models.BookDescription) {
	if len(books) == 0 {
		fmt.Fprintln(c.out, "No books found.")
		return
	}
	for i, b := range books {
		fmt.Fprintf(c.out, "%3d. %s\n     %s\n", i+1, b.Title, b.Authors)
		if b.Thumbnail != "" {
			fmt.Fprintf(c.out, "     %s\n", b.Thumbnail)
		}
	}
}

func (c *cli) newSearchCmd() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for books by title and/or author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			books, err := c.runSearch(cmd.Context(), f)
			if err != nil {
				return err
			}
			c.printResults(books)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (c *cli) newAddCmd() *cobra.Command {
	var f searchFlags
	var pick int
	var direct bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Search and add one of the results to the reading list",
		Long:  "Search with the given filters and add the result at position --pick. With --direct the filters are added as-is without searching.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var desc models.BookDescription
			if direct {
				if f.title == "" {
					return fmt.Errorf("--title is required with --direct")
				}
				desc = models.BookDescription{Title: f.title, Authors: f.author}
			} else {
				found, err := c.runSearch(ctx, f)
				if err != nil {
					return err
				}
				if len(found) == 0 {
					return fmt.Errorf("no books found")
				}
				if pick < 1 || pick > len(found) {
					c.printResults(found)
					return fmt.Errorf("--pick must be between 1 and %d", len(found))
				}
				desc = found[pick-1]
			}

			books, closeStore, err := c.openReadingList(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			book, err := books.Add(ctx, desc)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Added %d: %s (%s)\n", book.ID, book.Title, book.Authors)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&pick, "pick", "p", 1, "1-based position of the search result to add")
	cmd.Flags().BoolVar(&direct, "direct", false, "add the title and author without searching")
	return cmd
}

func (c *cli) newMemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memo [id] [text]",
		Short: "Replace the memo of a book",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			memo := strings.Join(args[1:], " ")

			books, closeStore, err := c.openReadingList(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			if err := books.UpdateMemo(cmd.Context(), id, memo); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Updated memo of %d\n", id)
			return nil
		},
	}
}

func (c *cli) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Remove a book from the reading list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			books, closeStore, err := c.openReadingList(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			if err := books.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted %d\n", id)
			return nil
		},
	}
}

func (c *cli) newExportCmd() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the reading list as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			books, closeStore, err := c.openReadingList(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			doc := models.ReadingListDocument{
				Version:   models.ReadingListVersion,
				Books:     books.Books(),
				UpdatedAt: time.Now().UTC(),
			}

			var data []byte
			switch format {
			case "json":
				data, err = json.MarshalIndent(doc, "", "  ")
				data = append(data, '\n')
			case "yaml", "yml":
				data, err = yaml.Marshal(doc)
			default:
				return fmt.Errorf("unknown export format %q (json or yaml)", format)
			}
			if err != nil {
				return fmt.Errorf("failed to encode reading list: %w", err)
			}

			if output == "" {
				_, err = c.out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(c.out, "Exported %d books to %s\n", len(doc.Books), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid book id %q", raw)
	}
	return id, nil
}
