package service

import (
	"booklist/internal/core/domain/models"
	"booklist/internal/core/domain/ports"
	"booklist/internal/logger"
	"booklist/internal/metrics"
	"context"
	"sync"
	"time"
)

// Outcome is the settled result of one search request. Err carries the
// failure reason; Stale is set when a newer request or Cancel superseded it,
// in which case the results of the data source were left alone.
type Outcome struct {
	Query      models.SearchQuery
	Books      []models.BookDescription
	Err        error
	Generation uint64
	Stale      bool
}

// SearchDataSource bridges filter values to a BookSearcher. Filters only take
// effect when a search is requested, at most one search is pending at a time,
// and only the latest request may replace the results.
type SearchDataSource struct {
	searcher ports.BookSearcher
	timeout  time.Duration

	mu         sync.Mutex
	query      models.SearchQuery
	results    []models.BookDescription
	pending    bool
	generation uint64
	cancel     context.CancelFunc
}

func NewSearchDataSource(searcher ports.BookSearcher, maxResults int, timeout time.Duration) *SearchDataSource {
	return &SearchDataSource{
		searcher: searcher,
		timeout:  timeout,
		query:    models.SearchQuery{MaxResults: maxResults},
		results:  []models.BookDescription{},
	}
}

// SetFilters stores new filter values without triggering a search.
// A non-positive maxResults keeps the current cap.
func (d *SearchDataSource) SetFilters(title, author string, maxResults int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.query.Title = title
	d.query.Author = author
	if maxResults > 0 {
		d.query.MaxResults = maxResults
	}
}

func (d *SearchDataSource) Filters() models.SearchQuery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.query
}

// Results returns a copy of the latest successful search results.
func (d *SearchDataSource) Results() []models.BookDescription {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.BookDescription{}, d.results...)
}

func (d *SearchDataSource) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// RequestSearch starts a search with the current filters. It fails with
// models.ErrEmptyFilter when both filters are empty and with
// models.ErrSearchPending while another search is in flight; neither case
// issues a request. The channel receives exactly one Outcome and is closed.
func (d *SearchDataSource) RequestSearch(ctx context.Context) (<-chan Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	query := d.query
	if query.IsEmpty() {
		return nil, models.ErrEmptyFilter
	}
	if d.pending {
		return nil, models.ErrSearchPending
	}

	d.generation++
	gen := d.generation
	d.pending = true

	var runCtx context.Context
	var cancel context.CancelFunc
	if d.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	d.cancel = cancel

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		defer cancel()

		books, err := d.searcher.Search(runCtx, query)
		out <- d.settle(runCtx, gen, query, books, err)
	}()

	return out, nil
}

// Search runs RequestSearch and waits for its outcome.
func (d *SearchDataSource) Search(ctx context.Context) (Outcome, error) {
	ch, err := d.RequestSearch(ctx)
	if err != nil {
		return Outcome{}, err
	}
	return <-ch, nil
}

// Cancel abandons the pending search, if any. Its outcome arrives as stale.
func (d *SearchDataSource) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.pending {
		return
	}
	d.generation++
	d.pending = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

func (d *SearchDataSource) settle(ctx context.Context, gen uint64, query models.SearchQuery, books []models.BookDescription, err error) Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	log := logger.For(ctx).WithField("source", d.searcher.Name())
	outcome := Outcome{Query: query, Books: books, Err: err, Generation: gen}

	if gen != d.generation {
		outcome.Stale = true
		metrics.SearchesTotal.WithLabelValues(d.searcher.Name(), "stale").Inc()
		log.Debugf("Dropping stale search result (generation %d, current %d)", gen, d.generation)
		return outcome
	}

	d.pending = false
	d.cancel = nil

	if err != nil {
		metrics.SearchesTotal.WithLabelValues(d.searcher.Name(), "failure").Inc()
		log.Warnf("Search for title=%q author=%q failed: %v", query.Title, query.Author, err)
		outcome.Books = nil
		return outcome
	}

	if books == nil {
		books = []models.BookDescription{}
	}
	d.results = books
	outcome.Books = append([]models.BookDescription{}, books...)
	metrics.SearchesTotal.WithLabelValues(d.searcher.Name(), "success").Inc()
	log.Infof("Search for title=%q author=%q returned %d books", query.Title, query.Author, len(books))
	return outcome
}
