package source

import (
	"booklist/internal/core/domain/models"
	"booklist/internal/core/domain/ports"
	"booklist/internal/logger"
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed/atom"
	"golang.org/x/text/unicode/norm"
)

// Ensure OPDSAdapter implements BookSearcher
var _ ports.BookSearcher = (*OPDSAdapter)(nil)

// searchTermsPlaceholder is the OpenSearch template parameter OPDS catalogs advertise.
const searchTermsPlaceholder = "{searchTerms}"

const (
	relNext      = "next"
	relImage     = "http://opds-spec.org/image"
	relThumbnail = "http://opds-spec.org/image/thumbnail"
)

// Atom text constructs may carry HTML; only the plain text is kept.
var stripTags = bluemonday.StripTagsPolicy()

func plainText(s string) string {
	s = html.UnescapeString(stripTags.Sanitize(s))
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

type OPDSAdapter struct {
	searchURL string
	username  string
	password  string
	client    *http.Client
}

// NewOPDSAdapter creates a searcher for an OPDS catalog. searchURL is either an
// OpenSearch template containing {searchTerms} or a plain URL that receives a q parameter.
func NewOPDSAdapter(searchURL, username, password string, client *http.Client) *OPDSAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &OPDSAdapter{
		searchURL: searchURL,
		username:  username,
		password:  password,
		client:    client,
	}
}

func (a *OPDSAdapter) Name() string { return "opds" }

func (a *OPDSAdapter) buildURL(query models.SearchQuery) (string, error) {
	if a.searchURL == "" {
		return "", fmt.Errorf("OPDS search URL is not configured")
	}

	var terms []string
	for _, t := range []string{query.Title, query.Author} {
		if t != "" {
			terms = append(terms, t)
		}
	}
	joined := strings.Join(terms, " ")

	if strings.Contains(a.searchURL, searchTermsPlaceholder) {
		escaped := strings.ReplaceAll(url.QueryEscape(joined), "+", "%20")
		return strings.ReplaceAll(a.searchURL, searchTermsPlaceholder, escaped), nil
	}

	u, err := url.Parse(a.searchURL)
	if err != nil {
		return "", fmt.Errorf("invalid OPDS search URL: %w", err)
	}
	q := u.Query()
	q.Set("q", joined)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Search follows the feed's next links until maxResults entries are collected.
func (a *OPDSAdapter) Search(ctx context.Context, query models.SearchQuery) ([]models.BookDescription, error) {
	target, err := a.buildURL(query)
	if err != nil {
		return nil, err
	}

	const maxPages = 10

	var books []models.BookDescription
	visited := make(map[string]bool)

	for page := 0; target != "" && page < maxPages; page++ {
		if visited[target] {
			break
		}
		visited[target] = true

		found, next, err := a.fetchPage(ctx, target)
		if err != nil {
			if page == 0 {
				return nil, err
			}
			logger.For(ctx).Warnf("OPDS: stopping pagination at %s: %v", target, err)
			break
		}
		books = append(books, found...)

		if query.MaxResults > 0 && len(books) >= query.MaxResults {
			books = books[:query.MaxResults]
			break
		}
		target = next
	}

	if books == nil {
		books = []models.BookDescription{}
	}
	return books, nil
}

func (a *OPDSAdapter) fetchPage(ctx context.Context, targetURL string) ([]models.BookDescription, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, "", &models.TransportError{URL: targetURL, Err: err}
	}

	if a.username != "" {
		req.SetBasicAuth(a.username, a.password)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, "", &models.TransportError{URL: targetURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", &models.TransportError{URL: targetURL, StatusCode: resp.StatusCode}
	}

	fp := &atom.Parser{}
	feed, err := fp.Parse(resp.Body)
	if err != nil {
		return nil, "", &models.MalformedResponseError{Reason: "cannot parse OPDS feed as Atom", Err: err}
	}

	baseURL, _ := url.Parse(targetURL)
	resolve := func(href string) string {
		ref, err := url.Parse(href)
		if err != nil {
			return ""
		}
		return baseURL.ResolveReference(ref).String()
	}

	books := make([]models.BookDescription, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		authors := make([]string, 0, len(entry.Authors))
		for _, p := range entry.Authors {
			if p == nil {
				continue
			}
			if name := plainText(p.Name); name != "" {
				authors = append(authors, name)
			}
		}

		book := models.BookDescription{
			Title:   plainText(entry.Title),
			Authors: strings.Join(authors, ", "),
		}

		for _, link := range entry.Links {
			if link.Rel == relThumbnail || (book.Thumbnail == "" && link.Rel == relImage) {
				book.Thumbnail = resolve(link.Href)
			}
		}

		books = append(books, book)
	}

	next := ""
	for _, link := range feed.Links {
		if link.Rel == relNext {
			next = resolve(link.Href)
			break
		}
	}

	return books, next, nil
}
