package source

import (
	"booklist/internal/core/domain/models"
	"booklist/internal/core/domain/ports"
	"booklist/internal/logger"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Ensure GoogleBooksAdapter implements BookSearcher
var _ ports.BookSearcher = (*GoogleBooksAdapter)(nil)

const maxResponseBytes = 10 << 20

const volumesSchemaJSON = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "items": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["volumeInfo"],
        "properties": {
          "volumeInfo": {
            "type": "object",
            "required": ["title"],
            "properties": {
              "title": {"type": "string"},
              "authors": {"type": "array", "items": {"type": "string"}},
              "imageLinks": {
                "type": "object",
                "properties": {"smallThumbnail": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  }
}`

var volumesSchema = func() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(volumesSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("volumes schema does not compile: %v", err))
	}
	return schema
}()

type volumesResponse struct {
	Items []struct {
		VolumeInfo struct {
			Title      string   `json:"title"`
			Authors    []string `json:"authors"`
			ImageLinks *struct {
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// BuildSearchURL builds the volumes query for the given filters. Empty filters
// are left out; maxResults is always appended.
func BuildSearchURL(baseURL, title, author string, maxResults int) string {
	var conditions []string
	if title != "" {
		conditions = append(conditions, "intitle: "+url.QueryEscape(title))
	}
	if author != "" {
		conditions = append(conditions, "inauthor: "+url.QueryEscape(author))
	}

	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}
	return baseURL + sep + "q=" + strings.Join(conditions, "+") + "&maxResults=" + strconv.Itoa(maxResults)
}

// ExtractBooks maps a volumes response body to book descriptions, keeping the
// order of the items. A body without an items array is malformed.
func ExtractBooks(body []byte) ([]models.BookDescription, error) {
	result, err := volumesSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, &models.MalformedResponseError{Reason: "body is not valid JSON", Err: err}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			reasons = append(reasons, e.String())
		}
		return nil, &models.MalformedResponseError{Reason: strings.Join(reasons, "; ")}
	}

	var resp volumesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &models.MalformedResponseError{Reason: "cannot decode volumes", Err: err}
	}

	books := make([]models.BookDescription, 0, len(resp.Items))
	for _, item := range resp.Items {
		info := item.VolumeInfo
		book := models.BookDescription{
			Title:   info.Title,
			Authors: strings.Join(info.Authors, ", "),
		}
		if info.ImageLinks != nil {
			book.Thumbnail = info.ImageLinks.SmallThumbnail
		}
		books = append(books, book)
	}
	return books, nil
}

type GoogleBooksAdapter struct {
	baseURL string
	client  *http.Client
}

// NewGoogleBooksAdapter creates a searcher for the Google Books volumes endpoint.
func NewGoogleBooksAdapter(baseURL string, client *http.Client) *GoogleBooksAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleBooksAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (a *GoogleBooksAdapter) Name() string { return "google" }

func (a *GoogleBooksAdapter) Search(ctx context.Context, query models.SearchQuery) ([]models.BookDescription, error) {
	target := BuildSearchURL(a.baseURL, query.Title, query.Author, query.MaxResults)
	logger.For(ctx).Debugf("Google Books search: %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &models.TransportError{URL: target, Err: err}
	}
	// The builder keeps the readable "intitle: x" form; encode it for the wire.
	req.URL.RawQuery = req.URL.Query().Encode()

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &models.TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &models.TransportError{URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &models.TransportError{URL: target, Err: err}
	}

	return ExtractBooks(body)
}
