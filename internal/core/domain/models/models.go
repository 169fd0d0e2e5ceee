package models

import "time"

// BookDescription is a search result that is not yet part of the reading list.
type BookDescription struct {
	Title     string `json:"title" yaml:"title"`
	Authors   string `json:"authors" yaml:"authors"`
	Thumbnail string `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
}

// BookToRead is a persisted reading list entry.
type BookToRead struct {
	ID      int64  `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Authors string `json:"authors" yaml:"authors"`
	Memo    string `json:"memo" yaml:"memo"`
}

// SearchQuery carries the filter values of one search request.
type SearchQuery struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	MaxResults int    `json:"maxResults"`
}

// IsEmpty reports whether neither filter is set.
func (q SearchQuery) IsEmpty() bool {
	return q.Title == "" && q.Author == ""
}

// ReadingListVersion is the schema version written with every persisted list.
const ReadingListVersion = 1

// ReadingListDocument is the persisted form of the reading list.
type ReadingListDocument struct {
	Version   int          `json:"version" yaml:"version"`
	Books     []BookToRead `json:"books" yaml:"books"`
	UpdatedAt time.Time    `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}
