package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyFilter is returned when a search is requested with neither a title nor an author.
	ErrEmptyFilter = errors.New("enter a title or an author to search")
	// ErrSearchPending is returned when a search is requested while another one is in flight.
	ErrSearchPending = errors.New("a search is already in progress")
	// ErrBookNotFound is returned when no reading list entry matches the given id.
	ErrBookNotFound = errors.New("book not found")
)

// TransportError reports a failed round trip to a search backend.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search request to %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("search request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a search response that is not JSON or lacks the expected shape.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed search response: %s: %v", e.Reason, e.Err)
	}
	return "malformed search response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// MalformedStorageError reports a persisted reading list that could not be decoded.
type MalformedStorageError struct {
	Key string
	Err error
}

func (e *MalformedStorageError) Error() string {
	return fmt.Sprintf("malformed reading list under key %q: %v", e.Key, e.Err)
}

func (e *MalformedStorageError) Unwrap() error { return e.Err }
