package service

import (
	"booklist/internal/core/domain/models"
	"booklist/internal/core/domain/ports"
	"booklist/internal/logger"
	"booklist/internal/metrics"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ReadingListService owns the reading list and keeps it in step with the
// key/value store. Every mutation writes the full list before the in-memory
// copy is replaced, so a failed write leaves both sides unchanged.
type ReadingListService struct {
	kv  ports.KeyValueStore
	key string
	ids ports.IDAllocator
	now func() time.Time

	mu    sync.RWMutex
	books []models.BookToRead
}

func NewReadingListService(kv ports.KeyValueStore, key string, ids ports.IDAllocator) *ReadingListService {
	if ids == nil {
		ids = SequenceAllocator{}
	}
	return &ReadingListService{
		kv:    kv,
		key:   key,
		ids:   ids,
		now:   time.Now,
		books: []models.BookToRead{},
	}
}

// Load reads the persisted list once. Missing or malformed data leaves the
// list empty; only storage read failures are returned.
func (s *ReadingListService) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("failed to read reading list: %w", err)
	}

	books := []models.BookToRead{}
	if ok {
		decoded, err := decodeReadingList(raw)
		if err != nil {
			merr := &models.MalformedStorageError{Key: s.key, Err: err}
			logger.For(ctx).Warnf("%v; starting with an empty list", merr)
		} else {
			books = decoded
		}
	}

	s.mu.Lock()
	s.books = books
	s.mu.Unlock()

	metrics.ReadingListSize.Set(float64(len(books)))
	logger.For(ctx).Infof("Loaded %d books from %q", len(books), s.key)
	return nil
}

// Books returns a copy of the list in display order.
func (s *ReadingListService) Books() []models.BookToRead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.BookToRead{}, s.books...)
}

// Get returns the entry with the given id.
func (s *ReadingListService) Get(id int64) (models.BookToRead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.books {
		if b.ID == id {
			return b, nil
		}
	}
	return models.BookToRead{}, models.ErrBookNotFound
}

// Add appends a new entry built from a search result, with a fresh id and an empty memo.
func (s *ReadingListService) Add(ctx context.Context, desc models.BookDescription) (models.BookToRead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book := models.BookToRead{
		ID:      s.ids.NextID(s.books),
		Title:   desc.Title,
		Authors: desc.Authors,
		Memo:    "",
	}

	next := make([]models.BookToRead, 0, len(s.books)+1)
	next = append(next, s.books...)
	next = append(next, book)

	if err := s.commit(ctx, next); err != nil {
		return models.BookToRead{}, err
	}

	logger.For(ctx).Infof("Added book %d: %s", book.ID, book.Title)
	return book, nil
}

// UpdateMemo replaces the memo of the entry with the given id.
func (s *ReadingListService) UpdateMemo(ctx context.Context, id int64, memo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("update memo of %d: %w", id, models.ErrBookNotFound)
	}

	next := append([]models.BookToRead(nil), s.books...)
	next[idx].Memo = memo

	return s.commit(ctx, next)
}

// Delete removes the entry with the given id. Unknown ids are ignored.
func (s *ReadingListService) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		logger.For(ctx).Debugf("Delete of unknown book %d ignored", id)
		return nil
	}

	next := make([]models.BookToRead, 0, len(s.books)-1)
	next = append(next, s.books[:idx]...)
	next = append(next, s.books[idx+1:]...)

	if err := s.commit(ctx, next); err != nil {
		return err
	}

	logger.For(ctx).Infof("Deleted book %d", id)
	return nil
}

// indexOf must be called with mu held.
func (s *ReadingListService) indexOf(id int64) int {
	for i, b := range s.books {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// commit must be called with mu held for writing.
func (s *ReadingListService) commit(ctx context.Context, next []models.BookToRead) error {
	raw, err := encodeReadingList(next, s.now())
	if err != nil {
		return fmt.Errorf("failed to encode reading list: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("failed to persist reading list: %w", err)
	}
	s.books = next
	metrics.ReadingListSize.Set(float64(len(next)))
	return nil
}

func encodeReadingList(books []models.BookToRead, now time.Time) (string, error) {
	doc := models.ReadingListDocument{
		Version:   models.ReadingListVersion,
		Books:     books,
		UpdatedAt: now.UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeReadingList accepts the versioned document and the legacy bare array.
func decodeReadingList(raw string) ([]models.BookToRead, error) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 {
		return []models.BookToRead{}, nil
	}

	var books []models.BookToRead
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &books); err != nil {
			return nil, err
		}
	} else {
		var doc models.ReadingListDocument
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
		if doc.Version < 1 || doc.Version > models.ReadingListVersion {
			return nil, fmt.Errorf("unsupported reading list version %d", doc.Version)
		}
		books = doc.Books
	}

	seen := make(map[int64]bool, len(books))
	for _, b := range books {
		if seen[b.ID] {
			return nil, fmt.Errorf("duplicate book id %d", b.ID)
		}
		seen[b.ID] = true
	}

	if books == nil {
		books = []models.BookToRead{}
	}
	return books, nil
}
