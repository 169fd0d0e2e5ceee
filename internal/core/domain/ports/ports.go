package ports

import (
	"booklist/internal/core/domain/models"
	"context"
)

// BookSearcher performs one round trip against a book search backend.
type BookSearcher interface {
	Name() string
	Search(ctx context.Context, query models.SearchQuery) ([]models.BookDescription, error)
}

// KeyValueStore is the durable local storage the reading list is persisted to.
// Get reports ok=false when the key has never been written.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// IDAllocator hands out ids for new reading list entries. The returned id
// must not collide with any id in current.
type IDAllocator interface {
	NextID(current []models.BookToRead) int64
}
