package storage

import (
	"booklist/internal/core/domain/ports"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

// Ensure BunStore implements KeyValueStore
var _ ports.KeyValueStore = (*BunStore)(nil)

type kvEntry struct {
	bun.BaseModel `bun:"table:kv_entries,alias:kv"`

	Key       string    `bun:"storage_key,pk"`
	Value     string    `bun:",notnull"`
	UpdatedAt time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// BunStore implements ports.KeyValueStore on a SQL table through bun.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(db *sql.DB, dialect schema.Dialect) (*BunStore, error) {
	bunDB := bun.NewDB(db, dialect)

	ctx := context.Background()
	if _, err := bunDB.NewCreateTable().Model((*kvEntry)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create kv_entries table: %w", err)
	}

	return &BunStore{db: bunDB}, nil
}

// OpenSQLiteStore opens the SQLite database at dsn and prepares the kv table.
func OpenSQLiteStore(dsn string) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	store, err := NewBunStore(sqldb, sqlitedialect.New())
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return store, nil
}

func (s *BunStore) Get(ctx context.Context, key string) (string, bool, error) {
	entry := new(kvEntry)
	if err := s.db.NewSelect().Model(entry).Where("storage_key = ?", key).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *BunStore) Set(ctx context.Context, key, value string) error {
	entry := &kvEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.db.NewInsert().Model(entry).
		On("CONFLICT (storage_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}
