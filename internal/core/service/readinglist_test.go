package service_test

import (
	"booklist/internal/adapters/storage"
	"booklist/internal/core/domain/models"
	"booklist/internal/core/service"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "hooks-book"

// memoryKV implements ports.KeyValueStore in memory.
type memoryKV struct {
	values map[string]string
	writes int
	errGet error
	errSet error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string]string)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	if m.errGet != nil {
		return "", false, m.errGet
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value string) error {
	if m.errSet != nil {
		return m.errSet
	}
	m.writes++
	m.values[key] = value
	return nil
}

func (m *memoryKV) Close() error { return nil }

func newLoadedService(t *testing.T, kv *memoryKV) *service.ReadingListService {
	t.Helper()
	svc := service.NewReadingListService(kv, testKey, service.SequenceAllocator{})
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func seed(t *testing.T, svc *service.ReadingListService, titles ...string) []models.BookToRead {
	t.Helper()
	var out []models.BookToRead
	for _, title := range titles {
		b, err := svc.Add(context.Background(), models.BookDescription{Title: title, Authors: "Author"})
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func persisted(t *testing.T, kv *memoryKV) models.ReadingListDocument {
	t.Helper()
	var doc models.ReadingListDocument
	require.NoError(t, json.Unmarshal([]byte(kv.values[testKey]), &doc))
	return doc
}

func TestReadingList_AddAppendsWithEmptyMemo(t *testing.T) {
	kv := newMemoryKV()
	svc := newLoadedService(t, kv)
	seed(t, svc, "One", "Two")

	before := svc.Books()
	book, err := svc.Add(context.Background(), models.BookDescription{Title: "Dune", Authors: "Frank Herbert", Thumbnail: "http://img"})
	require.NoError(t, err)

	after := svc.Books()
	assert.Len(t, after, len(before)+1)
	assert.Equal(t, "", book.Memo)
	assert.Equal(t, "Dune", book.Title)
	assert.Equal(t, "Frank Herbert", book.Authors)
	assert.Equal(t, book, after[len(after)-1])
	assert.Equal(t, before, after[:len(before)])

	doc := persisted(t, kv)
	assert.Equal(t, models.ReadingListVersion, doc.Version)
	assert.Equal(t, after, doc.Books)
}

func TestReadingList_IDsAreUnique(t *testing.T) {
	svc := newLoadedService(t, newMemoryKV())
	books := seed(t, svc, "A", "B", "C")
	require.NoError(t, svc.Delete(context.Background(), books[2].ID))
	d, err := svc.Add(context.Background(), models.BookDescription{Title: "D"})
	require.NoError(t, err)

	seen := map[int64]bool{}
	for _, b := range svc.Books() {
		assert.False(t, seen[b.ID], "duplicate id %d", b.ID)
		seen[b.ID] = true
	}
	assert.True(t, seen[d.ID])
}

func TestReadingList_UpdateMemoOnlyTouchesTarget(t *testing.T) {
	kv := newMemoryKV()
	svc := newLoadedService(t, kv)
	books := seed(t, svc, "A", "B", "C")

	require.NoError(t, svc.UpdateMemo(context.Background(), books[1].ID, "read next"))
	require.NoError(t, svc.UpdateMemo(context.Background(), books[1].ID, "replaced"))

	after := svc.Books()
	assert.Equal(t, books[0], after[0])
	assert.Equal(t, books[2], after[2])
	assert.Equal(t, "replaced", after[1].Memo)
	assert.Equal(t, books[1].Title, after[1].Title)
	assert.Equal(t, after, persisted(t, kv).Books)
}

func TestReadingList_UpdateMemoUnknownID(t *testing.T) {
	kv := newMemoryKV()
	svc := newLoadedService(t, kv)
	seed(t, svc, "A")
	writes := kv.writes

	err := svc.UpdateMemo(context.Background(), 999, "memo")
	assert.ErrorIs(t, err, models.ErrBookNotFound)
	assert.Equal(t, writes, kv.writes)
}

func TestReadingList_DeleteUnknownIDLeavesListUnchanged(t *testing.T) {
	svc := newLoadedService(t, newMemoryKV())
	seed(t, svc, "A", "B")
	before := svc.Books()

	require.NoError(t, svc.Delete(context.Background(), 12345))
	assert.Equal(t, before, svc.Books())
}

func TestReadingList_DeleteRemovesEntry(t *testing.T) {
	kv := newMemoryKV()
	svc := newLoadedService(t, kv)
	books := seed(t, svc, "A", "B", "C")

	require.NoError(t, svc.Delete(context.Background(), books[1].ID))

	after := svc.Books()
	assert.Equal(t, []models.BookToRead{books[0], books[2]}, after)
	assert.Equal(t, after, persisted(t, kv).Books)

	_, err := svc.Get(books[1].ID)
	assert.ErrorIs(t, err, models.ErrBookNotFound)
}

func TestReadingList_FailedWriteKeepsMemoryUnchanged(t *testing.T) {
	kv := newMemoryKV()
	svc := newLoadedService(t, kv)
	books := seed(t, svc, "A")
	kv.errSet = errors.New("disk full")

	_, err := svc.Add(context.Background(), models.BookDescription{Title: "B"})
	assert.Error(t, err)
	assert.Error(t, svc.UpdateMemo(context.Background(), books[0].ID, "x"))
	assert.Error(t, svc.Delete(context.Background(), books[0].ID))

	assert.Equal(t, books, svc.Books())
}

func TestReadingList_LoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.json")
	kv, err := storage.NewFileStore(path)
	require.NoError(t, err)

	svc := service.NewReadingListService(kv, testKey, nil)
	require.NoError(t, svc.Load(context.Background()))
	books := seed(t, svc, "A", "B", "C")
	require.NoError(t, svc.UpdateMemo(context.Background(), books[2].ID, "memo c"))
	want := svc.Books()

	reopened, err := storage.NewFileStore(path)
	require.NoError(t, err)
	reloaded := service.NewReadingListService(reopened, testKey, nil)
	require.NoError(t, reloaded.Load(context.Background()))

	assert.Equal(t, want, reloaded.Books())
}

func TestReadingList_LoadFailsSoft(t *testing.T) {
	cases := map[string]string{
		"not json":       "{{{",
		"future version": `{"version":99,"books":[]}`,
		"wrong shape":    `{"version":1,"books":"nope"}`,
		"duplicate ids":  `[{"id":1,"title":"A"},{"id":1,"title":"B"}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			kv := newMemoryKV()
			kv.values[testKey] = raw

			svc := newLoadedService(t, kv)
			assert.Empty(t, svc.Books())
			assert.NotNil(t, svc.Books())
		})
	}
}

func TestReadingList_LoadEmptyStorage(t *testing.T) {
	svc := newLoadedService(t, newMemoryKV())
	assert.Empty(t, svc.Books())
}

func TestReadingList_LoadLegacyArray(t *testing.T) {
	kv := newMemoryKV()
	kv.values[testKey] = `[{"id":1,"title":"はじめてのReact","authors":"ダミー","memo":""},{"id":2,"title":"React Hooks入門","authors":"ダミー","memo":"next"}]`

	svc := newLoadedService(t, kv)
	books := svc.Books()
	require.Len(t, books, 2)
	assert.Equal(t, "next", books[1].Memo)

	added, err := svc.Add(context.Background(), models.BookDescription{Title: "New"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), added.ID)
	assert.Equal(t, models.ReadingListVersion, persisted(t, kv).Version)
}

func TestReadingList_LoadReadError(t *testing.T) {
	kv := newMemoryKV()
	kv.errGet = errors.New("io error")

	svc := service.NewReadingListService(kv, testKey, nil)
	assert.Error(t, svc.Load(context.Background()))
}

func TestClockAllocator(t *testing.T) {
	fixed := time.UnixMilli(1_000)
	alloc := &service.ClockAllocator{Now: func() time.Time { return fixed }}

	assert.Equal(t, int64(1_000), alloc.NextID(nil))
	assert.Equal(t, int64(5_001), alloc.NextID([]models.BookToRead{{ID: 5_000}}))
	assert.Equal(t, int64(1_001), alloc.NextID([]models.BookToRead{{ID: 1_000}}))
}

func TestSequenceAllocator(t *testing.T) {
	alloc := service.SequenceAllocator{}
	assert.Equal(t, int64(1), alloc.NextID(nil))
	assert.Equal(t, int64(8), alloc.NextID([]models.BookToRead{{ID: 7}, {ID: 2}}))
}
