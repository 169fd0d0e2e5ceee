package storage

import (
	"booklist/internal/core/domain/ports"
	"booklist/internal/logger"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Ensure FileStore implements KeyValueStore
var _ ports.KeyValueStore = (*FileStore)(nil)

// FileStore implements ports.KeyValueStore using a local JSON file holding
// one object of key/value pairs.
type FileStore struct {
	filepath string
	mu       sync.RWMutex
	entries  map[string]string
}

// NewFileStore initializes a store from a file path. A missing or empty file
// starts an empty store; an unreadable document is moved aside to <path>.corrupt.
func NewFileStore(path string) (*FileStore, error) {
	store := &FileStore{
		filepath: path,
		entries:  make(map[string]string),
	}

	if err := store.load(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(s.filepath), 0755); err != nil {
		return err
	}

	f, err := os.Open(s.filepath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(&s.entries); err != nil {
		if err == io.EOF {
			return nil // Empty file is fine
		}
		logger.For(context.Background()).Warnf("storage file %s is unreadable, starting empty: %v", s.filepath, err)
		s.entries = make(map[string]string)
		if renameErr := os.Rename(s.filepath, s.filepath+".corrupt"); renameErr != nil {
			logger.For(context.Background()).Warnf("could not move %s aside: %v", s.filepath, renameErr)
		}
		return nil
	}

	if s.entries == nil {
		s.entries = make(map[string]string)
	}

	return nil
}

// Get returns the value stored under key.
func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

// Set stores value under key and writes the whole document to disk.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.entries[key]
	s.entries[key] = value
	if err := s.save(); err != nil {
		if had {
			s.entries[key] = prev
		} else {
			delete(s.entries, key)
		}
		return err
	}
	return nil
}

// Close is a no-op; every Set is already on disk.
func (s *FileStore) Close() error { return nil }

// save must be called with mu held.
func (s *FileStore) save() error {
	// Atomic write: write to temp file then rename
	tmpFile := s.filepath + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.entries); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmpFile, s.filepath)
}
