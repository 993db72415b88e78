package memorystorage

import (
	"context"
	"sync"

	"github.com/patric-chuzhbe/gobarber/internal/db/storage"
)

// MemoryStorage keeps items for the lifetime of the process only.
type MemoryStorage struct {
	mu     sync.RWMutex
	items  map[string]string
	closed bool
}

func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		items: map[string]string{},
	}, nil
}

func (theStorage *MemoryStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	if theStorage.closed {
		return "", false, storage.ErrClosed
	}
	value, found := theStorage.items[key]

	return value, found, nil
}

func (theStorage *MemoryStorage) SetItems(ctx context.Context, items map[string]string) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if theStorage.closed {
		return storage.ErrClosed
	}
	for key, value := range items {
		theStorage.items[key] = value
	}

	return nil
}

func (theStorage *MemoryStorage) RemoveItems(ctx context.Context, keys ...string) error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	if theStorage.closed {
		return storage.ErrClosed
	}
	for _, key := range keys {
		delete(theStorage.items, key)
	}

	return nil
}

// Snapshot returns a copy of all items. Tests use it to compare storage states.
func (theStorage *MemoryStorage) Snapshot() map[string]string {
	theStorage.mu.RLock()
	defer theStorage.mu.RUnlock()

	result := make(map[string]string, len(theStorage.items))
	for key, value := range theStorage.items {
		result[key] = value
	}

	return result
}

func (theStorage *MemoryStorage) Close() error {
	theStorage.mu.Lock()
	defer theStorage.mu.Unlock()

	theStorage.closed = true

	return nil
}
