// Package storage declares the client-local key/value storage used to persist
// the session between runs.
package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a storage that has been closed.
var ErrClosed = errors.New("storage is closed")

// Storage is a small key/value store local to the client device.
//
// SetItems and RemoveItems apply all keys as a single write: a reader never
// observes some of the keys updated and others not.
type Storage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)

	SetItems(ctx context.Context, items map[string]string) error

	RemoveItems(ctx context.Context, keys ...string) error

	Close() error
}
