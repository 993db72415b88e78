// Package mockstorage provides a testify-based mock implementation
// of the client-local storage interface used by the session manager.
// It is used for unit testing storage failure paths that the real
// implementations cannot reproduce.
package mockstorage

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// StorageMock is a testify mock that implements storage.Storage.
type StorageMock struct {
	mock.Mock
}

// GetItem mocks reading a single key.
func (m *StorageMock) GetItem(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// SetItems mocks the atomic multi-key write.
func (m *StorageMock) SetItems(ctx context.Context, items map[string]string) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

// RemoveItems mocks the atomic multi-key removal.
func (m *StorageMock) RemoveItems(ctx context.Context, keys ...string) error {
	callArgs := []interface{}{ctx}
	for _, key := range keys {
		callArgs = append(callArgs, key)
	}
	args := m.Called(callArgs...)
	return args.Error(0)
}

// Close mocks closing the storage.
func (m *StorageMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
