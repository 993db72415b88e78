package memorystorage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/gobarber/internal/db/storage"
)

func Test(t *testing.T) {
	t.Run("The base memorystorage package test", func(t *testing.T) {
		theStorage, err := New()
		require.NoError(t, err, "The memorystorage.New() should not return error")

		var _ storage.Storage = theStorage

		err = theStorage.SetItems(context.Background(), map[string]string{"token": "t", "user": "u"})
		assert.NoError(t, err, "The `theStorage.SetItems()` should not return error")

		value, found, err := theStorage.GetItem(context.Background(), "token")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "t", value)

		assert.Equal(t, map[string]string{"token": "t", "user": "u"}, theStorage.Snapshot())

		err = theStorage.RemoveItems(context.Background(), "token", "user")
		assert.NoError(t, err)
		assert.Empty(t, theStorage.Snapshot())

		err = theStorage.Close()
		assert.NoError(t, err, "The memorystorage.Close() should not return error")

		_, _, err = theStorage.GetItem(context.Background(), "token")
		assert.ErrorIs(t, err, storage.ErrClosed)
	})
}
