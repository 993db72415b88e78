// Package jsondb is a Storage kept in a JSON file. The whole key/value map is
// cached in memory and every write replaces the file atomically.
package jsondb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/gobarber/internal/db/storage"
	"github.com/patric-chuzhbe/gobarber/internal/logger"
)

type JSONDB struct {
	mu       sync.RWMutex
	fileName string
	Cache    CacheStruct
	closed   bool
}

type CacheStruct struct {
	Items map[string]string `json:"items"`
}

func writeToJSONFile(fileName string, cache interface{}) error {
	jsonData, err := json.MarshalIndent(cache, "", "\t")
	if err != nil {
		return fmt.Errorf("error marshaling JSON: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fileName), filepath.Base(fileName)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(jsonData); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing to file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("error syncing file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}

	if err := os.Chmod(tmpName, 0600); err != nil {
		return fmt.Errorf("error setting file mode: %w", err)
	}

	if err := os.Rename(tmpName, fileName); err != nil {
		return fmt.Errorf("error replacing file: %w", err)
	}

	return nil
}

func parseJSONFile(fileName string, cacheMap *CacheStruct) error {
	file, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	err = decoder.Decode(cacheMap)
	if err != nil {
		return err
	}

	return nil
}

// New opens fileName, creating it (and its directory) when it does not exist.
// A file that cannot be decoded is replaced by an empty document.
func New(fileName string) (*JSONDB, error) {
	db := JSONDB{
		fileName: fileName,
		Cache:    CacheStruct{},
	}

	err := parseJSONFile(db.fileName, &db.Cache)
	switch {
	case err == nil:
	case os.IsNotExist(err):
		if err := os.MkdirAll(filepath.Dir(fileName), 0700); err != nil {
			return nil, err
		}
		if err := db.reset(); err != nil {
			return nil, err
		}
	case isDecodeError(err):
		logger.Log.Infoln("discarding unreadable session file", zap.String("file", fileName), zap.Error(err))
		if err := db.reset(); err != nil {
			return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `db.reset()` calling: %w", err)
		}
	default:
		return nil, fmt.Errorf("in internal/db/jsondb/jsondb.go/New(): error while `parseJSONFile()` calling: %w", err)
	}
	if db.Cache.Items == nil {
		db.Cache.Items = map[string]string{}
	}

	return &db, nil
}

func (db *JSONDB) reset() error {
	db.Cache = CacheStruct{Items: map[string]string{}}

	return writeToJSONFile(db.fileName, db.Cache)
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr)
}

func (db *JSONDB) GetItem(ctx context.Context, key string) (string, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return "", false, storage.ErrClosed
	}
	value, found := db.Cache.Items[key]

	return value, found, nil
}

// SetItems stores every item and flushes the file once. On a failed flush the
// cache is rolled back so memory and disk stay identical.
func (db *JSONDB) SetItems(ctx context.Context, items map[string]string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return storage.ErrClosed
	}

	next := make(map[string]string, len(db.Cache.Items)+len(items))
	for key, value := range db.Cache.Items {
		next[key] = value
	}
	for key, value := range items {
		next[key] = value
	}

	return db.flush(next)
}

func (db *JSONDB) RemoveItems(ctx context.Context, keys ...string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return storage.ErrClosed
	}

	next := make(map[string]string, len(db.Cache.Items))
	for key, value := range db.Cache.Items {
		next[key] = value
	}
	changed := false
	for _, key := range keys {
		if _, found := next[key]; found {
			delete(next, key)
			changed = true
		}
	}
	if !changed {
		return nil
	}

	return db.flush(next)
}

func (db *JSONDB) flush(items map[string]string) error {
	if err := writeToJSONFile(db.fileName, CacheStruct{Items: items}); err != nil {
		return err
	}
	db.Cache.Items = items

	return nil
}

func (db *JSONDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.closed = true

	return nil
}
