package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
)

const fileName = "storage.json"

// FileStorage keeps every key in one JSON document under dir. Writes go to
// a temporary file that is renamed over the old one.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed creating storage dir=%s with error=%w", dir, err)
	}
	return &FileStorage{path: filepath.Join(dir, fileName)}, nil
}

func (f *FileStorage) load() (map[string]json.RawMessage, error) {
	values := map[string]json.RawMessage{}
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed reading %s with error=%w", f.path, err)
	}
	if len(raw) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed decoding %s with error=%w", f.path, err)
	}
	return values, nil
}

func (f *FileStorage) save(values map[string]json.RawMessage) error {
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed encoding storage with error=%w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed writing %s with error=%w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed renaming %s with error=%w", tmp, err)
	}
	return nil
}

func (f *FileStorage) Get(c context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		zerolog.Ctx(c).Error().Err(err).Str(log.KeyStorageKey, key).Msg(err.Error())
		return nil, err
	}
	v, ok := values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (f *FileStorage) Set(c context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value of key=%s is not valid json", key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		zerolog.Ctx(c).Error().Err(err).Str(log.KeyStorageKey, key).Msg(err.Error())
		return err
	}
	values[key] = append(json.RawMessage(nil), value...)
	return f.save(values)
}

func (f *FileStorage) Delete(c context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		zerolog.Ctx(c).Error().Err(err).Str(log.KeyStorageKey, key).Msg(err.Error())
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}
