package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileKV persists every key in a single JSON document. Each write replaces the
// document through a temp file and rename, so readers see either the old or
// the new contents.
type FileKV struct {
	path  string
	mutex sync.Mutex
}

func NewFileKV(path string) (*FileKV, error) {
	if path == "" {
		return nil, errors.New("file store path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &FileKV{path: path}, nil
}

func (f *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", false, &StoreError{Operation: "get", Key: key, Cause: err}
	}

	value, ok := doc[key]
	return value, ok, nil
}

func (f *FileKV) Set(_ context.Context, key string, value string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	doc, err := f.read()
	if err != nil {
		// an unreadable document is replaced rather than blocking every write
		doc = make(map[string]string)
	}

	doc[key] = value
	if err := f.write(doc); err != nil {
		return &StoreError{Operation: "set", Key: key, Cause: err}
	}
	return nil
}

func (f *FileKV) Delete(_ context.Context, key string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	doc, err := f.read()
	if err != nil {
		doc = make(map[string]string)
	}

	if _, ok := doc[key]; !ok && err == nil {
		return nil
	}

	delete(doc, key)
	if err := f.write(doc); err != nil {
		return &StoreError{Operation: "delete", Key: key, Cause: err}
	}
	return nil
}

func (f *FileKV) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, err
	}

	doc := make(map[string]string)
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse store file: %w", err)
	}
	return doc, nil
}

func (f *FileKV) write(doc map[string]string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempFile, f.path); err != nil {
		if removeErr := os.Remove(tempFile); removeErr != nil {
			return fmt.Errorf("failed to rename temp file: %v; additionally failed to remove temp file: %w", err, removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
