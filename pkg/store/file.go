// ABOUTME: Directory-backed store backend
// ABOUTME: Stores each recording as a hashed .wav file with a .json sidecar
package store

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores recordings in a directory
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed and returns a backend over it
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the backing directory
func (f *FileBackend) Dir() string {
	return f.dir
}

// paths returns the blob and metadata paths for id
func (f *FileBackend) paths(id string) (blob, meta string) {
	hash := sha256.Sum256([]byte(id))
	base := filepath.Join(f.dir, fmt.Sprintf("%x", hash[:8]))
	return base + ".wav", base + ".json"
}

// Put writes the blob first and the metadata last so a reader never sees
// metadata for a partial blob
func (f *FileBackend) Put(ctx context.Context, rec Recording) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blobPath, metaPath := f.paths(rec.ID)
	if err := writeAtomic(blobPath, rec.Blob); err != nil {
		return fmt.Errorf("failed to write recording: %w", err)
	}

	meta, err := json.Marshal(Entry{ID: rec.ID, InsertedAt: rec.InsertedAt, Size: len(rec.Blob)})
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := writeAtomic(metaPath, meta); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

func (f *FileBackend) Get(ctx context.Context, id string) (Recording, bool, error) {
	if err := ctx.Err(); err != nil {
		return Recording{}, false, err
	}

	blobPath, metaPath := f.paths(id)
	entry, err := readEntry(metaPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Recording{}, false, nil
	}
	if err != nil {
		return Recording{}, false, err
	}
	if entry.ID != id {
		// hash collision with another id
		return Recording{}, false, nil
	}

	blob, err := os.ReadFile(blobPath)
	if errors.Is(err, fs.ErrNotExist) {
		return Recording{}, false, nil
	}
	if err != nil {
		return Recording{}, false, fmt.Errorf("failed to read recording: %w", err)
	}

	return Recording{ID: entry.ID, InsertedAt: entry.InsertedAt, Blob: blob}, true, nil
}

// Delete removes the metadata first so a half-deleted entry is invisible
func (f *FileBackend) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	blobPath, metaPath := f.paths(id)
	if err := os.Remove(metaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove metadata: %w", err)
	}
	if err := os.Remove(blobPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove recording: %w", err)
	}
	return nil
}

func (f *FileBackend) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		entry, err := readEntry(filepath.Join(f.dir, de.Name()))
		if err != nil {
			slog.Warn("skipping unreadable metadata", "file", de.Name(), "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return entry, nil
}

// writeAtomic writes data to a temp file and renames it over path
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
