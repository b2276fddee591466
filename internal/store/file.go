package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileBackend stores the pattern document as a JSON file.
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend creates a backend for the JSON file at path on fsys.
// A nil fsys uses the OS filesystem.
func NewFileBackend(fsys afero.Fs, path string) *FileBackend {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &FileBackend{fs: fsys, path: path}
}

// Path returns the location of the document.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the document. A missing file is an empty document.
func (b *FileBackend) Load() (Document, error) {
	var doc Document

	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("read %s: %w", b.path, err)
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode %s: %w", b.path, err)
	}
	return doc, nil
}

// Save overwrites the document, writing a temporary file first and renaming
// it into place.
func (b *FileBackend) Save(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}

	if err := b.fs.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := b.fs.Rename(tmp, b.path); err != nil {
		b.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}
