package store

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"godct/block"
)

// FS is a Store that keeps one flat file per tensor inside a directory.
// Tensor names pass through query escaping, so names with spaces, pipes
// and angle brackets map to safe file names.
type FS struct {
	root string
}

// NewFS opens (creating if needed) a directory-backed store.
func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	return &FS{root: root}, nil
}

func (f *FS) path(name string) string {
	return filepath.Join(f.root, url.QueryEscape(name)+".t64")
}

// Save encodes b and writes it atomically via a temp file rename.
func (f *FS) Save(name string, layout Layout, b *block.Blocked) error {
	payload, err := encode(b, layout)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.root, ".t64-*")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("store: write %q: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: close %q: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), f.path(name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store: rename %q: %w", name, err)
	}
	return nil
}

// Load reads and decodes the file for name.
func (f *FS) Load(name string, layout Layout, into *block.Blocked) error {
	payload, err := os.ReadFile(f.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("store: read %q: %w", name, err)
	}
	return decode(payload, layout, into)
}

// Delete removes the file for name. Missing files are not an error.
func (f *FS) Delete(name string) error {
	err := os.Remove(f.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	return nil
}

// Close is a no-op; the files persist.
func (f *FS) Close() error { return nil }
