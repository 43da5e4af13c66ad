package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultTokenFile is the token cache name, relative to the working directory.
const DefaultTokenFile = ".token"

// TokenFile caches an API token on disk, readable only by its owner.
type TokenFile struct {
	Path string
}

// NewTokenFile returns a TokenFile at path, or at DefaultTokenFile if path is empty.
func NewTokenFile(path string) *TokenFile {
	if path == "" {
		path = DefaultTokenFile
	}
	return &TokenFile{Path: path}
}

// Load returns the cached token verbatim. ok is false when no cache exists.
func (f *TokenFile) Load() (token string, ok bool, err error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage error reading %s: %w", f.Path, err)
	}
	return string(data), true, nil
}

// Save atomically writes the token with mode 0600.
func (f *TokenFile) Save(token string) error {
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("storage error creating directories: %w", err)
		}
	}

	// Atomic write: write to temp file then rename.
	tmpPath := f.Path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(token), 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	// WriteFile honours umask; the cache must end up owner-only regardless.
	if err := os.Chmod(f.Path, 0o600); err != nil {
		return fmt.Errorf("storage error restricting permissions on %s: %w", f.Path, err)
	}
	return nil
}

// Remove deletes the cached token. A missing cache is not an error.
func (f *TokenFile) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage error removing %s: %w", f.Path, err)
	}
	return nil
}
