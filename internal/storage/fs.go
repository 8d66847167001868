package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FSBackend stores files in a local directory served as static files.
type FSBackend struct {
	baseDir   string
	urlPrefix string
}

// FSConfig options for the file system backend.
type FSConfig struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // URL path the directory is served under
}

// NewFSBackend creates a new file system storage backend.
func NewFSBackend(cfg FSConfig) (*FSBackend, error) {
	baseDir := strings.TrimSpace(cfg.BaseDir)
	if baseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	prefix := "/" + strings.Trim(strings.TrimSpace(cfg.URLPrefix), "/")
	return &FSBackend{baseDir: baseDir, urlPrefix: prefix}, nil
}

// Dir returns the directory files are written to.
func (b *FSBackend) Dir() string {
	return b.baseDir
}

// Put writes the content to a temporary file and renames it into place.
func (b *FSBackend) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.baseDir, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(b.baseDir, key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("move file into place: %w", err)
	}
	return nil
}

// Delete removes the file stored under key.
func (b *FSBackend) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	path := filepath.Join(b.baseDir, key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return ErrObjectNotFound
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Exists reports whether a regular file is stored under key.
func (b *FSBackend) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := os.Stat(filepath.Join(b.baseDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return !info.IsDir(), nil
}

// URL returns the static URL of key.
func (b *FSBackend) URL(key string) string {
	if b.urlPrefix == "/" {
		return "/" + key
	}
	return b.urlPrefix + "/" + key
}
