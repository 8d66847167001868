// Package storage holds the backends that persist uploaded files.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrObjectNotFound is returned when deleting a key that does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrInvalidKey rejects keys that could escape the backend root.
	ErrInvalidKey = errors.New("invalid object key")
)

// Backend defines the interface for storage backends.
type Backend interface {
	// Put stores the content under key, replacing any previous object.
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL of key.
	URL(key string) string
}

// Stater is implemented by backends that can tell whether a key exists.
type Stater interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// Kind names the backend type for logs and health reports.
func Kind(b Backend) string {
	switch b.(type) {
	case *FSBackend:
		return "fs"
	case *S3Backend:
		return "s3"
	default:
		return "custom"
	}
}

// ValidateKey accepts flat names only: no separators, no parent references.
func ValidateKey(key string) error {
	if key == "" || key == "." || strings.Contains(key, "..") || strings.ContainsAny(key, `/\`) {
		return ErrInvalidKey
	}
	return nil
}
