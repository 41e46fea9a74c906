package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is an opened stored object. Callers must Close it.
type Object struct {
	io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage wraps an ObjectStorage backend and restricts keys to flat,
// single-segment names.
type Storage struct {
	backend ObjectStorage
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put uploads an object under key.
func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.backend.Put(ctx, key, r, size, contentType)
}

// Get opens the object stored under key.
func (s *Storage) Get(ctx context.Context, key string) (*Object, error) {
	if err := ValidateKey(key); err != nil {
		return nil, ErrObjectNotFound
	}
	return s.backend.Get(ctx, key)
}

// Delete removes the object stored under key.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// ValidateKey rejects empty keys and keys containing path segments.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("object key is required")
	}
	if strings.ContainsAny(key, `/\`) || path.Clean(key) != key || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}
