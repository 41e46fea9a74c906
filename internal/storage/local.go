package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
)

// LocalClient stores objects as files in a single directory.
type LocalClient struct {
	dir string
}

// NewLocalClient constructs a filesystem-backed object store rooted at dir.
func NewLocalClient(dir string) *LocalClient {
	return &LocalClient{dir: dir}
}

// EnsureBucket creates the backing directory.
func (l *LocalClient) EnsureBucket(ctx context.Context) error {
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("mkdir %s: %w", l.dir, err)
	}
	return nil
}

// Put writes the object through a temp file and renames it into place.
func (l *LocalClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	tmp, err := os.CreateTemp(l.dir, ".upload-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(l.dir, key)); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Get opens the object file.
func (l *LocalClient) Get(ctx context.Context, key string) (*Object, error) {
	file, err := os.Open(filepath.Join(l.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &Object{
		ReadCloser:  file,
		ContentType: mime.TypeByExtension(filepath.Ext(key)),
		Size:        info.Size(),
	}, nil
}

// Delete removes the object file. Missing files are not an error.
func (l *LocalClient) Delete(ctx context.Context, key string) error {
	if err := os.Remove(filepath.Join(l.dir, key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Bucket returns the backing directory.
func (l *LocalClient) Bucket() string {
	return l.dir
}
