package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dreamhome/planner/internal/storage"
	"github.com/dreamhome/planner/types"
)

var imageExtPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// ObjectStore is the subset of storage.Storage the image service needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// ImageService stores uploaded item images under generated names.
type ImageService struct {
	store ObjectStore
	now   func() time.Time
}

func NewImageService(store ObjectStore) *ImageService {
	return &ImageService{store: store, now: time.Now}
}

// Save stores the upload and returns the generated file name: upload time in
// milliseconds, a random suffix and the original extension.
func (s *ImageService) Save(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (string, error) {
	suffix, err := randomSuffix()
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if !imageExtPattern.MatchString(ext) {
		ext = ""
	}
	contentType = strings.TrimSpace(contentType)
	if (contentType == "" || contentType == "application/octet-stream") && ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			contentType = byExt
		}
	}

	name := fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), suffix, ext)
	if err := s.store.Put(ctx, name, r, size, contentType); err != nil {
		return "", storageError("store image", err)
	}
	return name, nil
}

// Open returns the stored image. The caller closes it.
func (s *ImageService) Open(ctx context.Context, name string) (*storage.Object, error) {
	if name == "" || name == types.PlaceholderImage {
		return nil, ErrNotFound
	}
	obj, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageError("open image", err)
	}
	return obj, nil
}

// Remove deletes a stored image. The placeholder and empty names are ignored.
func (s *ImageService) Remove(ctx context.Context, name string) error {
	if name == "" || name == types.PlaceholderImage {
		return nil
	}
	if err := s.store.Delete(ctx, name); err != nil {
		return storageError("remove image", err)
	}
	return nil
}

func randomSuffix() (string, error) {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
