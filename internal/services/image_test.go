package services

import (
	"context"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/dreamhome/planner/internal/storage"
	"github.com/dreamhome/planner/types"
	"github.com/stretchr/testify/require"
)

func TestImageServiceSaveAndOpen(t *testing.T) {
	ctx := context.Background()
	images := NewImageService(storage.NewStorage(storage.NewLocalClient(t.TempDir())))
	images.now = func() time.Time { return time.UnixMilli(1700000000123) }

	name, err := images.Save(ctx, "My Photo.JPG", strings.NewReader("jpeg-bytes"), 10, "")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^1700000000123-[0-9a-f]{12}\.jpg$`), name)

	obj, err := images.Open(ctx, name)
	require.NoError(t, err)
	defer obj.Close()
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(data))
	require.Equal(t, "image/jpeg", obj.ContentType)

	other, err := images.Save(ctx, "My Photo.JPG", strings.NewReader("jpeg-bytes"), 10, "")
	require.NoError(t, err)
	require.NotEqual(t, name, other)
}

func TestImageServiceDropsOddExtensions(t *testing.T) {
	images := NewImageService(storage.NewStorage(storage.NewLocalClient(t.TempDir())))

	name, err := images.Save(context.Background(), "evil.p/ng", strings.NewReader("x"), 1, "image/png")
	require.NoError(t, err)
	require.NotContains(t, name, "/")
	require.NotContains(t, name, ".")
}

func TestImageServiceOpenMissing(t *testing.T) {
	images := NewImageService(storage.NewStorage(storage.NewLocalClient(t.TempDir())))

	_, err := images.Open(context.Background(), "nope.png")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = images.Open(context.Background(), types.PlaceholderImage)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = images.Open(context.Background(), "../escape.png")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestImageServiceRemove(t *testing.T) {
	ctx := context.Background()
	images := NewImageService(storage.NewStorage(storage.NewLocalClient(t.TempDir())))

	name, err := images.Save(ctx, "pool.png", strings.NewReader("png"), 3, "image/png")
	require.NoError(t, err)
	require.NoError(t, images.Remove(ctx, name))

	_, err = images.Open(ctx, name)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, images.Remove(ctx, types.PlaceholderImage))
	require.NoError(t, images.Remove(ctx, ""))
}
