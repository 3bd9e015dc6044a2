package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	URLPrefix    = "/uploads/"
	MaxImageSize = 10 << 20
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrNotImage   = errors.New("not an image")
	ErrTooLarge   = errors.New("image too large")
	ErrInvalidKey = errors.New("invalid object key")
)

// ObjectStore keeps uploaded gallery images.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// URL is where the guest page loads key from.
func URL(key string) string {
	return URLPrefix + key
}

// CleanKey rejects keys escaping the store root.
func CleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != key || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("CleanKey: %w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// PutImage sniffs data, stores it under gallery/ and returns its URL.
func PutImage(ctx context.Context, store ObjectStore, data []byte) (string, error) {
	if len(data) > MaxImageSize {
		return "", ErrTooLarge
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", fmt.Errorf("PutImage: %w: %s", ErrNotImage, mime.String())
	}
	key := "gallery/" + uuid.NewString() + mime.Extension()
	if err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mime.String()); err != nil {
		return "", fmt.Errorf("PutImage: %w", err)
	}
	return URL(key), nil
}
