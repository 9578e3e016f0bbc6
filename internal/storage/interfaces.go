// Package storage defines the cover image store and its backends.
// Covers are small write-once assets: uploaded with a book, replaced on
// edit, removed with the book. Backends can be the local filesystem or
// any S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrUnsupportedImageType indicates an upload with a content type outside
// the accepted image formats.
var ErrUnsupportedImageType = errors.New("unsupported image type")

// CoverStore persists book cover images.
type CoverStore interface {
	// Put stores the image under a freshly generated key and returns the
	// key plus the public URL it will be served from.
	Put(ctx context.Context, contentType string, r io.Reader) (key, url string, err error)

	// Delete removes a stored image. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// extensions maps accepted image content types to file extensions.
var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// extensionFor returns the file extension for an accepted content type.
func extensionFor(contentType string) (string, error) {
	ext, ok := extensions[contentType]
	if !ok {
		return "", ErrUnsupportedImageType
	}
	return ext, nil
}
