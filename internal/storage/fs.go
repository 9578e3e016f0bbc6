package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FSStore stores cover images on the local filesystem.
type FSStore struct {
	dataDir string
	baseURL string
	logger  zerolog.Logger
}

// NewFSStore creates a filesystem cover store rooted at dataDir.
// Stored files are served under baseURL.
func NewFSStore(dataDir, baseURL string, logger zerolog.Logger) (*FSStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cover directory: %w", err)
	}

	return &FSStore{
		dataDir: dataDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger.With().Str("component", "fs_store").Logger(),
	}, nil
}

// Put stores the image under a freshly generated key.
func (s *FSStore) Put(ctx context.Context, contentType string, r io.Reader) (string, string, error) {
	ext, err := extensionFor(contentType)
	if err != nil {
		return "", "", err
	}

	key := uuid.NewString() + ext
	path := filepath.Join(s.dataDir, key)

	// Write to a temp file first so a failed upload never leaves a
	// half-written cover at the final path.
	tmp, err := os.CreateTemp(s.dataDir, ".upload-*")
	if err != nil {
		return "", "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("failed to write cover: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("failed to store cover: %w", err)
	}

	s.logger.Debug().Str("key", key).Msg("stored cover image")

	return key, s.baseURL + "/" + key, nil
}

// Delete removes a stored image. Deleting a missing key is not an error.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	// Keys are always generated UUIDs; reject anything path-like.
	if key != filepath.Base(key) {
		return fmt.Errorf("invalid cover key: %s", key)
	}

	err := os.Remove(filepath.Join(s.dataDir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cover: %w", err)
	}

	return nil
}

// Dir returns the directory covers are stored in, for static serving.
func (s *FSStore) Dir() string {
	return s.dataDir
}

// Ensure FSStore implements CoverStore.
var _ CoverStore = (*FSStore)(nil)
