// Package blob stores uploaded audio files and resolves their public URLs.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when the referenced audio file does not exist.
var ErrNotFound = errors.New("audio file not found")

// Store persists raw audio and serves it back by URL.
type Store interface {
	// Save writes the audio under the given file name and returns the
	// public URL the transcription provider can fetch it from.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	// Delete removes the audio behind a URL previously returned by Save.
	// Deleting a missing file is not an error.
	Delete(ctx context.Context, url string) error
}

// LocalStore keeps audio files on the local filesystem, served under
// baseURL/media/.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates the media directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir returns the directory files are written to, for the file server route.
func (s *LocalStore) Dir() string { return s.dir }

func (s *LocalStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	// Uploaded names are generated server-side, but never trust them with
	// path separators anyway.
	name = filepath.Base(name)

	f, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating media file: %w", err)
	}
	tmp := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("writing media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("closing media file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("placing media file: %w", err)
	}

	return s.baseURL + "/media/" + name, nil
}

func (s *LocalStore) Delete(_ context.Context, url string) error {
	name := filepath.Base(url)
	if name == "." || name == "/" || name == "" {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting media file: %w", err)
	}
	return nil
}
