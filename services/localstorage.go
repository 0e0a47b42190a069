package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps objects on disk under Dir and serves them from
// BaseURL. URLs do not expire. It is meant for development and tests.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

// path maps an object name to a file below Dir; cleaning against "/" keeps
// ".." segments from escaping it.
func (s *LocalStorage) path(name string) string {
	return filepath.Join(s.Dir, filepath.FromSlash(filepath.Clean("/"+name)))
}

func (s *LocalStorage) Upload(ctx context.Context, name string, r io.Reader, _ int64, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := s.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

func (s *LocalStorage) PresignedURL(_ context.Context, name string, _ time.Duration) (string, error) {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(name, "/"), nil
}

func (s *LocalStorage) Delete(_ context.Context, name string) error {
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}
