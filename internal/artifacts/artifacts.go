// Package artifacts stores job outputs and hands back stable references.
package artifacts

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"novastudio/internal/services"
)

// Store receives finished job outputs. Put returns a reference the job record
// carries as its output ref.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
}

// LocalStore writes artifacts into a directory on the local filesystem.
type LocalStore struct {
	root string
}

// NewLocalStore creates the directory if needed and returns a store rooted there.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "init", "artifact directory not configured", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "artifacts", "init",
			fmt.Sprintf("create artifact directory %s", root), err)
	}
	return &LocalStore{root: root}, nil
}

// Put writes the artifact under the store root. The name is sanitized to a
// single path element so callers cannot escape the directory.
func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned := sanitizeName(name)
	if cleaned == "" {
		return "", services.Wrap(services.ErrValidation, "artifacts", "put", "empty artifact name", nil)
	}

	path := filepath.Join(s.root, cleaned)
	tmp := path + ".partial"
	file, err := os.Create(tmp)
	if err != nil {
		return "", services.Wrap(services.ErrPersistence, "artifacts", "put", "", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return "", services.Wrap(services.ErrPersistence, "artifacts", "put", "", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", services.Wrap(services.ErrPersistence, "artifacts", "put", "", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", services.Wrap(services.ErrPersistence, "artifacts", "put", "", err)
	}
	return "file://" + path, nil
}

// Root returns the directory artifacts are written under.
func (s *LocalStore) Root() string {
	return s.root
}

func sanitizeName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}
