// Package file stores workflow sources and credentials on the local
// filesystem. Writes are atomic: a temp file in the target directory is
// synced and renamed over the destination.
package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/holon/pkg/domain"
)

// Store implements ports.SourceStore over the .go files below a directory.
type Store struct {
	BasePath string
}

// New creates a new Store rooted at basePath ("." when empty).
func New(basePath string) *Store {
	if basePath == "" {
		basePath = "."
	}
	return &Store{BasePath: basePath}
}

// path maps a slash-separated source name to a file below BasePath.
func (s *Store) path(name string) (string, error) {
	clean := path.Clean(name)
	if name == "" || !fs.ValidPath(clean) || path.Ext(clean) != ".go" {
		return "", fmt.Errorf("invalid source name %q", name)
	}
	return filepath.Join(s.BasePath, filepath.FromSlash(clean)), nil
}

// Load reads the source file.
func (s *Store) Load(_ context.Context, name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, fmt.Errorf("failed to read source file: %w", err)
	}
	return data, nil
}

// Save writes the source file atomically, creating directories as needed.
func (s *Store) Save(_ context.Context, name string, src []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	return writeAtomic(p, src, 0o644)
}

// Delete removes the source file.
func (s *Store) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete source file: %w", err)
	}
	return nil
}

// List walks BasePath for .go files, skipping hidden directories and
// _test.go files.
func (s *Store) List(_ context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.BasePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == s.BasePath {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if p != s.BasePath && skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if filepath.Ext(p) != ".go" || strings.HasSuffix(p, "_test.go") || strings.HasPrefix(d.Name(), "tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.BasePath, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	slices.Sort(names)
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata"
}

// writeAtomic writes to a temp file in the same directory, syncs it and
// renames it over dest.
func writeAtomic(dest string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "tmp-*-"+filepath.Base(dest))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	// Windows cannot rename over an existing file.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to replace %s: %w", dest, err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
