package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalFS stores archived journal files under a base directory on the local
// filesystem.
type LocalFS struct {
	base string
}

// NewLocalFS creates the base directory if needed and returns a store on it.
func NewLocalFS(base string) (*LocalFS, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}
	return &LocalFS{base: base}, nil
}

func (l *LocalFS) Write(ctx context.Context, name string, data []byte) error {
	full := filepath.Join(l.base, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating archive subdir: %w", err)
	}
	return os.WriteFile(full, data, 0o644)
}

func (l *LocalFS) Read(ctx context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(l.base, filepath.FromSlash(name)))
}

// List walks the base directory and returns slash-separated names, sorted,
// so the output matches what the S3 backend returns for the same objects.
func (l *LocalFS) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := fs.WalkDir(os.DirFS(l.base), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(p, prefix) {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (l *LocalFS) Exists(ctx context.Context, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(l.base, filepath.FromSlash(name)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
