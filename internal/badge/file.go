package badge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// File writes the count as a decimal line to a path. Writes go through a
// temp file and rename so readers never see a partial value.
type File struct {
	path string
}

func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("badge file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create badge dir: %w", err)
	}
	return &File{path: path}, nil
}

func (f *File) Name() string { return "file" }
func (f *File) Close() error { return nil }

func (f *File) SetBadge(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".badge-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	if _, err := tmp.WriteString(strconv.Itoa(n) + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write badge: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close badge: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		return fmt.Errorf("chmod badge: %w", err)
	}
	if err := os.Rename(name, f.path); err != nil {
		return fmt.Errorf("rename badge: %w", err)
	}
	return nil
}
