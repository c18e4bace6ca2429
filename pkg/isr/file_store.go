package isr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps each page as <dir>/<route>/index.html, so the directory
// can be served as a static site. The file's modification time is the
// entry's timestamp.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// on the first Put.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(route string) (string, error) {
	rel := filepath.FromSlash(strings.Trim(route, "/"))
	p := filepath.Join(s.dir, rel, "index.html")
	if r, err := filepath.Rel(s.dir, p); err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("isr: route %q escapes the cache directory", route)
	}
	return p, nil
}

// Get implements Store.
func (s *FileStore) Get(_ context.Context, route string) (*Entry, error) {
	p, err := s.path(route)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	html, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return &Entry{Route: route, HTML: html, Timestamp: info.ModTime()}, nil
}

// Put implements Store. The file is written next to its destination and
// renamed into place, so readers never see a partial page.
func (s *FileStore) Put(_ context.Context, e *Entry) error {
	p, err := s.path(e.Route)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".index-*.html")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(e.HTML); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chtimes(tmp.Name(), e.Timestamp, e.Timestamp); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, route string) error {
	p, err := s.path(route)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear implements Store by removing the whole directory.
func (s *FileStore) Clear(context.Context) error {
	return os.RemoveAll(s.dir)
}
