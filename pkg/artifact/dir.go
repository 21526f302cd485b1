package artifact

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
)

// DirStore keeps artifacts in a local directory tree.
type DirStore struct {
	root string
}

// NewDirStore creates root if needed.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &DirStore{root: abs}, nil
}

func (s *DirStore) path(figureID, format string) string {
	return filepath.Join(s.root, filepath.FromSlash(ObjectKey(figureID, format)))
}

func (s *DirStore) Put(_ context.Context, figureID, format string, content []byte) error {
	if err := checkArgs(figureID, format); err != nil {
		return err
	}
	path := s.path(figureID, format)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("write %s artifact: %w", format, err)
	}
	return os.Rename(tmp, path)
}

func (s *DirStore) Get(_ context.Context, figureID, format string) ([]byte, error) {
	if err := checkArgs(figureID, format); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(figureID, format))
	if os.IsNotExist(err) {
		return nil, notFound(figureID, format)
	}
	return data, err
}

func (s *DirStore) List(_ context.Context, figureID string) ([]string, error) {
	if err := checkArgs(figureID, "x"); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(s.root, figureID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var formats []string
	for _, e := range entries {
		if f, ok := formatOf(e.Name()); ok && !e.IsDir() && filepath.Ext(f) == "" {
			formats = append(formats, f)
		}
	}
	sort.Strings(formats)
	return formats, nil
}

// URL returns a file:// URL.
func (s *DirStore) URL(_ context.Context, figureID, format string) (string, error) {
	if err := checkArgs(figureID, format); err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(s.path(figureID, format))}
	return u.String(), nil
}

var _ Store = (*DirStore)(nil)
