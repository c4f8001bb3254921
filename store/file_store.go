package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const chapterExt = ".txt"

// FileStore keeps one <title>.txt per chapter under <root>/<tender>/.
type FileStore struct {
	root string
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root is the output directory holding one sub-directory per tender.
func (s *FileStore) Root() string { return s.root }

// TenderDir returns <root>/<tender>.
func (s *FileStore) TenderDir(tender string) string {
	return filepath.Join(s.root, SafeName(tender))
}

func (s *FileStore) chapterPath(tender, title string) string {
	return filepath.Join(s.TenderDir(tender), SafeName(title)+chapterExt)
}

func (s *FileStore) Save(_ context.Context, tender, title, content string) error {
	path := s.chapterPath(tender, title)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save chapter %q: %w", title, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("save chapter %q: %w", title, err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, tender, title string) (string, error) {
	data, err := os.ReadFile(s.chapterPath(tender, title))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("chapter %q: %w", title, ErrNotFound)
		}
		return "", fmt.Errorf("load chapter %q: %w", title, err)
	}
	return string(data), nil
}

func (s *FileStore) List(_ context.Context, tender string) ([]string, error) {
	dir := s.TenderDir(tender)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("tender dir %s: %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	var titles []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != chapterExt {
			continue
		}
		title, err := unsafeName(strings.TrimSuffix(e.Name(), chapterExt))
		if err != nil {
			continue
		}
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// SafeName makes a chapter or tender name usable as a single path element.
// The mapping is reversible: '%', path separators and NUL are percent-escaped,
// so distinct names never share a file.
func SafeName(name string) string {
	switch name {
	case "":
		return "%"
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '%', '/', '\\', 0:
			fmt.Fprintf(&b, "%%%02X", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unsafeName(file string) (string, error) {
	if file == "%" {
		return "", nil
	}
	return url.PathUnescape(file)
}
