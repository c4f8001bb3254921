// Package ingest reads tender documents into plain UTF-8 text.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported tender file format")
	ErrInvalidEncoding   = errors.New("tender text is not valid UTF-8")
)

// Error is an ingestion failure for one tender file. The batch moves on to the next file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Extensions lists the tender file types picked up from the input directory, in discovery order.
var Extensions = []string{".pdf", ".txt", ".md"}

// Read returns the text of a tender file. PDF text is the concatenation of every
// page's extracted text, each followed by a newline.
func Read(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := readPDF(path)
		if err != nil {
			return "", &Error{Path: path, Err: err}
		}
		return text, nil
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", &Error{Path: path, Err: err}
		}
		if !utf8.Valid(data) {
			return "", &Error{Path: path, Err: ErrInvalidEncoding}
		}
		return string(data), nil
	default:
		return "", &Error{Path: path, Err: ErrUnsupportedFormat}
	}
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			sb.WriteString("\n")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Discover lists tender files in dir: all PDFs first, then text files, each group sorted by name.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var files []string
	for _, ext := range Extensions {
		var group []string
		for _, e := range entries {
			if e.IsDir() || strings.ToLower(filepath.Ext(e.Name())) != ext {
				continue
			}
			group = append(group, filepath.Join(dir, e.Name()))
		}
		sort.Strings(group)
		files = append(files, group...)
	}
	return files, nil
}

// TenderName is the file name without extension; it names the output directory.
func TenderName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
