package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadText(t *testing.T) {
	path := writeFile(t, t.TempDir(), "智慧园区招标文件.txt", []byte("第一章 投标文件编制要求\n"))

	text, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "第一章 投标文件编制要求\n", text)
}

func TestReadRejectsInvalidUTF8(t *testing.T) {
	path := writeFile(t, t.TempDir(), "gbk.txt", []byte{0xb1, 0xea, 0xca, 0xe9, 0xff})

	_, err := Read(path)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestReadUnsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tender.xlsx", []byte("x"))

	_, err := Read(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	var ierr *Error
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, path, ierr.Path)
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadBrokenPDF(t *testing.T) {
	path := writeFile(t, t.TempDir(), "broken.pdf", []byte("not a pdf"))

	_, err := Read(path)
	var ierr *Error
	assert.True(t, errors.As(err, &ierr))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", nil)
	writeFile(t, dir, "a.txt", nil)
	writeFile(t, dir, "z.pdf", nil)
	writeFile(t, dir, "notes.docx", nil)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "z.pdf"),
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
	}, files)
}

func TestTenderName(t *testing.T) {
	assert.Equal(t, "智慧工程项目招标文件", TenderName("/data/input/智慧工程项目招标文件.pdf"))
}
