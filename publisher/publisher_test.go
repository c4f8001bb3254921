package publisher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWritesDocxAndHTML(t *testing.T) {
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "项目A_完整投标文件.md")
	require.NoError(t, os.WriteFile(mdPath, []byte(sampleMarkdown), 0o644))

	var outcomes []bool
	p := New(Options{
		Diagrams:  pngRenderer(testPNG(t, 10, 10)),
		HTML:      true,
		OnDiagram: func(ok bool) { outcomes = append(outcomes, ok) },
	})
	res, err := p.Publish(context.Background(), PublishParams{MarkdownPath: mdPath})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "项目A_完整投标文件.docx"), res.DocxPath)
	assert.Equal(t, filepath.Join(dir, "项目A_完整投标文件.html"), res.HTMLPath)
	assert.Equal(t, 1, res.Diagrams)
	assert.Equal(t, []bool{true}, outcomes)

	assert.FileExists(t, res.DocxPath)
	page, err := os.ReadFile(res.HTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<table>")
	assert.Contains(t, string(page), "<title>项目A_完整投标文件</title>")
	assert.Contains(t, string(page), "<strong>微服务</strong>")
}

func TestPublishWithoutHTML(t *testing.T) {
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "b.md")
	require.NoError(t, os.WriteFile(mdPath, []byte("# 投标文件\n"), 0o644))

	res, err := New(Options{}).Publish(context.Background(), PublishParams{MarkdownPath: mdPath})
	require.NoError(t, err)
	assert.Empty(t, res.HTMLPath)
	assert.NoFileExists(t, filepath.Join(dir, "b.html"))
	assert.FileExists(t, filepath.Join(dir, "b.docx"))
}

func TestPublishErrors(t *testing.T) {
	p := New(Options{})
	_, err := p.Publish(context.Background(), PublishParams{})
	require.Error(t, err)

	_, err = p.Publish(context.Background(), PublishParams{MarkdownPath: filepath.Join(t.TempDir(), "missing.md")})
	require.Error(t, err)

	_, err = p.PublishMarkdown(context.Background(), "# x", PublishParams{})
	require.Error(t, err)
}

func TestExportHTMLEscapesTitle(t *testing.T) {
	page, err := ExportHTML("<a&b>", "## 标题")
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>&lt;a&amp;b&gt;</title>")
	assert.Contains(t, string(page), "<h2>标题</h2>")
}
