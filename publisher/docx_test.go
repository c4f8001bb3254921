package publisher

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readPackage(t *testing.T, doc *Document) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, doc.WriteDocx(&buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	parts := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		parts[f.Name] = string(data)
	}
	return parts
}

func assertWellFormed(t *testing.T, name, body string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(body))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err, name)
	}
}

const sampleMarkdown = `# 投标文件

## 技术方案

本项目采用 **微服务** 架构 & <高可用> 设计。

- 要点一
1. 步骤一

| 指标 | 数值 |
|---|---|
| 可用性 | 99.9% |

---

` + "```mermaid\ngraph TD\nA-->B\n```\n"

func TestWriteDocxPackage(t *testing.T) {
	doc := Render(context.Background(), sampleMarkdown, LayoutOptions{
		Header:   "智慧园区项目",
		Diagrams: pngRenderer(testPNG(t, 400, 300)),
	})
	parts := readPackage(t, doc)

	for _, name := range []string{
		"[Content_Types].xml", "_rels/.rels", "docProps/core.xml",
		"word/document.xml", "word/styles.xml", "word/numbering.xml",
		"word/header1.xml", "word/footer1.xml", "word/_rels/document.xml.rels",
	} {
		require.Contains(t, parts, name)
		assertWellFormed(t, name, parts[name])
	}
	require.Contains(t, parts, "word/media/image1.png")

	body := parts["word/document.xml"]
	assert.Contains(t, body, `<w:pStyle w:val="Heading1"/>`)
	assert.Contains(t, body, `<w:pStyle w:val="Heading2"/>`)
	assert.Contains(t, body, `<w:b/></w:rPr><w:t xml:space="preserve">微服务</w:t>`)
	assert.Contains(t, body, "&amp; &lt;高可用&gt;")
	assert.Contains(t, body, `<w:tblStyle w:val="TableGrid"/>`)
	assert.Contains(t, body, "99.9%")
	assert.Contains(t, body, `r:embed="rIdImg1"`)
	assert.Contains(t, body, `<w:pgMar w:top="1440" w:right="1803" w:bottom="1440" w:left="1803"`)
	assert.Contains(t, body, "图 1 流程图")

	assert.Contains(t, parts["word/_rels/document.xml.rels"], `Target="media/image1.png"`)
	assert.Contains(t, parts["word/header1.xml"], "智慧园区项目")
	assert.Contains(t, parts["docProps/core.xml"], "<dc:title>智慧园区项目</dc:title>")

	footer := parts["word/footer1.xml"]
	assert.Contains(t, footer, `w:instr=" PAGE "`)
	assert.Contains(t, footer, `w:instr=" NUMPAGES "`)
	assert.Contains(t, footer, "页，共 ")

	styles := parts["word/styles.xml"]
	assert.Contains(t, styles, `w:styleId="Heading4"`)
	assert.Contains(t, styles, `w:eastAsia="黑体"`)
	assert.Contains(t, styles, `w:styleId="ListNumber"`)
}

func TestWriteDocxNumberingRestarts(t *testing.T) {
	doc := Render(context.Background(), "1. a\n\n1. b\n\n1. c", LayoutOptions{})
	numbering := readPackage(t, doc)["word/numbering.xml"]
	assert.Equal(t, 3, strings.Count(numbering, "<w:startOverride w:val=\"1\"/>"))
	assert.Equal(t, 4, strings.Count(numbering, "<w:num w:numId="))
}

func TestWriteDocxIsDeterministic(t *testing.T) {
	render := func() []byte {
		var buf bytes.Buffer
		doc := Render(context.Background(), sampleMarkdown, LayoutOptions{Header: "项目"})
		require.NoError(t, doc.WriteDocx(&buf))
		return buf.Bytes()
	}
	assert.Equal(t, render(), render())
}

func TestSplitFooter(t *testing.T) {
	assert.Equal(t, []footerSegment{
		{text: "第 "}, {field: "PAGE"}, {text: " 页，共 "}, {field: "NUMPAGES"}, {text: " 页"},
	}, splitFooter(DefaultFooter))
	assert.Equal(t, []footerSegment{{field: "PAGE"}}, splitFooter("{PAGE}"))
	assert.Equal(t, []footerSegment{{text: "无页码"}}, splitFooter("无页码"))
	assert.Nil(t, splitFooter(""))
}
