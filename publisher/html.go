package publisher

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough))

func mdToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportHTML 把合并后的 Markdown 转成独立 HTML 页面，作为 DOCX 之外的预览版本。
// Mermaid 代码块按原样保留为 <pre><code class="language-mermaid">。
func ExportHTML(title, md string) ([]byte, error) {
	body, err := mdToHTML(md)
	if err != nil {
		return nil, fmt.Errorf("html: convert markdown: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(title))
	buf.WriteString("<style>body{font-family:\"宋体\",serif;line-height:1.5;max-width:48em;margin:2em auto;}" +
		"h1,h2,h3,h4{font-family:\"黑体\",sans-serif;}h1{text-align:center;}" +
		"table{border-collapse:collapse;margin:0 auto;}th,td{border:1px solid #000;padding:4px 8px;text-align:center;}</style>\n")
	buf.WriteString("</head>\n<body>\n")
	buf.WriteString(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes(), nil
}
