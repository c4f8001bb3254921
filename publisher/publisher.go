// Package publisher renders the merged bid markdown into a styled DOCX and an HTML copy.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"auto_bid_writer/diagram"
	"auto_bid_writer/logging"
)

// Options configures a Publisher.
type Options struct {
	Diagrams diagram.Renderer
	// HTML 为 true 时额外导出 HTML。
	HTML      bool
	Footer    string
	Logger    *slog.Logger
	OnDiagram func(ok bool)
}

// Publisher turns merged markdown files into output documents.
type Publisher struct {
	opts   Options
	logger *slog.Logger
}

// PublishParams describes one merged markdown to render.
type PublishParams struct {
	MarkdownPath string
	// Header 页眉文字，默认取 Markdown 文件名。
	Header string
	// DocxPath defaults to MarkdownPath with a .docx extension.
	DocxPath string
	HTMLPath string
}

// Result lists the written files.
type Result struct {
	DocxPath string
	HTMLPath string
	Diagrams int
}

func New(opts Options) *Publisher {
	return &Publisher{opts: opts, logger: logging.OrNop(opts.Logger)}
}

// Publish reads params.MarkdownPath and writes the DOCX (and HTML when enabled).
func (p *Publisher) Publish(ctx context.Context, params PublishParams) (Result, error) {
	if params.MarkdownPath == "" {
		return Result{}, errors.New("publisher: markdown path is required")
	}
	mdBytes, err := os.ReadFile(params.MarkdownPath)
	if err != nil {
		return Result{}, fmt.Errorf("publisher: read markdown: %w", err)
	}

	base := strings.TrimSuffix(params.MarkdownPath, filepath.Ext(params.MarkdownPath))
	if params.DocxPath == "" {
		params.DocxPath = base + ".docx"
	}
	if params.HTMLPath == "" && p.opts.HTML {
		params.HTMLPath = base + ".html"
	}
	if params.Header == "" {
		params.Header = filepath.Base(base)
	}
	return p.PublishMarkdown(ctx, string(mdBytes), params)
}

// PublishMarkdown renders md directly; params.MarkdownPath is ignored.
func (p *Publisher) PublishMarkdown(ctx context.Context, md string, params PublishParams) (Result, error) {
	if params.DocxPath == "" {
		return Result{}, errors.New("publisher: docx path is required")
	}

	doc := Render(ctx, md, LayoutOptions{
		Header:    params.Header,
		Footer:    p.opts.Footer,
		Diagrams:  p.opts.Diagrams,
		Logger:    p.logger,
		OnDiagram: p.opts.OnDiagram,
	})
	res := Result{DocxPath: params.DocxPath, Diagrams: len(doc.Images())}
	p.logger.Debug("markdown laid out", "blocks", len(doc.Blocks), "diagrams", res.Diagrams)

	if err := doc.SaveDocx(params.DocxPath); err != nil {
		return Result{}, err
	}
	p.logger.Info("docx written", "path", params.DocxPath)

	if params.HTMLPath != "" && p.opts.HTML {
		page, err := ExportHTML(params.Header, md)
		if err != nil {
			return res, err
		}
		if err := os.WriteFile(params.HTMLPath, page, 0o644); err != nil {
			return res, fmt.Errorf("publisher: write html: %w", err)
		}
		res.HTMLPath = params.HTMLPath
		p.logger.Info("html written", "path", params.HTMLPath)
	}
	return res, nil
}
