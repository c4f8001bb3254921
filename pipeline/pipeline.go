package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"auto_bid_writer/generator"
	"auto_bid_writer/ingest"
	"auto_bid_writer/logging"
	"auto_bid_writer/metrics"
	"auto_bid_writer/publisher"
	"auto_bid_writer/store"
)

// MergedSuffix 合并后文件名后缀，如 <tender>_完整投标文件.md。
const MergedSuffix = "_完整投标文件"

// SectionPlanner discovers the chapter titles of a tender.
type SectionPlanner interface {
	Plan(ctx context.Context, tenderText string) ([]string, error)
}

// DocumentPublisher renders merged markdown to output files.
type DocumentPublisher interface {
	PublishMarkdown(ctx context.Context, md string, params publisher.PublishParams) (publisher.Result, error)
}

// Deps wires a Pipeline.
type Deps struct {
	Planner      SectionPlanner
	Orchestrator *Orchestrator
	Assembler    *Assembler
	Publisher    DocumentPublisher
	OutputDir    string
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// Pipeline runs tenders end to end.
type Pipeline struct {
	planner   SectionPlanner
	orch      *Orchestrator
	asm       *Assembler
	pub       DocumentPublisher
	outputDir string
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(d Deps) (*Pipeline, error) {
	switch {
	case d.Planner == nil:
		return nil, errors.New("pipeline: planner is required")
	case d.Orchestrator == nil:
		return nil, errors.New("pipeline: orchestrator is required")
	case d.Assembler == nil:
		return nil, errors.New("pipeline: assembler is required")
	case d.Publisher == nil:
		return nil, errors.New("pipeline: publisher is required")
	case d.OutputDir == "":
		return nil, errors.New("pipeline: output dir is required")
	}
	return &Pipeline{
		planner:   d.Planner,
		orch:      d.Orchestrator,
		asm:       d.Assembler,
		pub:       d.Publisher,
		outputDir: d.OutputDir,
		metrics:   d.Metrics,
		logger:    logging.OrNop(d.Logger),
	}, nil
}

// TenderResult describes one finished tender run.
type TenderResult struct {
	RunID    string
	Tender   string
	Sections []string
	Chapters map[string]generator.ChapterDraft
	// Reused is true when an existing merged markdown was only re-rendered.
	Reused       bool
	MarkdownPath string
	DocxPath     string
	HTMLPath     string
}

// TenderDir is <output_dir>/<tender>.
func (p *Pipeline) TenderDir(tender string) string {
	return filepath.Join(p.outputDir, store.SafeName(tender))
}

// MergedPath returns the merged markdown path; ext includes the dot.
func (p *Pipeline) MergedPath(tender, ext string) string {
	return filepath.Join(p.TenderDir(tender), store.SafeName(tender)+MergedSuffix+ext)
}

// RunFile ingests path and runs it as a tender named after the file.
func (p *Pipeline) RunFile(ctx context.Context, path string) (TenderResult, error) {
	name := ingest.TenderName(path)
	if _, err := os.Stat(p.MergedPath(name, ".md")); err == nil {
		return p.RunTender(ctx, name, "")
	}
	text, err := ingest.Read(path)
	if err != nil {
		p.metrics.ObserveTender(metrics.OutcomeFailed)
		return TenderResult{Tender: name}, err
	}
	return p.RunTender(ctx, name, text)
}

// RunTender plans, synthesises, assembles and renders one tender. If the merged
// markdown already exists the generation stages are skipped.
func (p *Pipeline) RunTender(ctx context.Context, name, text string) (TenderResult, error) {
	res := TenderResult{
		RunID:        uuid.NewString(),
		Tender:       name,
		MarkdownPath: p.MergedPath(name, ".md"),
	}
	log := p.logger.With("run_id", res.RunID, "tender", name)

	if md, err := os.ReadFile(res.MarkdownPath); err == nil {
		log.Info("merged markdown exists, re-rendering only", "path", res.MarkdownPath)
		res.Reused = true
		if err := p.render(ctx, log, string(md), &res); err != nil {
			p.metrics.ObserveTender(metrics.OutcomeFailed)
			return res, err
		}
		p.metrics.ObserveTender(metrics.OutcomeSkipped)
		return res, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		p.metrics.ObserveTender(metrics.OutcomeFailed)
		return res, fmt.Errorf("read merged markdown: %w", err)
	}

	sections, err := p.planner.Plan(ctx, text)
	if err != nil {
		log.Error("section planning failed", "error", err)
		p.metrics.ObserveTender(metrics.OutcomeFailed)
		return res, err
	}
	res.Sections = sections
	log.Info("sections discovered", "count", len(sections))

	res.Chapters, err = p.orch.Run(ctx, name, text, sections)
	if err != nil {
		log.Error("chapter synthesis aborted", "error", err, "persisted", len(res.Chapters))
		p.metrics.ObserveTender(metrics.OutcomeAborted)
		return res, err
	}

	md, err := p.asm.Assemble(ctx, name, sections)
	if err != nil {
		log.Error("assembly failed, rendering skipped", "error", err)
		p.metrics.ObserveTender(metrics.OutcomeFailed)
		return res, err
	}
	if err := os.MkdirAll(filepath.Dir(res.MarkdownPath), 0o755); err != nil {
		p.metrics.ObserveTender(metrics.OutcomeFailed)
		return res, fmt.Errorf("create tender dir: %w", err)
	}
	if err := os.WriteFile(res.MarkdownPath, []byte(md), 0o644); err != nil {
		p.metrics.ObserveTender(metrics.OutcomeFailed)
		return res, fmt.Errorf("write merged markdown: %w", err)
	}
	log.Info("merged markdown written", "path", res.MarkdownPath)

	if err := p.render(ctx, log, md, &res); err != nil {
		p.metrics.ObserveTender(metrics.OutcomeFailed)
		return res, err
	}
	p.metrics.ObserveTender(metrics.OutcomeOK)
	log.Info("tender done", "dir", p.TenderDir(name))
	return res, nil
}

func (p *Pipeline) render(ctx context.Context, log *slog.Logger, md string, res *TenderResult) error {
	out, err := p.pub.PublishMarkdown(ctx, md, publisher.PublishParams{
		Header:   res.Tender,
		DocxPath: p.MergedPath(res.Tender, ".docx"),
		HTMLPath: p.MergedPath(res.Tender, ".html"),
	})
	if err != nil {
		log.Error("render failed", "error", err)
		return fmt.Errorf("render %s: %w", res.Tender, err)
	}
	res.DocxPath = out.DocxPath
	res.HTMLPath = out.HTMLPath
	return nil
}

// BatchItem is the outcome of one file of a batch.
type BatchItem struct {
	Path   string
	Result TenderResult
	Err    error
}

// RunBatch processes files in order; a failing tender is logged and the batch continues.
func (p *Pipeline) RunBatch(ctx context.Context, paths []string) []BatchItem {
	items := make([]BatchItem, 0, len(paths))
	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		p.logger.Info("processing tender file", "path", path)
		res, err := p.RunFile(ctx, path)
		if err != nil {
			p.logger.Error("tender failed", "path", path, "error", err)
		}
		items = append(items, BatchItem{Path: path, Result: res, Err: err})
	}
	return items
}

// RunDir runs every tender file found in dir.
func (p *Pipeline) RunDir(ctx context.Context, dir string) ([]BatchItem, error) {
	paths, err := ingest.Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no tender files found in %s", dir)
	}
	return p.RunBatch(ctx, paths), nil
}
