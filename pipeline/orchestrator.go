// Package pipeline drives one tender from text to rendered proposal: planning,
// concurrent chapter synthesis, assembly and rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"auto_bid_writer/config"
	"auto_bid_writer/generator"
	"auto_bid_writer/logging"
	"auto_bid_writer/metrics"
	"auto_bid_writer/store"
)

// DefaultFailureBudget is the number of failed chapters that aborts a tender run.
const DefaultFailureBudget = 10

var ErrFailureBudgetExceeded = errors.New("chapter failure budget exceeded")

// ChapterSynthesizer produces one chapter draft. Implementations must not fail;
// a failed chapter is reported through ChapterDraft.Err.
type ChapterSynthesizer interface {
	Synthesize(ctx context.Context, tenderText, title string) generator.ChapterDraft
}

// Progress is reported once per completed chapter.
type Progress struct {
	Tender string
	Title  string
	Done   int
	Total  int
	Failed bool
}

// OrchestratorOption customises an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

func WithFailureBudget(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.budget = n
		}
	}
}

func WithOrchestratorLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithProgress registers a callback invoked from the aggregator goroutine.
func WithProgress(fn func(Progress)) OrchestratorOption {
	return func(o *Orchestrator) { o.progress = fn }
}

// Orchestrator fans chapter synthesis out over a bounded worker set and persists
// every result from a single aggregator.
type Orchestrator struct {
	synth    ChapterSynthesizer
	store    store.ChapterStore
	workers  int
	budget   int
	logger   *slog.Logger
	metrics  *metrics.Metrics
	progress func(Progress)
}

func NewOrchestrator(synth ChapterSynthesizer, chapters store.ChapterStore, opts ...OrchestratorOption) (*Orchestrator, error) {
	if synth == nil {
		return nil, errors.New("synthesizer is required")
	}
	if chapters == nil {
		return nil, errors.New("chapter store is required")
	}
	o := &Orchestrator{
		synth:   synth,
		store:   chapters,
		workers: config.DefaultWorkers(),
		budget:  DefaultFailureBudget,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type taskResult struct {
	draft generator.ChapterDraft
}

// Run synthesises every distinct title of plan. Drafts are persisted under
// (tender, title) as they complete. When the failure budget is reached all
// outstanding work is cancelled, nothing more is persisted and
// ErrFailureBudgetExceeded is returned together with the drafts persisted so far.
func (o *Orchestrator) Run(ctx context.Context, tender, tenderText string, plan []string) (map[string]generator.ChapterDraft, error) {
	titles := o.distinct(plan)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan taskResult)
	go func() {
		var g errgroup.Group
		g.SetLimit(o.workers)
		for _, title := range titles {
			if runCtx.Err() != nil {
				break
			}
			g.Go(func() error {
				if runCtx.Err() != nil {
					return nil
				}
				results <- taskResult{draft: o.synthesize(runCtx, tenderText, title)}
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var (
		drafts   = make(map[string]generator.ChapterDraft, len(titles))
		failures int
		done     int
		abortErr error
	)
	for res := range results {
		if abortErr != nil {
			continue // drain
		}
		if err := ctx.Err(); err != nil {
			abortErr = err
			cancel()
			continue
		}

		draft := res.draft
		done++
		o.metrics.ObserveChapter(draft)
		failed := draft.Failed()
		if failed {
			failures++
		}
		if failures >= o.budget {
			o.logger.Error("failure budget reached, aborting tender",
				"tender", tender, "failures", failures, "budget", o.budget)
			abortErr = fmt.Errorf("%w: %d failed chapters", ErrFailureBudgetExceeded, failures)
			cancel()
			continue
		}

		if err := o.store.Save(ctx, tender, draft.Title, draft.Content); err != nil {
			failures++
			o.logger.Error("persist chapter failed", "tender", tender, "chapter", draft.Title, "error", err)
			if failures >= o.budget {
				abortErr = fmt.Errorf("%w: %d failed chapters", ErrFailureBudgetExceeded, failures)
				cancel()
			}
			continue
		}
		drafts[draft.Title] = draft

		o.logger.Info("chapter done", "tender", tender, "chapter", draft.Title,
			"progress", fmt.Sprintf("%d/%d", done, len(titles)), "failed", failed, "revised", draft.Revised)
		if o.progress != nil {
			o.progress(Progress{Tender: tender, Title: draft.Title, Done: done, Total: len(titles), Failed: failed})
		}
	}

	if abortErr != nil {
		return drafts, abortErr
	}
	if err := ctx.Err(); err != nil {
		return drafts, err
	}
	return drafts, nil
}

// synthesize turns a panic inside a task into a failed draft.
func (o *Orchestrator) synthesize(ctx context.Context, tenderText, title string) (draft generator.ChapterDraft) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("chapter task panicked", "chapter", title, "panic", r, "stack", string(debug.Stack()))
			draft = generator.ChapterDraft{
				Title:   title,
				Content: generator.Placeholder(title),
				Err:     fmt.Errorf("chapter %s: panic: %v", title, r),
			}
		}
	}()
	return o.synth.Synthesize(ctx, tenderText, title)
}

func (o *Orchestrator) distinct(plan []string) []string {
	seen := make(map[string]struct{}, len(plan))
	out := make([]string, 0, len(plan))
	for _, title := range plan {
		if _, dup := seen[title]; dup {
			o.logger.Warn("duplicate chapter title ignored", "chapter", title)
			continue
		}
		seen[title] = struct{}{}
		out = append(out, title)
	}
	return out
}
