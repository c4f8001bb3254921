package generator

import (
	"context"
	"errors"
)

// Synthesizer 负责单个章节的 分析 → 撰写 → 质检 → (按需)优化 流程。
type Synthesizer struct {
	llm LLMClient
	settings
}

func NewSynthesizer(llm LLMClient, opts ...Option) (*Synthesizer, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Synthesizer{llm: llm, settings: newSettings(opts)}, nil
}

// Synthesize never fails: a stage error stops the chapter and the draft carries
// the placeholder content plus the *StageError in Err.
func (s *Synthesizer) Synthesize(ctx context.Context, tenderText, title string) ChapterDraft {
	draft := ChapterDraft{Title: title}

	analysis, err := s.run(ctx, &draft, StageAnalyze, BuildAnalysisPrompt(tenderText, title))
	if err != nil {
		return s.fail(draft, err)
	}

	content, err := s.run(ctx, &draft, StageDraft, BuildDraftPrompt(s.writer, title, analysis))
	if err != nil {
		return s.fail(draft, err)
	}

	review, err := s.run(ctx, &draft, StageCheck, BuildCheckPrompt(title, analysis, content))
	if err != nil {
		return s.fail(draft, err)
	}

	if s.classifier.NeedsRevision(review) {
		revised, err := s.run(ctx, &draft, StageRevise, BuildRevisionPrompt(s.optimizer, content, review))
		if err != nil {
			return s.fail(draft, err)
		}
		content = revised
		draft.Revised = true
	}

	draft.Content = content
	return draft
}

func (s *Synthesizer) run(ctx context.Context, draft *ChapterDraft, stage Stage, prompt Prompt) (string, error) {
	draft.Attempts++
	text, err := complete(ctx, s.llm, s.callTimeout, prompt)
	if err != nil {
		return "", &StageError{Title: draft.Title, Stage: stage, Err: err}
	}
	draft.appendTurn(stage, text)
	return text, nil
}

func (s *Synthesizer) fail(draft ChapterDraft, err error) ChapterDraft {
	s.logger.Error("chapter synthesis failed", "chapter", draft.Title, "error", err)
	draft.Content = Placeholder(draft.Title)
	draft.Err = err
	return draft
}
