package pipeline

import (
	"context"
	"errors"
	"sync"

	"auto_bid_writer/generator"
	"auto_bid_writer/store"
)

// synthFunc adapts a function to ChapterSynthesizer.
type synthFunc func(ctx context.Context, tenderText, title string) generator.ChapterDraft

func (f synthFunc) Synthesize(ctx context.Context, tenderText, title string) generator.ChapterDraft {
	return f(ctx, tenderText, title)
}

func okDraft(title string) generator.ChapterDraft {
	return generator.ChapterDraft{Title: title, Content: "内容：" + title, Attempts: 3}
}

func failedDraft(title string) generator.ChapterDraft {
	return generator.ChapterDraft{
		Title:   title,
		Content: generator.Placeholder(title),
		Err:     &generator.StageError{Title: title, Stage: generator.StageDraft, Err: errors.New("llm down")},
	}
}

// recordingStore counts saves and can fail them.
type recordingStore struct {
	store.ChapterStore
	mu      sync.Mutex
	saves   []string
	saveErr error
}

func (s *recordingStore) Save(ctx context.Context, tender, title, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, title)
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.ChapterStore.Save(ctx, tender, title, content)
}

func (s *recordingStore) saved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saves...)
}

func titles(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + string(rune('A'+i))
	}
	return out
}
