package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"auto_bid_writer/logging"
	"auto_bid_writer/store"
)

// MergedHeading opens every merged proposal.
const MergedHeading = "# 投标文件\n\n"

var ErrNoChapters = errors.New("no chapters stored")

// Assembler merges persisted chapters into one markdown document.
type Assembler struct {
	store  store.ChapterStore
	logger *slog.Logger
}

func NewAssembler(chapters store.ChapterStore, logger *slog.Logger) *Assembler {
	return &Assembler{store: chapters, logger: logging.OrNop(logger)}
}

// Assemble emits one level-2 section per title of order that has stored content,
// in that order. Titles without a stored chapter are skipped; if none of order is stored
// the result is the title line alone. Only an empty or unreadable tender fails.
func (a *Assembler) Assemble(ctx context.Context, tender string, order []string) (string, error) {
	stored, err := a.store.List(ctx, tender)
	if err != nil {
		return "", fmt.Errorf("assemble %s: %w", tender, err)
	}
	if len(stored) == 0 {
		return "", fmt.Errorf("assemble %s: %w", tender, ErrNoChapters)
	}

	parts := []string{MergedHeading}
	seen := make(map[string]struct{}, len(order))
	for _, title := range order {
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}

		content, err := a.store.Load(ctx, tender, title)
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Warn("chapter missing from store, skipped", "tender", tender, "chapter", title)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("assemble %s: load %s: %w", tender, title, err)
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s\n\n", title, content))
	}
	if len(parts) == 1 {
		a.logger.Warn("no planned chapter stored, document has title only", "tender", tender, "stored", len(stored))
	}
	a.logger.Info("chapters assembled", "tender", tender, "chapters", len(parts)-1)
	return strings.Join(parts, "\n"), nil
}
