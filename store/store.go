// Package store persists generated chapter text per (tender, chapter title) slot.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("not found")
)

// ChapterStore is the persisted-chapter slot map. Each slot is written by exactly one
// synthesis task per run and read by the assembler after all tasks are done.
type ChapterStore interface {
	Save(ctx context.Context, tender, title, content string) error
	// Load returns ErrNotFound when the slot was never written.
	Load(ctx context.Context, tender, title string) (string, error)
	// List enumerates the titles stored for a tender. It fails when the tender's
	// location cannot be enumerated at all.
	List(ctx context.Context, tender string) ([]string, error)
}
