package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_bid_writer/generator"
	"auto_bid_writer/store"
)

func TestOrchestratorPersistsEveryChapter(t *testing.T) {
	fs := store.NewFileStore(t.TempDir())
	var progress []Progress
	o, err := NewOrchestrator(synthFunc(func(_ context.Context, _, title string) generator.ChapterDraft {
		return okDraft(title)
	}), fs, WithWorkers(4), WithProgress(func(p Progress) { progress = append(progress, p) }))
	require.NoError(t, err)

	plan := []string{"投标函", "技术方案", "商务部分"}
	drafts, err := o.Run(context.Background(), "项目A", "招标文件", plan)
	require.NoError(t, err)
	require.Len(t, drafts, 3)

	for _, title := range plan {
		content, err := fs.Load(context.Background(), "项目A", title)
		require.NoError(t, err)
		assert.Equal(t, "内容："+title, content)
		assert.Equal(t, title, drafts[title].Title)
	}

	require.Len(t, progress, 3)
	var seen []string
	for i, p := range progress {
		assert.Equal(t, i+1, p.Done)
		assert.Equal(t, 3, p.Total)
		seen = append(seen, p.Title)
	}
	assert.ElementsMatch(t, plan, seen)
}

func TestOrchestratorSeparatorTitlesKeepOwnContent(t *testing.T) {
	fs := store.NewFileStore(t.TempDir())
	o, err := NewOrchestrator(synthFunc(func(_ context.Context, _, title string) generator.ChapterDraft {
		return okDraft(title)
	}), fs)
	require.NoError(t, err)

	plan := []string{"软件/硬件清单", "软件_硬件清单"}
	_, err = o.Run(context.Background(), "项目C", "x", plan)
	require.NoError(t, err)

	md, err := NewAssembler(fs, nil).Assemble(context.Background(), "项目C", plan)
	require.NoError(t, err)
	assert.Contains(t, md, "## 软件/硬件清单\n\n内容：软件/硬件清单\n")
	assert.Contains(t, md, "## 软件_硬件清单\n\n内容：软件_硬件清单\n")
}

func TestOrchestratorDispatchesDuplicateTitlesOnce(t *testing.T) {
	var calls atomic.Int32
	o, err := NewOrchestrator(synthFunc(func(_ context.Context, _, title string) generator.ChapterDraft {
		calls.Add(1)
		return okDraft(title)
	}), store.NewFileStore(t.TempDir()))
	require.NoError(t, err)

	drafts, err := o.Run(context.Background(), "t", "x", []string{"A", "B", "A"})
	require.NoError(t, err)
	assert.Len(t, drafts, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOrchestratorAbortsAtFailureBudget(t *testing.T) {
	rs := &recordingStore{ChapterStore: store.NewFileStore(t.TempDir())}
	var calls atomic.Int32
	o, err := NewOrchestrator(synthFunc(func(_ context.Context, _, title string) generator.ChapterDraft {
		calls.Add(1)
		return failedDraft(title)
	}), rs, WithWorkers(1), WithFailureBudget(10))
	require.NoError(t, err)

	plan := titles("章节", 20)
	drafts, err := o.Run(context.Background(), "t", "x", plan)
	require.ErrorIs(t, err, ErrFailureBudgetExceeded)

	// the tenth failure aborts before it is persisted
	assert.Len(t, rs.saved(), 9)
	assert.Len(t, drafts, 9)
	assert.LessOrEqual(t, calls.Load(), int32(11))
}

func TestOrchestratorNoPersistenceAfterAbort(t *testing.T) {
	rs := &recordingStore{ChapterStore: store.NewFileStore(t.TempDir())}
	release := make(chan struct{})
	o, err := NewOrchestrator(synthFunc(func(ctx context.Context, _, title string) generator.ChapterDraft {
		if title == "慢" {
			<-release
			return okDraft(title)
		}
		return failedDraft(title)
	}), rs, WithWorkers(8), WithFailureBudget(2))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := o.Run(context.Background(), "t", "x", []string{"慢", "坏1", "坏2"})
		done <- err
	}()

	// the two failures reach the budget while the slow chapter is still running
	require.Eventually(t, func() bool { return len(rs.saved()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.ErrorIs(t, <-done, ErrFailureBudgetExceeded)
	assert.Len(t, rs.saved(), 1)
	assert.NotContains(t, rs.saved(), "慢")
}

func TestOrchestratorCountsPersistenceErrors(t *testing.T) {
	rs := &recordingStore{ChapterStore: store.NewFileStore(t.TempDir()), saveErr: errors.New("disk full")}
	o, err := NewOrchestrator(synthFunc(func(_ context.Context, _, title string) generator.ChapterDraft {
		return okDraft(title)
	}), rs, WithWorkers(1), WithFailureBudget(2))
	require.NoError(t, err)

	_, err = o.Run(context.Background(), "t", "x", []string{"A", "B", "C", "D"})
	require.ErrorIs(t, err, ErrFailureBudgetExceeded)
	assert.Len(t, rs.saved(), 2)
}

func TestOrchestratorRecoversPanics(t *testing.T) {
	fs := store.NewFileStore(t.TempDir())
	o, err := NewOrchestrator(synthFunc(func(_ context.Context, _, title string) generator.ChapterDraft {
		if title == "B" {
			panic("boom")
		}
		return okDraft(title)
	}), fs)
	require.NoError(t, err)

	drafts, err := o.Run(context.Background(), "t", "x", []string{"A", "B", "C"})
	require.NoError(t, err)
	require.True(t, drafts["B"].Failed())

	content, err := fs.Load(context.Background(), "t", "B")
	require.NoError(t, err)
	assert.Equal(t, generator.Placeholder("B"), content)
}

func TestOrchestratorRespectsWorkerLimit(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
	)
	o, err := NewOrchestrator(synthFunc(func(_ context.Context, _, title string) generator.ChapterDraft {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return okDraft(title)
	}), store.NewFileStore(t.TempDir()), WithWorkers(2))
	require.NoError(t, err)

	_, err = o.Run(context.Background(), "t", "x", titles("c", 8))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 2)
}

func TestOrchestratorCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o, err := NewOrchestrator(synthFunc(func(_ context.Context, _, title string) generator.ChapterDraft {
		return okDraft(title)
	}), store.NewFileStore(t.TempDir()))
	require.NoError(t, err)

	_, err = o.Run(ctx, "t", "x", []string{"A"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewOrchestratorValidates(t *testing.T) {
	_, err := NewOrchestrator(nil, store.NewFileStore(t.TempDir()))
	require.Error(t, err)
	_, err = NewOrchestrator(synthFunc(func(context.Context, string, string) generator.ChapterDraft {
		return generator.ChapterDraft{}
	}), nil)
	require.Error(t, err)
}
