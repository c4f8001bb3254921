package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runChapterStoreContract checks the behaviour every ChapterStore must share.
func runChapterStoreContract(t *testing.T, s ChapterStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "园区项目", "技术方案")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Save(ctx, "园区项目", "技术方案", "## 总体架构\n正文"))
	require.NoError(t, s.Save(ctx, "园区项目", "商务部分", "报价说明"))
	require.NoError(t, s.Save(ctx, "其他项目", "投标函", "致招标人"))

	got, err := s.Load(ctx, "园区项目", "技术方案")
	require.NoError(t, err)
	assert.Equal(t, "## 总体架构\n正文", got)

	titles, err := s.List(ctx, "园区项目")
	require.NoError(t, err)
	assert.Equal(t, []string{"商务部分", "技术方案"}, titles)

	// overwrite keeps a single slot
	require.NoError(t, s.Save(ctx, "园区项目", "商务部分", "新报价"))
	got, err = s.Load(ctx, "园区项目", "商务部分")
	require.NoError(t, err)
	assert.Equal(t, "新报价", got)
	titles, err = s.List(ctx, "园区项目")
	require.NoError(t, err)
	assert.Len(t, titles, 2)

	// titles that only differ in path separators keep separate slots
	require.NoError(t, s.Save(ctx, "清单项目", "软件/硬件清单", "斜杠"))
	require.NoError(t, s.Save(ctx, "清单项目", "软件_硬件清单", "下划线"))
	got, err = s.Load(ctx, "清单项目", "软件/硬件清单")
	require.NoError(t, err)
	assert.Equal(t, "斜杠", got)
	got, err = s.Load(ctx, "清单项目", "软件_硬件清单")
	require.NoError(t, err)
	assert.Equal(t, "下划线", got)
	titles, err = s.List(ctx, "清单项目")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"软件/硬件清单", "软件_硬件清单"}, titles)
}
