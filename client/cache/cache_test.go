package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makini/darasa/pkg/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_PutAndReplay(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	thread := model.NewConversation("student1", "instructor1")
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, c.Put(ctx, model.Message{
			ID:        i,
			ThreadID:  thread,
			SenderID:  "instructor1",
			Content:   "lesson note",
			Type:      model.TypeMessage,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	msgs, err := c.Thread(ctx, thread)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.EqualValues(t, 1, msgs[0].ID)
	assert.True(t, msgs[0].CreatedAt.Before(msgs[2].CreatedAt))
}

func TestCache_SkipsOptimisticMessages(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	thread := model.NewSpace("course-1")

	require.NoError(t, c.Put(ctx, model.Message{
		ID:       model.NextLocalID(),
		ThreadID: thread,
		Content:  "not yet confirmed",
	}))

	msgs, err := c.Thread(ctx, thread)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestCache_PutAllIsIdempotent(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	thread := model.NewSpace("course-2")
	batch := []model.Message{
		{ID: 10, ThreadID: thread, SenderID: "a", Content: "x", CreatedAt: time.Now().UTC()},
		{ID: 11, ThreadID: thread, SenderID: "b", Content: "y", CreatedAt: time.Now().UTC()},
	}

	require.NoError(t, c.PutAll(ctx, batch))
	require.NoError(t, c.PutAll(ctx, batch))

	msgs, err := c.Thread(ctx, thread)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestCache_ThreadsAreIsolated(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()
	a := model.NewSpace("course-a")
	b := model.NewSpace("course-b")

	require.NoError(t, c.Put(ctx, model.Message{ID: 1, ThreadID: a, SenderID: "s", Content: "in a", CreatedAt: time.Now()}))

	msgs, err := c.Thread(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
