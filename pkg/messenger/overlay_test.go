package messenger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makini/darasa/pkg/model"
)

func newLocalMsg(content string) model.Message {
	return model.Message{
		ID:        model.NextLocalID(),
		ThreadID:  model.NewSpace("course-42"),
		SenderID:  "student1",
		Content:   content,
		Type:      model.TypeMessage,
		CreatedAt: time.Now(),
	}
}

func TestOverlay_AddAndSnapshot(t *testing.T) {
	o := NewOverlay()
	m1 := newLocalMsg("one")
	m2 := newLocalMsg("two")
	o.Add(m1)
	o.Add(m2)

	snap := o.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "one", snap[0].Message.Content)
	assert.Equal(t, "two", snap[1].Message.Content)
	assert.Equal(t, model.StatusSending, snap[0].Status)
}

func TestOverlay_DuplicateAddIgnored(t *testing.T) {
	o := NewOverlay()
	m := newLocalMsg("once")
	o.Add(m)
	o.Add(m)
	assert.Len(t, o.Snapshot(), 1)
}

func TestOverlay_LifecycleMonotonic(t *testing.T) {
	o := NewOverlay()
	m := newLocalMsg("hello")
	o.Add(m)

	o.MarkSent(m.ID)
	got, ok := o.Get(m.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusSent, got.Status)

	// sent -> error is illegal and must not happen.
	o.MarkError(m.ID)
	got, _ = o.Get(m.ID)
	assert.Equal(t, model.StatusSent, got.Status)
}

func TestOverlay_ErrorIsTerminalExceptEvict(t *testing.T) {
	o := NewOverlay()
	m := newLocalMsg("nope")
	o.Add(m)
	o.MarkError(m.ID)

	// error -> sent is illegal.
	o.MarkSent(m.ID)
	got, ok := o.Get(m.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusError, got.Status)

	// Errored entries stay until explicitly evicted.
	o.Evict(m.ID)
	_, ok = o.Get(m.ID)
	assert.False(t, ok)
}

func TestOverlay_TransitionOnMissingIDIsNoop(t *testing.T) {
	o := NewOverlay()
	o.MarkSent(-999)
	o.MarkError(-999)
	o.Evict(-999)
	assert.Empty(t, o.Snapshot())
}

func TestOverlay_CloseMakesMutationsNoops(t *testing.T) {
	o := NewOverlay()
	m := newLocalMsg("late")
	o.Add(m)
	o.Close()

	assert.True(t, o.Closed())
	assert.Empty(t, o.Snapshot())

	// A late eviction timer or send completion must not touch dead state.
	o.Add(newLocalMsg("after close"))
	o.MarkSent(m.ID)
	assert.Empty(t, o.Snapshot())
}
