package messenger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makini/darasa/pkg/model"
)

func confirmedMsg(id int64, content string, at time.Time) model.Message {
	return model.Message{
		ID:        id,
		ThreadID:  model.NewConversation("student1", "instructor1"),
		SenderID:  "instructor1",
		Content:   content,
		Type:      model.TypeMessage,
		CreatedAt: at,
	}
}

func pendingMsg(content string, at time.Time, status model.DeliveryStatus) Pending {
	return Pending{
		Message: model.Message{
			ID:        model.NextLocalID(),
			ThreadID:  model.NewConversation("student1", "instructor1"),
			SenderID:  "student1",
			Content:   content,
			Type:      model.TypeMessage,
			CreatedAt: at,
		},
		Status: status,
	}
}

func TestProject_OrderedByCreatedAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	confirmed := map[int64]model.Message{
		3: confirmedMsg(3, "third", base.Add(2*time.Second)),
		1: confirmedMsg(1, "first", base),
		2: confirmedMsg(2, "second", base.Add(time.Second)),
	}
	pending := []Pending{
		pendingMsg("fourth", base.Add(3*time.Second), model.StatusSending),
	}

	entries := Project(confirmed, pending)
	require.Len(t, entries, 4)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].CreatedAt.Before(entries[i-1].CreatedAt),
			"entry %d out of order", i)
	}
	assert.Equal(t, "first", entries[0].Content)
	assert.Equal(t, "fourth", entries[3].Content)
}

func TestProject_Deterministic(t *testing.T) {
	base := time.Now()
	confirmed := map[int64]model.Message{}
	for i := int64(1); i <= 20; i++ {
		// Same timestamp on purpose: order must still be stable.
		confirmed[i] = confirmedMsg(i, "msg", base)
	}
	pending := []Pending{
		pendingMsg("a", base, model.StatusSending),
		pendingMsg("b", base, model.StatusError),
	}

	first := Project(confirmed, pending)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Project(confirmed, pending))
	}
}

func TestProject_NoDuplicateIDs(t *testing.T) {
	base := time.Now()
	confirmed := map[int64]model.Message{
		1: confirmedMsg(1, "a", base),
		2: confirmedMsg(2, "b", base),
	}
	pending := []Pending{
		pendingMsg("c", base, model.StatusSending),
		pendingMsg("d", base, model.StatusSending),
	}

	entries := Project(confirmed, pending)
	seen := make(map[int64]bool, len(entries))
	for _, e := range entries {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}
}

func TestProject_TieBreakConfirmedFirst(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	confirmed := map[int64]model.Message{
		7: confirmedMsg(7, "confirmed", at),
	}
	pending := []Pending{
		pendingMsg("optimistic", at, model.StatusSending),
	}

	entries := Project(confirmed, pending)
	require.Len(t, entries, 2)
	assert.Equal(t, "confirmed", entries[0].Content)
	assert.Equal(t, "optimistic", entries[1].Content)
	assert.True(t, entries[1].Local)
}

func TestProject_StatusTagging(t *testing.T) {
	at := time.Now()
	confirmed := map[int64]model.Message{1: confirmedMsg(1, "a", at)}
	pending := []Pending{
		pendingMsg("b", at.Add(time.Second), model.StatusSending),
		pendingMsg("c", at.Add(2*time.Second), model.StatusError),
	}

	entries := Project(confirmed, pending)
	require.Len(t, entries, 3)
	assert.Equal(t, model.StatusSent, entries[0].Status)
	assert.False(t, entries[0].Local)
	assert.Equal(t, model.StatusSending, entries[1].Status)
	assert.Equal(t, model.StatusError, entries[2].Status)
}

func TestProject_Empty(t *testing.T) {
	assert.Empty(t, Project(nil, nil))
	assert.Empty(t, Project(map[int64]model.Message{}, []Pending{}))
}
