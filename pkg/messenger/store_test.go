package messenger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makini/darasa/pkg/model"
)

func TestStore_UpsertAndSnapshot(t *testing.T) {
	s := NewStore()
	at := time.Now()
	s.Upsert(confirmedMsg(1, "a", at))
	s.Upsert(confirmedMsg(2, "b", at.Add(time.Second)))
	s.Upsert(confirmedMsg(1, "a-edited", at))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a-edited", snap[1].Content)
}

func TestStore_DropsUnconfirmed(t *testing.T) {
	s := NewStore()
	s.Upsert(model.Message{ID: model.NextLocalID(), Content: "local"})
	assert.Zero(t, s.Len())
}

func TestStore_ReplaceAll(t *testing.T) {
	s := NewStore()
	at := time.Now()
	s.Upsert(confirmedMsg(1, "old", at))

	s.ReplaceAll([]model.Message{
		confirmedMsg(10, "x", at),
		confirmedMsg(11, "y", at),
	})
	snap := s.Snapshot()
	require.Len(t, snap, 2)
	_, hasOld := snap[1]
	assert.False(t, hasOld)
}

func TestStore_UpdatesCoalesce(t *testing.T) {
	s := NewStore()
	at := time.Now()
	for i := int64(1); i <= 5; i++ {
		s.Upsert(confirmedMsg(i, "m", at))
	}

	// A burst of changes yields at least one pending signal, never a
	// blocked producer.
	select {
	case <-s.Updates():
	default:
		t.Fatal("expected a pending update signal")
	}
	select {
	case <-s.Updates():
		t.Fatal("signals should coalesce to one")
	default:
	}
}
