package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationKeyIsOrderIndependent(t *testing.T) {
	a := NewConversation("student1", "instructor1")
	b := NewConversation("instructor1", "student1")
	assert.Equal(t, a, b)
	assert.Equal(t, "dm:instructor1:student1", a.Key())
}

func TestSpaceKey(t *testing.T) {
	s := NewSpace("course-42")
	assert.Equal(t, "space:course-42", s.Key())
	assert.True(t, s.Involves("anyone"))
}

func TestParseThreadKeyRoundTrip(t *testing.T) {
	for _, key := range []string{"dm:alice:bob", "space:go-101"} {
		tid, err := ParseThreadKey(key)
		require.NoError(t, err)
		assert.Equal(t, key, tid.Key())
	}
}

func TestParseThreadKeyRejectsGarbage(t *testing.T) {
	for _, key := range []string{"", "dm:", "dm:onlyone", "dm:a:b:c", "space:", "room:general"} {
		_, err := ParseThreadKey(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestConversationInvolvesAndOther(t *testing.T) {
	c := NewConversation("alice", "bob")
	assert.True(t, c.Involves("alice"))
	assert.True(t, c.Involves("bob"))
	assert.False(t, c.Involves("mallory"))
	assert.Equal(t, "bob", c.Other("alice"))
	assert.Equal(t, "alice", c.Other("bob"))
}

func TestThreadIDJSONRoundTrip(t *testing.T) {
	msg := Message{
		ID:       42,
		ThreadID: NewSpace("course-7"),
		SenderID: "u1",
		Content:  "hello",
		Type:     TypeMessage,
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"thread_id":"space:course-7"`)

	var back Message
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, msg.ThreadID, back.ThreadID)
}

func TestNextLocalIDNegativeAndUnique(t *testing.T) {
	seen := make(map[int64]bool)
	for i := 0; i < 1000; i++ {
		id := NextLocalID()
		assert.Negative(t, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestConfirmed(t *testing.T) {
	assert.True(t, Message{ID: 1}.Confirmed())
	assert.False(t, Message{ID: 0}.Confirmed())
	assert.False(t, Message{ID: NextLocalID()}.Confirmed())
}
