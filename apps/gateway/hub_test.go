package main

import (
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makini/darasa/pkg/model"
)

// newTestHub builds a hub without Kafka, pointed at a redis address
// nothing listens on; presence writes fail and get logged, which is
// fine for exercising the client-map bookkeeping.
func newTestHub() *Hub {
	return &Hub{
		threadClients: make(map[string]map[*Client]bool),
		userClients:   make(map[string]map[*Client]bool),
		broadcast:     make(chan *model.Message, 8),
		fanout:        make(chan delivery, 8),
		register:      make(chan *Client, 1),
		unregister:    make(chan *Client, 1),
		redis:         redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
		log:           zerolog.Nop(),
	}
}

func testDelivery(t *testing.T, thread model.ThreadID, sender, content string) delivery {
	t.Helper()
	msg := &model.Message{
		ID:       9001,
		ThreadID: thread,
		SenderID: sender,
		Type:     model.TypeMessage,
		Content:  content,
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return delivery{msg: msg, raw: raw}
}

// Scenario: a conversation fanout drops a slow client, then its read
// pump dies and unregisters it. The late unregister must be a no-op,
// not a second close of the send channel.
func TestHub_UnregisterAfterSlowClientDropIsSafe(t *testing.T) {
	h := newTestHub()
	thread := model.NewConversation("student1", "instructor1")
	client := &Client{send: make(chan []byte), UserID: "student1", ConnID: "c1", Thread: thread}
	h.addClient(client)

	// Unbuffered send channel with no reader: routing drops the client.
	h.route(testDelivery(t, thread, "instructor1", "hello"))

	_, open := <-client.send
	assert.False(t, open, "send channel closed by the drop")
	assert.Empty(t, h.threadClients[thread.Key()], "dropped client must leave the thread map too")
	assert.Empty(t, h.userClients["student1"])

	require.NotPanics(t, func() { h.dropClient(client) })
}

func TestHub_SlowSpaceClientDroppedFromBothMaps(t *testing.T) {
	h := newTestHub()
	thread := model.NewSpace("go-101")
	slow := &Client{send: make(chan []byte), UserID: "student1", ConnID: "c1", Thread: thread}
	fast := &Client{send: make(chan []byte, 4), UserID: "student2", ConnID: "c2", Thread: thread}
	h.addClient(slow)
	h.addClient(fast)

	h.route(testDelivery(t, thread, "instructor1", "lecture at noon"))

	assert.Len(t, fast.send, 1, "healthy client still gets the message")
	require.Contains(t, h.threadClients[thread.Key()], fast)
	assert.NotContains(t, h.threadClients[thread.Key()], slow)
	assert.Empty(t, h.userClients["student1"])

	require.NotPanics(t, func() { h.dropClient(slow) })
	require.NotPanics(t, func() { h.dropClient(fast) })
	assert.Empty(t, h.threadClients)
	assert.Empty(t, h.userClients)
}
