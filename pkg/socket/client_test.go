package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makini/darasa/pkg/model"
)

// fakeGateway echoes every incoming message back with a server ID and
// timestamp assigned, the way the real hub does.
func fakeGateway(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	var nextID int64 = 1000

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg model.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			nextID++
			msg.ID = nextID
			msg.CreatedAt = time.Now()
			echo, _ := json.Marshal(msg)
			if err := conn.WriteMessage(websocket.TextMessage, echo); err != nil {
				return
			}
		}
	}))
}

func TestClient_SendAndReceiveEcho(t *testing.T) {
	srv := fakeGateway(t)
	defer srv.Close()

	thread := model.NewSpace("course-1")
	c := New(Config{
		GatewayAddr: strings.TrimPrefix(srv.URL, "http://"),
		Token:       "test-token",
		Thread:      thread,
	})
	require.NoError(t, c.Dial(context.Background()))
	defer c.Close()

	out := model.Message{
		ID:        model.NextLocalID(),
		ThreadID:  thread,
		SenderID:  "student1",
		Content:   "hello space",
		Type:      model.TypeMessage,
		CreatedAt: time.Now(),
	}
	require.NoError(t, c.Send(context.Background(), out))

	select {
	case got, ok := <-c.Messages():
		require.True(t, ok)
		assert.Equal(t, "hello space", got.Content)
		assert.True(t, got.Confirmed(), "echo must carry a server id")
		assert.Equal(t, thread, got.ThreadID)
	case <-time.After(2 * time.Second):
		t.Fatal("no echo received")
	}
}

func TestClient_MessagesChannelClosesOnDisconnect(t *testing.T) {
	srv := fakeGateway(t)

	c := New(Config{
		GatewayAddr: strings.TrimPrefix(srv.URL, "http://"),
		Token:       "test-token",
		Thread:      model.NewConversation("a", "b"),
	})
	require.NoError(t, c.Dial(context.Background()))

	srv.CloseClientConnections()
	srv.Close()

	select {
	case _, ok := <-c.Messages():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("messages channel did not close")
	}
}

func TestClient_SendBeforeDialFails(t *testing.T) {
	c := New(Config{GatewayAddr: "localhost:0", Thread: model.NewSpace("x")})
	err := c.Send(context.Background(), model.Message{Content: "nope"})
	assert.Error(t, err)
}
