package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/makini/darasa/pkg/auth"
	"github.com/makini/darasa/pkg/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Client is a middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// ConnID identifies this connection; one user may hold several.
	ConnID string

	UserID string
	Thread model.ThreadID
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Str("conn", c.ConnID).Msg("read error")
			}
			break
		}

		// Identity and thread come from the connection, never from the
		// payload; the client cannot speak for anyone else.
		msg := &model.Message{
			ThreadID:  c.Thread,
			SenderID:  c.UserID,
			Type:      model.TypeMessage,
			CreatedAt: time.Now(),
		}

		var wire model.Message
		if err := json.Unmarshal(raw, &wire); err == nil && wire.Content != "" {
			msg.Content = wire.Content
			if wire.Type != "" {
				msg.Type = wire.Type
			}
		} else {
			msg.Content = string(raw)
		}

		c.hub.broadcast <- msg
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveWs authenticates the request, resolves the thread and hands the
// connection to the hub.
func serveWs(hub *Hub, tokens *auth.Manager, w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		// Query param fallback for websocket clients that cannot set
		// headers.
		tokenString = r.URL.Query().Get("token")
	}

	if tokenString == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := tokens.ValidateToken(auth.StripBearer(tokenString))
	if err != nil {
		hub.log.Warn().Err(err).Msg("unauthorized: invalid token")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	thread, err := model.ParseThreadKey(r.URL.Query().Get("thread"))
	if err != nil {
		http.Error(w, "Invalid thread key", http.StatusBadRequest)
		return
	}
	if !thread.Involves(claims.UserID) {
		http.Error(w, "Unauthorized to join this conversation", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error().Err(err).Msg("upgrade failed")
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		ConnID: uuid.NewString(),
		UserID: claims.UserID,
		Thread: thread,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}
