// Package socket is the realtime channel of the messenger. The client
// is explicitly constructed and injected into its consumer — there is
// no shared package-level connection — so tests substitute a fake
// gateway and independent connections can coexist.
package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/makini/darasa/pkg/model"
)

const writeWait = 10 * time.Second

// Config wires a Client to one gateway and one thread.
type Config struct {
	// GatewayAddr is the gateway host:port.
	GatewayAddr string
	// Token is the bearer JWT from login.
	Token string
	// Thread selects which conversation or space to join.
	Thread model.ThreadID
}

// Client is a single websocket connection to the gateway. Incoming
// confirmed messages stream out of Messages; Send pushes user input up
// to the hub.
type Client struct {
	cfg  Config
	conn *websocket.Conn
	msgs chan model.Message

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func New(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		msgs: make(chan model.Message, 64),
	}
}

// Dial connects to the gateway and starts the read loop. The Messages
// channel closes when the connection drops.
func (c *Client) Dial(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.cfg.GatewayAddr, Path: "/ws"}
	q := u.Query()
	q.Set("thread", c.cfg.Thread.Key())
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Add("Authorization", "Bearer "+c.cfg.Token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	c.conn = conn

	go c.readLoop()
	return nil
}

// Messages delivers confirmed messages pushed by the gateway.
func (c *Client) Messages() <-chan model.Message {
	return c.msgs
}

func (c *Client) readLoop() {
	defer close(c.msgs)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg model.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		c.msgs <- msg
	}
}

// Send writes one message to the gateway. It satisfies the messenger
// SendFunc contract: nil on success, a descriptive error otherwise.
func (c *Client) Send(ctx context.Context, msg model.Message) error {
	if c.conn == nil {
		return fmt.Errorf("send: not connected")
	}

	// The gateway assigns the real ID and timestamp; the temporary
	// local ID never leaves the client.
	wire := msg
	wire.ID = 0

	raw, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// Close sends a close frame and tears the connection down.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.conn == nil {
			return
		}
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
