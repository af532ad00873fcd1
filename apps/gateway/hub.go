package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/makini/darasa/pkg/metrics"
	"github.com/makini/darasa/pkg/model"
	"github.com/makini/darasa/pkg/snowflake"
)

// Hub routes messages between websocket clients and the Kafka fanout
// topic. Space messages go to every client subscribed to the space
// key; conversation messages go to both participants' clients
// globally, so a student gets their instructor's reply even while
// looking at a different thread.
type Hub struct {
	threadClients map[string]map[*Client]bool // thread key -> clients
	userClients   map[string]map[*Client]bool // user id -> clients

	broadcast  chan *model.Message
	fanout     chan delivery
	register   chan *Client
	unregister chan *Client

	producer  *kafka.Writer
	redis     *redis.Client
	snowflake *snowflake.Node
	log       zerolog.Logger
}

func NewHub(kafkaBrokers []string, topic string, redisAddr string, nodeID int64, log zerolog.Logger) *Hub {
	producer := &kafka.Writer{
		Addr:     kafka.TCP(kafkaBrokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	// Each gateway instance consumes the whole topic under its own
	// group so every instance fans out every message.
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     kafkaBrokers,
		Topic:       topic,
		GroupID:     "gateway-group-" + time.Now().Format(time.RFC3339Nano),
		StartOffset: kafka.LastOffset,
		MinBytes:    10e3,
		MaxBytes:    10e6,
	})

	// Node ID must be unique per instance in production.
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize snowflake node")
	}

	h := &Hub{
		threadClients: make(map[string]map[*Client]bool),
		userClients:   make(map[string]map[*Client]bool),
		broadcast:     make(chan *model.Message),
		fanout:        make(chan delivery, 64),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		producer:      producer,
		redis:         rdb,
		snowflake:     node,
		log:           log,
	}

	go h.consumeFanout(consumer)

	return h
}

// consumeFanout pulls confirmed messages off Kafka and pushes them to
// the connected clients they belong to.
func (h *Hub) consumeFanout(consumer *kafka.Reader) {
	defer consumer.Close()
	for {
		m, err := consumer.ReadMessage(context.Background())
		if err != nil {
			h.log.Error().Err(err).Msg("gateway consumer stopped")
			return
		}

		var msg model.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			h.log.Warn().Err(err).Msg("failed to unmarshal message from Kafka")
			continue
		}

		h.deliver(&msg, m.Value)
	}
}

type delivery struct {
	msg *model.Message
	raw []byte
}

// deliver hands one confirmed message to the Run loop, which owns the
// client maps.
func (h *Hub) deliver(msg *model.Message, raw []byte) {
	h.fanout <- delivery{msg: msg, raw: raw}
}

// pushTo delivers raw to every client in the set. Slow clients are
// dropped through dropClient, never closed inline, so both maps stay
// consistent and the channel is closed exactly once.
func (h *Hub) pushTo(clients map[*Client]bool, raw []byte) {
	for client := range clients {
		select {
		case client.send <- raw:
		default:
			h.dropClient(client)
		}
	}
}

// Run owns the client maps; register, unregister, fanout and publish
// all funnel through this loop, so no locking is needed on the maps.
func (h *Hub) Run() {
	defer h.producer.Close()
	defer h.redis.Close()

	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.dropClient(client)

		case d := <-h.fanout:
			h.route(d)

		case msg := <-h.broadcast:
			h.publish(msg)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	key := client.Thread.Key()
	if h.threadClients[key] == nil {
		h.threadClients[key] = make(map[*Client]bool)
	}
	h.threadClients[key][client] = true

	if h.userClients[client.UserID] == nil {
		h.userClients[client.UserID] = make(map[*Client]bool)
	}
	h.userClients[client.UserID][client] = true

	metrics.ConnectedClients.Inc()

	if err := h.redis.SAdd(context.Background(), "thread:"+key+":users", client.UserID).Err(); err != nil {
		h.log.Error().Err(err).Str("user", client.UserID).Msg("failed to set presence")
	}
	h.log.Info().Str("user", client.UserID).Str("thread", key).Str("conn", client.ConnID).Msg("client registered")

	go func() {
		h.broadcast <- &model.Message{
			ThreadID:  client.Thread,
			SenderID:  client.UserID,
			Type:      model.TypePresence,
			Content:   "joined",
			CreatedAt: time.Now(),
		}
	}()
}

// dropClient is the single removal path, shared by unregister and the
// slow-client eviction in pushTo. Membership in threadClients is the
// source of truth: a second drop of the same client is a no-op, so
// the send channel is closed exactly once and neither map, the
// presence set nor the gauge can leak.
func (h *Hub) dropClient(client *Client) {
	key := client.Thread.Key()
	clients, ok := h.threadClients[key]
	if !ok || !clients[client] {
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		delete(h.threadClients, key)
	}

	if userSet, ok := h.userClients[client.UserID]; ok {
		delete(userSet, client)
		if len(userSet) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	close(client.send)
	metrics.ConnectedClients.Dec()

	if err := h.redis.SRem(context.Background(), "thread:"+key+":users", client.UserID).Err(); err != nil {
		h.log.Error().Err(err).Str("user", client.UserID).Msg("failed to delete presence")
	}
	h.log.Info().Str("user", client.UserID).Str("thread", key).Msg("client unregistered")

	go func() {
		h.broadcast <- &model.Message{
			ThreadID:  client.Thread,
			SenderID:  client.UserID,
			Type:      model.TypePresence,
			Content:   "left",
			CreatedAt: time.Now(),
		}
	}()
}

func (h *Hub) route(d delivery) {
	if d.msg.ThreadID.Kind == model.ThreadConversation {
		for _, userID := range d.msg.ThreadID.Participants {
			if clients, ok := h.userClients[userID]; ok {
				h.pushTo(clients, d.raw)
			}
		}
		return
	}
	if clients, ok := h.threadClients[d.msg.ThreadID.Key()]; ok {
		h.pushTo(clients, d.raw)
	}
}

// publish assigns the server identity of a message and hands it to
// Kafka. This is the moment a send "succeeds" from the client's point
// of view.
func (h *Hub) publish(msg *model.Message) {
	if msg.ID == 0 {
		msg.ID = h.snowflake.Generate()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal message")
		return
	}

	err = h.producer.WriteMessages(context.Background(),
		kafka.Message{
			Value: jsonMsg,
			Time:  time.Now(),
		},
	)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to write message to Kafka")
		return
	}
	metrics.MessagesPublished.Inc()
	h.log.Debug().Int64("id", msg.ID).Str("thread", msg.ThreadID.Key()).Msg("message published")
}
