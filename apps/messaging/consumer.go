package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/makini/darasa/pkg/db"
	"github.com/makini/darasa/pkg/metrics"
	"github.com/makini/darasa/pkg/model"
)

// Consumer drains the fanout topic into ScyllaDB. This is the path
// that turns a published message into the durable copy the history
// endpoint serves — the copy that eventually replaces the sender's
// optimistic bubble.
type Consumer struct {
	reader *kafka.Reader
	db     *db.Session
	log    zerolog.Logger
}

func NewConsumer(brokers []string, topic string, groupID string, session *db.Session, log zerolog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	return &Consumer{reader: r, db: session, log: log}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			c.log.Error().Err(err).Msg("error reading message, retrying in 1s")
			time.Sleep(1 * time.Second)
			continue
		}

		var msg model.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.log.Warn().Err(err).Msg("failed to unmarshal message")
			continue
		}

		// Presence and other ephemeral types are never persisted.
		if msg.Type != model.TypeMessage {
			continue
		}

		c.persist(msg)
	}
}

func (c *Consumer) persist(msg model.Message) {
	key := msg.ThreadID.Key()

	if err := c.db.Query(
		`INSERT INTO messages (thread_key, id, sender_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		key, msg.ID, msg.SenderID, msg.Content, msg.CreatedAt,
	).Exec(); err != nil {
		c.log.Error().Err(err).Int64("id", msg.ID).Msg("failed to save message")
		return
	}
	metrics.MessagesPersisted.Inc()

	switch msg.ThreadID.Kind {
	case model.ThreadConversation:
		c.updateConversation(msg)
	case model.ThreadSpace:
		c.updateSpace(msg)
	}
}

// updateConversation refreshes both participants' thread summaries and
// bumps the recipient's unread counter.
func (c *Consumer) updateConversation(msg model.Message) {
	key := msg.ThreadID.Key()
	for _, userID := range msg.ThreadID.Participants {
		title := msg.ThreadID.Other(userID)
		if err := c.db.Query(
			`INSERT INTO user_threads (user_id, thread_key, title, last_updated) VALUES (?, ?, ?, ?)`,
			userID, key, title, msg.CreatedAt,
		).Exec(); err != nil {
			c.log.Error().Err(err).Str("user", userID).Msg("failed to update thread summary")
		}
	}

	recipient := msg.ThreadID.Other(msg.SenderID)
	if recipient == "" {
		return
	}
	if err := c.db.Query(
		`UPDATE thread_counters SET unread_count = unread_count + 1 WHERE user_id = ? AND thread_key = ?`,
		recipient, key,
	).Exec(); err != nil {
		c.log.Error().Err(err).Str("user", recipient).Msg("failed to increment unread count")
	}
}

// updateSpace refreshes the summary and unread counter of every space
// member except the sender. Membership is the enrollment projection
// the platform writes into space_members.
func (c *Consumer) updateSpace(msg model.Message) {
	key := msg.ThreadID.Key()

	iter := c.db.Query(`SELECT user_id FROM space_members WHERE thread_key = ?`, key).Iter()
	var userID string
	for iter.Scan(&userID) {
		if err := c.db.Query(
			`INSERT INTO user_threads (user_id, thread_key, title, last_updated) VALUES (?, ?, ?, ?)`,
			userID, key, msg.ThreadID.CourseID, msg.CreatedAt,
		).Exec(); err != nil {
			c.log.Error().Err(err).Str("user", userID).Msg("failed to update thread summary")
			continue
		}
		if userID == msg.SenderID {
			continue
		}
		if err := c.db.Query(
			`UPDATE thread_counters SET unread_count = unread_count + 1 WHERE user_id = ? AND thread_key = ?`,
			userID, key,
		).Exec(); err != nil {
			c.log.Error().Err(err).Str("user", userID).Msg("failed to increment unread count")
		}
	}
	if err := iter.Close(); err != nil {
		c.log.Error().Err(err).Str("thread", key).Msg("failed to iterate space members")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
