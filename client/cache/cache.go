// Package cache is the client's local message history: confirmed
// messages are written through on receipt and replayed on the next
// open, so a thread shows its recent history before the first fetch
// completes.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/makini/darasa/pkg/model"
)

type Cache struct {
	db *sql.DB
}

func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open cache: %w", err)
	}

	// Single connection; sqlite does not like concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache migration failed: %w", err)
	}
	return c, nil
}

func (c *Cache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id          INTEGER PRIMARY KEY,
		thread_key  TEXT NOT NULL,
		sender_id   TEXT NOT NULL,
		content     TEXT NOT NULL,
		created_at  DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_key, created_at);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Put stores one confirmed message. Unconfirmed (optimistic) messages
// never reach the cache. Re-inserting an id is a harmless overwrite.
func (c *Cache) Put(ctx context.Context, msg model.Message) error {
	if !msg.Confirmed() {
		return nil
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO messages (id, thread_key, sender_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.ThreadID.Key(), msg.SenderID, msg.Content, msg.CreatedAt.UTC())
	return err
}

// PutAll stores a history fetch in one transaction.
func (c *Cache) PutAll(ctx context.Context, msgs []model.Message) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if !msg.Confirmed() {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO messages (id, thread_key, sender_id, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			msg.ID, msg.ThreadID.Key(), msg.SenderID, msg.Content, msg.CreatedAt.UTC()); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Thread returns the cached messages of one thread, oldest first.
func (c *Cache) Thread(ctx context.Context, thread model.ThreadID) ([]model.Message, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, sender_id, content, created_at FROM messages WHERE thread_key = ? ORDER BY created_at, id`,
		thread.Key())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		var createdAt time.Time
		if err := rows.Scan(&m.ID, &m.SenderID, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.ThreadID = thread
		m.Type = model.TypeMessage
		m.CreatedAt = createdAt
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *Cache) Close() error {
	return c.db.Close()
}
