package model

import "time"

// ThreadSummary is one row of a user's thread list: a conversation or
// space, when it last moved, and how many messages they have not read.
type ThreadSummary struct {
	ThreadID    ThreadID  `json:"thread_id"`
	Title       string    `json:"title"`
	LastUpdated time.Time `json:"last_updated"`
	UnreadCount int64     `json:"unread_count"`
}
