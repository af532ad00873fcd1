package model

import "time"

type MessageType string

const (
	TypeMessage  MessageType = "message"
	TypePresence MessageType = "presence"
)

// DeliveryStatus is the client-side lifecycle of a message. Confirmed
// messages coming back from the server are always StatusSent; the other
// two states only ever exist in a local optimistic overlay.
type DeliveryStatus string

const (
	StatusSending DeliveryStatus = "sending"
	StatusSent    DeliveryStatus = "sent"
	StatusError   DeliveryStatus = "error"
)

// Message is the canonical message shape shared by every service and by
// the client core, regardless of whether it travels in a private
// conversation or a course space.
type Message struct {
	// ID is assigned server-side (snowflake) once the message is accepted
	// for fanout. Locally created messages carry a negative temporary ID
	// until then; see NextLocalID.
	ID        int64       `json:"id"`
	ThreadID  ThreadID    `json:"thread_id"`
	SenderID  string      `json:"sender_id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	ReadAt    *time.Time  `json:"read_at,omitempty"`
}

// Confirmed reports whether the message carries a server-assigned ID.
func (m Message) Confirmed() bool { return m.ID > 0 }
