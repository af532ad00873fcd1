package model

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// ThreadKind distinguishes the two messenger flavors the platform has:
// a private 1:1 conversation between an instructor and a student, and a
// course-wide space every enrollee of one course shares.
type ThreadKind string

const (
	ThreadConversation ThreadKind = "conversation"
	ThreadSpace        ThreadKind = "space"
)

// ThreadID is the canonical thread identifier. Both messenger flavors
// collapse into this one tagged shape so the projector and the send
// path never care which flavor supplied a message.
type ThreadID struct {
	Kind ThreadKind
	// Participants holds the two user IDs (sorted) for a conversation.
	Participants [2]string
	// CourseID identifies the course for a space.
	CourseID string
}

// NewConversation builds a conversation thread ID. Participant order
// does not matter; the pair is normalized so both sides derive the same
// routing key.
func NewConversation(userA, userB string) ThreadID {
	if userA > userB {
		userA, userB = userB, userA
	}
	return ThreadID{Kind: ThreadConversation, Participants: [2]string{userA, userB}}
}

// NewSpace builds a course-space thread ID.
func NewSpace(courseID string) ThreadID {
	return ThreadID{Kind: ThreadSpace, CourseID: courseID}
}

// Key renders the wire/routing key: "dm:<a>:<b>" or "space:<course>".
func (t ThreadID) Key() string {
	switch t.Kind {
	case ThreadConversation:
		return "dm:" + t.Participants[0] + ":" + t.Participants[1]
	case ThreadSpace:
		return "space:" + t.CourseID
	}
	return ""
}

func (t ThreadID) IsZero() bool { return t.Kind == "" }

// Involves reports whether userID may read and write this thread.
// Space membership is enforced server-side against enrollments, so any
// user passes here; conversations are limited to the two participants.
func (t ThreadID) Involves(userID string) bool {
	if t.Kind == ThreadConversation {
		return t.Participants[0] == userID || t.Participants[1] == userID
	}
	return true
}

// Other returns the conversation peer of userID, or "" for spaces.
func (t ThreadID) Other(userID string) string {
	if t.Kind != ThreadConversation {
		return ""
	}
	if t.Participants[0] == userID {
		return t.Participants[1]
	}
	return t.Participants[0]
}

// ParseThreadKey is the inverse of Key.
func ParseThreadKey(key string) (ThreadID, error) {
	switch {
	case strings.HasPrefix(key, "dm:"):
		parts := strings.Split(key, ":")
		if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
			return ThreadID{}, fmt.Errorf("invalid conversation key %q", key)
		}
		return NewConversation(parts[1], parts[2]), nil
	case strings.HasPrefix(key, "space:"):
		course := strings.TrimPrefix(key, "space:")
		if course == "" || strings.Contains(course, ":") {
			return ThreadID{}, fmt.Errorf("invalid space key %q", key)
		}
		return NewSpace(course), nil
	}
	return ThreadID{}, fmt.Errorf("unknown thread key %q", key)
}

// MarshalText / UnmarshalText make ThreadID round-trip through JSON as
// its routing key, keeping the wire format identical to what the
// gateway and Kafka pipeline already speak.
func (t ThreadID) MarshalText() ([]byte, error) { return []byte(t.Key()), nil }

func (t *ThreadID) UnmarshalText(b []byte) error {
	parsed, err := ParseThreadKey(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

var localIDCounter atomic.Int64

// NextLocalID returns a fresh temporary message ID. Local IDs are
// strictly negative so they can never collide with a server snowflake,
// and the counter never hands out the same value twice in a process.
func NextLocalID() int64 {
	return -localIDCounter.Add(1)
}
