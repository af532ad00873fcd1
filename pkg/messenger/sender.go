package messenger

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/makini/darasa/pkg/model"
)

var (
	// ErrEmptyMessage rejects whitespace-only input. Validation, not
	// failure: callers treat it as a silent no-op.
	ErrEmptyMessage = errors.New("empty message")
	// ErrSendInFlight rejects a submission while the previous one from
	// the same input box has not resolved yet.
	ErrSendInFlight = errors.New("send already in flight")
	// ErrClosed rejects sends after the owning view has been torn down.
	ErrClosed = errors.New("messenger closed")
)

// SendFunc delivers a message to the backend. It must return a non-nil
// error with a human-readable message on failure.
type SendFunc func(ctx context.Context, msg model.Message) error

// DefaultGraceDelay is how long a sent optimistic bubble survives
// before eviction. Long enough for the confirmed copy to arrive over
// the socket in the common case; if it has not, the bubble flickers
// out until the next refetch, which is cosmetic since the send already
// succeeded server-side.
const DefaultGraceDelay = 800 * time.Millisecond

// SenderConfig wires a Sender to its collaborators.
type SenderConfig struct {
	Thread model.ThreadID
	UserID string
	Send   SendFunc
	// GraceDelay overrides DefaultGraceDelay when positive.
	GraceDelay time.Duration
	// Notify receives send failures for banner display. Optional.
	Notify func(err error)
}

// Sender coordinates one user-initiated send end to end: create the
// optimistic entry, invoke the external send, and reconcile the
// entry's state from the outcome. It never retries on its own; retry
// is a distinct user action that starts over with a fresh entry.
type Sender struct {
	overlay *Overlay
	cfg     SenderConfig

	mu       sync.Mutex
	inFlight bool
}

func NewSender(overlay *Overlay, cfg SenderConfig) *Sender {
	if cfg.GraceDelay <= 0 {
		cfg.GraceDelay = DefaultGraceDelay
	}
	return &Sender{overlay: overlay, cfg: cfg}
}

// InFlight reports whether a send from this input box is still
// unresolved; consumers disable the input while it is true.
func (s *Sender) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Send runs one submission. Exactly one SendFunc call happens per
// accepted submission; rejected input (empty, in-flight, closed) makes
// no overlay entry and no network call.
func (s *Sender) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	if s.overlay.Closed() {
		return ErrClosed
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrSendInFlight
	}
	s.inFlight = true
	s.mu.Unlock()

	// The input box is re-enabled on every outcome, success or failure.
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	// CreatedAt is assigned before the network call, so display order
	// is submission order no matter how completions interleave.
	msg := model.Message{
		ID:        model.NextLocalID(),
		ThreadID:  s.cfg.Thread,
		SenderID:  s.cfg.UserID,
		Content:   content,
		Type:      model.TypeMessage,
		CreatedAt: time.Now(),
	}
	s.overlay.Add(msg)

	if err := s.cfg.Send(ctx, msg); err != nil {
		s.overlay.MarkError(msg.ID)
		if s.cfg.Notify != nil {
			s.cfg.Notify(err)
		}
		return err
	}

	s.overlay.MarkSent(msg.ID)
	id := msg.ID
	time.AfterFunc(s.cfg.GraceDelay, func() {
		s.overlay.Evict(id)
	})
	return nil
}

// Retry re-submits the content of a failed entry as a brand new send.
// No-op unless the entry exists and is in the error state. The failed
// entry is discarded only after the re-submission is accepted; a retry
// rejected locally (another send in flight, view closed) leaves the
// failed bubble in place so its content is never lost unsent.
func (s *Sender) Retry(ctx context.Context, id int64) error {
	entry, ok := s.overlay.Get(id)
	if !ok || entry.Status != model.StatusError {
		return nil
	}

	err := s.Send(ctx, entry.Message.Content)
	if errors.Is(err, ErrSendInFlight) || errors.Is(err, ErrClosed) || errors.Is(err, ErrEmptyMessage) {
		return err
	}

	// Accepted: a fresh entry carries the content now, whether that
	// attempt succeeded or errored in its own right.
	s.overlay.Evict(id)
	return err
}
