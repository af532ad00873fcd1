package messenger

import (
	"context"
	"time"

	"github.com/makini/darasa/pkg/model"
)

// reconcileWindow bounds how far apart the local and the server
// timestamps of the same logical message may be before the match is
// rejected.
const reconcileWindow = 5 * time.Second

// View composes the store, the overlay and the sender for one thread.
// It is the unit a messenger screen owns: feed confirmed messages into
// Store, submit input through Send, render Entries.
type View struct {
	thread  model.ThreadID
	userID  string
	store   *Store
	overlay *Overlay
	sender  *Sender

	lastLen  int
	lastTail int64
}

// ViewConfig mirrors SenderConfig minus the overlay wiring.
type ViewConfig struct {
	Thread     model.ThreadID
	UserID     string
	Send       SendFunc
	GraceDelay time.Duration
	Notify     func(err error)
}

func NewView(cfg ViewConfig) *View {
	overlay := NewOverlay()
	return &View{
		thread:  cfg.Thread,
		userID:  cfg.UserID,
		store:   NewStore(),
		overlay: overlay,
		sender: NewSender(overlay, SenderConfig{
			Thread:     cfg.Thread,
			UserID:     cfg.UserID,
			Send:       cfg.Send,
			GraceDelay: cfg.GraceDelay,
			Notify:     cfg.Notify,
		}),
	}
}

func (v *View) Thread() model.ThreadID { return v.thread }
func (v *View) Store() *Store          { return v.store }
func (v *View) Overlay() *Overlay      { return v.overlay }

func (v *View) Send(ctx context.Context, content string) error {
	return v.sender.Send(ctx, content)
}

func (v *View) Retry(ctx context.Context, id int64) error {
	return v.sender.Retry(ctx, id)
}

func (v *View) InFlight() bool { return v.sender.InFlight() }

// Entries reconciles the overlay against the confirmed collection and
// returns the merged, ordered list.
func (v *View) Entries() []Entry {
	v.reconcile()
	return Project(v.store.Snapshot(), v.overlay.Snapshot())
}

// Render returns the merged list plus whether its tail changed since
// the previous Render. Consumers use the flag to scroll to the newest
// entry only when there is something new.
func (v *View) Render() ([]Entry, bool) {
	entries := v.Entries()

	var tail int64
	if len(entries) > 0 {
		tail = entries[len(entries)-1].ID
	}
	changed := len(entries) != v.lastLen || tail != v.lastTail
	v.lastLen = len(entries)
	v.lastTail = tail

	return entries, changed
}

// reconcile evicts sent overlay entries whose confirmed copy has
// arrived, instead of waiting out the grace timer. The match is by
// sender and content with timestamps close together; the timer stays
// armed as backstop for pushes that never show up.
func (v *View) reconcile() {
	pending := v.overlay.Snapshot()
	if len(pending) == 0 {
		return
	}
	confirmed := v.store.Snapshot()
	for _, p := range pending {
		if p.Status != model.StatusSent {
			continue
		}
		for _, m := range confirmed {
			if m.SenderID == p.Message.SenderID &&
				m.Content == p.Message.Content &&
				absDuration(m.CreatedAt.Sub(p.Message.CreatedAt)) <= reconcileWindow {
				v.overlay.Evict(p.Message.ID)
				break
			}
		}
	}
}

// Close tears the view down; pending eviction timers and late send
// completions become no-ops.
func (v *View) Close() {
	v.overlay.Close()
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
