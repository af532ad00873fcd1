package messenger

import (
	"sync"

	"github.com/makini/darasa/pkg/model"
)

// Pending is one locally created message that has not been replaced by
// its server-confirmed copy yet.
type Pending struct {
	Message model.Message
	Status  model.DeliveryStatus
}

type eventKind int

const (
	sendRequested eventKind = iota
	sendSucceeded
	sendFailed
	evictRequested
)

type event struct {
	kind eventKind
	id   int64
	msg  model.Message
}

// Overlay tracks in-flight and failed local sends for one messenger
// view. It is owned by exactly one view, but eviction timers fire on
// their own goroutines, so access is guarded.
//
// Status only ever moves sending -> sent or sending -> error. An
// errored entry is never resurrected in place; retry evicts it and
// creates a brand-new entry, because the original send may in fact
// have succeeded server-side.
type Overlay struct {
	mu      sync.Mutex
	entries []Pending
	closed  bool
}

func NewOverlay() *Overlay {
	return &Overlay{}
}

// Add inserts a fresh entry with status sending. The id must be a
// temporary (negative) id not already present; duplicates are ignored.
func (o *Overlay) Add(msg model.Message) {
	o.apply(event{kind: sendRequested, id: msg.ID, msg: msg})
}

// MarkSent transitions id from sending to sent. Ignored if the entry
// is gone or already errored.
func (o *Overlay) MarkSent(id int64) {
	o.apply(event{kind: sendSucceeded, id: id})
}

// MarkError transitions id from sending to error. Ignored if the entry
// is gone or already sent.
func (o *Overlay) MarkError(id int64) {
	o.apply(event{kind: sendFailed, id: id})
}

// Evict removes the entry regardless of status.
func (o *Overlay) Evict(id int64) {
	o.apply(event{kind: evictRequested, id: id})
}

// apply is the single choke point for every state transition, so the
// legality rules live in one place.
func (o *Overlay) apply(ev event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}

	switch ev.kind {
	case sendRequested:
		if o.indexLocked(ev.id) >= 0 {
			return
		}
		o.entries = append(o.entries, Pending{Message: ev.msg, Status: model.StatusSending})

	case sendSucceeded:
		if i := o.indexLocked(ev.id); i >= 0 && o.entries[i].Status == model.StatusSending {
			o.entries[i].Status = model.StatusSent
		}

	case sendFailed:
		if i := o.indexLocked(ev.id); i >= 0 && o.entries[i].Status == model.StatusSending {
			o.entries[i].Status = model.StatusError
		}

	case evictRequested:
		if i := o.indexLocked(ev.id); i >= 0 {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
		}
	}
}

func (o *Overlay) indexLocked(id int64) int {
	for i := range o.entries {
		if o.entries[i].Message.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the entry for id, if present.
func (o *Overlay) Get(id int64) (Pending, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if i := o.indexLocked(id); i >= 0 {
		return o.entries[i], true
	}
	return Pending{}, false
}

// Snapshot returns the pending entries in insertion order.
func (o *Overlay) Snapshot() []Pending {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Pending, len(o.entries))
	copy(out, o.entries)
	return out
}

// Close tears the overlay down. Every mutation after Close is a no-op,
// so eviction timers outliving the owning view cannot touch dead state.
func (o *Overlay) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.entries = nil
}

// Closed reports whether the overlay has been torn down.
func (o *Overlay) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
