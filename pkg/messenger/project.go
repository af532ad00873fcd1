package messenger

import (
	"sort"

	"github.com/makini/darasa/pkg/model"
)

// Entry is one row of the rendered message list.
type Entry struct {
	model.Message
	Status model.DeliveryStatus
	// Local marks entries that came from the optimistic overlay rather
	// than the confirmed collection.
	Local bool
}

// Project merges the confirmed collection with the optimistic overlay
// into the single ordered sequence a view renders. Confirmed messages
// are always tagged sent; overlay entries keep their own status.
//
// Ordering is CreatedAt ascending. Ties go confirmed-first, then by
// server ID, then by overlay insertion order, so the result is fully
// deterministic for identical inputs. Pure function: no side effects.
func Project(confirmed map[int64]model.Message, pending []Pending) []Entry {
	out := make([]Entry, 0, len(confirmed)+len(pending))

	for _, m := range confirmed {
		out = append(out, Entry{Message: m, Status: model.StatusSent})
	}
	// Deterministic base order for the map portion.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	for _, p := range pending {
		out = append(out, Entry{Message: p.Message, Status: p.Status, Local: true})
	}

	// Stable sort keeps confirmed entries ahead of optimistic ones on
	// equal timestamps and preserves overlay insertion order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}
