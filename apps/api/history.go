package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/makini/darasa/pkg/metrics"
	"github.com/makini/darasa/pkg/model"
)

// handleHistory serves the confirmed message collection of one thread.
// The client's messenger store is filled from this endpoint on open
// and kept current by the gateway push afterwards.
func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	thread, err := model.ParseThreadKey(mux.Vars(r)["key"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !thread.Involves(claims.UserID) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var messages []model.Message
	iter := s.db.Query(
		`SELECT thread_key, id, sender_id, content, created_at FROM messages WHERE thread_key = ?`,
		thread.Key(),
	).Iter()

	var id int64
	var threadKey, senderID, content string
	var createdAt time.Time

	for iter.Scan(&threadKey, &id, &senderID, &content, &createdAt) {
		messages = append(messages, model.Message{
			ID:        id,
			ThreadID:  thread,
			SenderID:  senderID,
			Content:   content,
			Type:      model.TypeMessage,
			CreatedAt: createdAt,
		})
	}

	if err := iter.Close(); err != nil {
		s.log.Error().Err(err).Str("thread", thread.Key()).Msg("failed to iterate messages")
		http.Error(w, "Failed to retrieve history", http.StatusInternalServerError)
		return
	}

	metrics.HistoryRequests.WithLabelValues(string(thread.Kind)).Inc()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}
