package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/makini/darasa/pkg/model"
)

// handleThreads lists the caller's conversations and course spaces
// with unread counts, newest activity first within Scylla's clustering
// order.
func (s *server) handleThreads(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	iter := s.db.Query(
		`SELECT thread_key, title, last_updated FROM user_threads WHERE user_id = ?`,
		claims.UserID,
	).Iter()

	var summaries []model.ThreadSummary
	var threadKey, title string
	var lastUpdated time.Time

	for iter.Scan(&threadKey, &title, &lastUpdated) {
		thread, err := model.ParseThreadKey(threadKey)
		if err != nil {
			s.log.Warn().Str("key", threadKey).Msg("skipping malformed thread key")
			continue
		}

		sum := model.ThreadSummary{ThreadID: thread, Title: title, LastUpdated: lastUpdated}
		var count int64
		if err := s.db.Query(
			`SELECT unread_count FROM thread_counters WHERE user_id = ? AND thread_key = ?`,
			claims.UserID, threadKey,
		).Scan(&count); err == nil {
			sum.UnreadCount = count
		}
		summaries = append(summaries, sum)
	}

	if err := iter.Close(); err != nil {
		s.log.Error().Err(err).Msg("failed to iterate user threads")
		http.Error(w, "Failed to retrieve threads", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

// handleMarkRead resets the caller's unread counter for one thread.
// Deleting the counter row is how Scylla counters reset.
func (s *server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
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

	if err := s.db.Query(
		`DELETE FROM thread_counters WHERE user_id = ? AND thread_key = ?`,
		claims.UserID, thread.Key(),
	).Exec(); err != nil {
		http.Error(w, "Failed to reset unread count", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
