package main

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/makini/darasa/pkg/model"
)

// handlePresence returns the user IDs currently connected to a thread,
// from the Redis set the gateway maintains.
func (s *server) handlePresence(w http.ResponseWriter, r *http.Request) {
	thread, err := model.ParseThreadKey(mux.Vars(r)["key"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	users, err := s.redis.SMembers(r.Context(), "thread:"+thread.Key()+":users").Result()
	if err != nil {
		s.log.Error().Err(err).Str("thread", thread.Key()).Msg("failed to fetch presence")
		http.Error(w, "Failed to fetch presence", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(users)
}
