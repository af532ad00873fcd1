package main

import (
	"encoding/json"
	"net/http"

	"github.com/makini/darasa/pkg/auth"
)

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	switch req.Role {
	case "":
		req.Role = auth.RoleStudent
	case auth.RoleStudent, auth.RoleInstructor, auth.RoleAdmin:
	default:
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	token, err := s.tokens.GenerateToken(req.UserID, req.Role)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{Token: token})
}
