package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error encoding JSON response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func rejectUnauthorized(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusUnauthorized, "Unauthorized")
}

func rejectAsk(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusUnauthorized, map[string]string{"reply": "Please log in."})
}
