package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// handleLive provides a liveness probe (is the process running?)
func (cfg Config) handleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "alive",
		"version": cfg.Build.Version,
		"commit":  cfg.Build.Commit,
	})
}

// handleReady reports readiness: the blob store must answer an existence
// probe. The probed namespace is never created, so (false, nil) is the
// healthy answer; only a transport error marks the store down.
func (cfg Config) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := cfg.Store.NamespaceExists(ctx, "readyz-probe"); err != nil {
		http.Error(w, `{"status":"not_ready","message":"blob store unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
