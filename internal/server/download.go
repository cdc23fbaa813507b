package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// downloadHandler handles GET /api/download?name= for an authenticated room
// session, streaming the blob back with an attachment disposition. A swept
// room and a missing file both surface as 404.
func (cfg Config) downloadHandler() http.Handler {
	return cfg.Session.requireRoom(func(w http.ResponseWriter, r *http.Request, roomID string) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := sanitizeFilename(r.URL.Query().Get("name"))
		if name == "" {
			http.Error(w, "missing name", http.StatusBadRequest)
			return
		}

		obj, err := cfg.Service.Download(r.Context(), roomID, name)
		if err != nil {
			switch {
			case errors.Is(err, ErrRoomNotFound):
				http.Error(w, "room not found", http.StatusNotFound)
			case errors.Is(err, ErrFileNotFound):
				http.Error(w, "file not found", http.StatusNotFound)
			default:
				http.Error(w, "storage error", http.StatusBadGateway)
			}
			return
		}
		defer func() { _ = obj.Close() }()

		w.Header().Set("Content-Type", "application/octet-stream")
		// Encourage safe download behavior in browsers.
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		w.WriteHeader(http.StatusOK)

		if _, err := io.Copy(w, obj); err != nil {
			return
		}

		GetMetrics().RecordDownload()
		cfg.Audit.Record(r.Context(), AuditFileDownloaded, roomID, map[string]any{"name": name})
	})
}
