package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"
)

// createRoomReq represents the JSON payload for creating a room.
type createRoomReq struct {
	Password string `json:"password"`
}

// createRoomResp is the JSON response after a successful room creation.
type createRoomResp struct {
	RoomID    string    `json:"room_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// joinRoomReq represents the JSON payload for joining a room.
type joinRoomReq struct {
	RoomID   string `json:"room_id"`
	Password string `json:"password"`
}

// createRoomHandler handles POST /api/rooms. It creates a password-protected
// room with the configured TTL and returns the shareable identifier.
// The password is required but its strength is not validated; it is a shared
// secret for a 30-minute room, not an account credential.
func (cfg Config) createRoomHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req createRoomReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Password) == "" {
			http.Error(w, "password required", http.StatusBadRequest)
			return
		}

		roomID, expiresAt, err := cfg.Service.CreateRoom(r.Context(), req.Password)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=create_room_failed err=%v", rid, err)
			http.Error(w, "storage error", http.StatusBadGateway)
			return
		}

		GetMetrics().RecordRoomCreated()
		cfg.Audit.Record(r.Context(), AuditRoomCreated, roomID, map[string]any{"ip": getClientIP(r)})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(createRoomResp{RoomID: roomID, ExpiresAt: expiresAt})
	})
}

// joinRoomHandler handles POST /api/join. On success it issues a room-scoped
// session cookie that expires with the room. A wrong password and an unknown
// or expired room get the same answer.
func (cfg Config) joinRoomHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req joinRoomReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		req.RoomID = strings.TrimSpace(req.RoomID)

		expiresAt, ok := cfg.Service.Join(req.RoomID, req.Password)
		GetMetrics().RecordJoin(ok)
		if !ok {
			cfg.Audit.Record(r.Context(), AuditJoinDenied, req.RoomID, map[string]any{"ip": getClientIP(r)})
			http.Error(w, "invalid room id or password", http.StatusUnauthorized)
			return
		}

		if err := cfg.Session.setRoomCookie(w, req.RoomID, expiresAt); err != nil {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}

		cfg.Audit.Record(r.Context(), AuditRoomJoined, req.RoomID, map[string]any{"ip": getClientIP(r)})

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     "ok",
			"room_id":    req.RoomID,
			"expires_at": expiresAt,
		})
	})
}

// listFilesHandler handles GET /api/files for an authenticated room session.
func (cfg Config) listFilesHandler() http.Handler {
	return cfg.Session.requireRoom(func(w http.ResponseWriter, r *http.Request, roomID string) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		files, err := cfg.Service.ListFiles(roomID)
		if err != nil {
			if errors.Is(err, ErrRoomNotFound) {
				http.Error(w, "room not found", http.StatusNotFound)
				return
			}
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		if files == nil {
			files = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"room_id": roomID,
			"files":   files,
		})
	})
}
