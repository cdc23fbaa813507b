package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of room lifecycle event being audited.
type AuditAction string

const (
	AuditRoomCreated    AuditAction = "room_created"
	AuditRoomJoined     AuditAction = "room_joined"
	AuditJoinDenied     AuditAction = "join_denied"
	AuditFileUploaded   AuditAction = "file_uploaded"
	AuditFileDownloaded AuditAction = "file_downloaded"
	AuditRoomSwept      AuditAction = "room_swept"
)

// AuditLog writes room lifecycle events to Postgres. A nil *AuditLog (or one
// without a DB) is a no-op, so every call site can record unconditionally;
// room state itself is never persisted, only the event trail.
type AuditLog struct {
	db *sql.DB
}

// NewAuditLog returns an audit log backed by db. Pass nil to disable.
func NewAuditLog(db *sql.DB) *AuditLog {
	if db == nil {
		return nil
	}
	return &AuditLog{db: db}
}

// Record inserts one audit row. Failures are logged, never propagated: the
// audit trail must not fail the operation it describes.
func (a *AuditLog) Record(ctx context.Context, action AuditAction, roomID string, details map[string]any) {
	if a == nil || a.db == nil {
		return
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		log.Printf("service=audit msg=%q action=%s err=%v", "marshal_failed", action, err)
		return
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO room_audit (id, ts, action, room_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), time.Now().UTC(), string(action), roomID, detailsJSON)
	if err != nil {
		log.Printf("service=audit msg=%q action=%s room=%s err=%v", "insert_failed", action, roomID, err)
	}
}
