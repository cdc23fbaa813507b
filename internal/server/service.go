package server

import (
	"context"
	"io"
	"time"
)

// RoomService is the thin orchestration layer between the HTTP handlers and
// the registry plus blob store.
type RoomService struct {
	registry *Registry
	store    BlobStore
	ttl      time.Duration
}

// NewRoomService wires a registry and blob store with the room TTL.
func NewRoomService(registry *Registry, store BlobStore, ttl time.Duration) *RoomService {
	return &RoomService{registry: registry, store: store, ttl: ttl}
}

// CreateRoom creates a room with the configured TTL and returns its
// shareable identifier and expiry.
func (s *RoomService) CreateRoom(ctx context.Context, password string) (string, time.Time, error) {
	return s.registry.Create(ctx, password, s.ttl)
}

// Join authenticates against a room. On success it returns the room's expiry
// so the caller can scope a session to the room's remaining lifetime.
func (s *RoomService) Join(roomID, password string) (time.Time, bool) {
	if !s.registry.Authenticate(roomID, password) {
		return time.Time{}, false
	}
	exp, ok := s.registry.ExpiresAt(roomID)
	return exp, ok
}

// Upload writes the content to the room's namespace and records the upload.
// The blob write happens first; the registry only ever lists durably
// acknowledged files. If the room was swept mid-upload the registry call
// fails with ErrRoomNotFound and the orphaned blob is left for the next
// sweep pass. A namespace that is already gone surfaces as ErrRoomNotFound
// before any bytes are written.
func (s *RoomService) Upload(ctx context.Context, roomID, filename string, r io.Reader, size int64) error {
	exists, err := s.store.NamespaceExists(ctx, roomID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrRoomNotFound
	}

	if err := s.store.Put(ctx, roomID, filename, r, size); err != nil {
		return err
	}

	return s.registry.RecordUpload(roomID, filename)
}

// Download streams a file from a live room. The caller owns the returned
// reader.
func (s *RoomService) Download(ctx context.Context, roomID, filename string) (io.ReadCloser, error) {
	if !s.registry.Exists(roomID) {
		return nil, ErrRoomNotFound
	}
	return s.store.Get(ctx, roomID, filename)
}

// ListFiles returns a snapshot of the room's uploads in order.
func (s *RoomService) ListFiles(roomID string) ([]string, error) {
	return s.registry.ListFiles(roomID)
}
