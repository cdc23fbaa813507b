package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// roomIDLength is the number of characters in a shareable room identifier.
// Ids are the leading hex characters of a v4 UUID: short enough to type,
// URL-safe, and collisions are handled by retrying during creation.
const roomIDLength = 6

// maxIDAttempts bounds the creation retry loop. With a 6-hex-char space and
// rooms living 30 minutes, exhausting this is a sign of something much worse
// than bad luck.
const maxIDAttempts = 32

// room is a live registry entry. The password is kept as a SHA-256 digest so
// Authenticate can compare in constant time.
type room struct {
	id         string
	passDigest [sha256.Size]byte
	expiresAt  time.Time
	files      []string
}

// ExpiredRoom carries everything the sweeper needs to reclaim a room's
// storage without touching the registry again.
type ExpiredRoom struct {
	ID    string
	Files []string
}

// Registry is the concurrency-safe mapping from room identifier to room
// state. All access to the shared map goes through its mutex; critical
// sections never perform storage I/O.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	reserved map[string]struct{}
	store    BlobStore
}

// NewRegistry returns an empty registry whose rooms get their namespaces in
// the given blob store.
func NewRegistry(store BlobStore) *Registry {
	return &Registry{
		rooms:    make(map[string]*room),
		reserved: make(map[string]struct{}),
		store:    store,
	}
}

func newRoomID() string {
	return uuid.New().String()[:roomIDLength]
}

// Create generates a fresh unique identifier, creates the room's blob store
// namespace, and publishes the registry entry. The id is reserved before the
// namespace call and the entry is published after it, so a visible registry
// entry always has a live namespace and two concurrent creates can never
// share an id. If namespace creation fails the reservation is rolled back
// and no entry survives.
func (reg *Registry) Create(ctx context.Context, password string, ttl time.Duration) (string, time.Time, error) {
	id, err := reg.reserveID()
	if err != nil {
		return "", time.Time{}, err
	}

	if err := reg.store.CreateNamespace(ctx, id); err != nil {
		reg.mu.Lock()
		delete(reg.reserved, id)
		reg.mu.Unlock()
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(ttl)
	reg.mu.Lock()
	delete(reg.reserved, id)
	reg.rooms[id] = &room{
		id:         id,
		passDigest: sha256.Sum256([]byte(password)),
		expiresAt:  expiresAt,
	}
	reg.mu.Unlock()

	return id, expiresAt, nil
}

// reserveID picks an identifier that is neither live nor mid-creation.
// Collisions are retried with a fresh id, never surfaced to the caller.
func (reg *Registry) reserveID() (string, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for i := 0; i < maxIDAttempts; i++ {
		id := newRoomID()
		if _, live := reg.rooms[id]; live {
			continue
		}
		if _, pending := reg.reserved[id]; pending {
			continue
		}
		reg.reserved[id] = struct{}{}
		return id, nil
	}
	return "", fmt.Errorf("could not generate a unique room id after %d attempts", maxIDAttempts)
}

// Authenticate reports whether the room exists, has not expired, and the
// password matches. The digest comparison runs even when the room is
// missing, so "unknown room" and "wrong password" take a comparable path.
func (reg *Registry) Authenticate(roomID, password string) bool {
	digest := sha256.Sum256([]byte(password))

	var stored [sha256.Size]byte
	reg.mu.RLock()
	r, ok := reg.rooms[roomID]
	expired := false
	if ok {
		stored = r.passDigest
		expired = time.Now().After(r.expiresAt)
	}
	reg.mu.RUnlock()

	match := hmac.Equal(stored[:], digest[:])
	return ok && !expired && match
}

// RecordUpload appends a filename to the room's upload history. Callers only
// invoke it after the blob write was acknowledged. A room that is gone or
// already expired yields ErrRoomNotFound; the upload-vs-sweep race resolves
// to that error rather than resurrecting the room.
func (reg *Registry) RecordUpload(roomID, filename string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	if !ok || time.Now().After(r.expiresAt) {
		return ErrRoomNotFound
	}
	r.files = append(r.files, filename)
	return nil
}

// ListFiles returns a snapshot of the room's file list in upload order.
func (reg *Registry) ListFiles(roomID string) ([]string, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[roomID]
	if !ok || time.Now().After(r.expiresAt) {
		return nil, ErrRoomNotFound
	}
	files := make([]string, len(r.files))
	copy(files, r.files)
	return files, nil
}

// Exists reports whether the room is live: present and not expired.
func (reg *Registry) Exists(roomID string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[roomID]
	return ok && !time.Now().After(r.expiresAt)
}

// ExpiresAt returns the room's expiry instant, if the room is live.
func (reg *Registry) ExpiresAt(roomID string) (time.Time, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[roomID]
	if !ok || time.Now().After(r.expiresAt) {
		return time.Time{}, false
	}
	return r.expiresAt, true
}

// Remove atomically takes the entry out of the map and returns its file list
// so storage cleanup can proceed outside the lock.
func (reg *Registry) Remove(roomID string) ([]string, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	r, ok := reg.rooms[roomID]
	if !ok {
		return nil, false
	}
	delete(reg.rooms, roomID)
	return r.files, true
}

// ExpiredRooms returns a snapshot of every room whose expiry is strictly in
// the past at the given instant.
func (reg *Registry) ExpiredRooms(now time.Time) []ExpiredRoom {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	var expired []ExpiredRoom
	for id, r := range reg.rooms {
		if now.After(r.expiresAt) {
			files := make([]string, len(r.files))
			copy(files, r.files)
			expired = append(expired, ExpiredRoom{ID: id, Files: files})
		}
	}
	return expired
}

// ActiveRooms returns the number of registry entries, expired or not.
func (reg *Registry) ActiveRooms() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
