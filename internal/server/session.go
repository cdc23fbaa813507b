// session.go - Signed room-session cookies.
//
// A successful join issues an HMAC-signed cookie whose subject is the room
// identifier and whose expiry equals the room's own expiry, so sessions die
// with the room. There is no per-user identity; the shared room password is
// the only credential.
package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SessionConfig holds the signing secret and cookie settings for room
// sessions.
type SessionConfig struct {
	Secret     string
	CookieName string
}

type sessionPayload struct {
	Room string `json:"room"`
	Exp  int64  `json:"exp"`
}

func (c SessionConfig) cookieName() string {
	if c.CookieName == "" {
		return "dr_room"
	}
	return c.CookieName
}

func (c SessionConfig) secretBytes() []byte {
	return []byte(c.Secret)
}

func signPayload(secret []byte, msg string) string {
	m := hmac.New(sha256.New, secret)
	_, _ = m.Write([]byte(msg))
	return hex.EncodeToString(m.Sum(nil))
}

func encodeSession(p sessionPayload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func decodeSession(token string) (sessionPayload, error) {
	var p sessionPayload
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, err
	}
	return p, nil
}

// makeToken returns "payload.signature" for a session on the given room,
// valid until exp.
func (c SessionConfig) makeToken(roomID string, exp time.Time) (string, error) {
	payload, err := encodeSession(sessionPayload{Room: roomID, Exp: exp.Unix()})
	if err != nil {
		return "", err
	}
	sig := signPayload(c.secretBytes(), payload)
	return payload + "." + sig, nil
}

// verifyToken checks the signature and expiry and returns the room id.
// Every failure mode maps to ErrAuthFailed; callers answer 401 without
// distinguishing malformed, forged, and expired tokens.
func (c SessionConfig) verifyToken(tok string) (string, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: malformed token", ErrAuthFailed)
	}
	payload, sig := parts[0], parts[1]
	want := signPayload(c.secretBytes(), payload)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return "", fmt.Errorf("%w: bad signature", ErrAuthFailed)
	}
	decoded, err := decodeSession(payload)
	if err != nil {
		return "", fmt.Errorf("%w: undecodable payload", ErrAuthFailed)
	}
	if decoded.Exp <= time.Now().Unix() {
		return "", fmt.Errorf("%w: session expired", ErrAuthFailed)
	}
	return decoded.Room, nil
}

// setRoomCookie issues the session cookie after a successful join.
func (c SessionConfig) setRoomCookie(w http.ResponseWriter, roomID string, exp time.Time) error {
	tok, err := c.makeToken(roomID, exp)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName(),
		Value:    tok,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// roomFromRequest extracts the authenticated room id from the session
// cookie.
func (c SessionConfig) roomFromRequest(r *http.Request) (string, error) {
	ck, err := r.Cookie(c.cookieName())
	if err != nil {
		return "", fmt.Errorf("%w: no session cookie", ErrAuthFailed)
	}
	return c.verifyToken(ck.Value)
}

// requireRoom rejects requests without a valid room session and injects the
// room id into the request context.
func (c SessionConfig) requireRoom(next func(w http.ResponseWriter, r *http.Request, roomID string)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomID, err := c.roomFromRequest(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r, roomID)
	})
}
