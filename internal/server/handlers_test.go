package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestServer(t *testing.T, ttl time.Duration) (*httptest.Server, *Registry, BlobStore) {
	t.Helper()

	store := NewMemStore()
	registry := NewRegistry(store)
	service := NewRoomService(registry, store, ttl)

	srv := New(Config{
		Addr:     ":0",
		Session:  SessionConfig{Secret: "test-secret"},
		Service:  service,
		Registry: registry,
		Store:    store,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, registry, store
}

func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	b, _ := json.Marshal(body)
	resp, err := client.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	return resp
}

func createRoom(t *testing.T, client *http.Client, base, password string) string {
	t.Helper()
	resp := postJSON(t, client, base+"/api/rooms", map[string]string{"password": password})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create room: status %d, want 201", resp.StatusCode)
	}
	var out createRoomResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if out.RoomID == "" {
		t.Fatal("create room returned empty room id")
	}
	return out.RoomID
}

func uploadFile(t *testing.T, client *http.Client, base, name, content string) *http.Response {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, base+"/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	return resp
}

func TestAPI_CreateJoinUploadDownloadFlow(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	client := newTestClient(t)

	roomID := createRoom(t, client, ts.URL, "abc")

	// Wrong password is rejected.
	resp := postJSON(t, client, ts.URL+"/api/join", map[string]string{"room_id": roomID, "password": "xyz"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("join with wrong password: status %d, want 401", resp.StatusCode)
	}

	// Right password issues a session cookie.
	resp = postJSON(t, client, ts.URL+"/api/join", map[string]string{"room_id": roomID, "password": "abc"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join: status %d, want 200", resp.StatusCode)
	}

	resp = uploadFile(t, client, ts.URL, "a.txt", "hello room")
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: status %d, want 201", resp.StatusCode)
	}

	resp, err := client.Get(ts.URL + "/api/files")
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	var fileList struct {
		RoomID string   `json:"room_id"`
		Files  []string `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fileList); err != nil {
		t.Fatalf("decode files: %v", err)
	}
	resp.Body.Close()
	if len(fileList.Files) != 1 || fileList.Files[0] != "a.txt" {
		t.Fatalf("files = %v, want [a.txt]", fileList.Files)
	}

	resp, err = client.Get(ts.URL + "/api/download?name=a.txt")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: status %d, want 200", resp.StatusCode)
	}
	if string(data) != "hello room" {
		t.Errorf("download content = %q, want %q", data, "hello room")
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "a.txt") {
		t.Errorf("Content-Disposition = %q, should carry the filename", cd)
	}
}

func TestAPI_RequiresSession(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	client := newTestClient(t)

	for _, ep := range []struct {
		method, path string
	}{
		{http.MethodGet, "/api/files"},
		{http.MethodGet, "/api/download?name=a.txt"},
		{http.MethodPost, "/api/upload"},
	} {
		req, _ := http.NewRequest(ep.method, ts.URL+ep.path, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", ep.method, ep.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s without session: status %d, want 401", ep.method, ep.path, resp.StatusCode)
		}
	}
}

func TestAPI_CreateRoomRequiresPassword(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	client := newTestClient(t)

	resp := postJSON(t, client, ts.URL+"/api/rooms", map[string]string{"password": "  "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("create with blank password: status %d, want 400", resp.StatusCode)
	}
}

func TestAPI_JoinUnknownRoom(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	client := newTestClient(t)

	resp := postJSON(t, client, ts.URL+"/api/join", map[string]string{"room_id": "nosuch", "password": "pw"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("join unknown room: status %d, want 401", resp.StatusCode)
	}
}

func TestAPI_ExpiredRoomAfterSweep(t *testing.T) {
	ts, registry, store := newTestServer(t, 30*time.Millisecond)
	client := newTestClient(t)

	roomID := createRoom(t, client, ts.URL, "abc")
	resp := postJSON(t, client, ts.URL+"/api/join", map[string]string{"room_id": roomID, "password": "abc"})
	resp.Body.Close()

	resp = uploadFile(t, client, ts.URL, "a.txt", "short-lived")
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload: status %d, want 201", resp.StatusCode)
	}

	time.Sleep(50 * time.Millisecond)
	runSweep(context.Background(), SweeperConfig{Registry: registry, Store: store})

	// The session cookie died with the room, so the room-scoped endpoints
	// reject the request outright.
	resp, err := client.Get(ts.URL + "/api/download?name=a.txt")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("download after sweep: status %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, client, ts.URL+"/api/join", map[string]string{"room_id": roomID, "password": "abc"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("join after sweep: status %d, want 401", resp.StatusCode)
	}
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	ts, _, _ := newTestServer(t, time.Minute)
	client := newTestClient(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := client.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, resp.StatusCode)
		}
	}

	resp, err := client.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /metrics: status %d, want 200", resp.StatusCode)
	}
	for _, metric := range []string{"dr_rooms_created_total", "dr_rooms_active", "dr_uptime_seconds"} {
		if !strings.Contains(string(body), metric) {
			t.Errorf("/metrics output missing %s", metric)
		}
	}
}
