package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
)

// uploadResp is the JSON response returned after a successful file upload.
type uploadResp struct {
	RoomID string `json:"room_id"`
	Name   string `json:"name"`
}

// maxUploadBytes reads the DR_MAX_UPLOAD_BYTES environment variable and
// returns the maximum allowed upload size in bytes. Returns 0 if not set
// (meaning no limit). Returns an error if the value cannot be parsed.
func maxUploadBytes() (int64, error) {
	raw := os.Getenv("DR_MAX_UPLOAD_BYTES")
	if raw == "" {
		return 0, nil // no limit configured
	}
	return strconv.ParseInt(raw, 10, 64)
}

// uploadHandler handles POST /api/upload requests for streaming multipart
// uploads into the session's room. The file part is streamed straight to the
// blob store; only after the write is acknowledged does the filename enter
// the room's file list. A room swept mid-upload surfaces as 404.
//
// Required form field: file (the binary file data)
// Authentication: valid room session cookie
func (cfg Config) uploadHandler() http.Handler {
	return cfg.Session.requireRoom(func(w http.ResponseWriter, r *http.Request, roomID string) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		limit, err := maxUploadBytes()
		if err != nil {
			http.Error(w, "server misconfigured", http.StatusInternalServerError)
			return
		}
		if limit > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}

		var filePart io.Reader
		var filename string

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				http.Error(w, "bad multipart", http.StatusBadRequest)
				return
			}
			defer func() { _ = part.Close() }()

			if part.FormName() != "file" {
				continue
			}

			filePart = part
			filename = sanitizeFilename(part.FileName())
			break
		}

		if filePart == nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		if filename == "" {
			http.Error(w, "bad filename", http.StatusBadRequest)
			return
		}

		counted := &countingReader{r: filePart}
		err = cfg.Service.Upload(r.Context(), roomID, filename, counted, -1)
		if err != nil {
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=upload_failed room=%s file=%s err=%v", rid, roomID, filename, err)

			switch {
			case errors.Is(err, ErrRoomNotFound):
				http.Error(w, "room not found", http.StatusNotFound)
			default:
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "upload failed", http.StatusBadGateway)
			}
			return
		}

		GetMetrics().RecordUpload(counted.n)
		cfg.Audit.Record(r.Context(), AuditFileUploaded, roomID,
			map[string]any{"name": filename, "bytes": counted.n})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(uploadResp{RoomID: roomID, Name: filename})
	})
}

// countingReader counts bytes as they stream through to the blob store.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
