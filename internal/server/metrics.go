package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Metrics holds application metrics.
type Metrics struct {
	mu sync.RWMutex

	// Room lifecycle metrics
	roomsCreatedTotal int64
	roomsSweptTotal   int64
	sweepRunsTotal    int64
	sweepErrorsTotal  int64

	// Access metrics
	joinSuccessTotal int64
	joinFailureTotal int64

	// Transfer metrics
	uploadsTotal     int64
	uploadBytesTotal int64
	downloadsTotal   int64

	// System metrics
	requestsTotal    int64
	requestErrors4xx int64
	requestErrors5xx int64
}

var globalMetrics = &Metrics{}

// GetMetrics returns the global metrics instance.
func GetMetrics() *Metrics {
	return globalMetrics
}

// RecordRoomCreated records a successful room creation.
func (m *Metrics) RecordRoomCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomsCreatedTotal++
}

// RecordJoin records a join attempt.
func (m *Metrics) RecordJoin(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.joinSuccessTotal++
	} else {
		m.joinFailureTotal++
	}
}

// RecordUpload records a successful upload.
func (m *Metrics) RecordUpload(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadsTotal++
	if bytes > 0 {
		m.uploadBytesTotal += bytes
	}
}

// RecordDownload records a successful download.
func (m *Metrics) RecordDownload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloadsTotal++
}

// RecordSweep records one completed sweep pass and the rooms it reclaimed.
func (m *Metrics) RecordSweep(swept int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepRunsTotal++
	m.roomsSweptTotal += int64(swept)
}

// RecordSweepError records an absorbed storage failure during a sweep.
func (m *Metrics) RecordSweepError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepErrorsTotal++
}

// RecordRequest records an HTTP request by response class.
func (m *Metrics) RecordRequest(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestsTotal++
	if statusCode >= 500 {
		m.requestErrors5xx++
	} else if statusCode >= 400 {
		m.requestErrors4xx++
	}
}

// MetricsSnapshot represents a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	RoomsCreatedTotal int64 `json:"rooms_created_total"`
	RoomsSweptTotal   int64 `json:"rooms_swept_total"`
	SweepRunsTotal    int64 `json:"sweep_runs_total"`
	SweepErrorsTotal  int64 `json:"sweep_errors_total"`
	JoinSuccessTotal  int64 `json:"join_success_total"`
	JoinFailureTotal  int64 `json:"join_failure_total"`
	UploadsTotal      int64 `json:"uploads_total"`
	UploadBytesTotal  int64 `json:"upload_bytes_total"`
	DownloadsTotal    int64 `json:"downloads_total"`
	RequestsTotal     int64 `json:"requests_total"`
	RequestErrors4xx  int64 `json:"request_errors_4xx"`
	RequestErrors5xx  int64 `json:"request_errors_5xx"`
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		RoomsCreatedTotal: m.roomsCreatedTotal,
		RoomsSweptTotal:   m.roomsSweptTotal,
		SweepRunsTotal:    m.sweepRunsTotal,
		SweepErrorsTotal:  m.sweepErrorsTotal,
		JoinSuccessTotal:  m.joinSuccessTotal,
		JoinFailureTotal:  m.joinFailureTotal,
		UploadsTotal:      m.uploadsTotal,
		UploadBytesTotal:  m.uploadBytesTotal,
		DownloadsTotal:    m.downloadsTotal,
		RequestsTotal:     m.requestsTotal,
		RequestErrors4xx:  m.requestErrors4xx,
		RequestErrors5xx:  m.requestErrors5xx,
	}
}

var serverStartTime = time.Now()

// metricsHandler exposes the metrics in Prometheus text format on GET
// /metrics. The exposition is written by hand; the counter set is small and
// stable.
func metricsHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s := GetMetrics().Snapshot()
		var out strings.Builder

		counter := func(name, help string, v int64) {
			fmt.Fprintf(&out, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
		}

		counter("dr_rooms_created_total", "Total number of rooms created", s.RoomsCreatedTotal)
		counter("dr_rooms_swept_total", "Total number of expired rooms reclaimed", s.RoomsSweptTotal)
		counter("dr_sweep_runs_total", "Total number of sweep passes", s.SweepRunsTotal)
		counter("dr_sweep_errors_total", "Total absorbed storage failures during sweeps", s.SweepErrorsTotal)
		counter("dr_join_success_total", "Total number of successful joins", s.JoinSuccessTotal)
		counter("dr_join_failure_total", "Total number of failed joins", s.JoinFailureTotal)
		counter("dr_uploads_total", "Total number of file uploads", s.UploadsTotal)
		counter("dr_upload_bytes_total", "Total uploaded bytes", s.UploadBytesTotal)
		counter("dr_downloads_total", "Total number of file downloads", s.DownloadsTotal)
		counter("dr_requests_total", "Total number of HTTP requests", s.RequestsTotal)

		fmt.Fprintf(&out, "# HELP dr_rooms_active Current number of registry entries\n")
		fmt.Fprintf(&out, "# TYPE dr_rooms_active gauge\n")
		fmt.Fprintf(&out, "dr_rooms_active %d\n\n", reg.ActiveRooms())

		fmt.Fprintf(&out, "# HELP dr_uptime_seconds Application uptime in seconds\n")
		fmt.Fprintf(&out, "# TYPE dr_uptime_seconds counter\n")
		fmt.Fprintf(&out, "dr_uptime_seconds %.0f\n", time.Since(serverStartTime).Seconds())

		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out.String()))
	}
}
