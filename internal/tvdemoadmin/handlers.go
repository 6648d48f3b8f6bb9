// Package httpapi exposes a small net/http admin surface for operational
// visibility into the TV demo recorder: liveness/readiness, Prometheus-style
// metrics, and the two read-only TV demo endpoints. It never drives playback
// and never streams demo content.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"trinity/tvdemo/internal/catalog"
	"trinity/tvdemo/internal/logging"
	"trinity/tvdemo/internal/replay"
)

// ReadinessProvider exposes broker state required for readiness checks.
type ReadinessProvider interface {
	Uptime() time.Duration
	StartupError() error
}

// RecorderStats reports the live recorder snapshot for /tv/status.
type RecorderStats func() replay.Stats

// StorageStatsFunc reports retention/storage counters for /tv/status.
type StorageStatsFunc func() replay.StorageStats

// DemoLister lists finalized .tvd files for /tv/demos.
type DemoLister interface {
	List() ([]catalog.Entry, error)
}

// Options configures the HandlerSet.
type Options struct {
	Logger        *logging.Logger
	Readiness     ReadinessProvider
	TimeSource    func() time.Time
	RecorderStats RecorderStats
	Storage       StorageStatsFunc
	Demos         DemoLister

	// DemosRateWindow/DemosRateBurst bound how often a single remote
	// address may hit /tv/demos, since listing the catalog is the one
	// handler here that does real I/O. Either left zero disables the
	// limit, matching SlidingWindowLimiter's own zero-value behavior.
	DemosRateWindow time.Duration
	DemosRateBurst  int
}

// HandlerSet bundles the TV demo operational handlers.
type HandlerSet struct {
	logger        *logging.Logger
	readiness     ReadinessProvider
	now           func() time.Time
	recorderStats RecorderStats
	storage       StorageStatsFunc
	demos         DemoLister
	demosLimiter  *KeyedLimiter[string]
}

// NewHandlerSet constructs a HandlerSet using the provided options.
func NewHandlerSet(opts Options) *HandlerSet {
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}
	now := opts.TimeSource
	if now == nil {
		now = time.Now
	}
	return &HandlerSet{
		logger:        logger,
		readiness:     opts.Readiness,
		now:           now,
		recorderStats: opts.RecorderStats,
		storage:       opts.Storage,
		demos:         opts.Demos,
		demosLimiter:  NewKeyedLimiter[string](opts.DemosRateWindow, opts.DemosRateBurst, now),
	}
}

// Register attaches all handlers to the provided mux.
func (h *HandlerSet) Register(mux *http.ServeMux) {
	if mux == nil {
		return
	}
	mux.HandleFunc("/livez", h.LivenessHandler())
	mux.HandleFunc("/readyz", h.ReadinessHandler())
	mux.HandleFunc("/metrics", h.MetricsHandler())
	mux.HandleFunc("/tv/status", h.TVStatusHandler())
	mux.HandleFunc("/tv/demos", h.TVDemosHandler())
}

// LivenessHandler reports that the HTTP server is reachable.
func (h *HandlerSet) LivenessHandler() http.HandlerFunc {
	type response struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{
			Status:    "alive",
			Timestamp: h.now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// ReadinessHandler reports service readiness based on startup status.
func (h *HandlerSet) ReadinessHandler() http.HandlerFunc {
	type response struct {
		Status        string  `json:"status"`
		Message       string  `json:"message,omitempty"`
		UptimeSeconds float64 `json:"uptime_seconds"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		resp := response{Status: "ok"}
		if h.readiness != nil {
			resp.UptimeSeconds = h.readiness.Uptime().Seconds()
			if err := h.readiness.StartupError(); err != nil {
				status = http.StatusServiceUnavailable
				resp.Status = "error"
				resp.Message = err.Error()
			}
		}
		writeJSON(w, status, resp)
	}
}

// MetricsHandler emits Prometheus compatible text metrics for the recorder
// and its storage retention sweep.
func (h *HandlerSet) MetricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")

		if h.readiness != nil {
			fmt.Fprintf(w, "# HELP tvdemo_uptime_seconds Process uptime in seconds.\n")
			fmt.Fprintf(w, "# TYPE tvdemo_uptime_seconds gauge\n")
			fmt.Fprintf(w, "tvdemo_uptime_seconds %.0f\n", h.readiness.Uptime().Seconds())
		}
		if h.recorderStats != nil {
			stats := h.recorderStats()
			fmt.Fprintf(w, "# HELP tvdemo_recording Whether a TV demo recording is currently active.\n")
			fmt.Fprintf(w, "# TYPE tvdemo_recording gauge\n")
			fmt.Fprintf(w, "tvdemo_recording %d\n", boolToInt(stats.Recording))
			fmt.Fprintf(w, "# HELP tvdemo_frames_written_total Frames written to the active or most recent recording.\n")
			fmt.Fprintf(w, "# TYPE tvdemo_frames_written_total counter\n")
			fmt.Fprintf(w, "tvdemo_frames_written_total %d\n", stats.FramesWritten)
			fmt.Fprintf(w, "# HELP tvdemo_dumps_total Recordings finalized successfully.\n")
			fmt.Fprintf(w, "# TYPE tvdemo_dumps_total counter\n")
			fmt.Fprintf(w, "tvdemo_dumps_total %d\n", stats.Dumps)
		}
		if h.storage != nil {
			storage := h.storage()
			fmt.Fprintf(w, "# HELP tvdemo_storage_files Finalized .tvd files currently retained.\n")
			fmt.Fprintf(w, "# TYPE tvdemo_storage_files gauge\n")
			fmt.Fprintf(w, "tvdemo_storage_files %d\n", storage.Files)
			fmt.Fprintf(w, "# HELP tvdemo_storage_bytes Total on-disk size of retained demos in bytes.\n")
			fmt.Fprintf(w, "# TYPE tvdemo_storage_bytes gauge\n")
			fmt.Fprintf(w, "tvdemo_storage_bytes %d\n", storage.Bytes)
			if !storage.LastSweep.IsZero() {
				fmt.Fprintf(w, "# HELP tvdemo_storage_last_sweep_timestamp_seconds Unix timestamp of the last retention sweep.\n")
				fmt.Fprintf(w, "# TYPE tvdemo_storage_last_sweep_timestamp_seconds gauge\n")
				fmt.Fprintf(w, "tvdemo_storage_last_sweep_timestamp_seconds %d\n", storage.LastSweep.Unix())
			}
		}
	}
}

// TVStatusHandler reports the current recorder snapshot: read-only,
// observational, matching spec section 6's /tv/status definition.
func (h *HandlerSet) TVStatusHandler() http.HandlerFunc {
	type response struct {
		Recording     bool      `json:"recording"`
		CurrentFile   string    `json:"current_file,omitempty"`
		FramesWritten int64     `json:"frames_written"`
		Dumps         int64     `json:"dumps"`
		LastDumpURI   string    `json:"last_dump_uri,omitempty"`
		LastDumpTime  time.Time `json:"last_dump_time,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if h.recorderStats == nil {
			http.Error(w, "recorder status unavailable", http.StatusServiceUnavailable)
			return
		}
		stats := h.recorderStats()
		writeJSON(w, http.StatusOK, response{
			Recording:     stats.Recording,
			CurrentFile:   stats.CurrentFile,
			FramesWritten: stats.FramesWritten,
			Dumps:         stats.Dumps,
			LastDumpURI:   stats.LastDumpURI,
			LastDumpTime:  stats.LastDumpTime,
		})
	}
}

// TVDemosHandler lists finalized .tvd files via the catalog, matching spec
// section 6's /tv/demos definition.
func (h *HandlerSet) TVDemosHandler() http.HandlerFunc {
	type response struct {
		Demos []catalog.Entry `json:"demos"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := h.logger.With(logging.String("handler", "tv_demos"))
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !h.demosLimiter.Allow(r.RemoteAddr) {
			reqLogger.Warn("tv demos listing rate limited", logging.String("remote_addr", r.RemoteAddr))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		if h.demos == nil {
			http.Error(w, "demo catalog unavailable", http.StatusServiceUnavailable)
			return
		}
		entries, err := h.demos.List()
		if err != nil {
			reqLogger.Error("demo catalog listing failed", logging.Error(err))
			http.Error(w, "failed to list demos", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, response{Demos: entries})
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}
