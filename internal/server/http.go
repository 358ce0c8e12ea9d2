package server

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"

	"github.com/alfredjeanlab/hookwatch/internal/activity"
	"github.com/alfredjeanlab/hookwatch/internal/livestate"
	"github.com/alfredjeanlab/hookwatch/internal/logging"
	"github.com/alfredjeanlab/hookwatch/internal/model"
	"github.com/alfredjeanlab/hookwatch/internal/store"
)

//go:embed static
var staticFiles embed.FS

const streamPath = "/api/events/stream"

// statsResponse is the body of GET /api/stats.
type statsResponse struct {
	TypeCounts     map[model.Kind]int64 `json:"type_counts"`
	RecentActivity []model.ActivityRow  `json:"recent_activity"`
	LiveData       livestate.Snapshot   `json:"live_data"`
}

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, requests under /api/ must include a valid
// Authorization: Bearer <token> header. Webhook routes stay open.
func (s *Server) NewHTTPHandler(authToken string) http.Handler {
	mux := http.NewServeMux()

	for _, r := range []struct {
		path   string
		source model.Source
	}{
		{"/webhook/report-source", model.SourceReport},
		{"/webhook/admin-source", model.SourceAdmin},
		{"/webhook/catch-all", model.SourceUnknown},
		{"/webhook/vorp_report", model.SourceReport},
		{"/webhook/dsadmin", model.SourceAdmin},
		{"/webhook/catch_all", model.SourceUnknown},
	} {
		mux.HandleFunc("POST "+r.path, s.handleWebhook(r.source))
	}

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/sources", s.handleSources)
	mux.Handle("GET "+streamPath, s.hub)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	static, _ := fs.Sub(staticFiles, "static")
	mux.Handle("GET /{$}", http.FileServerFS(static))

	return LoggingMiddleware(RecoveryMiddleware(AuthMiddleware(authToken, mux)))
}

// handleStats handles GET /api/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context(), s.now().Add(-store.StatsWindow), store.StatsRecentLimit)
	if err != nil {
		logging.Get(r.Context()).Errorw("stats query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	resp := statsResponse{
		TypeCounts:     stats.TypeCounts,
		RecentActivity: stats.RecentActivity,
		LiveData:       s.state.Snapshot(),
	}
	if resp.TypeCounts == nil {
		resp.TypeCounts = map[model.Kind]int64{}
	}
	if resp.RecentActivity == nil {
		resp.RecentActivity = []model.ActivityRow{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSearch handles GET /api/search?q=.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusOK, []*model.LogEntry{})
		return
	}

	entries, err := s.store.Search(r.Context(), q, store.SearchLimit)
	if err != nil {
		logging.Get(r.Context()).Errorw("search failed", "query", q, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	if entries == nil {
		entries = []*model.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleSources handles GET /api/sources.
func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	roster := s.activity.Roster()
	if roster == nil {
		roster = []activity.Entry{}
	}
	writeJSON(w, http.StatusOK, roster)
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
