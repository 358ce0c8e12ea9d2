package relay

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/alfredjeanlab/hookwatch/internal/idgen"
	"github.com/alfredjeanlab/hookwatch/internal/logging"
	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// Handler returns the relay's HTTP routes. Every POST is answered with
// {"status":"intercepted"} whatever happens to the job afterwards.
func (r *Relay) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, rt := range []struct {
		prefix string
		source model.Source
	}{
		{"/webhook/report-source", model.SourceReport},
		{"/webhook/vorp_report", model.SourceReport},
		{"/webhook/admin-source", model.SourceAdmin},
		{"/webhook/dsadmin", model.SourceAdmin},
	} {
		mux.HandleFunc("POST "+rt.prefix, r.intercept(rt.source))
		mux.HandleFunc("POST "+rt.prefix+"/{id...}", r.intercept(rt.source))
	}
	mux.HandleFunc("POST /webhook/{path...}", r.intercept(model.SourceUnknown))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.opts.Metrics != nil {
		mux.Handle("GET /metrics", r.opts.Metrics.Handler())
	}
	return mux
}

func (r *Relay) intercept(source model.Source) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		jobID := idgen.JobID()
		log := logging.Get(req.Context()).With("job_id", jobID, "source", source, "path", req.URL.Path)

		raw, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodyBytes))
		if err != nil {
			log.Warnw("failed to read webhook body", "error", err)
			writeJSON(w, http.StatusOK, intercepted)
			return
		}

		ct := req.Header.Get("Content-Type")
		job := Job{
			ID:          jobID,
			Source:      source,
			Path:        req.URL.Path,
			Payload:     parseBody(ct, raw),
			Raw:         raw,
			ContentType: ct,
		}
		if job.Payload == nil {
			log.Warnw("webhook body is neither a JSON object nor form data", "content_type", ct)
		}

		switch err := r.Enqueue(job); {
		case errors.Is(err, ErrQueueFull):
			log.Warnw("relay queue full, dropping webhook")
		case errors.Is(err, ErrClosed):
			log.Warnw("relay shutting down, dropping webhook")
		default:
			log.Infow("webhook intercepted", "bytes", len(raw))
		}
		writeJSON(w, http.StatusOK, intercepted)
	}
}

var intercepted = map[string]string{"status": "intercepted"}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
