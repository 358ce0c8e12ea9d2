// Package server implements the primary hookwatch service: the webhook
// receivers, the dashboard API, the live event stream and gRPC health.
package server

import (
	"time"

	"github.com/alfredjeanlab/hookwatch/internal/activity"
	"github.com/alfredjeanlab/hookwatch/internal/broadcast"
	"github.com/alfredjeanlab/hookwatch/internal/classify"
	"github.com/alfredjeanlab/hookwatch/internal/events"
	"github.com/alfredjeanlab/hookwatch/internal/livestate"
	"github.com/alfredjeanlab/hookwatch/internal/metrics"
	"github.com/alfredjeanlab/hookwatch/internal/store"
)

// maxBodyBytes bounds a single webhook body.
const maxBodyBytes = 1 << 20

// Options holds the collaborators of a Server. Store is required; the
// rest default to in-process implementations when nil.
type Options struct {
	Store      store.Store
	State      *livestate.State
	Hub        *broadcast.Hub
	Classifier *classify.Classifier
	Publisher  events.Publisher
	Activity   *activity.Tracker
	Metrics    *metrics.Metrics
}

// Server owns the ingestion pipeline and the read API over it.
type Server struct {
	store      store.Store
	state      *livestate.State
	hub        *broadcast.Hub
	classifier *classify.Classifier
	publisher  events.Publisher
	activity   *activity.Tracker
	metrics    *metrics.Metrics

	now func() time.Time
}

// New returns a Server wired from opts.
func New(opts Options) *Server {
	s := &Server{
		store:     opts.Store,
		state:     opts.State,
		hub:       opts.Hub,
		publisher: opts.Publisher,
		activity:  opts.Activity,
		metrics:   opts.Metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.state == nil {
		s.state = livestate.New(livestate.Limits{})
	}
	if s.hub == nil {
		s.hub = broadcast.NewHub(s.metrics)
	}
	if s.publisher == nil {
		s.publisher = &events.NoopPublisher{}
	}
	if s.activity == nil {
		s.activity = activity.New()
	}
	s.classifier = opts.Classifier
	if s.classifier == nil {
		s.classifier = classify.New(s.state, s.hub,
			classify.WithPublisher(s.publisher),
			classify.WithAlertCounter(s.metrics))
	}
	return s
}

// Hub returns the broadcast hub serving the live stream.
func (s *Server) Hub() *broadcast.Hub { return s.hub }

// State returns the live state cache.
func (s *Server) State() *livestate.State { return s.state }

// Activity returns the source activity tracker.
func (s *Server) Activity() *activity.Tracker { return s.activity }
