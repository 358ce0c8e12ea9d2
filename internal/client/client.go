// Package client provides a transport-agnostic interface for the hookwatch
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"encoding/json"

	"github.com/alfredjeanlab/hookwatch/internal/activity"
	"github.com/alfredjeanlab/hookwatch/internal/livestate"
	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// Client is the interface the hookwatch CLI commands use to talk to a
// running service.
type Client interface {
	// Dashboard API
	Stats(ctx context.Context) (*StatsResponse, error)
	Search(ctx context.Context, query string) ([]*model.LogEntry, error)
	Sources(ctx context.Context) ([]activity.Entry, error)

	// Stream delivers live events to fn until ctx is cancelled, the
	// server closes the stream or fn returns an error.
	Stream(ctx context.Context, events []string, fn func(StreamEvent) error) error

	// PostWebhook sends body to one of the webhook receivers
	// (e.g. "report-source").
	PostWebhook(ctx context.Context, route string, body []byte) error

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	TypeCounts     map[model.Kind]int64 `json:"type_counts"`
	RecentActivity []model.ActivityRow  `json:"recent_activity"`
	LiveData       livestate.Snapshot   `json:"live_data"`
}

// StreamEvent is one server-sent event.
type StreamEvent struct {
	ID   string
	Name string
	Data json.RawMessage
}
