package store

import (
	"context"
	"time"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// Default query bounds used by the dashboard API.
const (
	StatsWindow        = 24 * time.Hour
	StatsRecentLimit   = 50
	SearchLimit        = 100
	DefaultExportBatch = 500
)

// Store is the append-only persistence interface for log entries.
// Entries are never updated or deleted.
type Store interface {
	// AppendEntry persists e and sets e.ID. The entry is durable when
	// AppendEntry returns nil.
	AppendEntry(ctx context.Context, e *model.LogEntry) error

	// Stats returns per-kind counts over the whole log and up to limit of
	// the entries with a timestamp after since, highest ID first.
	Stats(ctx context.Context, since time.Time, limit int) (*model.Stats, error)

	// Search returns up to limit entries whose content contains query,
	// ignoring case, highest ID first. An empty query matches nothing.
	Search(ctx context.Context, query string, limit int) ([]*model.LogEntry, error)

	// ListEntriesAfter returns up to limit entries with ID > afterID in
	// ascending ID order.
	ListEntriesAfter(ctx context.Context, afterID int64, limit int) ([]*model.LogEntry, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}
