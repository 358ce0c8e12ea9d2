package model

import (
	"encoding/json"
	"time"
)

// Source tags the origin of a webhook.
type Source string

const (
	SourceReport  Source = "report-source"
	SourceAdmin   Source = "admin-source"
	SourceUnknown Source = "unknown"
)

// String returns the string representation of the source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks whether the source is a known value.
func (s Source) IsValid() bool {
	switch s {
	case SourceReport, SourceAdmin, SourceUnknown:
		return true
	}
	return false
}

// Kind classifies a log entry.
type Kind string

const (
	KindReport      Kind = "report"
	KindAdminAction Kind = "admin_action"
	KindGeneral     Kind = "general"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindReport, KindAdminAction, KindGeneral:
		return true
	}
	return false
}

// LogEntry is one ingested webhook as persisted in the log store.
type LogEntry struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Source    Source          `json:"source"`
	Kind      Kind            `json:"kind"`
	Content   string          `json:"content"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// ActivityRow is the trimmed entry shape returned in recent activity.
type ActivityRow struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
}

// Stats aggregates the log for the dashboard.
type Stats struct {
	TypeCounts     map[Kind]int64 `json:"type_counts"`
	RecentActivity []ActivityRow  `json:"recent_activity"`
}

// Total returns the sum of all type counts.
func (s *Stats) Total() int64 {
	var n int64
	for _, c := range s.TypeCounts {
		n += c
	}
	return n
}
