package model

import "time"

// Derived record type and severity values.
const (
	ReportTypePlayer    = "player_report"
	AlertTypeSuspicious = "suspicious_report"
	SeverityHigh        = "high"
)

// ReportAction is a report derived from a report-source payload.
type ReportAction struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	Embeds    []any     `json:"embeds"`
}

// AdminAction is derived from every admin-source payload.
type AdminAction struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Embeds    []any     `json:"embeds"`
}

// Alert is raised when report content matches a suspicion keyword.
type Alert struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
	Severity  string    `json:"severity"`
}
