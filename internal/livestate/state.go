// Package livestate holds the in-memory rolling views served to the
// dashboard. State lives for the process lifetime and is reset on restart.
package livestate

import (
	"encoding/json"
	"sync"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// AdminActionLimit is the fixed cap on retained admin actions.
const AdminActionLimit = 100

// Limits bounds the report and alert lists. Zero means unbounded.
type Limits struct {
	RecentActions int
	Alerts        int
}

// State is the process-scoped live cache. All mutation goes through its
// methods; readers get copies from Snapshot.
type State struct {
	mu     sync.RWMutex
	limits Limits

	recentActions []model.ReportAction
	adminActions  []model.AdminAction
	alerts        []model.Alert

	// Reserved for external collaborators; ingestion never writes these.
	chatMessages  []json.RawMessage
	onlinePlayers []json.RawMessage
	serverStats   map[string]any
}

// Snapshot is a point-in-time copy of the live state.
type Snapshot struct {
	OnlinePlayers []json.RawMessage    `json:"online_players"`
	RecentActions []model.ReportAction `json:"recent_actions"`
	AdminActions  []model.AdminAction  `json:"admin_actions"`
	ChatMessages  []json.RawMessage    `json:"chat_messages"`
	ServerStats   map[string]any       `json:"server_stats"`
	Alerts        []model.Alert        `json:"alerts"`
}

// New returns an empty State with the given limits.
func New(limits Limits) *State {
	return &State{
		limits:      limits,
		serverStats: make(map[string]any),
	}
}

// AddReport appends a report record.
func (s *State) AddReport(r model.ReportAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentActions = appendCapped(s.recentActions, r, s.limits.RecentActions)
}

// AddAdminAction appends an admin record, evicting the oldest beyond AdminActionLimit.
func (s *State) AddAdminAction(a model.AdminAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminActions = appendCapped(s.adminActions, a, AdminActionLimit)
}

// AddAlert appends an alert.
func (s *State) AddAlert(a model.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = appendCapped(s.alerts, a, s.limits.Alerts)
}

// SetOnlinePlayers replaces the online player list.
func (s *State) SetOnlinePlayers(players []json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onlinePlayers = append([]json.RawMessage(nil), players...)
}

// AddChatMessage appends a chat message.
func (s *State) AddChatMessage(msg json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatMessages = append(s.chatMessages, msg)
}

// SetServerStat sets a single server stat.
func (s *State) SetServerStat(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverStats[key] = value
}

// Snapshot returns copies of every list. Slices are never nil so they
// serialise as [] rather than null.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]any, len(s.serverStats))
	for k, v := range s.serverStats {
		stats[k] = v
	}
	return Snapshot{
		OnlinePlayers: cloneSlice(s.onlinePlayers),
		RecentActions: cloneSlice(s.recentActions),
		AdminActions:  cloneSlice(s.adminActions),
		ChatMessages:  cloneSlice(s.chatMessages),
		ServerStats:   stats,
		Alerts:        cloneSlice(s.alerts),
	}
}

// appendCapped appends v and drops the oldest elements so that at most
// limit remain. Eviction is positional.
func appendCapped[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if limit > 0 && len(s) > limit {
		// Copy so the dropped prefix does not pin the old backing array.
		s = append(make([]T, 0, limit), s[len(s)-limit:]...)
	}
	return s
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
