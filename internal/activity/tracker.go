// Package activity keeps a per-source roster of webhook traffic and flags
// sources that have gone quiet.
//
// The server calls Record for every persisted entry. A background watcher
// marks a source silent once nothing has arrived from it for longer than
// the configured threshold, and clears the flag when traffic resumes.
package activity

import (
	"sort"
	"sync"
	"time"

	"github.com/alfredjeanlab/hookwatch/internal/logging"
	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// Entry is a snapshot of a single source's activity.
type Entry struct {
	Source     model.Source `json:"source"`
	FirstSeen  time.Time    `json:"first_seen"`
	LastSeen   time.Time    `json:"last_seen"`
	LastKind   model.Kind   `json:"last_kind"`
	EventCount int64        `json:"event_count"`
	IdleSecs   float64      `json:"idle_secs"`
	Silent     bool         `json:"silent"`
	SilentAt   *time.Time   `json:"silent_at,omitempty"`
}

// WatchConfig configures the background silence watcher.
type WatchConfig struct {
	// SilentAfter is how long a source may go without traffic before it is
	// flagged. Default: 15 minutes.
	SilentAfter time.Duration

	// SweepInterval is how often sources are checked. Default: 30 seconds.
	SweepInterval time.Duration

	// OnSilent is called for each source newly flagged silent, outside the lock.
	OnSilent func(source model.Source, lastSeen time.Time)
}

// Tracker maintains the in-memory source roster.
type Tracker struct {
	mu      sync.RWMutex
	sources map[model.Source]*sourceState
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
}

type sourceState struct {
	firstSeen  time.Time
	lastSeen   time.Time
	lastKind   model.Kind
	eventCount int64
	silent     bool
	silentAt   time.Time
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		sources: make(map[model.Source]*sourceState),
		now:     time.Now,
	}
}

// Record notes one entry from source.
func (t *Tracker) Record(source model.Source, kind model.Kind) {
	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.sources[source]
	if !ok {
		st = &sourceState{firstSeen: now}
		t.sources[source] = st
	}
	if st.silent {
		logging.L().Infow("source resumed", "source", source, "silent_for", now.Sub(st.silentAt).String())
		st.silent = false
		st.silentAt = time.Time{}
	}
	st.lastSeen = now
	st.lastKind = kind
	st.eventCount++
}

// Roster returns every known source, most recently active first.
func (t *Tracker) Roster() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.sources))
	for src, st := range t.sources {
		e := Entry{
			Source:     src,
			FirstSeen:  st.firstSeen,
			LastSeen:   st.lastSeen,
			LastKind:   st.lastKind,
			EventCount: st.eventCount,
			IdleSecs:   now.Sub(st.lastSeen).Seconds(),
			Silent:     st.silent,
		}
		if st.silent {
			at := st.silentAt
			e.SilentAt = &at
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return entries
}

// StartWatcher launches the background silence watcher. Call Stop to shut
// it down.
func (t *Tracker) StartWatcher(cfg WatchConfig) {
	if cfg.SilentAfter == 0 {
		cfg.SilentAfter = 15 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}

	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.watch(cfg)

	logging.L().Infow("activity watcher started",
		"silent_after", cfg.SilentAfter.String(),
		"sweep_interval", cfg.SweepInterval.String())
}

// Stop shuts down the watcher goroutine.
func (t *Tracker) Stop() {
	if t.stop != nil {
		close(t.stop)
		<-t.done
		t.stop = nil
		t.done = nil
	}
}

func (t *Tracker) watch(cfg WatchConfig) {
	defer close(t.done)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg WatchConfig) {
	now := t.now()

	type quiet struct {
		source   model.Source
		lastSeen time.Time
	}
	var newlySilent []quiet

	t.mu.Lock()
	for src, st := range t.sources {
		if st.silent {
			continue
		}
		if now.Sub(st.lastSeen) > cfg.SilentAfter {
			st.silent = true
			st.silentAt = now
			newlySilent = append(newlySilent, quiet{source: src, lastSeen: st.lastSeen})
		}
	}
	t.mu.Unlock()

	for _, q := range newlySilent {
		logging.L().Warnw("source went silent",
			"source", q.source,
			"last_seen", q.lastSeen,
			"threshold", cfg.SilentAfter.String())
		if cfg.OnSilent != nil {
			cfg.OnSilent(q.source, q.lastSeen)
		}
	}
}
