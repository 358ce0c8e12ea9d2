// Package memory implements store.Store in process memory. Entries are lost
// on restart; it backs development runs and tests.
package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/alfredjeanlab/hookwatch/internal/model"
	"github.com/alfredjeanlab/hookwatch/internal/store"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store closed")

// Store is an in-memory store.Store.
type Store struct {
	mu      sync.RWMutex
	entries []*model.LogEntry
	nextID  int64
	closed  bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

func (s *Store) AppendEntry(ctx context.Context, e *model.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.nextID++
	e.ID = s.nextID
	s.entries = append(s.entries, clone(e))
	return nil
}

func (s *Store) Stats(ctx context.Context, since time.Time, limit int) (*model.Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	stats := &model.Stats{
		TypeCounts:     make(map[model.Kind]int64),
		RecentActivity: []model.ActivityRow{},
	}
	for _, e := range s.entries {
		stats.TypeCounts[e.Kind]++
	}
	// Entries are appended in ID order, so walking backwards is newest first.
	for i := len(s.entries) - 1; i >= 0 && len(stats.RecentActivity) < limit; i-- {
		e := s.entries[i]
		if !e.Timestamp.After(since) {
			continue
		}
		stats.RecentActivity = append(stats.RecentActivity, model.ActivityRow{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Kind:      e.Kind,
			Content:   e.Content,
		})
	}
	return stats, nil
}

func (s *Store) Search(ctx context.Context, query string, limit int) ([]*model.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	result := []*model.LogEntry{}
	if query == "" {
		return result, nil
	}
	needle := strings.ToLower(query)
	for i := len(s.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if strings.Contains(strings.ToLower(s.entries[i].Content), needle) {
			result = append(result, clone(s.entries[i]))
		}
	}
	return result, nil
}

func (s *Store) ListEntriesAfter(ctx context.Context, afterID int64, limit int) ([]*model.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	result := []*model.LogEntry{}
	for _, e := range s.entries {
		if len(result) >= limit {
			break
		}
		if e.ID > afterID {
			result = append(result, clone(e))
		}
	}
	return result, nil
}

func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return ctx.Err()
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func clone(e *model.LogEntry) *model.LogEntry {
	c := *e
	c.Raw = append([]byte(nil), e.Raw...)
	return &c
}
