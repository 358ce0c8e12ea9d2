package archive

import (
	"bytes"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// DefaultSettle is how old an entry must be before the scheduler archives it.
const DefaultSettle = time.Minute

// Scheduler periodically archives entries appended since the previous run.
// The cursor lives in memory; after a restart the first run starts from
// the configured initial cursor and overwrites any objects for the same range.
//
// IDs come from a sequence, so a row with a lower ID can become visible after
// a higher one when inserts commit out of order. Entries younger than the
// settle window are left for a later run so the cursor never passes a row
// that is still being committed.
type Scheduler struct {
	reader       Reader
	destinations []Destination
	interval     time.Duration
	maxPerObject int
	settle       time.Duration
	now          func() time.Time
	logger       *zap.SugaredLogger

	mu     sync.Mutex
	cursor int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from r to the given
// destinations at the specified interval.
func NewScheduler(r Reader, destinations []Destination, interval time.Duration, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		reader:       r,
		destinations: destinations,
		interval:     interval,
		maxPerObject: 10000,
		settle:       DefaultSettle,
		now:          time.Now,
		logger:       logger,
	}
}

// SetSettle sets the settle window. Zero archives entries as soon as they
// are visible.
func (s *Scheduler) SetSettle(d time.Duration) {
	s.mu.Lock()
	s.settle = d
	s.mu.Unlock()
}

// SetCursor sets the ID after which the next run starts.
func (s *Scheduler) SetCursor(id int64) {
	s.mu.Lock()
	s.cursor = id
	s.mu.Unlock()
}

// Cursor returns the highest ID archived so far.
func (s *Scheduler) Cursor() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Start begins periodic archiving. It runs once immediately, then on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current run (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce archives everything after the cursor, one object per
// maxPerObject entries. The cursor only advances past an object once every
// destination accepted it.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.reader
	if s.settle > 0 {
		r = settledReader{Reader: s.reader, cutoff: s.now().Add(-s.settle)}
	}

	for ctx.Err() == nil {
		var buf bytes.Buffer
		res, err := ExportJSONL(ctx, r, s.cursor, 0, s.maxPerObject, &buf)
		if err != nil {
			s.logger.Errorw("archive export failed", "after_id", s.cursor, "error", err)
			return
		}
		if res.Count == 0 {
			return
		}

		data, err := Gzip(buf.Bytes())
		if err != nil {
			s.logger.Errorw("archive compress failed", "error", err)
			return
		}

		name := ObjectName(res)
		failed := false
		for i, dest := range s.destinations {
			if err := dest.Write(ctx, name, data); err != nil {
				s.logger.Errorw("archive destination write failed", "destination", i, "object", name, "error", err)
				failed = true
			}
		}
		if failed {
			return
		}

		s.cursor = res.LastID
		s.logger.Infow("archive completed",
			"object", name,
			"entries", res.Count,
			"bytes", len(data),
			"destinations", len(s.destinations))

		if res.Count < s.maxPerObject {
			return
		}
	}
}

// settledReader stops listing at the first entry newer than cutoff.
type settledReader struct {
	Reader
	cutoff time.Time
}

func (r settledReader) ListEntriesAfter(ctx context.Context, afterID int64, limit int) ([]*model.LogEntry, error) {
	entries, err := r.Reader.ListEntriesAfter(ctx, afterID, limit)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if e.Timestamp.After(r.cutoff) {
			return entries[:i], nil
		}
	}
	return entries, nil
}
