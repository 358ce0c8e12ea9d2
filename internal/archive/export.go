// Package archive exports the append-only log as JSONL, incrementally by
// entry ID, and ships the result to S3 or a local directory.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// Reader is the slice of store.Store the exporter needs.
type Reader interface {
	ListEntriesAfter(ctx context.Context, afterID int64, limit int) ([]*model.LogEntry, error)
}

// header is the first JSONL record of every export.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AfterID   int64     `json:"after_id"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data *model.LogEntry `json:"data"`
}

// Result summarises one export.
type Result struct {
	AfterID int64 // exclusive lower bound that was requested
	LastID  int64 // highest ID written, or AfterID when nothing was written
	Count   int
}

// ExportJSONL writes a header followed by every entry with ID > afterID,
// in ascending ID order, reading batch entries at a time. maxEntries bounds
// the number of entries written; 0 means no bound.
func ExportJSONL(ctx context.Context, r Reader, afterID int64, batch, maxEntries int, w io.Writer) (Result, error) {
	if batch <= 0 {
		batch = 500
	}
	res := Result{AfterID: afterID, LastID: afterID}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   "1",
		Type:      "header",
		Timestamp: time.Now().UTC(),
		AfterID:   afterID,
	}); err != nil {
		return res, fmt.Errorf("encode header: %w", err)
	}

	cursor := afterID
	for {
		limit := batch
		if maxEntries > 0 && maxEntries-res.Count < limit {
			limit = maxEntries - res.Count
		}
		if limit == 0 {
			return res, nil
		}
		entries, err := r.ListEntriesAfter(ctx, cursor, limit)
		if err != nil {
			return res, fmt.Errorf("list entries after %d: %w", cursor, err)
		}
		for _, e := range entries {
			if err := enc.Encode(record{Type: "entry", Data: e}); err != nil {
				return res, fmt.Errorf("encode entry %d: %w", e.ID, err)
			}
			cursor = e.ID
			res.LastID = e.ID
			res.Count++
		}
		if len(entries) < limit {
			return res, nil
		}
	}
}

// Gzip compresses data.
func Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

// Gunzip decompresses data produced by Gzip.
func Gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// ObjectName returns the archive object name for an ID range. Re-exporting
// the same range yields the same name, so uploads overwrite rather than
// duplicate.
func ObjectName(res Result) string {
	return fmt.Sprintf("log-%012d-%012d.jsonl.gz", res.AfterID+1, res.LastID)
}
