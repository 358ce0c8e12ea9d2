package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanEntry scans a single row into a model.LogEntry.
// The row must contain columns in the order defined by entryColumns.
func scanEntry(row scannable) (*model.LogEntry, error) {
	var (
		e       model.LogEntry
		source  string
		kind    string
		content sql.NullString
		raw     sql.NullString
	)
	if err := row.Scan(&e.ID, &e.Timestamp, &source, &kind, &content, &raw); err != nil {
		return nil, err
	}
	e.Timestamp = e.Timestamp.UTC()
	e.Source = model.Source(source)
	e.Kind = model.Kind(kind)
	e.Content = content.String
	if raw.Valid && raw.String != "" {
		e.Raw = json.RawMessage(raw.String)
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows) ([]*model.LogEntry, error) {
	result := []*model.LogEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanActivity(row scannable) (model.ActivityRow, error) {
	var (
		a       model.ActivityRow
		kind    string
		content sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Timestamp, &kind, &content); err != nil {
		return a, err
	}
	a.Timestamp = a.Timestamp.UTC()
	a.Kind = model.Kind(kind)
	a.Content = content.String
	return a, nil
}
