package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/alfredjeanlab/hookwatch/internal/model"
)

// entryColumns is the column list used for SELECT statements on log_entries.
const entryColumns = `id, timestamp, source, kind, content, raw`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryAppendEntry(ctx context.Context, db executor, e *model.LogEntry) error {
	err := db.QueryRowContext(ctx, `
		INSERT INTO log_entries (timestamp, source, kind, content, raw)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		e.Timestamp,
		string(e.Source),
		string(e.Kind),
		pgText(e.Content),
		pgText(string(e.Raw)),
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert log entry: %w", err)
	}
	return nil
}

// pgText makes s storable in a TEXT column: invalid UTF-8 becomes U+FFFD
// and NUL bytes are dropped.
func pgText(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	return strings.ReplaceAll(s, "\x00", "")
}

func queryStats(ctx context.Context, db executor, since time.Time, limit int) (*model.Stats, error) {
	stats := &model.Stats{
		TypeCounts:     make(map[model.Kind]int64),
		RecentActivity: []model.ActivityRow{},
	}

	rows, err := db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM log_entries GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}
	for rows.Next() {
		var (
			kind  string
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		stats.TypeCounts[model.Kind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, `
		SELECT id, timestamp, kind, content FROM log_entries
		WHERE timestamp > $1
		ORDER BY id DESC
		LIMIT $2`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		stats.RecentActivity = append(stats.RecentActivity, a)
	}
	return stats, rows.Err()
}

func querySearch(ctx context.Context, db executor, query string, limit int) ([]*model.LogEntry, error) {
	if query == "" {
		return []*model.LogEntry{}, nil
	}
	rows, err := db.QueryContext(ctx, `SELECT `+entryColumns+` FROM log_entries
		WHERE content ILIKE $1 ESCAPE '\'
		ORDER BY id DESC
		LIMIT $2`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search log entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func queryListEntriesAfter(ctx context.Context, db executor, afterID int64, limit int) ([]*model.LogEntry, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+entryColumns+` FROM log_entries
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
