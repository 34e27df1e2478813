package decisionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path. Use ":memory:" for a
// throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS decisions (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL,
        ts INTEGER NOT NULL,
        kind TEXT NOT NULL,
        record TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS decisions_ts ON decisions (ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisions (id, ts, kind, record) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UnixNano(), string(rec.Kind), string(b))
	return err
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	var args []any
	where := `WHERE 1=1`
	if !q.Since.IsZero() {
		where += ` AND ts >= ?`
		args = append(args, q.Since.UnixNano())
	}
	if !q.Until.IsZero() {
		where += ` AND ts <= ?`
		args = append(args, q.Until.UnixNano())
	}
	if q.Kind != "" {
		where += ` AND kind = ?`
		args = append(args, string(q.Kind))
	}
	query := `SELECT record FROM decisions ` + where + ` ORDER BY seq`
	if q.Limit > 0 {
		query = `SELECT record FROM (SELECT seq, record FROM decisions ` + where + ` ORDER BY seq DESC LIMIT ?) ORDER BY seq`
		args = append(args, q.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r Record
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
