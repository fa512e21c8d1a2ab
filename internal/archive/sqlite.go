// Package archive keeps a history of finished reviews in SQLite.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var ErrRecordNotFound = errors.New("archive record not found")

// Record is one stored review. Payload is the full JSON result; the other
// columns are copies used for listing.
type Record struct {
	ID           string          `db:"id" json:"id"`
	SourceName   string          `db:"source_name" json:"source_name"`
	Model        string          `db:"model" json:"model"`
	OverallRisk  string          `db:"overall_risk" json:"overall_risk"`
	RedFlagCount int             `db:"red_flag_count" json:"red_flag_count"`
	HighCount    int             `db:"high_count" json:"high_count"`
	Summary      string          `db:"summary" json:"summary"`
	CreatedAt    time.Time       `db:"-" json:"created_at"`
	Payload      json.RawMessage `db:"-" json:"payload,omitempty"`
}

type recordRow struct {
	Record
	CreatedAtText string `db:"created_at"`
	PayloadText   string `db:"payload"`
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reviews (
	id             TEXT PRIMARY KEY,
	source_name    TEXT NOT NULL DEFAULT '',
	model          TEXT NOT NULL DEFAULT '',
	overall_risk   TEXT NOT NULL DEFAULT 'medium',
	red_flag_count INTEGER NOT NULL DEFAULT 0,
	high_count     INTEGER NOT NULL DEFAULT 0,
	summary        TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	payload        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS reviews_created_at ON reviews (created_at DESC);
`

type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save inserts or replaces r.
func (s *SQLiteStore) Save(ctx context.Context, r Record) error {
	if r.ID == "" {
		return errors.New("archive record id is required")
	}
	if len(r.Payload) == 0 {
		r.Payload = json.RawMessage("{}")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO reviews
		(id, source_name, model, overall_risk, red_flag_count, high_count, summary, created_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SourceName, r.Model, r.OverallRisk, r.RedFlagCount, r.HighCount, r.Summary,
		fmtTime(r.CreatedAt), string(r.Payload))
	if err != nil {
		return fmt.Errorf("save review %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM reviews WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrRecordNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get review %s: %w", id, err)
	}
	return row.record(true), nil
}

// List returns up to limit records, newest first, without payloads.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id, source_name, model, overall_risk, red_flag_count,
		high_count, summary, created_at, '' AS payload
		FROM reviews ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record(false))
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete review %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (row recordRow) record(withPayload bool) Record {
	r := row.Record
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, row.CreatedAtText)
	if withPayload {
		r.Payload = json.RawMessage(row.PayloadText)
	}
	return r
}

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
