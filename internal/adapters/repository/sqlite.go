package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/zopper/recon/internal/domain/model"
)

// schemaSQL creates the raw-record and freshness tables. Record payloads
// are stored as JSON text; the engines only ever see them as key/value rows.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS data_rows (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	partner      TEXT NOT NULL,
	dataset_kind TEXT NOT NULL,
	batch_id     TEXT NOT NULL DEFAULT '',
	data         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_data_rows_tag
	ON data_rows (partner, dataset_kind, batch_id);

CREATE TABLE IF NOT EXISTS freshness_markers (
	partner      TEXT NOT NULL,
	dataset_kind TEXT NOT NULL,
	batch_key    TEXT NOT NULL DEFAULT '',
	last_updated TIMESTAMP NOT NULL,
	PRIMARY KEY (partner, dataset_kind, batch_key)
);
`

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the record database at path and ensures
// the schema exists. WAL mode keeps concurrent readers off the write path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening record database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating record schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// FetchRecords implements Source, including the soft batch fallback and
// prefix partner matching.
func (s *SQLiteStore) FetchRecords(ctx context.Context, partner string, kind model.DatasetKind, batchID string) ([]model.Record, error) {
	recs, err := s.fetch(ctx, partner, kind, batchID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 && batchID != "" {
		return s.fetch(ctx, partner, kind, "")
	}
	return recs, nil
}

func (s *SQLiteStore) fetch(ctx context.Context, partner string, kind model.DatasetKind, batchID string) ([]model.Record, error) {
	var (
		query = `SELECT partner, batch_id, data FROM data_rows WHERE dataset_kind = ?`
		args  = []any{string(kind)}
	)
	if strings.HasSuffix(partner, "%") {
		query += ` AND partner LIKE ?`
	} else {
		query += ` AND partner = ?`
	}
	args = append(args, partner)
	if batchID != "" {
		query += ` AND batch_id = ?`
		args = append(args, batchID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching records: %w", err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			rec     model.Record
			payload string
		)
		if err := rows.Scan(&rec.Partner, &rec.BatchID, &payload); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Kind = kind
		// Rows with undecodable payloads are skipped, not fatal; dirty
		// upstream data must never break a read.
		if err := json.Unmarshal([]byte(payload), &rec.Data); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return out, nil
}

// InsertRecords appends records under their own tags in one transaction.
func (s *SQLiteStore) InsertRecords(ctx context.Context, recs []model.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning insert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO data_rows (partner, dataset_kind, batch_id, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		payload, err := json.Marshal(rec.Data)
		if err != nil {
			return fmt.Errorf("encoding record payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, rec.Partner, string(rec.Kind), rec.BatchID, string(payload)); err != nil {
			return fmt.Errorf("inserting record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing insert: %w", err)
	}
	return nil
}

// ReplaceBatch swaps a batch's records atomically.
func (s *SQLiteStore) ReplaceBatch(ctx context.Context, partner string, kind model.DatasetKind, batchID string, recs []model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning replace: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM data_rows WHERE partner = ? AND dataset_kind = ? AND batch_id = ?`,
		partner, string(kind), batchID); err != nil {
		return fmt.Errorf("clearing batch: %w", err)
	}
	for _, rec := range recs {
		payload, err := json.Marshal(rec.Data)
		if err != nil {
			return fmt.Errorf("encoding record payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO data_rows (partner, dataset_kind, batch_id, data) VALUES (?, ?, ?, ?)`,
			partner, string(kind), batchID, string(payload)); err != nil {
			return fmt.Errorf("inserting record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing replace: %w", err)
	}
	return nil
}

// DeleteBatch removes all records for a tag.
func (s *SQLiteStore) DeleteBatch(ctx context.Context, partner string, kind model.DatasetKind, batchID string) (int64, error) {
	query := `DELETE FROM data_rows WHERE partner = ? AND dataset_kind = ?`
	args := []any{partner, string(kind)}
	if batchID != "" {
		query += ` AND batch_id = ?`
		args = append(args, batchID)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}
	return n, nil
}

// Touch upserts the freshness marker for a tag.
func (s *SQLiteStore) Touch(ctx context.Context, partner string, kind model.DatasetKind, batchKey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO freshness_markers (partner, dataset_kind, batch_key, last_updated)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (partner, dataset_kind, batch_key)
		DO UPDATE SET last_updated = excluded.last_updated`,
		partner, string(kind), batchKey, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("touching freshness marker: %w", err)
	}
	return nil
}

// LastUpdated returns the newest marker for a (partner, kind) pair.
func (s *SQLiteStore) LastUpdated(ctx context.Context, partner string, kind model.DatasetKind) (time.Time, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(last_updated) FROM freshness_markers
		WHERE partner = ? AND dataset_kind = ?`,
		partner, string(kind)).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading freshness marker: %w", err)
	}
	if !raw.Valid || raw.String == "" {
		return time.Time{}, ErrNoMarker
	}
	ts, err := parseStoredTime(raw.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("decoding freshness marker: %w", err)
	}
	return ts, nil
}

// parseStoredTime handles the timestamp encodings the driver may hand back.
func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
