package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/soaringjerry/teacheval/internal/api"
	"github.com/soaringjerry/teacheval/internal/models"
)

const metaFetchedAt = "submissions_fetched_at"

// SQLiteStore keeps the public link allow-list and the local copy of the
// last submission fetch.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ api.Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func NewStore(db *sql.DB) (api.Store, error) {
	return NewSQLiteStore(db)
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func (s *SQLiteStore) GetPublicLink(ctx context.Context, teacher string) (bool, error) {
	var enabled int64
	err := s.db.QueryRowContext(ctx, `SELECT enabled FROM public_links WHERE teacher = ?`, teacher).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get public link: %w", err)
	}
	return enabled != 0, nil
}

func (s *SQLiteStore) SetPublicLink(ctx context.Context, teacher string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO public_links(teacher, enabled, updated_at) VALUES(?, ?, ?)
ON CONFLICT(teacher) DO UPDATE SET enabled = excluded.enabled, updated_at = excluded.updated_at`,
		teacher, boolToInt64(enabled), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set public link: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListPublicLinks(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT teacher, enabled FROM public_links ORDER BY teacher`)
	if err != nil {
		return nil, fmt.Errorf("list public links: %w", err)
	}
	defer rows.Close()
	out := map[string]bool{}
	for rows.Next() {
		var teacher string
		var enabled int64
		if err := rows.Scan(&teacher, &enabled); err != nil {
			return nil, err
		}
		out[teacher] = enabled != 0
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertSubmission(ctx context.Context, ex execer, sub models.Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO cached_submissions(id, teacher, ts, payload) VALUES(?, ?, ?, ?)`,
		sub.ID, sub.TeacherName, sub.Timestamp, string(payload))
	return err
}

// ReplaceSubmissions swaps the cached set for subs in one transaction.
func (s *SQLiteStore) ReplaceSubmissions(ctx context.Context, subs []models.Submission, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_submissions`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	for _, sub := range subs {
		if err := insertSubmission(ctx, tx, sub); err != nil {
			return fmt.Errorf("cache submission %s: %w", sub.ID, err)
		}
	}
	stamp := "0"
	if !fetchedAt.IsZero() {
		stamp = strconv.FormatInt(fetchedAt.UnixMilli(), 10)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO cache_meta(key, value) VALUES(?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`, metaFetchedAt, stamp); err != nil {
		return fmt.Errorf("write cache meta: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) AddSubmission(ctx context.Context, sub models.Submission) error {
	if err := insertSubmission(ctx, s.db, sub); err != nil {
		return fmt.Errorf("cache submission %s: %w", sub.ID, err)
	}
	return nil
}

// CachedSubmissions returns the cached set in fetch order. fetchedAt is zero
// when nothing has been fetched since the cache was last cleared.
func (s *SQLiteStore) CachedSubmissions(ctx context.Context) ([]models.Submission, time.Time, error) {
	var fetchedAt time.Time
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM cache_meta WHERE key = ?`, metaFetchedAt).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, time.Time{}, fmt.Errorf("read cache meta: %w", err)
	default:
		if ms, perr := strconv.ParseInt(raw, 10, 64); perr == nil && ms != 0 {
			fetchedAt = time.UnixMilli(ms).UTC()
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM cached_submissions ORDER BY seq`)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("read cache: %w", err)
	}
	defer rows.Close()
	out := []models.Submission{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, time.Time{}, err
		}
		var sub models.Submission
		if err := json.Unmarshal([]byte(payload), &sub); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode cached submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, fetchedAt, rows.Err()
}

func (s *SQLiteStore) ClearSubmissions(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_submissions`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_meta WHERE key = ?`, metaFetchedAt); err != nil {
		return fmt.Errorf("clear cache meta: %w", err)
	}
	return tx.Commit()
}
