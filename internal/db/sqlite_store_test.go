package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/teacheval/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, RunMigrations(sqlDB, ""))
	store, err := NewSQLiteStore(sqlDB)
	require.NoError(t, err)
	return store
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	require.NoError(t, RunMigrations(sqlDB, "/does/not/exist"))
	require.NoError(t, RunMigrations(sqlDB, ""))
	var n int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestPublicLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	on, err := store.GetPublicLink(ctx, "X")
	require.NoError(t, err)
	assert.False(t, on, "unknown teacher reads as disabled")

	require.NoError(t, store.SetPublicLink(ctx, "X", true))
	require.NoError(t, store.SetPublicLink(ctx, "ជិន ពិសិដ្ឋ", true))
	require.NoError(t, store.SetPublicLink(ctx, "X", false))

	on, err = store.GetPublicLink(ctx, "ជិន ពិសិដ្ឋ")
	require.NoError(t, err)
	assert.True(t, on)

	all, err := store.ListPublicLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"X": false, "ជិន ពិសិដ្ឋ": true}, all)
}

func TestSubmissionCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	subs, at, err := store.CachedSubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.True(t, at.IsZero())

	fetched := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	first := []models.Submission{
		{ID: "a", TeacherName: "X", Timestamp: 1, Ratings: map[string]int{"q1": 5}, Comment: `say "hi"`},
		{ID: "", TeacherName: "Y", Timestamp: 2, Ratings: map[string]int{}},
		{ID: "", TeacherName: "Y", Timestamp: 3, Ratings: map[string]int{}},
	}
	require.NoError(t, store.ReplaceSubmissions(ctx, first, fetched))
	require.NoError(t, store.AddSubmission(ctx, models.Submission{ID: "b", TeacherName: "X", Timestamp: 4, Ratings: map[string]int{"q1": 1}}))

	subs, at, err = store.CachedSubmissions(ctx)
	require.NoError(t, err)
	assert.True(t, fetched.Equal(at))
	require.Len(t, subs, 4)
	assert.Equal(t, first[0], subs[0])
	assert.Equal(t, "b", subs[3].ID)

	require.NoError(t, store.ReplaceSubmissions(ctx, first[:1], fetched.Add(time.Hour)))
	subs, _, err = store.CachedSubmissions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	require.NoError(t, store.ClearSubmissions(ctx))
	subs, at, err = store.CachedSubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
	assert.True(t, at.IsZero())
}

func TestOpenCreatesFileAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "evaluation.db")
	sqlDB, err := Open(path, "")
	require.NoError(t, err)
	defer sqlDB.Close()

	var n int
	require.NoError(t, sqlDB.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.NotZero(t, n)

	again, err := Open(path, "")
	require.NoError(t, err)
	require.NoError(t, again.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 1, n)
	_ = again.Close()
}
