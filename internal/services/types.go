package services

import (
	"context"
	"time"

	"github.com/soaringjerry/teacheval/internal/models"
)

// SubmissionStore is the remote system of record (the spreadsheet web app).
type SubmissionStore interface {
	AppendSubmission(ctx context.Context, sheetName string, sub models.Submission) error
	ListSubmissions(ctx context.Context) ([]models.Submission, error)
}

// DirectoryStore lists the teachers and teams used to populate selection lists.
type DirectoryStore interface {
	ListTeachers(ctx context.Context) ([]models.Teacher, error)
	ListTeams(ctx context.Context) ([]string, error)
}

// SubmissionCache keeps the last successful fetch of the remote store.
// Clearing it never touches the remote store.
type SubmissionCache interface {
	ReplaceSubmissions(ctx context.Context, subs []models.Submission, fetchedAt time.Time) error
	AddSubmission(ctx context.Context, sub models.Submission) error
	CachedSubmissions(ctx context.Context) (subs []models.Submission, fetchedAt time.Time, err error)
	ClearSubmissions(ctx context.Context) error
}

// LinkFlagStore is the persisted per-teacher public results allow-list.
// Unknown teachers read as false.
type LinkFlagStore interface {
	GetPublicLink(ctx context.Context, teacher string) (bool, error)
	SetPublicLink(ctx context.Context, teacher string, enabled bool) error
	ListPublicLinks(ctx context.Context) (map[string]bool, error)
}

// URLShortener turns a long link into a short one.
type URLShortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}
