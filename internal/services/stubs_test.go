package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soaringjerry/teacheval/internal/models"
)

type stubSubmissionStore struct {
	mu        sync.Mutex
	rows      []models.Submission
	sheets    []string
	appendErr error
	listErr   error
	listCalls int
}

func (s *stubSubmissionStore) AppendSubmission(_ context.Context, sheetName string, sub models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.rows = append(s.rows, sub)
	s.sheets = append(s.sheets, sheetName)
	return nil
}

func (s *stubSubmissionStore) ListSubmissions(context.Context) ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]models.Submission(nil), s.rows...), nil
}

type stubCache struct {
	subs      []models.Submission
	fetchedAt time.Time
	cleared   bool
}

func (c *stubCache) ReplaceSubmissions(_ context.Context, subs []models.Submission, fetchedAt time.Time) error {
	c.subs = append([]models.Submission(nil), subs...)
	c.fetchedAt = fetchedAt
	return nil
}

func (c *stubCache) AddSubmission(_ context.Context, sub models.Submission) error {
	c.subs = append(c.subs, sub)
	return nil
}

func (c *stubCache) CachedSubmissions(context.Context) ([]models.Submission, time.Time, error) {
	return append([]models.Submission(nil), c.subs...), c.fetchedAt, nil
}

func (c *stubCache) ClearSubmissions(context.Context) error {
	c.subs = nil
	c.fetchedAt = time.Time{}
	c.cleared = true
	return nil
}

type stubFlags struct {
	flags map[string]bool
	gets  int
	err   error
}

func newStubFlags() *stubFlags { return &stubFlags{flags: map[string]bool{}} }

func (f *stubFlags) GetPublicLink(_ context.Context, teacher string) (bool, error) {
	f.gets++
	if f.err != nil {
		return false, f.err
	}
	return f.flags[teacher], nil
}

func (f *stubFlags) SetPublicLink(_ context.Context, teacher string, enabled bool) error {
	if f.err != nil {
		return f.err
	}
	f.flags[teacher] = enabled
	return nil
}

func (f *stubFlags) ListPublicLinks(context.Context) (map[string]bool, error) {
	out := make(map[string]bool, len(f.flags))
	for k, v := range f.flags {
		out[k] = v
	}
	return out, f.err
}

type stubShortener struct {
	calls []string
	err   error
}

func (s *stubShortener) Shorten(_ context.Context, longURL string) (string, error) {
	s.calls = append(s.calls, longURL)
	if s.err != nil {
		return "", s.err
	}
	return "https://is.gd/abc", nil
}

var errStoreDown = errors.New("store down")

func fullRatings(v int) map[string]int {
	return map[string]int{"q1": v, "q2": v, "q3": v, "q4": v}
}
