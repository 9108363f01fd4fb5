package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soaringjerry/teacheval/internal/models"
)

type memoryStore struct {
	mu        sync.RWMutex
	links     map[string]bool
	subs      []models.Submission
	fetchedAt time.Time
}

// NewMemoryStore keeps state in process memory; used by tests and when no
// SQLite path is configured.
func NewMemoryStore() Store {
	return newMemoryStore()
}

func newMemoryStore() *memoryStore {
	return &memoryStore{links: map[string]bool{}}
}

func (s *memoryStore) GetPublicLink(_ context.Context, teacher string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.links[teacher], nil
}

func (s *memoryStore) SetPublicLink(_ context.Context, teacher string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[teacher] = enabled
	return nil
}

func (s *memoryStore) ListPublicLinks(_ context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.links))
	for k, v := range s.links {
		out[k] = v
	}
	return out, nil
}

func (s *memoryStore) ReplaceSubmissions(_ context.Context, subs []models.Submission, fetchedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append([]models.Submission(nil), subs...)
	s.fetchedAt = fetchedAt
	return nil
}

func (s *memoryStore) AddSubmission(_ context.Context, sub models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	return nil
}

func (s *memoryStore) CachedSubmissions(_ context.Context) ([]models.Submission, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Submission{}, s.subs...), s.fetchedAt, nil
}

func (s *memoryStore) ClearSubmissions(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = nil
	s.fetchedAt = time.Time{}
	return nil
}

// Browser storage keys of the single-page app that predates the server.
const (
	legacySubmissionsKey = "teacher_eval_submissions"
	legacyLinkPrefix     = "public_link_status_"
)

// LegacySnapshot is a JSON dump of the old browser storage: a flat object of
// key to stored value. Values may be JSON-encoded strings, as browser
// storage keeps them, or plain JSON.
type LegacySnapshot struct {
	Submissions []models.Submission
	PublicLinks map[string]bool
}

// LoadLegacySnapshot reads a snapshot file. An empty path reports
// os.ErrNotExist.
func LoadLegacySnapshot(path string) (*LegacySnapshot, error) {
	if strings.TrimSpace(path) == "" {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLegacySnapshot(b)
}

func ParseLegacySnapshot(b []byte) (*LegacySnapshot, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap := &LegacySnapshot{PublicLinks: map[string]bool{}}
	for key, val := range raw {
		val, err := unwrapStored(val)
		if err != nil {
			return nil, fmt.Errorf("snapshot key %q: %w", key, err)
		}
		switch {
		case key == legacySubmissionsKey:
			if err := json.Unmarshal(val, &snap.Submissions); err != nil {
				return nil, fmt.Errorf("snapshot submissions: %w", err)
			}
		case strings.HasPrefix(key, legacyLinkPrefix):
			teacher := models.NormalizeName(strings.TrimPrefix(key, legacyLinkPrefix))
			if teacher == "" {
				continue
			}
			var on bool
			if err := json.Unmarshal(val, &on); err != nil {
				return nil, fmt.Errorf("snapshot link %q: %w", teacher, err)
			}
			snap.PublicLinks[teacher] = on
		}
	}
	for i := range snap.Submissions {
		snap.Submissions[i].TeacherName = models.NormalizeName(snap.Submissions[i].TeacherName)
	}
	sort.SliceStable(snap.Submissions, func(i, j int) bool {
		return snap.Submissions[i].Timestamp < snap.Submissions[j].Timestamp
	})
	return snap, nil
}

// unwrapStored turns a JSON string holding JSON into the inner document.
func unwrapStored(v json.RawMessage) (json.RawMessage, error) {
	if len(v) == 0 || v[0] != '"' {
		return v, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return nil, err
	}
	return json.RawMessage(s), nil
}

// CopyTo writes the snapshot into dst. Submissions become the cached set
// with no fetch time, so the first read still goes to the remote store and
// the imported rows only serve as the failure fallback.
func (s *LegacySnapshot) CopyTo(ctx context.Context, dst Store) error {
	if s == nil || dst == nil {
		return errors.New("nil snapshot or store")
	}
	for teacher, on := range s.PublicLinks {
		if err := dst.SetPublicLink(ctx, teacher, on); err != nil {
			return fmt.Errorf("copy public link %q: %w", teacher, err)
		}
	}
	if len(s.Submissions) > 0 {
		if err := dst.ReplaceSubmissions(ctx, s.Submissions, time.Time{}); err != nil {
			return fmt.Errorf("copy submissions: %w", err)
		}
	}
	return nil
}
