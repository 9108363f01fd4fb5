package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/teacheval/internal/gate"
	"github.com/soaringjerry/teacheval/internal/middleware"
	"github.com/soaringjerry/teacheval/internal/models"
	"github.com/soaringjerry/teacheval/internal/services"
)

type fakeSheet struct {
	mu       sync.Mutex
	rows     []models.Submission
	teachers []models.Teacher
	dirErr   error
}

func (f *fakeSheet) AppendSubmission(_ context.Context, _ string, sub models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, sub)
	return nil
}

func (f *fakeSheet) ListSubmissions(context.Context) ([]models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Submission(nil), f.rows...), nil
}

func (f *fakeSheet) ListTeachers(context.Context) ([]models.Teacher, error) {
	if f.dirErr != nil {
		return nil, f.dirErr
	}
	return f.teachers, nil
}

func (f *fakeSheet) ListTeams(context.Context) ([]string, error) {
	if f.dirErr != nil {
		return nil, f.dirErr
	}
	return []string{"Alpha", "Beta"}, nil
}

func testForm() []models.Category {
	return []models.Category{
		{ID: "teaching", Title: "Teaching (T)", Questions: []models.Question{{ID: "q1"}, {ID: "q2"}}},
		{ID: "ethics", Title: "Ethics (E)", Questions: []models.Question{{ID: "q3"}}},
	}
}

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type testServer struct {
	handler http.Handler
	sheet   *fakeSheet
	store   Store
	tokens  *middleware.Tokens
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	sheet := &fakeSheet{teachers: []models.Teacher{{Name: "X", Team: "Alpha"}}}
	store := NewMemoryStore()
	tokens := middleware.NewTokens("test-secret")
	form := testForm()
	auth, err := NewAuthService(tokens, "admin", "pw", 0)
	require.NoError(t, err)

	rt := NewRouter(Deps{
		Submissions: services.NewSubmissionService(sheet, store, form, time.UTC, nil),
		Results:     services.NewResultsService(sheet, store, store, form, time.UTC, nil),
		Links:       services.NewLinkService(store, nil, services.LinkConfig{BaseURL: "https://eval.example.edu/"}, nil),
		Auth:        auth,
		Directory:   sheet,
		Flags:       store,
		Tokens:      tokens,
		Categories:  form,
		Commit:      "abc123",
	})
	rt.now = func() time.Time { return testNow }
	return &testServer{handler: rt.Handler(), sheet: sheet, store: store, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "pw"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func fullRatings(v int) map[string]int {
	return map[string]int{"q1": v, "q2": v, "q3": v}
}

func TestHealthAndVersion(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health?lang=en", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"locale":"en"`)

	rec = s.do(t, http.MethodGet, "/version", nil, "")
	assert.JSONEq(t, `{"commit":"abc123","build_time":""}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/form", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Categories    []models.Category  `json:"categories"`
		TeacherInfo   models.TeacherInfo `json:"teacherInfo"`
		QuestionCount int                `json:"questionCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out.Categories, 2)
	assert.Equal(t, 3, out.QuestionCount)
	assert.Equal(t, "no-store, no-cache, must-revalidate, max-age=0", rec.Header().Get("Cache-Control"))
}

func TestSubmitFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/submissions", services.SubmitRequest{
		Info:    models.TeacherInfo{Name: "X", Term: "Term 1"},
		Ratings: map[string]int{"q1": 5},
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var inc struct {
		Error   string   `json:"error"`
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inc))
	assert.Equal(t, "incomplete", inc.Error)
	assert.Equal(t, []string{"q2", "q3"}, inc.Missing)
	assert.Empty(t, s.sheet.rows)

	rec = s.do(t, http.MethodPost, "/api/submissions", services.SubmitRequest{
		Info:    models.TeacherInfo{Name: "X", Term: "Term 1"},
		Ratings: fullRatings(4),
	}, "")
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Len(t, s.sheet.rows, 1)

	rec = s.do(t, http.MethodPost, "/api/submissions", services.SubmitRequest{
		Info:          models.TeacherInfo{Name: "X"},
		Ratings:       fullRatings(4),
		LinkExpiresAt: 1,
	}, "")
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"EXPIRED"`)
}

func TestSubmitBadJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"invalid"`)
}

func TestDashboardRequiresLogin(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/dashboard?teacher=X", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardReport(t *testing.T) {
	s := newTestServer(t)
	s.sheet.rows = []models.Submission{
		{ID: "1", TeacherName: "X", Term: "Term 1", Team: "Alpha", Ratings: fullRatings(5), Timestamp: testNow.UnixMilli()},
		{ID: "2", TeacherName: "X", Term: "Term 1", Team: "Beta", Ratings: fullRatings(3), Timestamp: testNow.UnixMilli()},
		{ID: "3", TeacherName: "Y", Term: "Term 1", Ratings: fullRatings(1), Timestamp: testNow.UnixMilli()},
	}
	token := s.login(t)

	rec := s.do(t, http.MethodGet, "/api/dashboard?teacher=X&term=All&refresh=true", nil, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Dashboard services.Dashboard `json:"dashboard"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotNil(t, out.Dashboard.Report)
	assert.Equal(t, 2, out.Dashboard.Count)
	assert.InDelta(t, 80.0, out.Dashboard.Report.FinalPercentage, 1e-9)
	assert.Equal(t, services.GradeB, out.Dashboard.Report.Grade)

	rec = s.do(t, http.MethodGet, "/api/dashboard?teacher=X&team=Gamma", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	out.Dashboard = services.Dashboard{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Dashboard.NoData)
	assert.Nil(t, out.Dashboard.Report)
	assert.Equal(t, 2, out.Dashboard.TeacherTotal)

	rec = s.do(t, http.MethodGet, "/api/dashboard?teacher=X&month=13", nil, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/dashboard/options?teacher=X", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Alpha"`)
}

func TestExportDownload(t *testing.T) {
	s := newTestServer(t)
	s.sheet.rows = []models.Submission{
		{ID: "1", TeacherName: "X", Ratings: fullRatings(5), Comment: `a "b"`, Timestamp: testNow.UnixMilli()},
	}
	token := s.login(t)
	rec := s.do(t, http.MethodGet, "/api/dashboard/export?teacher=X", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Evaluation_X_")
	assert.Contains(t, rec.Body.String(), `"a ""b"""`)
}

func TestPublicResultsAllowList(t *testing.T) {
	s := newTestServer(t)
	s.sheet.rows = []models.Submission{{ID: "1", TeacherName: "Y", Ratings: fullRatings(4), Timestamp: testNow.UnixMilli()}}

	rec := s.do(t, http.MethodGet, "/api/public/results?teacher=Y", nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"ACCESS_DENIED"`)

	token := s.login(t)
	rec = s.do(t, http.MethodPut, "/api/public-links/Y", map[string]bool{"enabled": true}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "mode=public_results")

	rec = s.do(t, http.MethodGet, "/api/public/results?teacher=Y", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"final_percentage":80`)

	rec = s.do(t, http.MethodGet, "/api/public-links", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"teacher":"Y"`)
}

func TestSetPublicLinkDecodesNameOnce(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	ctx := context.Background()

	rec := s.do(t, http.MethodPut, "/api/public-links/A%2541", map[string]bool{"enabled": true}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	on, err := s.store.GetPublicLink(ctx, "A%41")
	require.NoError(t, err)
	assert.True(t, on, "a literal percent sequence in the name is kept")
	on, _ = s.store.GetPublicLink(ctx, "AA")
	assert.False(t, on)

	rec = s.do(t, http.MethodPut, "/api/public-links/A%2FB", map[string]bool{"enabled": true}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	on, err = s.store.GetPublicLink(ctx, "A/B")
	require.NoError(t, err)
	assert.True(t, on)
}

func TestGateDecisions(t *testing.T) {
	s := newTestServer(t)
	decide := func(query string) gate.Decision {
		t.Helper()
		rec := s.do(t, http.MethodGet, "/api/gate?"+query, nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var out struct {
			Decision gate.Decision `json:"decision"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out.Decision
	}

	d := decide("")
	assert.Equal(t, gate.StateForm, d.State)
	assert.True(t, d.AdminNavigation)

	d = decide("teacher=X&room=B201")
	assert.Equal(t, gate.StateForm, d.State)
	assert.True(t, d.IdentityLocked)
	assert.Equal(t, "B201", d.Info.Room)

	past := testNow.Add(-time.Minute).UnixMilli()
	d = decide("teacher=X&exp=" + itoa(past))
	assert.Equal(t, gate.StateExpired, d.State)

	future := testNow.Add(time.Hour).UnixMilli()
	d = decide("teacher=X&exp=" + itoa(future))
	assert.Equal(t, gate.StateFormReadonlyTimed, d.State)
	assert.Equal(t, time.Hour.Milliseconds(), d.RemainingMs)

	d = decide("mode=public_results&teacher=Y")
	assert.Equal(t, gate.StateAccessDenied, d.State)
}

func TestEnterDashboard(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	rec := s.do(t, http.MethodPost, "/api/gate/dashboard", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"DASHBOARD"`)

	rec = s.do(t, http.MethodPost, "/api/gate/dashboard?teacher=X", nil, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCountdownStreamsExpiry(t *testing.T) {
	s := newTestServer(t)
	past := testNow.Add(-time.Second).UnixMilli()
	rec := s.do(t, http.MethodGet, "/api/gate/countdown?exp="+itoa(past), nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: expired")

	rec = s.do(t, http.MethodGet, "/api/gate/countdown", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCountdownStopsOnDisconnect(t *testing.T) {
	s := newTestServer(t)
	future := testNow.Add(time.Hour).UnixMilli()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/gate/countdown?exp="+itoa(future), nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.handler.ServeHTTP(rec, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown handler did not stop after disconnect")
	}
	assert.NotContains(t, rec.Body.String(), "event: expired")
}

func TestDirectoryUnavailable(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/teachers", nil, "")
	assert.JSONEq(t, `{"teachers":[{"name":"X","team":"Alpha"}],"storeUnavailable":false}`, rec.Body.String())

	s.sheet.dirErr = errors.New("sheet down")
	rec = s.do(t, http.MethodGet, "/api/teams", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"teams":[],"storeUnavailable":true}`, rec.Body.String())
}

func TestClearCache(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.store.AddSubmission(context.Background(), models.Submission{ID: "c"}))
	token := s.login(t)
	rec := s.do(t, http.MethodDelete, "/api/submissions/cache", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	subs, _, err := s.store.CachedSubmissions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestFormLinkEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	rec := s.do(t, http.MethodPost, "/api/links", services.FormLinkRequest{Info: models.TeacherInfo{Name: "X", Room: "A1"}}, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var link services.FormLink
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &link))
	assert.True(t, strings.HasPrefix(link.URL, "https://eval.example.edu/?"))
	assert.Contains(t, link.URL, "teacher=X")
	assert.NotEmpty(t, link.QRCodeURL)
}
