package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/teacheval/internal/models"
)

func newFakeSheet(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL+"/exec", time.Second, time.UTC, nil)
	c.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return c
}

func TestListSubmissions(t *testing.T) {
	c := newFakeSheet(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Empty(t, r.URL.Query().Get("action"))
		_, _ = w.Write([]byte(`[
			{"ID":"a1","Date":"2024-05-01T02:00:00.000Z","Teacher":" X ","Term":"Term 1","Year Level":2,"Team":"Alpha","Comment":"ok","Ratings (JSON)":"{\"q1\":5,\"q2\":\"4\"}"},
			{"ID":"a2","Date":"not a date","Teacher":"X","Ratings (JSON)":{"q1":3,"q2":2.5}},
			{"ID":"a3","Teacher":"Y","Ratings (JSON)":"{broken"}
		]`))
	})
	subs, err := c.ListSubmissions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 3)

	assert.Equal(t, "X", subs[0].TeacherName)
	assert.Equal(t, "2", subs[0].YearLevel)
	assert.Equal(t, time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC).UnixMilli(), subs[0].Timestamp)
	assert.Equal(t, map[string]int{"q1": 5, "q2": 4}, subs[0].Ratings)
	assert.Equal(t, "", subs[0].Room, "missing column defaults to empty")

	assert.Equal(t, c.now().UnixMilli(), subs[1].Timestamp, "bad date falls back to now")
	assert.Equal(t, map[string]int{"q1": 3}, subs[1].Ratings, "fractional rating dropped")

	assert.NotNil(t, subs[2].Ratings)
	assert.Empty(t, subs[2].Ratings, "broken json becomes an empty mapping")
}

func TestListSubmissionsFailure(t *testing.T) {
	c := newFakeSheet(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusInternalServerError)
	})
	_, err := c.ListSubmissions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestAppendSubmission(t *testing.T) {
	var got map[string]interface{}
	c := newFakeSheet(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":"success"}`))
	})
	sub := models.Submission{ID: "s1", Timestamp: 1700000000000, TeacherName: "X", Ratings: map[string]int{"q1": 5}, Term: "Term 1", YearLevel: "1"}
	require.NoError(t, c.AppendSubmission(context.Background(), "Term 1 (Nov-2023)", sub))

	assert.Equal(t, "Term 1 (Nov-2023)", got["sheetName"])
	assert.Equal(t, "s1", got["id"])
	assert.Equal(t, "X", got["teacherName"])
	assert.Equal(t, "1", got["yearLevel"])
	assert.Equal(t, float64(1700000000000), got["timestamp"])
}

func TestAppendRejected(t *testing.T) {
	c := newFakeSheet(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error","error":"sheet locked"}`))
	})
	err := c.AppendSubmission(context.Background(), "General (Jan-2025)", models.Submission{ID: "s"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))
	assert.Contains(t, err.Error(), "sheet locked")
}

func TestDirectory(t *testing.T) {
	c := newFakeSheet(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("action") {
		case actionTeachers:
			_, _ = w.Write([]byte(`["  A  ", {"Name":"B","Team":"Alpha"}, {"teacher":"C","team":" Beta "}, "", {"Team":"x"}]`))
		case actionTeams:
			_, _ = w.Write([]byte(`["Alpha", {"Team":"Beta"}, {"team":"Gamma"}, {"Other":"Delta"}, " "]`))
		default:
			t.Errorf("unexpected action %q", r.URL.RawQuery)
		}
	})
	teachers, err := c.ListTeachers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Teacher{{Name: "A"}, {Name: "B", Team: "Alpha"}, {Name: "C", Team: "Beta"}}, teachers)

	teams, err := c.ListTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma", "Delta"}, teams)
}

func TestDecodeRowNormalizesTeacher(t *testing.T) {
	sub := DecodeRow(Row{ColTeacher: " Jose\u0301 "}, 0, time.Unix(0, 0), time.UTC, nil)
	assert.Equal(t, "Jos\u00e9", sub.TeacherName)
}

func TestDecodeRowDateWithoutZoneUsesLocation(t *testing.T) {
	phnomPenh := time.FixedZone("ICT", 7*60*60)
	sub := DecodeRow(Row{ColDate: "2024-05-31 23:30:00"}, 0, time.Unix(0, 0), phnomPenh, nil)
	assert.Equal(t, time.May, sub.Time(phnomPenh).Month())
	assert.Equal(t, time.Date(2024, 5, 31, 16, 30, 0, 0, time.UTC).UnixMilli(), sub.Timestamp)

	sub = DecodeRow(Row{ColDate: "2024-05-31T23:30:00Z"}, 0, time.Unix(0, 0), phnomPenh, nil)
	assert.Equal(t, time.Date(2024, 5, 31, 23, 30, 0, 0, time.UTC).UnixMilli(), sub.Timestamp, "an explicit zone wins")
}
