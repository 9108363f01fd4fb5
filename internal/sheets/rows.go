package sheets

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/models"
)

// Row is one spreadsheet row keyed by header.
type Row map[string]interface{}

// Header names of the submissions sheet.
const (
	ColID        = "ID"
	ColDate      = "Date"
	ColTeacher   = "Teacher"
	ColTerm      = "Term"
	ColSubject   = "Subject"
	ColMajor     = "Major"
	ColYearLevel = "Year Level"
	ColTeam      = "Team"
	ColRoom      = "Room"
	ColShift     = "Shift"
	ColComment   = "Comment"
	ColRatings   = "Ratings (JSON)"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006",
}

// DecodeRows adapts raw rows. Missing columns become empty strings, a
// missing or unparseable date becomes now. Dates without a zone are read in loc.
func DecodeRows(rows []Row, now time.Time, loc *time.Location, log logging.Logger) []models.Submission {
	out := make([]models.Submission, 0, len(rows))
	for i, r := range rows {
		out = append(out, DecodeRow(r, i, now, loc, log))
	}
	return out
}

// DecodeRow adapts one row; index is only used in log lines.
func DecodeRow(r Row, index int, now time.Time, loc *time.Location, log logging.Logger) models.Submission {
	sub := models.Submission{
		ID:          r.str(ColID),
		TeacherName: models.NormalizeName(r.str(ColTeacher)),
		Term:        r.str(ColTerm),
		Subject:     r.str(ColSubject),
		Major:       r.str(ColMajor),
		YearLevel:   r.str(ColYearLevel),
		Team:        r.str(ColTeam),
		Room:        r.str(ColRoom),
		Shift:       r.str(ColShift),
		Comment:     r.str(ColComment),
	}
	ts, ok := parseDate(r[ColDate], loc)
	if !ok {
		ts = now.UnixMilli()
		if log != nil {
			log.Warn("row date missing or unparseable", logging.Fields{"row": index, "id": sub.ID, "date": r[ColDate]})
		}
	}
	sub.Timestamp = ts

	ratings, err := parseRatings(r[ColRatings])
	if err != nil && log != nil {
		log.Warn("row ratings unreadable", logging.Fields{"row": index, "id": sub.ID}, err)
	}
	sub.Ratings = ratings
	return sub
}

func (r Row) str(key string) string {
	return strings.TrimSpace(cellString(r[key]))
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func parseDate(v interface{}, loc *time.Location) (int64, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch t := v.(type) {
	case float64:
		if t <= 0 {
			return 0, false
		}
		return int64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			return n, true
		}
		for _, layout := range dateLayouts {
			if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
				return ts.UnixMilli(), true
			}
		}
	}
	return 0, false
}

// parseRatings accepts the ratings cell as JSON text or as an already decoded
// object. Anything unreadable yields an empty map and an error to log.
// Non-integer values are dropped.
func parseRatings(v interface{}) (map[string]int, error) {
	out := map[string]int{}
	var obj map[string]interface{}
	switch t := v.(type) {
	case nil:
		return out, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return out, nil
		}
		if err := json.Unmarshal([]byte(t), &obj); err != nil {
			return out, err
		}
	case map[string]interface{}:
		obj = t
	default:
		return out, fmt.Errorf("unexpected ratings cell type %T", v)
	}
	for qid, raw := range obj {
		if n, ok := ratingInt(raw); ok {
			out[qid] = n
		}
	}
	return out, nil
}

func ratingInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}

// DecodeTeachers accepts plain names or objects with Name/Teacher/name and
// Team/team keys. Empty names are dropped.
func DecodeTeachers(raw []interface{}) []models.Teacher {
	out := make([]models.Teacher, 0, len(raw))
	for _, item := range raw {
		var t models.Teacher
		switch v := item.(type) {
		case map[string]interface{}:
			t.Name = firstString(v, "Name", "Teacher", "name", "teacher")
			t.Team = strings.TrimSpace(firstString(v, "Team", "team"))
		default:
			t.Name = cellString(v)
		}
		t.Name = models.NormalizeName(t.Name)
		if t.Name != "" {
			out = append(out, t)
		}
	}
	return out
}

// DecodeTeams accepts plain names or {Team: name} objects.
func DecodeTeams(raw []interface{}) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		var name string
		switch v := item.(type) {
		case map[string]interface{}:
			name = firstString(v, "Team", "team")
			if name == "" {
				for _, val := range v {
					name = cellString(val)
					break
				}
			}
		default:
			name = cellString(v)
		}
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s := cellString(v); s != "" {
				return s
			}
		}
	}
	return ""
}
