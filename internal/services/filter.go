package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/teacheval/internal/models"
)

// All is the wildcard value accepted by every optional filter field.
const All = "All"

// Filter narrows submissions for one dashboard view. All conditions are
// ANDed equality checks. Year and Month are calendar values of the
// submission timestamp; 0 means All.
type Filter struct {
	TeacherName string `json:"teacher" validate:"required"`
	Term        string `json:"term,omitempty"`
	Year        int    `json:"year,omitempty" validate:"omitempty,min=1970,max=9999"`
	Month       int    `json:"month,omitempty" validate:"omitempty,min=1,max=12"`
	YearLevel   string `json:"yearLevel,omitempty"`
	Team        string `json:"team,omitempty"`
}

func isAll(v string) bool {
	return v == "" || v == All
}

// Match reports whether s satisfies every condition of f. Calendar fields
// are evaluated in loc.
func (f Filter) Match(s models.Submission, loc *time.Location) bool {
	if s.TeacherName != f.TeacherName {
		return false
	}
	if !isAll(f.Term) && s.Term != f.Term {
		return false
	}
	if !isAll(f.YearLevel) && s.YearLevel != f.YearLevel {
		return false
	}
	if !isAll(f.Team) && s.Team != f.Team {
		return false
	}
	if f.Year != 0 || f.Month != 0 {
		t := s.Time(loc)
		if f.Year != 0 && t.Year() != f.Year {
			return false
		}
		if f.Month != 0 && int(t.Month()) != f.Month {
			return false
		}
	}
	return true
}

// Apply returns a new slice with the submissions matching f; subs is not modified.
// A teacher with no submissions yields an empty, non-nil slice. Stored names
// are expected in normalised form; f.TeacherName is normalised here.
func Apply(subs []models.Submission, f Filter, loc *time.Location) []models.Submission {
	f.TeacherName = models.NormalizeName(f.TeacherName)
	out := make([]models.Submission, 0, len(subs))
	for _, s := range subs {
		if f.Match(s, loc) {
			out = append(out, s)
		}
	}
	return out
}

// ParseYear and ParseMonth turn a dropdown value into a Filter field; "All"
// and "" become 0.
func ParseYear(v string) (int, error) {
	return parseCalendar(v, 1970, 9999, "year")
}

func ParseMonth(v string) (int, error) {
	return parseCalendar(v, 1, 12, "month")
}

func parseCalendar(v string, min, max int, name string) (int, error) {
	v = strings.TrimSpace(v)
	if isAll(v) {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min || n > max {
		return 0, NewInvalidError("invalid " + name + ": " + v)
	}
	return n, nil
}

// Options lists the distinct non-empty values offered by the dashboard dropdowns.
type Options struct {
	Terms      []string `json:"terms"`
	Years      []int    `json:"years"`
	YearLevels []string `json:"yearLevels"`
	Teams      []string `json:"teams"`
}

// OptionsFor derives dropdown values from the unfiltered submissions of
// teacher (all submissions when teacher is empty). It must be recomputed
// whenever the base set changes.
func OptionsFor(subs []models.Submission, teacher string, loc *time.Location) Options {
	terms := map[string]struct{}{}
	levels := map[string]struct{}{}
	teams := map[string]struct{}{}
	years := map[int]struct{}{}
	teacher = models.NormalizeName(teacher)
	for _, s := range subs {
		if teacher != "" && s.TeacherName != teacher {
			continue
		}
		addNonEmpty(terms, s.Term)
		addNonEmpty(levels, s.YearLevel)
		addNonEmpty(teams, s.Team)
		if s.Timestamp != 0 {
			years[s.Time(loc).Year()] = struct{}{}
		}
	}
	opts := Options{
		Terms:      sortedKeys(terms),
		YearLevels: sortedKeys(levels),
		Teams:      sortedKeys(teams),
		Years:      make([]int, 0, len(years)),
	}
	for y := range years {
		opts.Years = append(opts.Years, y)
	}
	// newest year first
	sort.Sort(sort.Reverse(sort.IntSlice(opts.Years)))
	return opts
}

func addNonEmpty(set map[string]struct{}, v string) {
	if v = strings.TrimSpace(v); v != "" {
		set[v] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
