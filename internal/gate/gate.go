// Package gate decides what a visitor sees from the link they opened: the
// evaluation form, a timed form, an expired link, public results or a
// denied public link.
//
// Expiry is checked against the clock of whoever evaluates the gate. A skewed
// clock can gate a visitor wrongly in either direction; this is a best-effort
// convenience, not an access control boundary.
package gate

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/teacheval/internal/models"
)

type State string

const (
	StateForm              State = "FORM"
	StateFormReadonlyTimed State = "FORM_READONLY_TIMED"
	StateExpired           State = "EXPIRED"
	StateAccessDenied      State = "ACCESS_DENIED"
	StatePublicResults     State = "PUBLIC_RESULTS"
	StateDashboard         State = "DASHBOARD"
)

// Terminal states offer no way forward inside the app.
func (s State) Terminal() bool {
	return s == StateExpired || s == StateAccessDenied
}

// URL query parameter names.
const (
	ParamTeacher = "teacher"
	ParamSubject = "subject"
	ParamRoom    = "room"
	ParamDate    = "date"
	ParamShift   = "shift"
	ParamTerm    = "term"
	ParamMajor   = "major"
	ParamYear    = "year"
	ParamTeam    = "team"
	ParamExp     = "exp"
	ParamMode    = "mode"

	ModePublicResults = "public_results"
)

// FlagReader reads the per-teacher public results allow-list.
type FlagReader interface {
	GetPublicLink(ctx context.Context, teacher string) (bool, error)
}

// Decision is the outcome of evaluating a link once at load time.
type Decision struct {
	State           State              `json:"state"`
	Teacher         string             `json:"teacher,omitempty"`
	Info            models.TeacherInfo `json:"teacherInfo"`
	IdentityLocked  bool               `json:"identityLocked"`
	ExpiresAt       int64              `json:"expiresAt,omitempty"`
	RemainingMs     int64              `json:"remainingMs,omitempty"`
	AdminNavigation bool               `json:"adminNavigation"`
}

// Resolve evaluates the query string of a visit.
//
//  1. mode=public_results with a teacher: the allow-list decides between
//     PUBLIC_RESULTS and ACCESS_DENIED.
//  2. a teacher parameter: the form context is read from the link; an exp in
//     the past gives EXPIRED, a future exp gives FORM_READONLY_TIMED, no exp
//     gives FORM with a locked identity.
//  3. otherwise FORM with teacher selection and admin navigation.
//
// A failed allow-list lookup yields ACCESS_DENIED together with the error.
func Resolve(ctx context.Context, q url.Values, flags FlagReader, now time.Time, defaults models.TeacherInfo) (Decision, error) {
	teacher := models.NormalizeName(q.Get(ParamTeacher))

	if q.Get(ParamMode) == ModePublicResults && teacher != "" {
		d := Decision{State: StateAccessDenied, Teacher: teacher}
		if flags == nil {
			return d, nil
		}
		enabled, err := flags.GetPublicLink(ctx, teacher)
		if err != nil {
			return d, err
		}
		if enabled {
			d.State = StatePublicResults
		}
		return d, nil
	}

	if teacher != "" {
		d := Decision{
			State:          StateForm,
			Teacher:        teacher,
			Info:           ParseInfo(q, defaults),
			IdentityLocked: true,
		}
		exp, ok := ParseExp(q.Get(ParamExp))
		if !ok {
			return d, nil
		}
		d.ExpiresAt = exp
		remaining := exp - now.UnixMilli()
		if remaining < 0 {
			d.State = StateExpired
			return d, nil
		}
		d.State = StateFormReadonlyTimed
		d.RemainingMs = remaining
		return d, nil
	}

	return Decision{State: StateForm, Info: defaults, AdminNavigation: true}, nil
}

// EnterDashboard is the FORM to DASHBOARD transition. Only the interactive
// form (not a link-locked one) offers admin navigation, and it needs a
// logged-in admin.
func EnterDashboard(d Decision, loggedIn bool) (Decision, bool) {
	if d.State != StateForm || d.IdentityLocked || !loggedIn {
		return d, false
	}
	d.State = StateDashboard
	return d, true
}

// ParseExp reads an epoch-millisecond expiry. Empty or non-integer values are
// treated as absent.
func ParseExp(v string) (int64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseInfo builds the form context from link parameters, falling back to
// defaults for anything missing or empty.
func ParseInfo(q url.Values, defaults models.TeacherInfo) models.TeacherInfo {
	info := defaults
	info.Name = models.NormalizeName(q.Get(ParamTeacher))
	pick := func(dst *string, key string) {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			*dst = v
		}
	}
	pick(&info.Subject, ParamSubject)
	pick(&info.Room, ParamRoom)
	pick(&info.Date, ParamDate)
	pick(&info.Shift, ParamShift)
	pick(&info.Term, ParamTerm)
	pick(&info.Major, ParamMajor)
	pick(&info.Year, ParamYear)
	pick(&info.Team, ParamTeam)
	return info
}

// FormParams encodes a form context (and an optional expiry, 0 = none) as
// link parameters. ParseInfo reverses it.
func FormParams(info models.TeacherInfo, exp int64) url.Values {
	q := url.Values{}
	q.Set(ParamTeacher, info.Name)
	set := func(key, v string) {
		if v != "" {
			q.Set(key, v)
		}
	}
	set(ParamSubject, info.Subject)
	set(ParamRoom, info.Room)
	set(ParamDate, info.Date)
	set(ParamShift, info.Shift)
	set(ParamTerm, info.Term)
	set(ParamMajor, info.Major)
	set(ParamYear, info.Year)
	set(ParamTeam, info.Team)
	if exp > 0 {
		q.Set(ParamExp, strconv.FormatInt(exp, 10))
	}
	return q
}

// PublicParams encodes a public results link for teacher.
func PublicParams(teacher string) url.Values {
	return url.Values{ParamMode: {ModePublicResults}, ParamTeacher: {teacher}}
}
