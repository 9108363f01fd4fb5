package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/models"
)

// DailyCount is one point of the submissions-per-day series.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Dashboard is the computed view for one teacher and one filter set.
// Report is nil and NoData is true when no submission matches.
type Dashboard struct {
	Filter           Filter       `json:"filter"`
	Options          Options      `json:"options"`
	TeacherTotal     int          `json:"teacherTotal"`
	Count            int          `json:"count"`
	NoData           bool         `json:"noData"`
	Report           *Report      `json:"report,omitempty"`
	Timeline         []DailyCount `json:"timeline"`
	Reliability      float64      `json:"reliability"`
	ReliabilityN     int          `json:"reliabilityN"`
	StoreUnavailable bool         `json:"storeUnavailable,omitempty"`
	FetchedAt        time.Time    `json:"fetchedAt"`
}

// ResultsService loads submissions and runs the filter and aggregation engines.
type ResultsService struct {
	store      SubmissionStore
	cache      SubmissionCache
	flags      LinkFlagStore
	categories []models.Category
	loc        *time.Location
	log        logging.Logger
	cacheTTL   time.Duration
	now        func() time.Time
}

// DefaultCacheTTL is how long a fetched submission set is reused before the
// store is read again.
const DefaultCacheTTL = 30 * time.Second

// NewResultsService wires the results workflow. cache may be nil.
func NewResultsService(store SubmissionStore, cache SubmissionCache, flags LinkFlagStore, categories []models.Category, loc *time.Location, log logging.Logger) *ResultsService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logging.Discard()
	}
	return &ResultsService{
		store:      store,
		cache:      cache,
		flags:      flags,
		categories: categories,
		loc:        loc,
		log:        log,
		cacheTTL:   DefaultCacheTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SetCacheTTL changes how long a cached set stays fresh. Zero or less reads
// the store on every call and keeps the cache only as a failure fallback.
func (s *ResultsService) SetCacheTTL(ttl time.Duration) { s.cacheTTL = ttl }

// Location is the zone calendar filters are evaluated in.
func (s *ResultsService) Location() *time.Location { return s.loc }

// Submissions returns the full submission set. A cached set younger than the
// cache TTL is used unless refresh is set. When the store fails the last
// cached set (possibly empty) is returned with unavailable=true; the failure
// is never fatal.
func (s *ResultsService) Submissions(ctx context.Context, refresh bool) (subs []models.Submission, fetchedAt time.Time, unavailable bool) {
	var cached []models.Submission
	if s.cache != nil {
		c, at, err := s.cache.CachedSubmissions(ctx)
		if err != nil {
			s.log.Warn("read submission cache failed", err)
		} else {
			cached, fetchedAt = c, at
		}
		if !refresh && s.fresh(fetchedAt) {
			return cached, fetchedAt, false
		}
	}

	fresh, err := s.store.ListSubmissions(ctx)
	if err != nil {
		s.log.Error("list submissions failed", err)
		if cached == nil {
			cached = []models.Submission{}
		}
		return cached, fetchedAt, true
	}
	fetchedAt = s.now()
	if s.cache != nil {
		if err := s.cache.ReplaceSubmissions(ctx, fresh, fetchedAt); err != nil {
			s.log.Warn("write submission cache failed", err)
		}
	}
	return fresh, fetchedAt, false
}

func (s *ResultsService) fresh(fetchedAt time.Time) bool {
	if fetchedAt.IsZero() || s.cacheTTL <= 0 {
		return false
	}
	return s.now().Sub(fetchedAt) < s.cacheTTL
}

// Dashboard filters the submission set and aggregates what is left. An empty
// filtered set is the explicit no-data state: aggregation does not run.
func (s *ResultsService) Dashboard(ctx context.Context, f Filter, refresh bool) (*Dashboard, error) {
	f.TeacherName = models.NormalizeName(f.TeacherName)
	if err := validateStruct(f); err != nil {
		return nil, err
	}
	all, fetchedAt, unavailable := s.Submissions(ctx, refresh)
	return s.build(all, f, fetchedAt, unavailable)
}

func (s *ResultsService) build(all []models.Submission, f Filter, fetchedAt time.Time, unavailable bool) (*Dashboard, error) {
	teacherSubs := Apply(all, Filter{TeacherName: f.TeacherName}, s.loc)
	filtered := Apply(teacherSubs, f, s.loc)
	d := &Dashboard{
		Filter:           f,
		Options:          OptionsFor(teacherSubs, f.TeacherName, s.loc),
		TeacherTotal:     len(teacherSubs),
		Count:            len(filtered),
		Timeline:         buildTimeline(filtered, s.loc),
		StoreUnavailable: unavailable,
		FetchedAt:        fetchedAt,
	}
	d.Reliability, d.ReliabilityN = Reliability(s.categories, filtered)
	report, err := Aggregate(s.categories, filtered)
	switch {
	case errors.Is(err, ErrNoData):
		d.NoData = true
	case err != nil:
		return nil, err
	default:
		d.Report = report
	}
	return d, nil
}

// Options returns the dropdown values for a teacher from the unfiltered set.
func (s *ResultsService) Options(ctx context.Context, teacher string) (Options, error) {
	teacher = models.NormalizeName(teacher)
	if teacher == "" {
		return Options{}, NewInvalidError("teacher required")
	}
	all, _, _ := s.Submissions(ctx, false)
	return OptionsFor(all, teacher, s.loc), nil
}

// Export renders the filtered submissions as CSV with its download filename.
func (s *ResultsService) Export(ctx context.Context, f Filter) (filename string, data []byte, err error) {
	f.TeacherName = models.NormalizeName(f.TeacherName)
	if err := validateStruct(f); err != nil {
		return "", nil, err
	}
	all, _, _ := s.Submissions(ctx, false)
	filtered := Apply(all, f, s.loc)
	return ExportFilename(f.TeacherName, s.now().In(s.loc)), ExportSubmissionsCSV(s.categories, filtered, s.loc), nil
}

// PublicResults is the read-only view behind a public link. The allow-list
// is consulted first; a disabled teacher gets ErrAccessDenied and no
// submission data is fetched.
func (s *ResultsService) PublicResults(ctx context.Context, teacher string) (*Dashboard, error) {
	teacher = models.NormalizeName(teacher)
	if teacher == "" {
		return nil, NewInvalidError("teacher required")
	}
	if s.flags == nil {
		return nil, accessDenied()
	}
	enabled, err := s.flags.GetPublicLink(ctx, teacher)
	if err != nil {
		s.log.Error("read public link flag failed", logging.Fields{"teacher": teacher}, err)
		return nil, accessDenied()
	}
	if !enabled {
		return nil, accessDenied()
	}
	all, fetchedAt, unavailable := s.Submissions(ctx, false)
	return s.build(all, Filter{TeacherName: teacher}, fetchedAt, unavailable)
}

// ClearCache empties the local submission cache; the remote store is untouched.
func (s *ResultsService) ClearCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.ClearSubmissions(ctx)
}

func buildTimeline(subs []models.Submission, loc *time.Location) []DailyCount {
	byDay := map[string]int{}
	for _, sub := range subs {
		byDay[sub.Time(loc).Format("2006-01-02")]++
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	out := make([]DailyCount, 0, len(days))
	for _, d := range days {
		out = append(out, DailyCount{Date: d, Count: byDay[d]})
	}
	return out
}
