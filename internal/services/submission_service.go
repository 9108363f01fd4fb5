package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/metrics"
	"github.com/soaringjerry/teacheval/internal/models"
)

// SubmitRequest is a completed form: the context it was opened with, one
// rating per question and an optional comment. LinkExpiresAt carries the exp
// of a timed link (epoch ms, 0 when the link has none).
type SubmitRequest struct {
	Info          models.TeacherInfo `json:"teacherInfo"`
	Ratings       map[string]int     `json:"ratings" validate:"required"`
	Comment       string             `json:"comment" validate:"max=4000"`
	LinkExpiresAt int64              `json:"linkExpiresAt,omitempty" validate:"min=0"`
}

// SubmitResult reports where the submission was stored.
type SubmitResult struct {
	Submission models.Submission `json:"submission"`
	SheetName  string            `json:"sheetName"`
}

// SubmissionService hosts the form submit workflow.
type SubmissionService struct {
	store       SubmissionStore
	cache       SubmissionCache
	categories  []models.Category
	loc         *time.Location
	log         logging.Logger
	now         func() time.Time
	idGenerator func() string
}

// NewSubmissionService binds the workflow to the remote store. cache may be nil.
func NewSubmissionService(store SubmissionStore, cache SubmissionCache, categories []models.Category, loc *time.Location, log logging.Logger) *SubmissionService {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logging.Discard()
	}
	return &SubmissionService{
		store:       store,
		cache:       cache,
		categories:  categories,
		loc:         loc,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
		idGenerator: uuid.NewString,
	}
}

var monthAbbr = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// SheetName is the target sheet for a submission: "<term> (<Mon>-<YYYY>)",
// with "General" standing in for an empty term.
func SheetName(term string, t time.Time) string {
	term = strings.TrimSpace(term)
	if term == "" {
		term = "General"
	}
	return fmt.Sprintf("%s (%s-%d)", term, monthAbbr[t.Month()-1], t.Year())
}

// Submit validates the ratings, builds the Submission and appends it to the
// store. Incomplete forms are refused before any network call.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if s.store == nil {
		return nil, errors.New("submission service store is nil")
	}
	if err := validateStruct(req); err != nil {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if req.LinkExpiresAt > 0 && req.LinkExpiresAt < s.now().UnixMilli() {
		metrics.Submissions.WithLabelValues("expired").Inc()
		return nil, NewGoneError("this evaluation link has expired")
	}
	req.Info.Name = models.NormalizeName(req.Info.Name)
	if req.Info.Name == "" {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return nil, NewInvalidError("teacher name required")
	}

	sheet := NewRatingSheet(s.categories, req.Info)
	for qid, v := range req.Ratings {
		if err := sheet.RecordRating(qid, v); err != nil {
			metrics.Submissions.WithLabelValues("invalid").Inc()
			return nil, err
		}
	}
	sheet.SetComment(strings.TrimSpace(req.Comment))

	now := s.now()
	sub, err := sheet.Build(s.idGenerator(), now)
	if err != nil {
		metrics.Submissions.WithLabelValues("incomplete").Inc()
		return nil, err
	}

	sheetName := SheetName(sub.Term, now.In(s.loc))
	err = s.store.AppendSubmission(ctx, sheetName, *sub)
	if err != nil {
		metrics.Submissions.WithLabelValues("store_error").Inc()
		s.log.Error("append submission failed", logging.Fields{"teacher": sub.TeacherName, "sheet": sheetName}, err)
		return nil, NewBadGatewayError("could not save the evaluation, please try again", err)
	}
	metrics.Submissions.WithLabelValues("ok").Inc()

	if s.cache != nil {
		if err := s.cache.AddSubmission(ctx, *sub); err != nil {
			s.log.Warn("cache submission failed", logging.Fields{"id": sub.ID}, err)
		}
	}
	return &SubmitResult{Submission: *sub, SheetName: sheetName}, nil
}
