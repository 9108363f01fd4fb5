package services

import (
	"fmt"
	"time"

	"github.com/soaringjerry/teacheval/internal/models"
)

// RatingSheet collects one rating per question before a submission may be built.
// It is the in-memory answer state of a single form fill.
type RatingSheet struct {
	categories []models.Category
	info       models.TeacherInfo
	known      map[string]struct{}
	order      []string
	ratings    map[string]int
	comment    string
}

func NewRatingSheet(categories []models.Category, info models.TeacherInfo) *RatingSheet {
	s := &RatingSheet{
		categories: categories,
		info:       info,
		known:      map[string]struct{}{},
		ratings:    map[string]int{},
	}
	for _, c := range categories {
		for _, q := range c.Questions {
			if _, dup := s.known[q.ID]; dup {
				continue
			}
			s.known[q.ID] = struct{}{}
			s.order = append(s.order, q.ID)
		}
	}
	return s
}

// RecordRating stores value for questionID, replacing any earlier answer.
func (s *RatingSheet) RecordRating(questionID string, value int) error {
	if _, ok := s.known[questionID]; !ok {
		return NewInvalidError(fmt.Sprintf("unknown question %q", questionID))
	}
	if !models.ValidRating(value) {
		return NewInvalidError(fmt.Sprintf("rating for %s must be between %d and %d", questionID, models.MinRating, models.MaxRating))
	}
	s.ratings[questionID] = value
	return nil
}

func (s *RatingSheet) SetComment(comment string) { s.comment = comment }

func (s *RatingSheet) Info() models.TeacherInfo { return s.info }

func (s *RatingSheet) Answered() int { return len(s.ratings) }

func (s *RatingSheet) Total() int { return len(s.order) }

// IsComplete is true once every question has a rating.
func (s *RatingSheet) IsComplete() bool {
	return len(s.ratings) == len(s.order)
}

// Missing lists unanswered question ids in form order.
func (s *RatingSheet) Missing() []string {
	var out []string
	for _, id := range s.order {
		if _, ok := s.ratings[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Build creates the Submission for this sheet. It refuses incomplete sheets.
func (s *RatingSheet) Build(id string, now time.Time) (*models.Submission, error) {
	if !s.IsComplete() {
		return nil, &IncompleteError{Answered: s.Answered(), Total: s.Total(), Missing: s.Missing()}
	}
	ratings := make(map[string]int, len(s.ratings))
	for k, v := range s.ratings {
		ratings[k] = v
	}
	return &models.Submission{
		ID:          id,
		Timestamp:   now.UnixMilli(),
		TeacherName: s.info.Name,
		Ratings:     ratings,
		Comment:     s.comment,
		Term:        s.info.Term,
		Subject:     s.info.Subject,
		Room:        s.info.Room,
		Shift:       s.info.Shift,
		Major:       s.info.Major,
		YearLevel:   s.info.Year,
		Team:        s.info.Team,
	}, nil
}
