package services

import (
	"strings"

	"github.com/soaringjerry/teacheval/internal/models"
)

// QuestionStat summarises the votes for one question.
// Counts[i] holds the number of votes for rating i+1.
type QuestionStat struct {
	ID         string                `json:"id"`
	Text       string                `json:"text"`
	Counts     [models.MaxRating]int `json:"counts"`
	TotalVotes int                   `json:"total_votes"`
	Sum        int                   `json:"sum"`
	Mean       float64               `json:"mean"`
	Percentage float64               `json:"percentage"`
	Passed     bool                  `json:"passed"`
}

// Count returns the number of votes for rating v, or 0 for an out-of-range v.
func (q QuestionStat) Count(v int) int {
	if !models.ValidRating(v) {
		return 0
	}
	return q.Counts[v-1]
}

type CategoryStat struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Questions []QuestionStat `json:"questions"`
	Score     float64        `json:"score"`
	Grade     Grade          `json:"grade"`
}

type ChartPoint struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Report is the full dashboard computation for a set of submissions.
type Report struct {
	Submissions     int            `json:"submissions"`
	Categories      []CategoryStat `json:"categories"`
	FinalPercentage float64        `json:"final_percentage"`
	Grade           Grade          `json:"grade"`
	GPA             float64        `json:"gpa"`
	Passed          bool           `json:"passed"`
	Chart           []ChartPoint   `json:"chart"`
	Comments        []string       `json:"comments"`
}

// QuestionStats tallies the ratings given to q. Missing or out-of-range
// ratings are ignored, so the mean is over answered submissions only.
func QuestionStats(q models.Question, subs []models.Submission) QuestionStat {
	st := QuestionStat{ID: q.ID, Text: q.Text}
	for _, sub := range subs {
		v, ok := sub.Ratings[q.ID]
		if !ok || !models.ValidRating(v) {
			continue
		}
		st.Counts[v-1]++
		st.Sum += v
		st.TotalVotes++
	}
	if st.TotalVotes > 0 {
		st.Mean = float64(st.Sum) / float64(st.TotalVotes)
	}
	st.Percentage = st.Mean / float64(models.MaxRating) * 100
	st.Passed = Passed(st.Percentage)
	return st
}

// CategoryStats averages the question percentages of c without weighting by vote count.
func CategoryStats(c models.Category, subs []models.Submission) CategoryStat {
	cs := CategoryStat{ID: c.ID, Title: c.Title, Questions: make([]QuestionStat, 0, len(c.Questions))}
	total := 0.0
	for _, q := range c.Questions {
		qs := QuestionStats(q, subs)
		total += qs.Percentage
		cs.Questions = append(cs.Questions, qs)
	}
	cs.Score = mean(total, len(c.Questions))
	cs.Grade = GradeFor(cs.Score)
	return cs
}

// Aggregate computes the report for subs. It is pure: the same categories
// and submissions always give the same report. An empty subs returns ErrNoData
// instead of a report full of zeros.
func Aggregate(categories []models.Category, subs []models.Submission) (*Report, error) {
	if len(subs) == 0 {
		return nil, ErrNoData
	}
	r := &Report{
		Submissions: len(subs),
		Categories:  make([]CategoryStat, 0, len(categories)),
		Chart:       make([]ChartPoint, 0, len(categories)),
		Comments:    []string{},
	}
	total := 0.0
	for _, c := range categories {
		cs := CategoryStats(c, subs)
		total += cs.Score
		r.Categories = append(r.Categories, cs)
		r.Chart = append(r.Chart, ChartPoint{Name: chartName(cs.Title), Score: cs.Score})
	}
	r.FinalPercentage = mean(total, len(categories))
	r.Grade = GradeFor(r.FinalPercentage)
	r.GPA = GPAFor(r.FinalPercentage)
	r.Passed = Passed(r.FinalPercentage)
	for _, sub := range subs {
		if c := strings.TrimSpace(sub.Comment); c != "" {
			r.Comments = append(r.Comments, c)
		}
	}
	return r, nil
}

func mean(total float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// chartName keeps the part of a category title before the English gloss.
func chartName(title string) string {
	if i := strings.Index(title, "("); i > 0 {
		return strings.TrimSpace(title[:i])
	}
	return title
}
