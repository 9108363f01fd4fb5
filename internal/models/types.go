package models

import "time"

// RatingValue is a 1..5 Likert answer. 0 means unanswered.
type RatingValue int

const (
	StronglyDisagree RatingValue = 1
	Disagree         RatingValue = 2
	Neutral          RatingValue = 3
	Agree            RatingValue = 4
	StronglyAgree    RatingValue = 5
)

// MinRating and MaxRating bound the rating scale.
const (
	MinRating = int(StronglyDisagree)
	MaxRating = int(StronglyAgree)
)

// ValidRating reports whether v is one of the five scale points.
func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}

// Question is a single statement students rate.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Category groups questions; order of categories and questions is significant.
type Category struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// TotalQuestions counts questions across all categories.
func TotalQuestions(categories []Category) int {
	n := 0
	for _, c := range categories {
		n += len(c.Questions)
	}
	return n
}

// Submission is one student's ratings for one teacher. Immutable once created.
type Submission struct {
	ID          string         `json:"id"`
	Timestamp   int64          `json:"timestamp"` // epoch milliseconds
	TeacherName string         `json:"teacherName"`
	Ratings     map[string]int `json:"ratings"`
	Comment     string         `json:"comment"`
	Term        string         `json:"term"`
	Subject     string         `json:"subject"`
	Room        string         `json:"room"`
	Shift       string         `json:"shift"`
	Major       string         `json:"major"`
	YearLevel   string         `json:"yearLevel"`
	Team        string         `json:"team"`
}

// Time returns the submission timestamp in loc (UTC when loc is nil).
func (s Submission) Time(loc *time.Location) time.Time {
	t := time.UnixMilli(s.Timestamp)
	if loc == nil {
		return t.UTC()
	}
	return t.In(loc)
}

// Teacher is a directory entry from the "Teachers" sheet.
type Teacher struct {
	Name string `json:"name"`
	Team string `json:"team"`
}

// TeacherInfo is the form context built from URL parameters or defaults.
// It is copied into every Submission created from the form.
type TeacherInfo struct {
	Name       string `json:"name"`
	Subject    string `json:"subject"`
	Date       string `json:"date"`
	Room       string `json:"room"`
	Shift      string `json:"shift"`
	Term       string `json:"term"`
	Major      string `json:"major"`
	Year       string `json:"year"`
	Team       string `json:"team"`
	Generation string `json:"generation"`
	Semester   string `json:"semester"`
}
