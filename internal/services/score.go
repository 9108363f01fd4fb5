package services

// Grade is a letter bucket of a 0..100 percentage.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
)

// PassThreshold is the minimum percentage that counts as a pass, for the
// overall result as well as for a single question.
const PassThreshold = 50.0

type gradeBand struct {
	min   float64
	grade Grade
	gpa   float64
}

// Ordered from the highest band down; the first band whose min is reached wins.
var gradeBands = []gradeBand{
	{min: 90, grade: GradeA, gpa: 4.0},
	{min: 80, grade: GradeB, gpa: 3.5},
	{min: 65, grade: GradeC, gpa: 2.5},
	{min: PassThreshold, grade: GradeD, gpa: 1.5},
}

func bandFor(pct float64) (Grade, float64) {
	for _, b := range gradeBands {
		if pct >= b.min {
			return b.grade, b.gpa
		}
	}
	return GradeE, 0
}

// GradeFor maps a percentage to its letter grade.
func GradeFor(pct float64) Grade {
	g, _ := bandFor(pct)
	return g
}

// GPAFor maps a percentage to the 4.0-scale step value. It is not a linear rescale.
func GPAFor(pct float64) float64 {
	_, gpa := bandFor(pct)
	return gpa
}

// Passed reports whether pct meets PassThreshold.
func Passed(pct float64) bool {
	return pct >= PassThreshold
}
