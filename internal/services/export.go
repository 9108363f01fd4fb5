package services

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/soaringjerry/teacheval/internal/models"
)

// utf8BOM makes spreadsheet tools detect UTF-8 (Khmer text renders correctly).
const utf8BOM = "\ufeff"

// CSVTimeLayout keeps millisecond precision so timestamps survive a round trip.
const CSVTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// ContextColumns precede the per-question columns in a submissions export.
var ContextColumns = []string{
	"Submission ID", "Date Submitted", "Teacher Name", "Term", "Subject",
	"Major", "Year Level", "Team", "Room", "Shift",
}

// QuestionColumn is the header of a question column: <categoryId>_<questionId>.
func QuestionColumn(c models.Category, q models.Question) string {
	return c.ID + "_" + q.ID
}

// ExportSubmissionsCSV renders one row per submission: context columns, one
// column per question in form order, then Comment. The comment is always
// quoted with inner quotes doubled; unanswered questions are empty cells.
func ExportSubmissionsCSV(categories []models.Category, subs []models.Submission, loc *time.Location) []byte {
	if loc == nil {
		loc = time.UTC
	}
	buf := &bytes.Buffer{}
	buf.WriteString(utf8BOM)

	header := append([]string{}, ContextColumns...)
	for _, c := range categories {
		for _, q := range c.Questions {
			header = append(header, QuestionColumn(c, q))
		}
	}
	header = append(header, "Comment")
	writeRecord(buf, header, -1)

	for _, s := range subs {
		rec := []string{
			s.ID,
			s.Time(loc).Format(CSVTimeLayout),
			s.TeacherName,
			s.Term,
			s.Subject,
			s.Major,
			s.YearLevel,
			s.Team,
			s.Room,
			s.Shift,
		}
		for _, c := range categories {
			for _, q := range c.Questions {
				v, ok := s.Ratings[q.ID]
				if ok && models.ValidRating(v) {
					rec = append(rec, strconv.Itoa(v))
				} else {
					rec = append(rec, "")
				}
			}
		}
		rec = append(rec, s.Comment)
		writeRecord(buf, rec, len(rec)-1)
	}
	return buf.Bytes()
}

// ExportFilename is the download name for a teacher's export on day.
func ExportFilename(teacher string, day time.Time) string {
	return "Evaluation_" + teacher + "_" + day.Format("2006-01-02") + ".csv"
}

// writeRecord writes one CSV line. The cell at forceQuote is always quoted;
// other cells are quoted only when they contain a separator, quote or newline.
func writeRecord(buf *bytes.Buffer, rec []string, forceQuote int) {
	for i, field := range rec {
		if i > 0 {
			buf.WriteByte(',')
		}
		if i == forceQuote || needsQuotes(field) {
			buf.WriteByte('"')
			buf.WriteString(strings.ReplaceAll(field, `"`, `""`))
			buf.WriteByte('"')
			continue
		}
		buf.WriteString(field)
	}
	buf.WriteByte('\n')
}

func needsQuotes(field string) bool {
	if field == "" {
		return false
	}
	return strings.ContainsAny(field, ",\"\r\n") || field[0] == ' ' || field[0] == '\t'
}
