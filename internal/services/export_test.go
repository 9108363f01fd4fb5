package services

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/soaringjerry/teacheval/internal/models"
)

func readCSV(b []byte) ([][]string, error) {
	b = bytes.TrimPrefix(b, []byte(utf8BOM))
	r := csv.NewReader(bytes.NewReader(b))
	return r.ReadAll()
}

func exportFixture() []models.Submission {
	return []models.Submission{
		{
			ID: "s1", Timestamp: time.Date(2025, 2, 3, 4, 5, 6, 789e6, time.UTC).UnixMilli(), TeacherName: "ជិន ពិសិដ្ឋ",
			Ratings: map[string]int{"q1": 5, "q2": 4, "q3": 3, "q4": 2}, Comment: `He said "great", really`,
			Term: "Term 1", Subject: "Econ, Micro", Major: "Acc", YearLevel: "1", Team: "Alpha", Room: "A102", Shift: "AM",
		},
		{
			ID: "s2", Timestamp: time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC).UnixMilli(), TeacherName: "ជិន ពិសិដ្ឋ",
			Ratings: map[string]int{"q1": 1, "q3": 5}, Comment: "",
			Term: "Term 1", Team: "Beta",
		},
	}
}

func TestExportSubmissionsCSVLayout(t *testing.T) {
	b := ExportSubmissionsCSV(testForm(), exportFixture(), time.UTC)
	if !bytes.HasPrefix(b, []byte(utf8BOM)) {
		t.Fatalf("missing BOM")
	}
	recs, err := readCSV(b)
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(recs) != 1+2 {
		t.Fatalf("want 3 rows, got %d", len(recs))
	}
	wantHeader := append(append([]string{}, ContextColumns...), "teaching_q1", "teaching_q2", "teaching_q3", "ethics_q4", "Comment")
	if !reflect.DeepEqual(recs[0], wantHeader) {
		t.Fatalf("header mismatch: %v", recs[0])
	}
	if got := recs[2][len(ContextColumns)+1]; got != "" {
		t.Fatalf("unanswered question should be empty, got %q", got)
	}
}

func TestExportCommentAlwaysQuoted(t *testing.T) {
	b := string(ExportSubmissionsCSV(testForm(), exportFixture(), time.UTC))
	if !strings.Contains(b, `,"He said ""great"", really"`+"\n") {
		t.Fatalf("comment not escaped: %s", b)
	}
	if !strings.HasSuffix(b, `,""`+"\n") {
		t.Fatalf("empty comment should still be a quoted cell: %q", b)
	}
}

func TestExportRoundTrip(t *testing.T) {
	form := testForm()
	subs := exportFixture()
	recs, err := readCSV(ExportSubmissionsCSV(form, subs, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	for i, rec := range recs[1:] {
		ts, err := time.Parse(CSVTimeLayout, rec[1])
		if err != nil {
			t.Fatalf("parse time: %v", err)
		}
		got := models.Submission{
			ID: rec[0], Timestamp: ts.UnixMilli(), TeacherName: rec[2], Term: rec[3], Subject: rec[4],
			Major: rec[5], YearLevel: rec[6], Team: rec[7], Room: rec[8], Shift: rec[9],
			Ratings: map[string]int{}, Comment: rec[len(rec)-1],
		}
		col := len(ContextColumns)
		for _, c := range form {
			for _, q := range c.Questions {
				if rec[col] != "" {
					v, err := strconv.Atoi(rec[col])
					if err != nil {
						t.Fatalf("rating cell %q: %v", rec[col], err)
					}
					got.Ratings[q.ID] = v
				}
				col++
			}
		}
		if !reflect.DeepEqual(got, subs[i]) {
			t.Fatalf("row %d round trip:\n got %+v\nwant %+v", i, got, subs[i])
		}
	}
}

func TestExportFilename(t *testing.T) {
	got := ExportFilename("X", time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	if got != "Evaluation_X_2025-01-02.csv" {
		t.Fatalf("filename: %s", got)
	}
}
