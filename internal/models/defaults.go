package models

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// RatingLabels maps each scale point to its Khmer label.
var RatingLabels = map[RatingValue]string{
	StronglyAgree:    "យល់ស្របទាំងស្រុង",
	Agree:            "យល់ស្រប",
	Neutral:          "គ្មានយោបល់",
	Disagree:         "មិនយល់ស្រប",
	StronglyDisagree: "មិនយល់ស្របសោះ",
}

// RatingLabelsEN is the English rendering of RatingLabels.
var RatingLabelsEN = map[RatingValue]string{
	StronglyAgree:    "Strongly Agree",
	Agree:            "Agree",
	Neutral:          "Neutral",
	Disagree:         "Disagree",
	StronglyDisagree: "Strongly Disagree",
}

// RatingLetters is the letter printed next to each scale point on the form.
var RatingLetters = map[RatingValue]string{
	StronglyAgree:    "A",
	Agree:            "B",
	Neutral:          "C",
	Disagree:         "D",
	StronglyDisagree: "E",
}

// Terms lists the selectable academic terms.
var Terms = []string{"Term 1", "Term 2", "Term 3", "Semester 1", "Semester 2"}

// DefaultTeacherInfo returns the form context used when no URL parameters are given.
func DefaultTeacherInfo(now time.Time) TeacherInfo {
	return TeacherInfo{
		Name:       "ជិន ពិសិដ្ឋ",
		Subject:    "សេដ្ឋកិច្ច",
		Date:       now.Format("2006-01-02"),
		Room:       "A102",
		Shift:      "ព្រឹក",
		Term:       "Term 1",
		Major:      "គណនេយ្យ",
		Year:       "1",
		Team:       "General",
		Generation: "26",
		Semester:   "១",
	}
}

// EvaluationForm returns a fresh copy of the built-in categories.
func EvaluationForm() []Category {
	return []Category{
		{
			ID:    "teaching",
			Title: "១. ការបង្រៀន (Teaching Methodology)",
			Questions: []Question{
				{ID: "q1", Text: "ការផ្ទេរចំណេះដឹងដល់និស្សិតបានច្បាស់លាស់"},
				{ID: "q2", Text: "ការពន្យល់មេរៀនបានច្បាស់លាស់ និងងាយយល់"},
				{ID: "q3", Text: "ការរៀបចំប្លង់មេរៀន សមស្របលើស្ថានភាពជាក់ស្តែង"},
				{ID: "q4", Text: "ការប្រើបច្ចេកទេសបង្រៀនល្អៗដែលធ្វើឱ្យនិស្សិតយកចិត្តទុកដាក់ និងសកម្មក្នុងការសិក្សា"},
				{ID: "q5", Text: "ការប្រើសម្ភារៈបង្រៀនគ្រប់គ្រាន់ និងសមស្របដើម្បីបង្កើនប្រសិទ្ធភាពនៃការបង្រៀន"},
				{ID: "q6", Text: "ការប្រើពេលវេលាសមស្រប សម្រាប់ការពន្យល់មេរៀននិងសម្រាប់និស្សិតអនុវត្តដោយខ្លួនឯង"},
				{ID: "q7", Text: "ផ្តោតលើវិធីសាស្រ្តបង្រៀន និងអនុវត្តន៍"},
				{ID: "q8", Text: "ការលើកទឹកចិត្តឱ្យនិស្សិតទាំងអស់ចូលរួមយ៉ាងសកម្មនៅក្នុងសកម្មភាពសិក្សាផ្សេងៗ"},
			},
		},
		{
			ID:    "management",
			Title: "២. ការគ្រប់គ្រងថ្នាក់រៀន (Classroom Management)",
			Questions: []Question{
				{ID: "q9", Text: "ការត្រួតពិនិត្យដោយយកចិត្តទុកដាក់ចំពោះសកម្មភាពសិក្សារបស់និស្សិតគ្រប់រូប"},
				{ID: "q10", Text: "ការគ្រប់គ្រងវិន័យ និងសណ្តាប់ធ្នាប់ក្នុងថ្នាក់រៀនបានល្អ"},
				{ID: "q11", Text: "ការរក្សាបរិយាកាសសិក្សាល្អ ប្រកបដោយភាពស្ងប់ស្ងាត់ និងការគោរពគ្នា"},
			},
		},
		{
			ID:    "ethics",
			Title: "៣. សីលធម៌ និងបុគ្គលិកលក្ខណៈ (Ethics & Personality)",
			Questions: []Question{
				{ID: "q12", Text: "ការគោរពពេលវេលាបង្រៀន (ចូល និងចេញទៀងទាត់)"},
				{ID: "q13", Text: "ការស្លៀកពាក់ និងការតុបតែងខ្លួនសមរម្យជាគ្រូបង្រៀន"},
				{ID: "q14", Text: "ការប្រើប្រាស់ពាក្យសម្តី និងឥរិយាបថសមរម្យដាក់និស្សិត"},
				{ID: "q15", Text: "មានទំនួលខុសត្រូវខ្ពស់ និងបង្ហាញគំរូល្អដល់និស្សិត"},
			},
		},
		{
			ID:    "communication",
			Title: "៤. ទំនាក់ទំនងជាមួយនិស្សិត (Interaction with Students)",
			Questions: []Question{
				{ID: "q17", Text: "ការបើកឱកាសឱ្យនិស្សិតសួរ ឬបញ្ចេញមតិយោបល់"},
				{ID: "q18", Text: "ការទទួលយកសំណូមពរ និងការរិះគន់ក្នុងន័យស្ថាបនា"},
			},
		},
		{
			ID:    "assessment",
			Title: "៥. ការវាយតម្លៃ (Evaluation/Assessment)",
			Questions: []Question{
				{ID: "q19", Text: "ការដាក់កិច្ចការ និងវិញ្ញាសាប្រឡងស្របតាមខ្លឹមសារមេរៀន"},
				{ID: "q20", Text: "ការផ្តល់ពិន្ទុប្រកបដោយសុក្រឹតភាព យុត្តិធម៌ និងមិនលំអៀង"},
				{ID: "q21", Text: "ការកែកិច្ចការ និងផ្តល់យោបល់ត្រឡប់ (Feedback) ជូននិស្សិតទាន់ពេលវេលា"},
			},
		},
	}
}

// LoadForm reads categories from a JSON file. An empty path yields the built-in form.
func LoadForm(path string) ([]Category, error) {
	if path == "" {
		return EvaluationForm(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form %s: %w", path, err)
	}
	var cats []Category
	if err := json.Unmarshal(b, &cats); err != nil {
		return nil, fmt.Errorf("decode form %s: %w", path, err)
	}
	if err := ValidateForm(cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// ValidateForm checks that categories and question ids are present and unique.
func ValidateForm(cats []Category) error {
	if len(cats) == 0 {
		return fmt.Errorf("form has no categories")
	}
	seenCat := map[string]struct{}{}
	seenQ := map[string]struct{}{}
	for _, c := range cats {
		if c.ID == "" {
			return fmt.Errorf("category without id")
		}
		if _, dup := seenCat[c.ID]; dup {
			return fmt.Errorf("duplicate category id %q", c.ID)
		}
		seenCat[c.ID] = struct{}{}
		for _, q := range c.Questions {
			if q.ID == "" {
				return fmt.Errorf("question without id in category %q", c.ID)
			}
			if _, dup := seenQ[q.ID]; dup {
				return fmt.Errorf("duplicate question id %q", q.ID)
			}
			seenQ[q.ID] = struct{}{}
		}
	}
	return nil
}
