package services

import "github.com/soaringjerry/teacheval/internal/models"

// Reliability estimates how consistently the form's questions measure the
// same thing (Cronbach's alpha, population variance) over the submissions
// that answered every question. It returns alpha in [0,1] and the number of
// submissions used; fewer than two questions or rows give 0.
func Reliability(categories []models.Category, subs []models.Submission) (float64, int) {
	var ids []string
	for _, c := range categories {
		for _, q := range c.Questions {
			ids = append(ids, q.ID)
		}
	}
	rows := make([][]float64, 0, len(subs))
	for _, s := range subs {
		row := make([]float64, 0, len(ids))
		for _, id := range ids {
			v, ok := s.Ratings[id]
			if !ok || !models.ValidRating(v) {
				row = nil
				break
			}
			row = append(row, float64(v))
		}
		if row != nil {
			rows = append(rows, row)
		}
	}
	return cronbachAlpha(rows), len(rows)
}

// cronbachAlpha expects a rectangular [respondent][question] matrix.
func cronbachAlpha(rows [][]float64) float64 {
	n := len(rows)
	if n < 2 {
		return 0
	}
	k := len(rows[0])
	if k < 2 {
		return 0
	}
	totals := make([]float64, n)
	var itemVarSum float64
	col := make([]float64, n)
	for j := 0; j < k; j++ {
		for i, row := range rows {
			col[i] = row[j]
			totals[i] += row[j]
		}
		itemVarSum += variance(col)
	}
	totalVar := variance(totals)
	if totalVar == 0 {
		return 0
	}
	kf := float64(k)
	alpha := kf / (kf - 1) * (1 - itemVarSum/totalVar)
	switch {
	case alpha < 0:
		return 0
	case alpha > 1:
		return 1
	}
	return alpha
}

func variance(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		m += x
	}
	m /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		v += (x - m) * (x - m)
	}
	return v / float64(len(xs))
}
