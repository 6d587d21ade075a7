package core

import "strings"

// Score weights.
const (
	scoreEmailCell   = 2
	scorePartialCell = 1
	scoreEmailHeader = 3
)

// Scoring holds per-column scores and the column picked by default.
type Scoring struct {
	Scores   []ColumnScore
	Inferred int
}

// Score rates every column for how strongly it looks like an email column.
//
// A cell that fully matches the email pattern adds 2, a cell that merely
// contains '@' adds 1, and a header label containing "email" adds 3. The
// inferred column is the first one whose score beats the running maximum,
// which starts below zero: when nothing scores, column 0 still wins. Only an
// empty column space yields NoColumn.
func Score(header Header, rows Table, p Patterns) Scoring {
	n := columnCount(header, rows)
	scores := make([]ColumnScore, n)

	for c := 0; c < n; c++ {
		score := 0
		for _, r := range rows {
			cell := strings.TrimSpace(r.Cell(c))
			if p.IsEmail(cell) {
				score += scoreEmailCell
			} else if strings.Contains(cell, "@") {
				score += scorePartialCell
			}
		}
		if strings.Contains(strings.ToLower(header.Label(c)), "email") {
			score += scoreEmailHeader
		}
		scores[c] = ColumnScore{Index: c, Score: score}
	}

	return Scoring{Scores: scores, Inferred: pickColumn(scores)}
}

// pickColumn returns the lowest index with the highest score.
func pickColumn(scores []ColumnScore) int {
	best, bestScore := NoColumn, -1
	for _, s := range scores {
		if s.Score > bestScore {
			best, bestScore = s.Index, s.Score
		}
	}
	return best
}

func columnCount(header Header, rows Table) int {
	return max(len(header), rows.Width())
}
