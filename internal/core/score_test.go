package core

import (
	"reflect"
	"regexp"
	"testing"
)

func TestScore(t *testing.T) {
	p := DefaultPatterns()

	tests := []struct {
		name         string
		header       Header
		rows         Table
		wantScores   []int
		wantInferred int
	}{
		{
			name:         "email column wins",
			header:       Header{"Name", "Email"},
			rows:         Table{{"Alice", "alice@x.com"}, {"Bob", "bob@y.org"}},
			wantScores:   []int{0, 7},
			wantInferred: 1,
		},
		{
			name:         "no signal falls back to column zero",
			header:       Header{"A", "B"},
			rows:         Table{{"1", "2"}, {"3", "4"}},
			wantScores:   []int{0, 0},
			wantInferred: 0,
		},
		{
			name:         "partial matches score one",
			header:       Header{"Column 1", "Column 2"},
			rows:         Table{{"x", "user@host"}, {"y", "@"}},
			wantScores:   []int{0, 2},
			wantInferred: 1,
		},
		{
			name:         "header bonus is case insensitive",
			header:       Header{"Contact EMAIL Address", "Other"},
			rows:         Table{},
			wantScores:   []int{3, 0},
			wantInferred: 0,
		},
		{
			name:         "ties go to the lowest index",
			header:       Header{"a", "b", "c"},
			rows:         Table{{"x", "p@q.io", "r@s.io"}},
			wantScores:   []int{0, 2, 2},
			wantInferred: 1,
		},
		{
			name:         "rows wider than header add columns",
			header:       Header{"Name"},
			rows:         Table{{"a", "b", " c@d.io "}},
			wantScores:   []int{0, 0, 2},
			wantInferred: 2,
		},
		{
			name:         "no columns",
			header:       Header{},
			rows:         Table{{}},
			wantScores:   []int{},
			wantInferred: NoColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.header, tt.rows, p)

			scores := make([]int, len(got.Scores))
			for i, s := range got.Scores {
				if s.Index != i {
					t.Errorf("Scores[%d].Index = %d", i, s.Index)
				}
				scores[i] = s.Score
			}
			if !reflect.DeepEqual(scores, tt.wantScores) {
				t.Errorf("scores = %v, want %v", scores, tt.wantScores)
			}
			if got.Inferred != tt.wantInferred {
				t.Errorf("Inferred = %d, want %d", got.Inferred, tt.wantInferred)
			}
		})
	}
}

func TestScore_CustomPattern(t *testing.T) {
	p := Patterns{Email: regexp.MustCompile(`^[a-z]+@corp\.example$`)}
	got := Score(Header{"a", "b"}, Table{{"x@gmail.com", "jane@corp.example"}}, p)
	if got.Scores[0].Score != 1 || got.Scores[1].Score != 2 {
		t.Errorf("scores = %v, want [1 2]", got.Scores)
	}
}
