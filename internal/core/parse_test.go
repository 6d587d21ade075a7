package core

import (
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		maxRows int
		want    Table
	}{
		{
			name:    "empty input is one empty row",
			input:   "",
			maxRows: 10,
			want:    Table{{}},
		},
		{
			name:    "simple rows",
			input:   "a,b\nc,d",
			maxRows: 10,
			want:    Table{{"a", "b"}, {"c", "d"}},
		},
		{
			name:    "mixed line endings",
			input:   "a\r\nb\nc\rd",
			maxRows: 10,
			want:    Table{{"a"}, {"b"}, {"c"}, {"d"}},
		},
		{
			name:    "blank line has zero fields",
			input:   "a,b\n\nc",
			maxRows: 10,
			want:    Table{{"a", "b"}, {}, {"c"}},
		},
		{
			name:    "trailing newline yields empty row",
			input:   "a,b\n",
			maxRows: 10,
			want:    Table{{"a", "b"}, {}},
		},
		{
			name:    "ragged rows are not padded",
			input:   "a,b,c\nd",
			maxRows: 10,
			want:    Table{{"a", "b", "c"}, {"d"}},
		},
		{
			name:    "only delimiters",
			input:   ",,",
			maxRows: 10,
			want:    Table{{"", "", ""}},
		},
		{
			name:    "quoted comma",
			input:   `"Smith, Jane",jane@x.com`,
			maxRows: 10,
			want:    Table{{"Smith, Jane", "jane@x.com"}},
		},
		{
			name:    "doubled quote inside quotes",
			input:   `"He said ""hi""",2`,
			maxRows: 10,
			want:    Table{{`He said "hi"`, "2"}},
		},
		{
			name:    "empty quoted field",
			input:   `"",x`,
			maxRows: 10,
			want:    Table{{"", "x"}},
		},
		{
			name:    "unterminated quote runs to end of line",
			input:   "\"a,b\nc,d",
			maxRows: 10,
			want:    Table{{"a,b"}, {"c", "d"}},
		},
		{
			name:    "stops at maxRows",
			input:   "1\n2\n3\n4",
			maxRows: 2,
			want:    Table{{"1"}, {"2"}},
		},
		{
			name:    "zero maxRows",
			input:   "1\n2",
			maxRows: 0,
			want:    Table{},
		},
		{
			name:    "multibyte runes survive",
			input:   "Zoë,zoë@exämple.com",
			maxRows: 10,
			want:    Table{{"Zoë", "zoë@exämple.com"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input, tt.maxRows)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q, %d) = %#v, want %#v", tt.input, tt.maxRows, got, tt.want)
			}
		})
	}
}

func TestParse_TotalAndBounded(t *testing.T) {
	inputs := []string{
		"",
		",,,,",
		"\n\n\n",
		"\r\r\n\n",
		`"`,
		`"""`,
		`a,"b,c`,
		strings.Repeat(`"x",`, 500),
		"\x00\xff,\xfe",
	}

	for _, in := range inputs {
		for _, maxRows := range []int{-1, 0, 1, 3, 100} {
			got := Parse(in, maxRows)
			if got == nil {
				t.Errorf("Parse(%q, %d) returned nil", in, maxRows)
			}
			bound := max(maxRows, 0)
			if len(got) > bound {
				t.Errorf("Parse(%q, %d) returned %d rows", in, maxRows, len(got))
			}
		}
	}
}

func TestParse_Deterministic(t *testing.T) {
	input := "Name,Email\r\n\"Doe, J\",j@x.com\n\nx,\"y\"\"z\""
	a := Parse(input, 10)
	b := Parse(input, 10)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Parse not deterministic: %#v vs %#v", a, b)
	}
}

func TestParse_DoesNotReadPastLimit(t *testing.T) {
	// The unterminated quote on line 3 must not matter when only 2 rows are read.
	got := Parse("a\nb\n\"c,d", 2)
	want := Table{{"a"}, {"b"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}
