package core

import (
	"strconv"
	"strings"
)

// Analysis is the header/data split of a parsed table.
type Analysis struct {
	Header        Header
	HeaderPresent bool
	DataRows      Table
}

// Analyze decides whether the first row of table is a header.
//
// Only rows 0 and 1 are inspected. Row 0 is a header when at least one of its
// trimmed cells looks like an alphabetic label and row 1 has at least as many
// email-looking cells as row 0. When there is no header, labels are
// synthesized as "Column 1".."Column n" for row 0's width and every row is
// data.
//
// A single-row table compares row 0 against an empty row 1, so a lone row
// holding an email address is never taken as a header.
func Analyze(table Table, p Patterns) Analysis {
	if len(table) == 0 {
		return Analysis{Header: Header{}, DataRows: Table{}}
	}

	first := table[0]
	var second Record
	if len(table) > 1 {
		second = table[1]
	}

	if HasHeader(first, second, p) {
		return Analysis{
			Header:        append(Header{}, first...),
			HeaderPresent: true,
			DataRows:      table[1:],
		}
	}

	return Analysis{
		Header:   SyntheticHeader(len(first)),
		DataRows: table,
	}
}

// HasHeader applies the header-presence heuristic to the first two rows.
func HasHeader(first, second Record, p Patterns) bool {
	label := p.headerLabel()
	alpha := 0
	for _, c := range first {
		if label.MatchString(strings.TrimSpace(c)) {
			alpha++
		}
	}
	return alpha >= 1 && countEmails(second, p) >= countEmails(first, p)
}

// SyntheticHeader returns n labels of the form "Column {i+1}".
func SyntheticHeader(n int) Header {
	h := make(Header, n)
	for i := range h {
		h[i] = "Column " + strconv.Itoa(i+1)
	}
	return h
}

func countEmails(r Record, p Patterns) int {
	n := 0
	for _, c := range r {
		if p.IsEmail(strings.TrimSpace(c)) {
			n++
		}
	}
	return n
}
