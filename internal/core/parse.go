package core

import "strings"

// Parse splits delimited text into at most maxRows records.
//
// Parse is total: it never rejects input. Lines end at "\r\n", "\n" or "\r"
// (mixed endings are fine) and are consumed lazily, so nothing past the
// maxRows-th line is examined. An empty line yields a record with zero fields.
// Fields are separated by commas outside quoted spans; a doubled quote inside
// a quoted span is one literal quote. An unclosed quote simply stays open to
// the end of its line.
func Parse(text string, maxRows int) Table {
	if maxRows <= 0 {
		return Table{}
	}

	table := make(Table, 0, min(maxRows, 64))
	for len(table) < maxRows {
		line, rest, more := nextLine(text)
		table = append(table, parseLine(line))
		if !more {
			break
		}
		text = rest
	}
	return table
}

// nextLine returns the first line of text, the remainder after its line
// terminator, and whether a terminator was found.
func nextLine(text string) (line, rest string, more bool) {
	i := strings.IndexAny(text, "\r\n")
	if i < 0 {
		return text, "", false
	}
	if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
		return text[:i], text[i+2:], true
	}
	return text[:i], text[i+1:], true
}

// parseLine tokenizes a single line. Quotes and commas are ASCII, so
// byte-wise scanning leaves multi-byte runes intact.
func parseLine(line string) Record {
	if line == "" {
		return Record{}
	}

	var (
		rec     Record
		cur     strings.Builder
		inQuote bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"' && inQuote && i+1 < len(line) && line[i+1] == '"':
			cur.WriteByte('"')
			i++
		case ch == '"':
			inQuote = !inQuote
		case ch == ',' && !inQuote:
			rec = append(rec, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	return append(rec, cur.String())
}
