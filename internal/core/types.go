package core

import "fmt"

// NoColumn marks the absence of a column index (no inferred column).
const NoColumn = -1

// Record is one parsed row. Rows are ragged; the parser never pads them.
type Record []string

// Table is the bounded, ordered list of records produced by Parse.
type Table []Record

// Header is the ordered list of column labels, literal or synthesized.
type Header []string

// Width returns the length of the widest record in the table.
func (t Table) Width() int {
	w := 0
	for _, r := range t {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, r := range t {
		out[i] = append(make(Record, 0, len(r)), r...)
	}
	return out
}

// Cell returns the cell at column c, or "" when the record is too short.
func (r Record) Cell(c int) string {
	if c < 0 || c >= len(r) {
		return ""
	}
	return r[c]
}

// Label returns the header label at column c, or "" when absent.
func (h Header) Label(c int) string {
	if c < 0 || c >= len(h) {
		return ""
	}
	return h[c]
}

// Phase is the lifecycle phase of a preview session.
//
// A session starts Empty and enters Loading on every LoadSource call. The
// newest load moves it to Ready or Error; older loads never do. Only
// SelectColumn and Confirm require Ready.
type Phase int

const (
	// PhaseEmpty means no source has been attached yet.
	PhaseEmpty Phase = iota
	// PhaseLoading means the newest source is still being read and analyzed.
	// The previous state, if any, stays visible in snapshots.
	PhaseLoading
	// PhaseReady means the newest source was analyzed and a column is selected.
	PhaseReady
	// PhaseError means the newest source could not be read. Snapshot.Error
	// holds the cause and the previous state is kept.
	PhaseError
)

// String returns the lowercase phase name used in JSON and CSS classes.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText lets phases render as strings in JSON snapshots.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ColumnScore is the email-likeness score of one column.
type ColumnScore struct {
	Index int `json:"index"`
	Score int `json:"score"`
}

// State is the committed result of one source load plus the user's selection.
// A State is replaced wholesale on every new source; only Selected mutates.
type State struct {
	Source        string        `json:"source"`
	Rows          Table         `json:"rows"`
	Header        Header        `json:"header"`
	HeaderPresent bool          `json:"headerPresent"`
	Scores        []ColumnScore `json:"scores"`
	Inferred      int           `json:"inferred"`
	Selected      int           `json:"selected"`
}

// ColumnCount is the size of the selectable column space: the header length
// or the widest preview row, whichever is larger.
func (s *State) ColumnCount() int {
	return columnCount(s.Header, s.Rows)
}

func (s *State) clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Rows = s.Rows.Clone()
	cp.Header = append(make(Header, 0, len(s.Header)), s.Header...)
	cp.Scores = append(make([]ColumnScore, 0, len(s.Scores)), s.Scores...)
	return &cp
}

// Snapshot is a read-only copy of a session, safe to hand to any observer.
type Snapshot struct {
	Phase      Phase  `json:"phase"`
	Generation uint64 `json:"generation"`
	Error      string `json:"error,omitempty"`
	State      *State `json:"state,omitempty"`
}

// MappingResult is the confirmed column mapping handed to downstream consumers.
type MappingResult struct {
	ColumnIndex   int      `json:"columnIndex"`
	Header        string   `json:"header"`
	PreviewEmails []string `json:"previewEmails"`
}
