package sermonimport

import (
	"fmt"
	"strings"
)

// Status is the pipeline state of a single row.
type Status int

const (
	StatusNew Status = iota + 1
	StatusExisting
	StatusError
	StatusEmpty
	StatusInvalid
	StatusDuplicate
	StatusSkipped
	StatusCreated
	StatusReused
)

var statusCodes = map[Status]string{
	StatusNew:       "new",
	StatusExisting:  "existing",
	StatusError:     "error",
	StatusEmpty:     "empty",
	StatusInvalid:   "invalid",
	StatusDuplicate: "duplicate",
	StatusSkipped:   "skipped",
	StatusCreated:   "created",
	StatusReused:    "reused",
}

// AllStatuses lists every status in declaration order.
var AllStatuses = []Status{
	StatusNew, StatusExisting, StatusError, StatusEmpty, StatusInvalid,
	StatusDuplicate, StatusSkipped, StatusCreated, StatusReused,
}

// String returns the stable machine code of the status.
func (s Status) String() string {
	if code, ok := statusCodes[s]; ok {
		return code
	}
	return "unknown"
}

// Terminal reports whether the status is final for an import run.
func (s Status) Terminal() bool {
	switch s {
	case StatusNew, StatusExisting:
		return false
	}
	return true
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	code, ok := statusCodes[s]
	if !ok {
		return nil, fmt.Errorf("invalid status %d", int(s))
	}
	return []byte(code), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus converts a machine code back into a Status.
func ParseStatus(code string) (Status, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	for st, c := range statusCodes {
		if c == code {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", code)
}

// ImportCollection is a collection target as supplied by the caller.
type ImportCollection struct {
	Name        *string `json:"name,omitempty" yaml:"name,omitempty"`
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ImportRow is an untrusted input row. Every field may be absent. Status is
// accepted for round-tripping preview results but never trusted.
type ImportRow struct {
	EventTitle     *string            `json:"event_title,omitempty" yaml:"event_title,omitempty"`
	EventStartTime *string            `json:"event_start_time,omitempty" yaml:"event_start_time,omitempty"`
	EventEndTime   *string            `json:"event_end_time,omitempty" yaml:"event_end_time,omitempty"`
	Speaker        *string            `json:"speaker,omitempty" yaml:"speaker,omitempty"`
	Collections    []ImportCollection `json:"collections,omitempty" yaml:"collections,omitempty"`
	Status         *string            `json:"status,omitempty" yaml:"status,omitempty"`
	Message        *string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Collection is a named offertory target with an optional description.
type Collection struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NormalizedRow is an ImportRow with every string trimmed and defaulted.
type NormalizedRow struct {
	EventTitle     string       `json:"event_title"`
	EventStartTime string       `json:"event_start_time"`
	EventEndTime   string       `json:"event_end_time"`
	Speaker        string       `json:"speaker"`
	Collections    []Collection `json:"collections"`
	Message        *string      `json:"message"`
}

// FieldDiff is a before/after pair for a scalar field.
type FieldDiff struct {
	Before *string `json:"before"`
	After  string  `json:"after"`
}

// CollectionDiff lists collection names added to or removed from a sermon.
type CollectionDiff struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// ResultRow is the unit flowing through every stage after validation and the
// shape returned to callers.
type ResultRow struct {
	NormalizedRow
	Status          Status          `json:"status"`
	StatusLabel     string          `json:"status_label,omitempty"`
	EventID         string          `json:"event_id,omitempty"`
	SermonID        string          `json:"sermon_id,omitempty"`
	TitleDiff       *FieldDiff      `json:"titleDiff,omitempty"`
	SpeakerDiff     *FieldDiff      `json:"speakerDiff,omitempty"`
	CollectionDiffs *CollectionDiff `json:"collectionDiffs,omitempty"`
}

// messageOr returns msg unless the row already carries a message.
func (r ResultRow) messageOr(msg string) *string {
	if r.Message != nil {
		return r.Message
	}
	return &msg
}

// ExistingRecord is the read-only projection of a persisted sermon used for
// matching and diffing.
type ExistingRecord struct {
	EventID     string
	SermonID    string
	EventTitle  *string
	StartTime   string
	EndTime     string
	Speaker     *string
	Collections []CollectionRecord
}

// Summary counts result rows per status.
type Summary map[Status]int

// Summarize counts rows by status.
func Summarize(rows []ResultRow) Summary {
	s := make(Summary, len(AllStatuses))
	for _, row := range rows {
		s[row.Status]++
	}
	return s
}

func strPtr(s string) *string { return &s }
