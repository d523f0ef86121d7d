package sermonimport

// normalize.go turns untrusted ImportRows into NormalizedRows and converts
// date-time strings into the canonical form used as the match key.

import (
	"strings"
	"time"
)

// CanonicalLayout is the ISO-8601 form every validated start and end time is
// rewritten to. Fixed width and UTC, so canonical strings order the same way
// lexicographically and chronologically.
const CanonicalLayout = "2006-01-02T15:04:05.000Z"

// Layouts that carry their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Layouts interpreted in the engine's location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// trim returns the trimmed value or "" for nil.
func trim(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// NormalizeRow trims every field of row. Collections without a name are
// dropped; descriptions are trimmed but never validated. Message stays nil
// when absent.
func NormalizeRow(row ImportRow) NormalizedRow {
	collections := make([]Collection, 0, len(row.Collections))
	for _, c := range row.Collections {
		name := trim(c.Name)
		if name == "" {
			continue
		}
		collections = append(collections, Collection{
			Name:        name,
			Description: trim(c.Description),
		})
	}

	return NormalizedRow{
		EventTitle:     trim(row.EventTitle),
		EventStartTime: trim(row.EventStartTime),
		EventEndTime:   trim(row.EventEndTime),
		Speaker:        trim(row.Speaker),
		Collections:    collections,
		Message:        row.Message,
	}
}

// ParseDateTime parses s using the supported layouts. Values without an
// offset are read in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatCanonical renders t in CanonicalLayout.
func FormatCanonical(t time.Time) string {
	return t.UTC().Format(CanonicalLayout)
}

// Canonicalize parses s and re-renders it canonically. It returns "" when s
// is not a date-time.
func Canonicalize(s string, loc *time.Location) string {
	t, ok := ParseDateTime(s, loc)
	if !ok {
		return ""
	}
	return FormatCanonical(t)
}
