package sermonimport

// validate.go applies the row rules in order; the first failing rule decides
// the status and message.

import "time"

// Validator checks normalized rows.
type Validator struct {
	msgs Messages
	loc  *time.Location
}

// NewValidator creates a Validator using msgs for row messages and loc for
// date-times without an offset.
func NewValidator(msgs Messages, loc *time.Location) *Validator {
	if loc == nil {
		loc = time.UTC
	}
	return &Validator{msgs: msgs, loc: loc}
}

// EmptyRow returns the sentinel produced for an empty batch.
func (v *Validator) EmptyRow() ResultRow {
	return ResultRow{
		NormalizedRow: NormalizedRow{Collections: []Collection{}, Message: strPtr(v.msgs.EmptyBatch)},
		Status:        StatusEmpty,
	}
}

// ValidateRows normalizes and validates a batch. An empty batch yields a
// single Empty row.
func (v *Validator) ValidateRows(rows []ImportRow) []ResultRow {
	if len(rows) == 0 {
		return []ResultRow{v.EmptyRow()}
	}

	out := make([]ResultRow, len(rows))
	for i, row := range rows {
		out[i] = v.ValidateRow(NormalizeRow(row))
	}
	return out
}

// ValidateRow returns row as a ResultRow with status New or Invalid. Valid
// rows get their start and end rewritten in canonical form.
func (v *Validator) ValidateRow(row NormalizedRow) ResultRow {
	if row.EventStartTime == "" || row.EventEndTime == "" {
		return invalidRow(row, v.msgs.MissingTime)
	}

	if row.Speaker == "" {
		return invalidRow(row, v.msgs.MissingSpeaker)
	}

	start, okStart := ParseDateTime(row.EventStartTime, v.loc)
	end, okEnd := ParseDateTime(row.EventEndTime, v.loc)
	if !okStart || !okEnd {
		return invalidRow(row, v.msgs.InvalidDateTime)
	}

	if !end.After(start) {
		return invalidRow(row, v.msgs.EndBeforeStart)
	}

	row.EventStartTime = FormatCanonical(start)
	row.EventEndTime = FormatCanonical(end)
	return ResultRow{NormalizedRow: row, Status: StatusNew}
}

func invalidRow(row NormalizedRow, msg string) ResultRow {
	row.Message = strPtr(msg)
	return ResultRow{NormalizedRow: row, Status: StatusInvalid}
}
