package sermonimport

import "strings"

// duplicateKey identifies "the same sermon" inside one batch.
func duplicateKey(row ResultRow) string {
	return strings.ToLower(row.EventStartTime) + "|" + strings.ToLower(row.Speaker)
}

// MarkDuplicates flags every repeated (start time, speaker) pair after its
// first occurrence. Invalid and Error rows keep their status but still count
// as an occurrence. Only the batch itself is consulted.
func MarkDuplicates(rows []ResultRow, msgs Messages) []ResultRow {
	seen := make(map[string]int, len(rows))
	out := make([]ResultRow, len(rows))

	for i, row := range rows {
		key := duplicateKey(row)
		count := seen[key]
		seen[key] = count + 1

		if count > 0 && row.Status != StatusInvalid && row.Status != StatusError {
			row.Status = StatusDuplicate
			row.Message = row.messageOr(msgs.Duplicate)
		}
		out[i] = row
	}
	return out
}
