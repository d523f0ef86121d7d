package sermonimport

// Decide turns a matched New row into Skipped or Existing.
//
//	matched, unchanged -> Skipped  (ids not attached, row left alone)
//	matched, changed   -> Existing (ids and diffs attached)
//
// Unmatched rows never reach Decide and stay New.
func Decide(row ResultRow, existing ExistingRecord, msgs Messages) ResultRow {
	diff := Diff(row, existing)

	if !diff.Changed {
		row.Status = StatusSkipped
		row.Message = row.messageOr(msgs.Identical)
		return row
	}

	collections := diff.Collections
	row.Status = StatusExisting
	row.Message = row.messageOr(msgs.AlreadyExists)
	row.EventID = existing.EventID
	row.SermonID = existing.SermonID
	row.TitleDiff = diff.Title
	row.SpeakerDiff = diff.Speaker
	row.CollectionDiffs = &collections
	return row
}
