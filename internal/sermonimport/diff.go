package sermonimport

// diff.go compares a validated row with the persisted sermon it matched.
//
// Titles and speakers compare case- and whitespace-insensitively; diffs keep
// the raw values so callers can show exactly what will change. Collections are
// keyed by lowercased, trimmed name. Descriptions do not affect which names
// are added or removed, but they do count for hasChanges.

import (
	"cmp"
	"slices"
	"strings"
)

// RowDiff is the full comparison between a row and its existing record.
type RowDiff struct {
	Title       *FieldDiff
	Speaker     *FieldDiff
	Collections CollectionDiff
	Changed     bool
}

// Diff compares row against existing.
func Diff(row ResultRow, existing ExistingRecord) RowDiff {
	return RowDiff{
		Title:       fieldDiff(existing.EventTitle, row.EventTitle),
		Speaker:     fieldDiff(existing.Speaker, row.Speaker),
		Collections: collectionDiff(row.Collections, existing.Collections),
		Changed:     hasChanges(row, existing),
	}
}

func foldValue(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func foldPtr(s *string) string {
	if s == nil {
		return ""
	}
	return foldValue(*s)
}

// fieldDiff returns nil when before and after are equal after folding.
func fieldDiff(before *string, after string) *FieldDiff {
	if foldPtr(before) == foldValue(after) {
		return nil
	}
	return &FieldDiff{Before: before, After: after}
}

func collectionDiff(rowCols []Collection, existing []CollectionRecord) CollectionDiff {
	type named struct{ key, display string }

	// A repeated name keeps its first position and its last spelling.
	index := func(names []string) ([]named, map[string]int) {
		var out []named
		pos := make(map[string]int, len(names))
		for _, name := range names {
			key := foldValue(name)
			if key == "" {
				continue
			}
			display := strings.TrimSpace(name)
			if i, seen := pos[key]; seen {
				out[i].display = display
				continue
			}
			pos[key] = len(out)
			out = append(out, named{key, display})
		}
		return out, pos
	}

	rowRaw := make([]string, 0, len(rowCols))
	for _, c := range rowCols {
		rowRaw = append(rowRaw, c.Name)
	}
	existingRaw := make([]string, 0, len(existing))
	for _, c := range existing {
		existingRaw = append(existingRaw, c.Name)
	}
	rowNames, rowIndex := index(rowRaw)
	existingNames, existingIndex := index(existingRaw)

	diff := CollectionDiff{Added: []string{}, Removed: []string{}}
	for _, n := range rowNames {
		if _, ok := existingIndex[n.key]; !ok {
			diff.Added = append(diff.Added, n.display)
		}
	}
	for _, n := range existingNames {
		if _, ok := rowIndex[n.key]; !ok {
			diff.Removed = append(diff.Removed, n.display)
		}
	}
	return diff
}

// collectionKey is the (name, description) identity used for set equality.
type collectionKey struct {
	name        string
	description *string
}

func normalizeDescription(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func compareCollectionKeys(a, b collectionKey) int {
	if c := cmp.Compare(a.name, b.name); c != 0 {
		return c
	}
	switch {
	case a.description == nil && b.description == nil:
		return 0
	case a.description == nil:
		return -1
	case b.description == nil:
		return 1
	}
	return cmp.Compare(*a.description, *b.description)
}

func sameDescription(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// collectionsEqual reports whether both sides hold the same collections,
// ignoring order, name case and surrounding whitespace.
func collectionsEqual(rowCols []Collection, existing []CollectionRecord) bool {
	if len(rowCols) != len(existing) {
		return false
	}

	left := make([]collectionKey, 0, len(rowCols))
	for _, c := range rowCols {
		desc := c.Description
		left = append(left, collectionKey{foldValue(c.Name), normalizeDescription(&desc)})
	}
	right := make([]collectionKey, 0, len(existing))
	for _, c := range existing {
		if c.Name == "" {
			continue
		}
		right = append(right, collectionKey{foldValue(c.Name), normalizeDescription(c.Description)})
	}
	if len(left) != len(right) {
		return false
	}

	slices.SortFunc(left, compareCollectionKeys)
	slices.SortFunc(right, compareCollectionKeys)

	for i := range left {
		if left[i].name != right[i].name || !sameDescription(left[i].description, right[i].description) {
			return false
		}
	}
	return true
}

func hasChanges(row ResultRow, existing ExistingRecord) bool {
	titleChanged := foldValue(row.EventTitle) != foldPtr(existing.EventTitle)
	startChanged := row.EventStartTime != existing.StartTime
	endChanged := row.EventEndTime != existing.EndTime
	speakerChanged := foldValue(row.Speaker) != foldPtr(existing.Speaker)

	return titleChanged ||
		startChanged ||
		endChanged ||
		speakerChanged ||
		!collectionsEqual(row.Collections, existing.Collections)
}
