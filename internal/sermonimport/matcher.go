package sermonimport

// matcher.go correlates New rows with sermons that are already persisted.
//
// The match key is the canonical start time and nothing else: a row at the
// same moment as a persisted sermon matches it regardless of title. Only one
// persisted sermon per start time is expected. When storage returns more, the
// last one in iteration order wins and the collision is logged and counted.

import (
	"context"
	"strings"
	"time"

	"github.com/JonMunkholm/sermonimport/internal/logging"
	"github.com/JonMunkholm/sermonimport/internal/metrics"
)

// Matcher annotates New rows that collide with persisted sermons.
type Matcher struct {
	reader EventReader
	msgs   Messages
}

// NewMatcher creates a Matcher reading from reader.
func NewMatcher(reader EventReader, msgs Messages) *Matcher {
	return &Matcher{reader: reader, msgs: msgs}
}

// timeRange returns the smallest and largest canonical start time among the
// New rows. ok is false when there are none.
func timeRange(rows []ResultRow) (minKey, maxKey string, ok bool) {
	for _, row := range rows {
		if row.Status != StatusNew || row.EventStartTime == "" {
			continue
		}
		if !ok {
			minKey, maxKey, ok = row.EventStartTime, row.EventStartTime, true
			continue
		}
		if row.EventStartTime < minKey {
			minKey = row.EventStartTime
		}
		if row.EventStartTime > maxKey {
			maxKey = row.EventStartTime
		}
	}
	return minKey, maxKey, ok
}

// Match returns rows with every matched New row decided as Skipped or
// Existing. A failed or empty read leaves all rows untouched.
func (m *Matcher) Match(ctx context.Context, rows []ResultRow) []ResultRow {
	minKey, maxKey, ok := timeRange(rows)
	if !ok {
		return rows
	}

	from, errFrom := time.Parse(CanonicalLayout, minKey)
	to, errTo := time.Parse(CanonicalLayout, maxKey)
	if errFrom != nil || errTo != nil {
		return rows
	}

	logger := logging.FromContext(ctx)

	events, err := m.reader.EventsInRange(ctx, from, to)
	if err != nil {
		metrics.StorageReadFailures.Inc()
		logger.Warn("existing sermon lookup failed, treating rows as new",
			"from", minKey,
			"to", maxKey,
			"error", err,
		)
		return rows
	}
	if len(events) == 0 {
		return rows
	}

	index := BuildIndex(ctx, events)
	if len(index) == 0 {
		return rows
	}

	out := make([]ResultRow, len(rows))
	matched := 0
	for i, row := range rows {
		out[i] = row
		if row.Status != StatusNew {
			continue
		}
		existing, found := index[row.EventStartTime]
		if !found {
			continue
		}
		matched++
		out[i] = Decide(row, existing, m.msgs)
	}

	logger.Debug("existing sermons matched",
		"events", len(events),
		"indexed", len(index),
		"matched", matched,
	)
	return out
}

// BuildIndex projects events into ExistingRecords keyed by canonical start
// time. Events without an id or a non-blank title are ignored, as are sermons
// without an id.
func BuildIndex(ctx context.Context, events []EventRecord) map[string]ExistingRecord {
	index := make(map[string]ExistingRecord)

	for _, event := range events {
		if event.ID == "" || event.StartTime.IsZero() {
			continue
		}
		if event.Title == nil || strings.TrimSpace(*event.Title) == "" {
			continue
		}

		key := FormatCanonical(event.StartTime)
		end := ""
		if !event.EndTime.IsZero() {
			end = FormatCanonical(event.EndTime)
		}

		for _, sermon := range event.Sermons {
			if sermon.ID == "" {
				continue
			}

			if prev, dup := index[key]; dup {
				metrics.MatchCollisions.Inc()
				logging.FromContext(ctx).Warn("multiple persisted sermons share a start time, keeping the last",
					"start_time", key,
					"replaced_sermon_id", prev.SermonID,
					"sermon_id", sermon.ID,
				)
			}

			collections := make([]CollectionRecord, len(sermon.Collections))
			copy(collections, sermon.Collections)

			index[key] = ExistingRecord{
				EventID:     event.ID,
				SermonID:    sermon.ID,
				EventTitle:  event.Title,
				StartTime:   key,
				EndTime:     end,
				Speaker:     sermon.Speaker,
				Collections: collections,
			}
		}
	}

	return index
}
