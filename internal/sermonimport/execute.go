package sermonimport

// execute.go performs the storage writes for decided rows.
//
// Rows are processed one at a time, in order. A failure marks only that row
// as Error; nothing written before the failure is rolled back and the next row
// is processed normally. Rows that are not New or Existing pass through.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrExistingNotFound is returned when an Existing row lacks its matched ids.
var ErrExistingNotFound = errors.New("existing sermon ids missing")

// Executor writes decided rows to a Store.
type Executor struct {
	store  Store
	msgs   Messages
	logger *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(store Store, msgs Messages, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{store: store, msgs: msgs, logger: logger}
}

// Execute runs every row through the store sequentially.
func (x *Executor) Execute(ctx context.Context, rows []ResultRow) []ResultRow {
	results := make([]ResultRow, 0, len(rows))

	for i, row := range rows {
		if row.Status.Terminal() {
			results = append(results, row)
			continue
		}

		switch row.Status {
		case StatusNew:
			eventID, sermonID, err := x.create(ctx, row)
			if err != nil {
				x.logger.Error("import row failed", "row", i, "start_time", row.EventStartTime, "error", err)
				results = append(results, x.failed(row, err, x.msgs.UnknownError))
				continue
			}
			row.Status = StatusCreated
			row.Message = strPtr(x.msgs.Created)
			row.EventID = eventID
			row.SermonID = sermonID
			results = append(results, row)

		case StatusExisting:
			if err := x.update(ctx, row); err != nil {
				x.logger.Error("update existing sermon failed", "row", i, "sermon_id", row.SermonID, "error", err)
				results = append(results, x.failed(row, err, x.msgs.UpdateFailed))
				continue
			}
			row.Status = StatusReused
			row.Message = strPtr(x.msgs.Reused)
			results = append(results, row)
		}
	}

	return results
}

func (x *Executor) failed(row ResultRow, err error, fallback string) ResultRow {
	row.Status = StatusError
	msg := fallback
	if errors.Is(err, ErrExistingNotFound) {
		msg = x.msgs.ExistingNotFound
	} else if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	row.Message = &msg
	return row
}

func (x *Executor) eventInput(row ResultRow) (EventInput, error) {
	start, err := time.Parse(CanonicalLayout, row.EventStartTime)
	if err != nil {
		return EventInput{}, fmt.Errorf("parse start time: %w", err)
	}
	end, err := time.Parse(CanonicalLayout, row.EventEndTime)
	if err != nil {
		return EventInput{}, fmt.Errorf("parse end time: %w", err)
	}
	title := row.EventTitle
	if title == "" {
		title = x.msgs.DefaultTitle
	}
	return EventInput{Title: title, StartTime: start, EndTime: end}, nil
}

func (x *Executor) speaker(row ResultRow) string {
	if row.Speaker == "" {
		return x.msgs.DefaultSpeaker
	}
	return row.Speaker
}

// create inserts the event, its sermon and all collections.
func (x *Executor) create(ctx context.Context, row ResultRow) (string, string, error) {
	in, err := x.eventInput(row)
	if err != nil {
		return "", "", err
	}

	eventID, err := x.store.InsertEvent(ctx, in)
	if err != nil {
		return "", "", err
	}
	if eventID == "" {
		return "", "", errors.New(x.msgs.EventNotCreated)
	}

	sermonID, err := x.store.InsertSermon(ctx, eventID, x.speaker(row))
	if err != nil {
		return eventID, "", err
	}
	if sermonID == "" {
		return eventID, "", errors.New(x.msgs.SermonNotCreated)
	}

	if len(row.Collections) == 0 {
		return eventID, sermonID, nil
	}

	payload := make([]CollectionInput, len(row.Collections))
	for i, c := range row.Collections {
		desc := c.Description
		payload[i] = CollectionInput{Name: c.Name, Description: normalizeDescription(&desc)}
	}
	if err := x.store.InsertCollections(ctx, sermonID, payload); err != nil {
		return eventID, sermonID, err
	}

	return eventID, sermonID, nil
}

// update rewrites the matched event and sermon and syncs collections.
func (x *Executor) update(ctx context.Context, row ResultRow) error {
	if row.EventID == "" || row.SermonID == "" {
		return ErrExistingNotFound
	}

	in, err := x.eventInput(row)
	if err != nil {
		return err
	}
	if err := x.store.UpdateEvent(ctx, row.EventID, in); err != nil {
		return err
	}
	if err := x.store.UpdateSermon(ctx, row.SermonID, x.speaker(row)); err != nil {
		return err
	}
	return SyncCollections(ctx, x.store, row.SermonID, row.Collections)
}
