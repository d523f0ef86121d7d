package sermonimport

// store.go declares the storage capability the engine consumes.
//
// The engine never talks to a database directly. Callers inject a Store and
// the engine issues reads (events in a start-time range) and mutations
// (event, sermon and collection rows) through it. Any error returned by a
// mutation is fatal for the row being processed; read errors in the matcher
// are tolerated (fail-open).

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when an update or delete targets a row
// that does not exist.
var ErrNotFound = errors.New("record not found")

// EventRecord is a persisted event with its sermons.
type EventRecord struct {
	ID        string         `json:"id"`
	Title     *string        `json:"title"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	Sermons   []SermonRecord `json:"sermons"`
}

// SermonRecord is a persisted sermon with its collections.
type SermonRecord struct {
	ID          string             `json:"id"`
	EventID     string             `json:"event_id"`
	Speaker     *string            `json:"speaker"`
	Collections []CollectionRecord `json:"collections"`
}

// CollectionRecord is a persisted collection target.
type CollectionRecord struct {
	ID          string  `json:"id"`
	SermonID    string  `json:"sermon_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// EventInput carries the writable fields of an event.
type EventInput struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
}

// CollectionInput carries the writable fields of a collection.
type CollectionInput struct {
	Name        string
	Description *string
}

// EventReader loads persisted events whose start time lies in [from, to].
type EventReader interface {
	EventsInRange(ctx context.Context, from, to time.Time) ([]EventRecord, error)
}

// SermonWriter creates and updates events and sermons.
type SermonWriter interface {
	InsertEvent(ctx context.Context, in EventInput) (string, error)
	UpdateEvent(ctx context.Context, id string, in EventInput) error
	InsertSermon(ctx context.Context, eventID, speaker string) (string, error)
	UpdateSermon(ctx context.Context, id, speaker string) error
}

// CollectionStore manages the collections attached to a sermon.
type CollectionStore interface {
	InsertCollections(ctx context.Context, sermonID string, in []CollectionInput) error
	ListCollections(ctx context.Context, sermonID string) ([]CollectionRecord, error)
	InsertCollection(ctx context.Context, sermonID string, in CollectionInput) error
	UpdateCollection(ctx context.Context, id string, description *string) error
	DeleteCollection(ctx context.Context, id string) error
}

// Store is the full storage capability required by Import. Check only needs
// the EventReader half.
type Store interface {
	EventReader
	SermonWriter
	CollectionStore
}
