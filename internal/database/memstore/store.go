// Package memstore is an in-memory implementation of the sermon storage
// capability. It backs tests and DB_DRIVER=memory runs; nothing survives a
// restart.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

type event struct {
	id        string
	title     string
	startTime time.Time
	endTime   time.Time
	seq       int
}

type sermon struct {
	id      string
	eventID string
	speaker string
	seq     int
}

type collection struct {
	id          string
	sermonID    string
	name        string
	description *string
	seq         int
}

// Store keeps events, sermons and collections in maps guarded by a mutex.
type Store struct {
	mu          sync.RWMutex
	seq         int
	events      map[string]*event
	sermons     map[string]*sermon
	collections map[string]*collection
}

var _ sermonimport.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		events:      make(map[string]*event),
		sermons:     make(map[string]*sermon),
		collections: make(map[string]*collection),
	}
}

func (s *Store) next() int {
	s.seq++
	return s.seq
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// EventsInRange returns events starting in [from, to] ordered by start time,
// with their sermons and collections in insertion order.
func (s *Store) EventsInRange(ctx context.Context, from, to time.Time) ([]sermonimport.EventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var events []*event
	for _, e := range s.events {
		if e.startTime.Before(from) || e.startTime.After(to) {
			continue
		}
		events = append(events, e)
	}
	slices.SortFunc(events, func(a, b *event) int {
		if c := a.startTime.Compare(b.startTime); c != 0 {
			return c
		}
		return a.seq - b.seq
	})

	out := make([]sermonimport.EventRecord, 0, len(events))
	for _, e := range events {
		title := e.title
		out = append(out, sermonimport.EventRecord{
			ID:        e.id,
			Title:     &title,
			StartTime: e.startTime,
			EndTime:   e.endTime,
			Sermons:   s.sermonsFor(e.id),
		})
	}
	return out, nil
}

func (s *Store) sermonsFor(eventID string) []sermonimport.SermonRecord {
	var sermons []*sermon
	for _, sm := range s.sermons {
		if sm.eventID == eventID {
			sermons = append(sermons, sm)
		}
	}
	slices.SortFunc(sermons, func(a, b *sermon) int { return a.seq - b.seq })

	out := make([]sermonimport.SermonRecord, 0, len(sermons))
	for _, sm := range sermons {
		speaker := sm.speaker
		out = append(out, sermonimport.SermonRecord{
			ID:          sm.id,
			EventID:     sm.eventID,
			Speaker:     &speaker,
			Collections: s.collectionsFor(sm.id),
		})
	}
	return out
}

func (s *Store) collectionsFor(sermonID string) []sermonimport.CollectionRecord {
	var cols []*collection
	for _, c := range s.collections {
		if c.sermonID == sermonID {
			cols = append(cols, c)
		}
	}
	slices.SortFunc(cols, func(a, b *collection) int { return a.seq - b.seq })

	out := make([]sermonimport.CollectionRecord, 0, len(cols))
	for _, c := range cols {
		out = append(out, sermonimport.CollectionRecord{
			ID:          c.id,
			SermonID:    c.sermonID,
			Name:        c.name,
			Description: copyPtr(c.description),
		})
	}
	return out
}

// InsertEvent stores a new event and returns its id.
func (s *Store) InsertEvent(ctx context.Context, in sermonimport.EventInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.events[id] = &event{
		id:        id,
		title:     in.Title,
		startTime: in.StartTime.UTC(),
		endTime:   in.EndTime.UTC(),
		seq:       s.next(),
	}
	return id, nil
}

// UpdateEvent overwrites title, start and end of an event.
func (s *Store) UpdateEvent(ctx context.Context, id string, in sermonimport.EventInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, sermonimport.ErrNotFound)
	}
	e.title = in.Title
	e.startTime = in.StartTime.UTC()
	e.endTime = in.EndTime.UTC()
	return nil
}

// InsertSermon stores a sermon under eventID.
func (s *Store) InsertSermon(ctx context.Context, eventID, speaker string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return "", fmt.Errorf("event %s: %w", eventID, sermonimport.ErrNotFound)
	}
	id := uuid.NewString()
	s.sermons[id] = &sermon{id: id, eventID: eventID, speaker: speaker, seq: s.next()}
	return id, nil
}

// UpdateSermon sets the speaker of a sermon.
func (s *Store) UpdateSermon(ctx context.Context, id, speaker string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sm, ok := s.sermons[id]
	if !ok {
		return fmt.Errorf("sermon %s: %w", id, sermonimport.ErrNotFound)
	}
	sm.speaker = speaker
	return nil
}

// InsertCollections stores all collections for sermonID.
func (s *Store) InsertCollections(ctx context.Context, sermonID string, in []sermonimport.CollectionInput) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sermons[sermonID]; !ok {
		return fmt.Errorf("sermon %s: %w", sermonID, sermonimport.ErrNotFound)
	}
	for _, c := range in {
		s.insertCollectionLocked(sermonID, c)
	}
	return nil
}

// InsertCollection stores one collection for sermonID.
func (s *Store) InsertCollection(ctx context.Context, sermonID string, in sermonimport.CollectionInput) error {
	return s.InsertCollections(ctx, sermonID, []sermonimport.CollectionInput{in})
}

func (s *Store) insertCollectionLocked(sermonID string, in sermonimport.CollectionInput) {
	id := uuid.NewString()
	s.collections[id] = &collection{
		id:          id,
		sermonID:    sermonID,
		name:        in.Name,
		description: copyPtr(in.Description),
		seq:         s.next(),
	}
}

// ListCollections returns the collections of sermonID.
func (s *Store) ListCollections(ctx context.Context, sermonID string) ([]sermonimport.CollectionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectionsFor(sermonID), nil
}

// UpdateCollection sets the description of a collection.
func (s *Store) UpdateCollection(ctx context.Context, id string, description *string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[id]
	if !ok {
		return fmt.Errorf("collection %s: %w", id, sermonimport.ErrNotFound)
	}
	c.description = copyPtr(description)
	return nil
}

// DeleteCollection removes a collection.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[id]; !ok {
		return fmt.Errorf("collection %s: %w", id, sermonimport.ErrNotFound)
	}
	delete(s.collections, id)
	return nil
}

// Seed inserts a fully formed event, sermon and collections in one step.
// Tests use it to set up existing records.
func (s *Store) Seed(in sermonimport.EventInput, speaker string, cols ...sermonimport.CollectionInput) (eventID, sermonID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eventID = uuid.NewString()
	s.events[eventID] = &event{
		id:        eventID,
		title:     in.Title,
		startTime: in.StartTime.UTC(),
		endTime:   in.EndTime.UTC(),
		seq:       s.next(),
	}
	sermonID = uuid.NewString()
	s.sermons[sermonID] = &sermon{id: sermonID, eventID: eventID, speaker: speaker, seq: s.next()}
	for _, c := range cols {
		s.insertCollectionLocked(sermonID, c)
	}
	return eventID, sermonID
}

// Counts returns the number of stored events, sermons and collections.
func (s *Store) Counts() (events, sermons, collections int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), len(s.sermons), len(s.collections)
}

func copyPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
