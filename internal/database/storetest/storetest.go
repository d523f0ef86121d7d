// Package storetest is a behavioural test suite every sermon store
// implementation must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) sermonimport.Store

var base = time.Date(2024, 1, 7, 10, 0, 0, 0, time.UTC)

func ptr(s string) *string { return &s }

// Run executes every store test against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EventsInRange", func(t *testing.T) { testEventsInRange(t, newStore(t)) })
	t.Run("EventsInRangeBounds", func(t *testing.T) { testEventsInRangeBounds(t, newStore(t)) })
	t.Run("UpdateEventAndSermon", func(t *testing.T) { testUpdates(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("Collections", func(t *testing.T) { testCollections(t, newStore(t)) })
	t.Run("SermonNeedsEvent", func(t *testing.T) { testSermonNeedsEvent(t, newStore(t)) })
	t.Run("EngineRoundTrip", func(t *testing.T) { testEngineRoundTrip(t, newStore(t)) })
}

func seed(t *testing.T, store sermonimport.Store, title string, start time.Time, speaker string, cols ...sermonimport.CollectionInput) (string, string) {
	t.Helper()
	ctx := context.Background()

	eventID, err := store.InsertEvent(ctx, sermonimport.EventInput{Title: title, StartTime: start, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)
	require.NotEmpty(t, eventID)

	sermonID, err := store.InsertSermon(ctx, eventID, speaker)
	require.NoError(t, err)
	require.NotEmpty(t, sermonID)

	require.NoError(t, store.InsertCollections(ctx, sermonID, cols))
	return eventID, sermonID
}

func testEventsInRange(t *testing.T, store sermonimport.Store) {
	ctx := context.Background()
	laterID, _ := seed(t, store, "Avond", base.Add(8*time.Hour), "Bakker")
	eventID, sermonID := seed(t, store, "Dienst", base, "Jansen",
		sermonimport.CollectionInput{Name: "Zending"},
		sermonimport.CollectionInput{Name: "Diaconie", Description: ptr("Voedselbank")},
	)

	events, err := store.EventsInRange(ctx, base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, eventID, first.ID)
	assert.Equal(t, laterID, events[1].ID, "events are ordered by start time")
	require.NotNil(t, first.Title)
	assert.Equal(t, "Dienst", *first.Title)
	assert.True(t, base.Equal(first.StartTime), "StartTime = %v", first.StartTime)
	assert.True(t, base.Add(time.Hour).Equal(first.EndTime), "EndTime = %v", first.EndTime)

	require.Len(t, first.Sermons, 1)
	sermon := first.Sermons[0]
	assert.Equal(t, sermonID, sermon.ID)
	assert.Equal(t, eventID, sermon.EventID)
	require.NotNil(t, sermon.Speaker)
	assert.Equal(t, "Jansen", *sermon.Speaker)

	require.Len(t, sermon.Collections, 2)
	byName := map[string]sermonimport.CollectionRecord{}
	for _, c := range sermon.Collections {
		assert.Equal(t, sermonID, c.SermonID)
		byName[c.Name] = c
	}
	assert.Nil(t, byName["Zending"].Description)
	require.NotNil(t, byName["Diaconie"].Description)
	assert.Equal(t, "Voedselbank", *byName["Diaconie"].Description)
}

func testEventsInRangeBounds(t *testing.T, store sermonimport.Store) {
	ctx := context.Background()
	seed(t, store, "Dienst", base, "Jansen")

	events, err := store.EventsInRange(ctx, base, base)
	require.NoError(t, err)
	assert.Len(t, events, 1, "range is inclusive on both ends")

	events, err = store.EventsInRange(ctx, base.Add(time.Millisecond), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)

	events, err = store.EventsInRange(ctx, base.Add(-time.Hour), base.Add(-time.Millisecond))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func testUpdates(t *testing.T, store sermonimport.Store) {
	ctx := context.Background()
	eventID, sermonID := seed(t, store, "Dienst", base, "Jansen")

	moved := base.Add(30 * time.Minute)
	require.NoError(t, store.UpdateEvent(ctx, eventID, sermonimport.EventInput{
		Title: "Avonddienst", StartTime: moved, EndTime: moved.Add(2 * time.Hour),
	}))
	require.NoError(t, store.UpdateSermon(ctx, sermonID, "Bakker"))

	events, err := store.EventsInRange(ctx, moved, moved)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Avonddienst", *events[0].Title)
	assert.True(t, moved.Add(2*time.Hour).Equal(events[0].EndTime))
	require.Len(t, events[0].Sermons, 1)
	assert.Equal(t, "Bakker", *events[0].Sermons[0].Speaker)
}

func testUpdateMissing(t *testing.T, store sermonimport.Store) {
	ctx := context.Background()
	missing := uuid.NewString()

	err := store.UpdateEvent(ctx, missing, sermonimport.EventInput{Title: "x", StartTime: base, EndTime: base.Add(time.Hour)})
	assert.ErrorIs(t, err, sermonimport.ErrNotFound)
	assert.ErrorIs(t, store.UpdateSermon(ctx, missing, "x"), sermonimport.ErrNotFound)
	assert.ErrorIs(t, store.UpdateCollection(ctx, missing, nil), sermonimport.ErrNotFound)
	assert.ErrorIs(t, store.DeleteCollection(ctx, missing), sermonimport.ErrNotFound)
}

func testCollections(t *testing.T, store sermonimport.Store) {
	ctx := context.Background()
	_, sermonID := seed(t, store, "Dienst", base, "Jansen", sermonimport.CollectionInput{Name: "Zending"})

	require.NoError(t, store.InsertCollection(ctx, sermonID, sermonimport.CollectionInput{Name: "Bouw", Description: ptr("Orgel")}))

	cols, err := store.ListCollections(ctx, sermonID)
	require.NoError(t, err)
	require.Len(t, cols, 2)

	var zending, bouw sermonimport.CollectionRecord
	for _, c := range cols {
		switch c.Name {
		case "Zending":
			zending = c
		case "Bouw":
			bouw = c
		}
	}
	require.NotEmpty(t, zending.ID)
	require.NotEmpty(t, bouw.ID)

	require.NoError(t, store.UpdateCollection(ctx, zending.ID, ptr("Wereldwijd")))
	require.NoError(t, store.UpdateCollection(ctx, bouw.ID, nil))
	require.NoError(t, store.DeleteCollection(ctx, zending.ID))

	cols, err = store.ListCollections(ctx, sermonID)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "Bouw", cols[0].Name)
	assert.Nil(t, cols[0].Description)

	empty, err := store.ListCollections(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testSermonNeedsEvent(t *testing.T, store sermonimport.Store) {
	_, err := store.InsertSermon(context.Background(), uuid.NewString(), "Jansen")
	assert.Error(t, err)
}

// testEngineRoundTrip runs scenario-style imports through the engine.
func testEngineRoundTrip(t *testing.T, store sermonimport.Store) {
	ctx := context.Background()
	engine := sermonimport.New(store, sermonimport.WithMessages(sermonimport.English))

	row := sermonimport.ImportRow{
		EventTitle:     ptr("Dienst"),
		EventStartTime: ptr("2024-01-07T10:00:00Z"),
		EventEndTime:   ptr("2024-01-07T11:00:00Z"),
		Speaker:        ptr("Jansen"),
		Collections:    []sermonimport.ImportCollection{{Name: ptr("Zending")}, {Name: ptr("Bouw")}},
	}

	results, err := engine.Import(ctx, []sermonimport.ImportRow{row})
	require.NoError(t, err)
	require.Equal(t, sermonimport.StatusCreated, results[0].Status, "message: %v", results[0].Message)

	results, err = engine.Import(ctx, []sermonimport.ImportRow{row})
	require.NoError(t, err)
	assert.Equal(t, sermonimport.StatusSkipped, results[0].Status)

	row.Speaker = ptr("Bakker")
	row.Collections = []sermonimport.ImportCollection{{Name: ptr("zending"), Description: ptr("Wereld")}, {Name: ptr("Diaconie")}}
	results, err = engine.Import(ctx, []sermonimport.ImportRow{row})
	require.NoError(t, err)
	require.Equal(t, sermonimport.StatusReused, results[0].Status, "message: %v", results[0].Message)

	results, err = engine.Check(ctx, []sermonimport.ImportRow{row})
	require.NoError(t, err)
	assert.Equal(t, sermonimport.StatusSkipped, results[0].Status, "persisted state matches the last import")
}
