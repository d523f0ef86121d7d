package sermonimport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sermonimport/internal/database/memstore"
	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

func str(s string) *string { return &s }

func dienst(speaker string, collections ...string) sermonimport.ImportRow {
	row := sermonimport.ImportRow{
		EventTitle:     str("Dienst"),
		EventStartTime: str("2024-01-07T10:00:00Z"),
		EventEndTime:   str("2024-01-07T11:00:00Z"),
		Speaker:        str(speaker),
	}
	for _, c := range collections {
		row.Collections = append(row.Collections, sermonimport.ImportCollection{Name: str(c)})
	}
	return row
}

func newEngine(store sermonimport.Store) *sermonimport.Engine {
	return sermonimport.New(store, sermonimport.WithMessages(sermonimport.English))
}

func TestScenarioA_NewThenCreated(t *testing.T) {
	store := memstore.New()
	engine := newEngine(store)
	ctx := context.Background()
	batch := []sermonimport.ImportRow{dienst("Jansen", "Zending")}

	checked, err := engine.Check(ctx, batch)
	require.NoError(t, err)
	require.Len(t, checked, 1)
	assert.Equal(t, sermonimport.StatusNew, checked[0].Status)
	assert.Equal(t, "New row", checked[0].StatusLabel)

	events, _, _ := store.Counts()
	assert.Zero(t, events, "check must not write")

	imported, err := engine.Import(ctx, batch)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, sermonimport.StatusCreated, imported[0].Status)
	assert.NotEmpty(t, imported[0].EventID)
	assert.NotEmpty(t, imported[0].SermonID)

	events, sermons, collections := store.Counts()
	assert.Equal(t, 1, events)
	assert.Equal(t, 1, sermons)
	assert.Equal(t, 1, collections)
}

func TestScenarioB_ReimportIsSkipped(t *testing.T) {
	store := memstore.New()
	engine := newEngine(store)
	ctx := context.Background()
	batch := []sermonimport.ImportRow{dienst("Jansen", "Zending")}

	_, err := engine.Import(ctx, batch)
	require.NoError(t, err)

	again, err := engine.Import(ctx, batch)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, sermonimport.StatusSkipped, again[0].Status)
	assert.Empty(t, again[0].EventID)
	require.NotNil(t, again[0].Message)
	assert.Equal(t, sermonimport.English.Identical, *again[0].Message)

	events, sermons, _ := store.Counts()
	assert.Equal(t, 1, events)
	assert.Equal(t, 1, sermons)
}

func TestScenarioC_ChangedSpeakerIsReused(t *testing.T) {
	store := memstore.New()
	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.Import(ctx, []sermonimport.ImportRow{dienst("Jansen", "Zending")})
	require.NoError(t, err)

	changed := []sermonimport.ImportRow{dienst("Bakker", "Zending")}
	checked, err := engine.Check(ctx, changed)
	require.NoError(t, err)
	require.Len(t, checked, 1)
	assert.Equal(t, sermonimport.StatusExisting, checked[0].Status)
	require.NotNil(t, checked[0].SpeakerDiff)
	assert.Equal(t, "Jansen", *checked[0].SpeakerDiff.Before)
	assert.Equal(t, "Bakker", checked[0].SpeakerDiff.After)
	assert.Nil(t, checked[0].TitleDiff)

	imported, err := engine.Import(ctx, changed)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, sermonimport.StatusReused, imported[0].Status)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	persisted, err := store.EventsInRange(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	require.Len(t, persisted[0].Sermons, 1)
	assert.Equal(t, "Bakker", *persisted[0].Sermons[0].Speaker)
}

func TestScenarioD_EmptyBatch(t *testing.T) {
	engine := newEngine(memstore.New())

	results, err := engine.Check(context.Background(), []sermonimport.ImportRow{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sermonimport.StatusEmpty, results[0].Status)
}

func TestImport_CollectionSyncOnUpdate(t *testing.T) {
	store := memstore.New()
	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.Import(ctx, []sermonimport.ImportRow{dienst("Jansen", "Zending", "Bouw")})
	require.NoError(t, err)

	results, err := engine.Import(ctx, []sermonimport.ImportRow{dienst("Jansen", "zending", "Diaconie")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sermonimport.StatusReused, results[0].Status)
	require.NotNil(t, results[0].CollectionDiffs)
	assert.Equal(t, []string{"Diaconie"}, results[0].CollectionDiffs.Added)
	assert.Equal(t, []string{"Bouw"}, results[0].CollectionDiffs.Removed)

	cols, err := store.ListCollections(ctx, results[0].SermonID)
	require.NoError(t, err)
	var names []string
	for _, c := range cols {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Zending", "Diaconie"}, names)
}

func TestImport_RepeatedCollectionNamesConverge(t *testing.T) {
	store := memstore.New()
	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.Import(ctx, []sermonimport.ImportRow{dienst("Jansen", "Zending")})
	require.NoError(t, err)

	row := dienst("Jansen", "Zending", "zending")
	results, err := engine.Import(ctx, []sermonimport.ImportRow{row})
	require.NoError(t, err)
	require.Equal(t, sermonimport.StatusReused, results[0].Status)

	cols, err := store.ListCollections(ctx, results[0].SermonID)
	require.NoError(t, err)
	assert.Len(t, cols, 2)

	for run := 1; run <= 2; run++ {
		results, err = engine.Import(ctx, []sermonimport.ImportRow{row})
		require.NoError(t, err)
		assert.Equal(t, sermonimport.StatusSkipped, results[0].Status, "import run %d", run)
	}

	results, err = engine.Check(ctx, []sermonimport.ImportRow{row})
	require.NoError(t, err)
	assert.Equal(t, sermonimport.StatusSkipped, results[0].Status)
}

func TestImport_MixedBatch(t *testing.T) {
	store := memstore.New()
	engine := newEngine(store)

	evening := dienst("de Vries")
	evening.EventStartTime = str("2024-01-07T18:00:00Z")
	evening.EventEndTime = str("2024-01-07T19:00:00Z")

	noSpeaker := dienst("")

	results, err := engine.Import(context.Background(), []sermonimport.ImportRow{
		dienst("Jansen"),
		dienst("jansen"),
		noSpeaker,
		evening,
	})
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, sermonimport.StatusCreated, results[0].Status)
	assert.Equal(t, sermonimport.StatusDuplicate, results[1].Status)
	assert.Equal(t, sermonimport.StatusInvalid, results[2].Status)
	assert.Equal(t, sermonimport.StatusCreated, results[3].Status)

	events, _, _ := store.Counts()
	assert.Equal(t, 2, events)
}

// failingStore fails selected operations and otherwise delegates to memstore.
type failingStore struct {
	*memstore.Store
	failRead        bool
	failInsertEvent int // fail the n-th InsertEvent (1-based), 0 = never
	inserts         int
	failUpdate      bool
}

var errStorage = errors.New("storage unavailable")

func (f *failingStore) EventsInRange(ctx context.Context, from, to time.Time) ([]sermonimport.EventRecord, error) {
	if f.failRead {
		return nil, errStorage
	}
	return f.Store.EventsInRange(ctx, from, to)
}

func (f *failingStore) InsertEvent(ctx context.Context, in sermonimport.EventInput) (string, error) {
	f.inserts++
	if f.inserts == f.failInsertEvent {
		return "", errStorage
	}
	return f.Store.InsertEvent(ctx, in)
}

func (f *failingStore) UpdateSermon(ctx context.Context, id, speaker string) error {
	if f.failUpdate {
		return errStorage
	}
	return f.Store.UpdateSermon(ctx, id, speaker)
}

func TestImport_WriteFailureIsolatedPerRow(t *testing.T) {
	store := &failingStore{Store: memstore.New(), failInsertEvent: 1}
	engine := newEngine(store)

	second := dienst("Bakker")
	second.EventStartTime = str("2024-01-14T10:00:00Z")
	second.EventEndTime = str("2024-01-14T11:00:00Z")

	results, err := engine.Import(context.Background(), []sermonimport.ImportRow{dienst("Jansen"), second})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, sermonimport.StatusError, results[0].Status)
	require.NotNil(t, results[0].Message)
	assert.Equal(t, errStorage.Error(), *results[0].Message)
	assert.Equal(t, sermonimport.StatusCreated, results[1].Status)
}

func TestImport_UpdateFailure(t *testing.T) {
	store := &failingStore{Store: memstore.New()}
	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.Import(ctx, []sermonimport.ImportRow{dienst("Jansen")})
	require.NoError(t, err)

	store.failUpdate = true
	results, err := engine.Import(ctx, []sermonimport.ImportRow{dienst("Bakker")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sermonimport.StatusError, results[0].Status)
}

func TestCheck_ReadFailureFailsOpen(t *testing.T) {
	store := &failingStore{Store: memstore.New()}
	engine := newEngine(store)
	ctx := context.Background()

	_, err := engine.Import(ctx, []sermonimport.ImportRow{dienst("Jansen")})
	require.NoError(t, err)

	store.failRead = true
	results, err := engine.Check(ctx, []sermonimport.ImportRow{dienst("Jansen")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sermonimport.StatusNew, results[0].Status)
}

func TestCheck_LocalTimesUseLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)

	store := memstore.New()
	engine := sermonimport.New(store, sermonimport.WithLocation(loc))
	ctx := context.Background()

	_, err = engine.Import(ctx, []sermonimport.ImportRow{dienst("Jansen")})
	require.NoError(t, err)

	local := dienst("Jansen")
	local.EventStartTime = str("2024-01-07 11:00")
	local.EventEndTime = str("2024-01-07 12:00")

	results, err := engine.Check(ctx, []sermonimport.ImportRow{local})
	require.NoError(t, err)
	assert.Equal(t, sermonimport.StatusSkipped, results[0].Status)
	assert.Equal(t, "Overgeslagen", results[0].StatusLabel)
}

func TestCheck_CancelledContext(t *testing.T) {
	engine := newEngine(memstore.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Check(ctx, []sermonimport.ImportRow{dienst("Jansen")})
	assert.ErrorIs(t, err, context.Canceled)
}
