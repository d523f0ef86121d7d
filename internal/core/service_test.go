package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/sermonimport/internal/config"
	"github.com/JonMunkholm/sermonimport/internal/database/memstore"
	"github.com/JonMunkholm/sermonimport/internal/logging"
	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

func testConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{
			Locale:        "en",
			Timezone:      "UTC",
			MaxRows:       3,
			Timeout:       time.Minute,
			MaxConcurrent: 1,
			MaxWaitTime:   50 * time.Millisecond,
		},
		Calendar: config.CalendarConfig{Name: "Sermons", DaysBack: 7, DaysAhead: 14},
	}
}

func str(s string) *string { return &s }

func row(start, end, speaker string) sermonimport.ImportRow {
	return sermonimport.ImportRow{
		EventTitle:     str("Sunday service"),
		EventStartTime: str(start),
		EventEndTime:   str(end),
		Speaker:        str(speaker),
	}
}

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc, err := NewService(store, testConfig())
	require.NoError(t, err)
	return svc, store
}

func TestService_CheckEmptyBatch(t *testing.T) {
	svc, _ := newTestService(t)

	results, err := svc.Check(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sermonimport.StatusEmpty, results[0].Status)
	assert.Equal(t, "Empty", results[0].StatusLabel)
}

func TestService_ImportEmptyBatch(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Import(context.Background(), []sermonimport.ImportRow{})
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestService_BatchTooLarge(t *testing.T) {
	svc, store := newTestService(t)
	rows := make([]sermonimport.ImportRow, 4)
	for i := range rows {
		rows[i] = row("2024-03-10T09:30:00Z", "2024-03-10T11:00:00Z", "Jansen")
	}

	_, err := svc.Check(context.Background(), rows)
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	_, err = svc.Import(context.Background(), rows)
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	events, _, _ := store.Counts()
	assert.Zero(t, events)
}

func TestService_ImportThenEvents(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	results, err := svc.Import(ctx, []sermonimport.ImportRow{
		row("2024-03-10T09:30:00Z", "2024-03-10T11:00:00Z", "Jansen"),
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, sermonimport.StatusCreated, results[0].Status)
	assert.NotEmpty(t, results[0].EventID)

	events, sermons, _ := store.Counts()
	assert.Equal(t, 1, events)
	assert.Equal(t, 1, sermons)

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	listed, err := svc.Events(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Sermons, 1)
	assert.Equal(t, "Jansen", *listed[0].Sermons[0].Speaker)

	feed, err := svc.CalendarFeed(ctx, from, to)
	require.NoError(t, err)
	assert.Contains(t, feed, "BEGIN:VEVENT")
	assert.Contains(t, feed, "SUMMARY:Sunday service")
	assert.Contains(t, feed, "X-WR-CALNAME:Sermons")
}

func TestService_ImportLogKeysAreUnique(t *testing.T) {
	svc, _ := newTestService(t)
	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New(&buf, "info", "text"))

	_, err := svc.Import(ctx, []sermonimport.ImportRow{
		row("2024-03-10T09:30:00Z", "2024-03-10T11:00:00Z", "Jansen"),
	})
	require.NoError(t, err)

	var processed string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, strings.Count(line, " rows="), 1, "line: %s", line)
		if strings.Contains(line, "sermon batch processed") {
			processed = line
		}
	}
	require.NotEmpty(t, processed)
	assert.Contains(t, processed, "input_rows=1")
	assert.Contains(t, processed, " rows=1")
}

func TestService_EventsRejectsInvertedRange(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	_, err := svc.Events(context.Background(), now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestService_EventsEmptyIsNotNil(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Now()

	events, err := svc.Events(context.Background(), now, now.Add(time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestService_DefaultRange(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC)

	from, to := svc.DefaultRange(now)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 24, 23, 59, 59, int(999*time.Millisecond), time.UTC), to)
}

func TestService_ResolveRange(t *testing.T) {
	svc, _ := newTestService(t)
	now := time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC)
	defFrom, defTo := svc.DefaultRange(now)

	tests := []struct {
		name     string
		from, to string
		wantFrom time.Time
		wantTo   time.Time
		wantErr  bool
	}{
		{name: "defaults", wantFrom: defFrom, wantTo: defTo},
		{
			name:     "date only covers whole day",
			from:     "2024-03-01",
			to:       "2024-03-31",
			wantFrom: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 3, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC),
		},
		{
			name:     "full timestamps",
			from:     "2024-03-01T10:00:00Z",
			to:       "2024-03-02T10:00:00+01:00",
			wantFrom: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			wantTo:   time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		{name: "garbage", from: "yesterday", wantErr: true},
		{name: "inverted", from: "2024-03-31", to: "2024-03-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := svc.ResolveRange(tt.from, tt.to, now)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.wantFrom.Equal(from), "from = %v, want %v", from, tt.wantFrom)
			assert.True(t, tt.wantTo.Equal(to), "to = %v, want %v", to, tt.wantTo)
		})
	}
}

// blockingStore holds every InsertEvent until release is closed.
type blockingStore struct {
	*memstore.Store
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStore) InsertEvent(ctx context.Context, in sermonimport.EventInput) (string, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.Store.InsertEvent(ctx, in)
}

func TestService_ImportsAreSerialized(t *testing.T) {
	store := &blockingStore{
		Store:   memstore.New(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, err := NewService(store, testConfig())
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := svc.Import(context.Background(), []sermonimport.ImportRow{
			row("2024-03-10T09:30:00Z", "2024-03-10T11:00:00Z", "Jansen"),
		})
		first <- err
	}()
	<-store.started

	assert.Equal(t, 1, svc.ImportLimiterStatus().Active)

	_, err = svc.Import(context.Background(), []sermonimport.ImportRow{
		row("2024-03-17T09:30:00Z", "2024-03-17T11:00:00Z", "Pietersen"),
	})
	assert.ErrorIs(t, err, ErrTooManyImports)
	assert.Equal(t, "IMP001", MapError(err).Code)

	close(store.release)
	require.NoError(t, <-first)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, svc.WaitForImports(ctx))
}

func TestService_CancelledContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Check(ctx, []sermonimport.ImportRow{row("2024-03-10T09:30:00Z", "2024-03-10T11:00:00Z", "Jansen")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewService_BadTimezone(t *testing.T) {
	cfg := testConfig()
	cfg.Import.Timezone = "Nowhere/Special"

	_, err := NewService(memstore.New(), cfg)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "timezone"))
}
