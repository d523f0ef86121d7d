package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sermonimport/internal/calendar"
	"github.com/JonMunkholm/sermonimport/internal/config"
	"github.com/JonMunkholm/sermonimport/internal/logging"
	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

// Store is the persistence the service needs: the engine's storage capability
// plus a health check.
type Store interface {
	sermonimport.Store
	Ping(ctx context.Context) error
}

// Service is the entry point for check, import and read operations. It adds
// batch limits, timeouts and import serialization on top of the engine.
type Service struct {
	store   Store
	engine  *sermonimport.Engine
	limiter *ImportLimiter

	maxRows   int
	timeout   time.Duration
	calName   string
	daysBack  int
	daysAhead int
}

// NewService creates a Service from configuration.
func NewService(store Store, cfg *config.Config) (*Service, error) {
	loc, err := cfg.Import.Location()
	if err != nil {
		return nil, fmt.Errorf("load import timezone: %w", err)
	}

	engine := sermonimport.New(store,
		sermonimport.WithMessages(sermonimport.MessagesFor(cfg.Import.Locale)),
		sermonimport.WithLocation(loc),
	)

	return &Service{
		store:     store,
		engine:    engine,
		limiter:   NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		maxRows:   cfg.Import.MaxRows,
		timeout:   cfg.Import.Timeout,
		calName:   cfg.Calendar.Name,
		daysBack:  cfg.Calendar.DaysBack,
		daysAhead: cfg.Calendar.DaysAhead,
	}, nil
}

// Messages returns the catalog rows are reported in.
func (s *Service) Messages() sermonimport.Messages {
	return s.engine.Messages()
}

// Check reports what an import of rows would do. An empty batch yields the
// single Empty row.
func (s *Service) Check(ctx context.Context, rows []sermonimport.ImportRow) ([]sermonimport.ResultRow, error) {
	if err := s.checkSize(rows); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	results, err := s.engine.Check(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	return results, nil
}

// Import writes rows to the store. An empty batch is rejected with ErrNoRows.
// Only one import runs at a time unless IMPORT_MAX_CONCURRENT says otherwise.
func (s *Service) Import(ctx context.Context, rows []sermonimport.ImportRow) ([]sermonimport.ResultRow, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	if err := s.checkSize(rows); err != nil {
		return nil, err
	}

	importID := uuid.NewString()
	logger := logging.WithFields(ctx, "import_id", importID, "input_rows", len(rows))
	ctx = logging.WithLogger(ctx, logger)

	waitStart := time.Now()
	if err := s.limiter.Acquire(ctx); err != nil {
		logger.Warn("import rejected", "error", err, "waited_ms", time.Since(waitStart).Milliseconds())
		return nil, fmt.Errorf("import: %w", err)
	}
	defer s.limiter.Release()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	logger.Info("import started")
	results, err := s.engine.Import(ctx, rows)
	if err != nil {
		logger.Error("import aborted", "error", err)
		return nil, fmt.Errorf("import: %w", err)
	}
	return results, nil
}

// Events returns persisted events that start in [from, to].
func (s *Service) Events(ctx context.Context, from, to time.Time) ([]sermonimport.EventRecord, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to is before from", ErrInvalidRange)
	}
	events, err := s.store.EventsInRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []sermonimport.EventRecord{}
	}
	return events, nil
}

// CalendarFeed renders the events in [from, to] as iCalendar text.
func (s *Service) CalendarFeed(ctx context.Context, from, to time.Time) (string, error) {
	events, err := s.Events(ctx, from, to)
	if err != nil {
		return "", err
	}
	feed := calendar.Feed{Name: s.calName, Events: events}
	return feed.Render(), nil
}

// ResolveRange parses optional from/to query values. Missing bounds come from
// DefaultRange; a date-only to covers that whole day.
func (s *Service) ResolveRange(fromStr, toStr string, now time.Time) (from, to time.Time, err error) {
	from, to = s.DefaultRange(now)
	loc := s.engine.Location()

	if fromStr = strings.TrimSpace(fromStr); fromStr != "" {
		t, ok := sermonimport.ParseDateTime(fromStr, loc)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: from %q", ErrInvalidRange, fromStr)
		}
		from = t
	}
	if toStr = strings.TrimSpace(toStr); toStr != "" {
		t, ok := sermonimport.ParseDateTime(toStr, loc)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: to %q", ErrInvalidRange, toStr)
		}
		if len(toStr) == len(time.DateOnly) {
			t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		to = t
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to is before from", ErrInvalidRange)
	}
	return from, to, nil
}

// DefaultRange is the window used when a caller gives no from/to.
func (s *Service) DefaultRange(now time.Time) (from, to time.Time) {
	day := now.UTC().Truncate(24 * time.Hour)
	return day.AddDate(0, 0, -s.daysBack), day.AddDate(0, 0, s.daysAhead+1).Add(-time.Millisecond)
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ImportLimiterStatus reports the limiter state.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx is done.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) checkSize(rows []sermonimport.ImportRow) error {
	if s.maxRows > 0 && len(rows) > s.maxRows {
		slog.Warn("batch rejected", "rows", len(rows), "max_rows", s.maxRows)
		return fmt.Errorf("%w: %d rows, limit is %d", ErrBatchTooLarge, len(rows), s.maxRows)
	}
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
