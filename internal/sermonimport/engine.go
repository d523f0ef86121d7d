// Package sermonimport implements the sermon import reconciliation engine.
//
// A batch flows through fixed stages:
//
//  1. Normalize: trim every field of the untrusted rows
//  2. Validate: required fields and time ordering, first failure wins
//  3. MarkDuplicates: repeated (start time, speaker) pairs in the batch
//  4. Matcher: look up persisted sermons at the same start time
//  5. Diff and Decide: Skipped when identical, Existing when changed
//  6. Executor: create or update rows, one at a time (Import only)
//  7. SyncCollections: name-keyed collection reconciliation (Import only)
//
// Check runs stages 1-5 and never writes. Import runs all of them. Row-level
// problems are reported as row status and message, never as Go errors.
package sermonimport

import (
	"context"
	"time"

	"github.com/JonMunkholm/sermonimport/internal/logging"
	"github.com/JonMunkholm/sermonimport/internal/metrics"
)

// Engine wires the pipeline stages to a Store.
type Engine struct {
	store Store
	msgs  Messages
	loc   *time.Location
}

// Option configures an Engine.
type Option func(*Engine)

// WithMessages sets the message catalog.
func WithMessages(m Messages) Option {
	return func(e *Engine) { e.msgs = m }
}

// WithLocation sets the location used for date-times without an offset.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// New creates an Engine backed by store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		msgs:  Dutch,
		loc:   time.UTC,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Messages returns the catalog the engine reports with.
func (e *Engine) Messages() Messages {
	return e.msgs
}

// Location returns the location used for date-times without an offset.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Check validates rows and reports what Import would do. It does not write.
func (e *Engine) Check(ctx context.Context, rows []ImportRow) ([]ResultRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	results := e.check(ctx, rows)
	e.finish(ctx, "check", results, start)
	return results, nil
}

// Import checks rows and then writes New and Existing rows to the store.
func (e *Engine) Import(ctx context.Context, rows []ImportRow) ([]ResultRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	metrics.ImportsInFlight.Inc()
	defer metrics.ImportsInFlight.Dec()

	checked := e.check(ctx, rows)
	results := NewExecutor(e.store, e.msgs, logging.FromContext(ctx)).Execute(ctx, checked)
	e.finish(ctx, "import", results, start)
	return results, nil
}

func (e *Engine) check(ctx context.Context, rows []ImportRow) []ResultRow {
	validated := NewValidator(e.msgs, e.loc).ValidateRows(rows)
	deduped := MarkDuplicates(validated, e.msgs)
	return NewMatcher(e.store, e.msgs).Match(ctx, deduped)
}

// finish labels rows and records metrics for a completed run.
func (e *Engine) finish(ctx context.Context, op string, rows []ResultRow, start time.Time) {
	for i := range rows {
		rows[i].StatusLabel = e.msgs.Label(rows[i].Status)
		metrics.RowsTotal.WithLabelValues(op, rows[i].Status.String()).Inc()
	}
	elapsed := time.Since(start)
	metrics.RunDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	args := []any{"operation", op, "rows", len(rows), "duration_ms", elapsed.Milliseconds()}
	for status, n := range Summarize(rows) {
		args = append(args, status.String(), n)
	}
	logging.FromContext(ctx).Info("sermon batch processed", args...)
}
