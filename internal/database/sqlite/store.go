// Package sqlite implements the sermon storage capability on SQLite using the
// pure Go modernc.org/sqlite driver.
//
// Timestamps are stored as canonical ISO-8601 text, which sorts and compares
// correctly as plain strings.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store persists events, sermons and collections in a SQLite file.
type Store struct {
	db *sql.DB
}

var _ sermonimport.Store = (*Store)(nil)

// Open opens (and creates when missing) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "sermons.db"
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: writes are serialized and an in-memory database is not
	// lost when the pool recycles a connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() {
	_ = s.db.Close()
}

func formatTime(t time.Time) string {
	return sermonimport.FormatCanonical(t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sermonimport.CanonicalLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, sermonimport.ErrNotFound)
	}
	return nil
}

const eventsInRangeQuery = `
SELECT e.id, e.title, e.start_time, e.end_time,
       s.id, s.speaker,
       c.id, c.name, c.description
FROM events e
LEFT JOIN sermons s ON s.event_id = e.id
LEFT JOIN collections c ON c.sermon_id = s.id
WHERE e.start_time >= ? AND e.start_time <= ?
ORDER BY e.start_time, e.rowid, s.rowid, c.rowid`

// EventsInRange returns events starting in [from, to] with their sermons and
// collections.
func (s *Store) EventsInRange(ctx context.Context, from, to time.Time) ([]sermonimport.EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, eventsInRangeQuery, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []sermonimport.EventRecord
	eventPos := make(map[string]int)
	sermonPos := make(map[string][2]int)

	for rows.Next() {
		var (
			eventID, startRaw, endRaw string
			title                     sql.NullString
			sermonID, speaker         sql.NullString
			colID, colName, colDesc   sql.NullString
		)
		if err := rows.Scan(&eventID, &title, &startRaw, &endRaw, &sermonID, &speaker, &colID, &colName, &colDesc); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		ei, ok := eventPos[eventID]
		if !ok {
			start, err := parseTime(startRaw)
			if err != nil {
				return nil, err
			}
			end, err := parseTime(endRaw)
			if err != nil {
				return nil, err
			}
			ei = len(events)
			eventPos[eventID] = ei
			events = append(events, sermonimport.EventRecord{
				ID:        eventID,
				Title:     nullString(title),
				StartTime: start,
				EndTime:   end,
				Sermons:   []sermonimport.SermonRecord{},
			})
		}
		if !sermonID.Valid {
			continue
		}

		pos, ok := sermonPos[sermonID.String]
		if !ok {
			pos = [2]int{ei, len(events[ei].Sermons)}
			sermonPos[sermonID.String] = pos
			events[ei].Sermons = append(events[ei].Sermons, sermonimport.SermonRecord{
				ID:          sermonID.String,
				EventID:     eventID,
				Speaker:     nullString(speaker),
				Collections: []sermonimport.CollectionRecord{},
			})
		}
		if !colID.Valid || !colName.Valid {
			continue
		}

		sermon := &events[pos[0]].Sermons[pos[1]]
		sermon.Collections = append(sermon.Collections, sermonimport.CollectionRecord{
			ID:          colID.String,
			SermonID:    sermonID.String,
			Name:        colName.String,
			Description: nullString(colDesc),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// InsertEvent inserts an event and returns its id.
func (s *Store) InsertEvent(ctx context.Context, in sermonimport.EventInput) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, title, start_time, end_time) VALUES (?, ?, ?, ?)`,
		id, in.Title, formatTime(in.StartTime), formatTime(in.EndTime),
	)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// UpdateEvent overwrites title, start and end of an event.
func (s *Store) UpdateEvent(ctx context.Context, id string, in sermonimport.EventInput) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET title = ?, start_time = ?, end_time = ? WHERE id = ?`,
		in.Title, formatTime(in.StartTime), formatTime(in.EndTime), id,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return requireAffected(res, "update event", id)
}

// InsertSermon inserts a sermon under eventID.
func (s *Store) InsertSermon(ctx context.Context, eventID, speaker string) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sermons (id, event_id, speaker) VALUES (?, ?, ?)`,
		id, eventID, speaker,
	); err != nil {
		return "", fmt.Errorf("insert sermon: %w", err)
	}
	return id, nil
}

// UpdateSermon sets the speaker of a sermon.
func (s *Store) UpdateSermon(ctx context.Context, id, speaker string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sermons SET speaker = ? WHERE id = ?`, speaker, id)
	if err != nil {
		return fmt.Errorf("update sermon: %w", err)
	}
	return requireAffected(res, "update sermon", id)
}

const insertCollectionSQL = `INSERT INTO collections (id, sermon_id, name, description) VALUES (?, ?, ?, ?)`

// InsertCollections inserts all collections for sermonID in one transaction.
func (s *Store) InsertCollections(ctx context.Context, sermonID string, in []sermonimport.CollectionInput) (retErr error) {
	if len(in) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, c := range in {
		if _, err := tx.ExecContext(ctx, insertCollectionSQL, uuid.NewString(), sermonID, c.Name, c.Description); err != nil {
			return fmt.Errorf("insert collections: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit collections: %w", err)
	}
	return nil
}

// InsertCollection inserts one collection.
func (s *Store) InsertCollection(ctx context.Context, sermonID string, in sermonimport.CollectionInput) error {
	if _, err := s.db.ExecContext(ctx, insertCollectionSQL, uuid.NewString(), sermonID, in.Name, in.Description); err != nil {
		return fmt.Errorf("insert collection: %w", err)
	}
	return nil
}

// ListCollections returns the collections of sermonID.
func (s *Store) ListCollections(ctx context.Context, sermonID string) ([]sermonimport.CollectionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sermon_id, name, description FROM collections WHERE sermon_id = ? ORDER BY rowid`,
		sermonID,
	)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cols []sermonimport.CollectionRecord
	for rows.Next() {
		var (
			c    sermonimport.CollectionRecord
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.SermonID, &c.Name, &desc); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		c.Description = nullString(desc)
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return cols, nil
}

// UpdateCollection sets the description of a collection.
func (s *Store) UpdateCollection(ctx context.Context, id string, description *string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE collections SET description = ? WHERE id = ?`, description, id)
	if err != nil {
		return fmt.Errorf("update collection: %w", err)
	}
	return requireAffected(res, "update collection", id)
}

// DeleteCollection removes a collection.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return requireAffected(res, "delete collection", id)
}
