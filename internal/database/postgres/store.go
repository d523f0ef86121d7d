// Package postgres implements the sermon storage capability on PostgreSQL
// using a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

//go:embed schema.sql
var schema string

// PoolConfig holds connection pool sizing.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store persists events, sermons and collections in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ sermonimport.Store = (*Store)(nil)

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Open parses cfg, connects and verifies the connection.
func Open(ctx context.Context, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(pool), nil
}

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// translate maps constraint violations onto engine errors.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return fmt.Errorf("%s: %w: %s", op, sermonimport.ErrNotFound, pgErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}

const eventsInRangeQuery = `
SELECT e.id::text, e.title, e.start_time, e.end_time,
       s.id::text, s.speaker,
       c.id::text, c.name, c.description
FROM events e
LEFT JOIN sermons s ON s.event_id = e.id
LEFT JOIN collections c ON c.sermon_id = s.id
WHERE e.start_time >= $1 AND e.start_time <= $2
ORDER BY e.start_time, e.created_at, e.id, s.created_at, s.id, c.created_at, c.id`

// EventsInRange returns events starting in [from, to] with their sermons and
// collections.
func (s *Store) EventsInRange(ctx context.Context, from, to time.Time) ([]sermonimport.EventRecord, error) {
	rows, err := s.pool.Query(ctx, eventsInRangeQuery, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []sermonimport.EventRecord
	eventPos := make(map[string]int)
	sermonPos := make(map[string][2]int)

	for rows.Next() {
		var (
			eventID                string
			title                  *string
			start, end             time.Time
			sermonID, speaker      *string
			colID, colName, colDsc *string
		)
		if err := rows.Scan(&eventID, &title, &start, &end, &sermonID, &speaker, &colID, &colName, &colDsc); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		ei, ok := eventPos[eventID]
		if !ok {
			ei = len(events)
			eventPos[eventID] = ei
			events = append(events, sermonimport.EventRecord{
				ID:        eventID,
				Title:     title,
				StartTime: start.UTC(),
				EndTime:   end.UTC(),
				Sermons:   []sermonimport.SermonRecord{},
			})
		}
		if sermonID == nil {
			continue
		}

		pos, ok := sermonPos[*sermonID]
		if !ok {
			pos = [2]int{ei, len(events[ei].Sermons)}
			sermonPos[*sermonID] = pos
			events[ei].Sermons = append(events[ei].Sermons, sermonimport.SermonRecord{
				ID:          *sermonID,
				EventID:     eventID,
				Speaker:     speaker,
				Collections: []sermonimport.CollectionRecord{},
			})
		}
		if colID == nil || colName == nil {
			continue
		}

		sermon := &events[pos[0]].Sermons[pos[1]]
		sermon.Collections = append(sermon.Collections, sermonimport.CollectionRecord{
			ID:          *colID,
			SermonID:    *sermonID,
			Name:        *colName,
			Description: colDsc,
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
	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (id, title, start_time, end_time) VALUES ($1, $2, $3, $4)`,
		id, in.Title, in.StartTime.UTC(), in.EndTime.UTC(),
	)
	if err != nil {
		return "", translate("insert event", err)
	}
	return id, nil
}

// UpdateEvent overwrites title, start and end of an event.
func (s *Store) UpdateEvent(ctx context.Context, id string, in sermonimport.EventInput) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET title = $2, start_time = $3, end_time = $4 WHERE id = $1`,
		id, in.Title, in.StartTime.UTC(), in.EndTime.UTC(),
	)
	if err != nil {
		return translate("update event", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update event %s: %w", id, sermonimport.ErrNotFound)
	}
	return nil
}

// InsertSermon inserts a sermon under eventID.
func (s *Store) InsertSermon(ctx context.Context, eventID, speaker string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sermons (id, event_id, speaker) VALUES ($1, $2, $3)`,
		id, eventID, speaker,
	)
	if err != nil {
		return "", translate("insert sermon", err)
	}
	return id, nil
}

// UpdateSermon sets the speaker of a sermon.
func (s *Store) UpdateSermon(ctx context.Context, id, speaker string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sermons SET speaker = $2 WHERE id = $1`, id, speaker)
	if err != nil {
		return translate("update sermon", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update sermon %s: %w", id, sermonimport.ErrNotFound)
	}
	return nil
}

const insertCollectionSQL = `INSERT INTO collections (id, sermon_id, name, description) VALUES ($1, $2, $3, $4)`

// InsertCollections inserts all collections for sermonID in one batch.
func (s *Store) InsertCollections(ctx context.Context, sermonID string, in []sermonimport.CollectionInput) error {
	if len(in) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range in {
		batch.Queue(insertCollectionSQL, uuid.NewString(), sermonID, c.Name, c.Description)
	}

	br := s.pool.SendBatch(ctx, batch)
	for range in {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return translate("insert collections", err)
		}
	}
	if err := br.Close(); err != nil {
		return translate("insert collections", err)
	}
	return nil
}

// InsertCollection inserts one collection.
func (s *Store) InsertCollection(ctx context.Context, sermonID string, in sermonimport.CollectionInput) error {
	if _, err := s.pool.Exec(ctx, insertCollectionSQL, uuid.NewString(), sermonID, in.Name, in.Description); err != nil {
		return translate("insert collection", err)
	}
	return nil
}

// ListCollections returns the collections of sermonID.
func (s *Store) ListCollections(ctx context.Context, sermonID string) ([]sermonimport.CollectionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, sermon_id::text, name, description FROM collections WHERE sermon_id = $1 ORDER BY created_at, id`,
		sermonID,
	)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}

	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (sermonimport.CollectionRecord, error) {
		var c sermonimport.CollectionRecord
		err := row.Scan(&c.ID, &c.SermonID, &c.Name, &c.Description)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}
	return cols, nil
}

// UpdateCollection sets the description of a collection.
func (s *Store) UpdateCollection(ctx context.Context, id string, description *string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE collections SET description = $2 WHERE id = $1`, id, description)
	if err != nil {
		return translate("update collection", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update collection %s: %w", id, sermonimport.ErrNotFound)
	}
	return nil
}

// DeleteCollection removes a collection.
func (s *Store) DeleteCollection(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return translate("delete collection", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete collection %s: %w", id, sermonimport.ErrNotFound)
	}
	return nil
}
