package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/event-scheduling-service/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

const eventColumns = `id, profiles, time_zone, created_by, start_time, end_time, created_at, updated_at`

// PostgresStore is the durable persistence layer for events, their audit log and participants.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// InsertEvent persists ev and returns inserted=false when an event with the same
// id already exists, in which case the existing row is returned.
//
// Duplicate detection relies on the primary key, which makes client retries with
// the same Idempotency-Key safe.
func (p *PostgresStore) InsertEvent(ctx context.Context, ev models.Event) (models.Event, bool, error) {
	// RETURNING only yields a row when inserted; duplicates return no rows.
	err := p.pool.QueryRow(ctx, `
		INSERT INTO events(id, profiles, time_zone, created_by, start_time, end_time)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO NOTHING
		RETURNING created_at, updated_at
	`, ev.ID, ev.Profiles, ev.TimeZone, ev.CreatedBy, ev.StartTime, ev.EndTime).Scan(&ev.CreatedAt, &ev.UpdatedAt)

	if err == nil {
		ev.CreatedAt = ev.CreatedAt.UTC()
		ev.UpdatedAt = ev.UpdatedAt.UTC()
		if ev.Logs == nil {
			ev.Logs = []models.LogEntry{}
		}
		return ev, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Event{}, false, err
	}

	existing, found, err := p.GetEvent(ctx, ev.ID)
	if err != nil {
		return models.Event{}, false, err
	}
	if !found {
		return models.Event{}, false, fmt.Errorf("event %s conflicted but is not readable", ev.ID)
	}
	return existing, false, nil
}

// GetEvent loads one event with its full log.
func (p *PostgresStore) GetEvent(ctx context.Context, id string) (models.Event, bool, error) {
	ev, err := scanEvent(p.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Event{}, false, nil
	}
	if err != nil {
		return models.Event{}, false, err
	}

	logs, err := loadLogs(ctx, p.pool, []string{id})
	if err != nil {
		return models.Event{}, false, err
	}
	ev.Logs = logsOrEmpty(logs[id])
	return ev, true, nil
}

// ListEventsByParticipant returns every event whose profiles contain participantID,
// ordered by start time.
func (p *PostgresStore) ListEventsByParticipant(ctx context.Context, participantID string) ([]models.Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE profiles @> ARRAY[$1]::TEXT[]
		ORDER BY start_time, id
	`, participantID)
	if err != nil {
		return nil, err
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Event, error) {
		return scanEvent(row)
	})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []models.Event{}, nil
	}

	ids := make([]string, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}
	logs, err := loadLogs(ctx, p.pool, ids)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Logs = logsOrEmpty(logs[events[i].ID])
	}
	return events, nil
}

// UpdateEvent runs a read-modify-write on one event inside a transaction.
//
// The row is locked with SELECT ... FOR UPDATE before apply sees it, so
// concurrent updates of the same event serialize and each one diffs against the
// state left by the previous. The field update and the log insert commit together.
func (p *PostgresStore) UpdateEvent(
	ctx context.Context,
	id string,
	apply func(current models.Event) (*models.EventChange, error),
) (bool, error) {
	found := false
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		cur, err := scanEvent(tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id=$1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		logs, err := loadLogs(ctx, tx, []string{id})
		if err != nil {
			return err
		}
		cur.Logs = logsOrEmpty(logs[id])

		change, err := apply(cur)
		if err != nil || change == nil {
			return err
		}

		f := change.Fields
		if _, err := tx.Exec(ctx, `
			UPDATE events
			SET profiles=$2, time_zone=$3, start_time=$4, end_time=$5, updated_at=$6
			WHERE id=$1
		`, id, f.Profiles, f.TimeZone, f.StartTime, f.EndTime, change.Log.At); err != nil {
			return fmt.Errorf("update fields: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO event_logs(event_id, description, at) VALUES ($1,$2,$3)
		`, id, change.Log.Description, change.Log.At); err != nil {
			return fmt.Errorf("append log: %w", err)
		}
		return nil
	})
	return found, err
}

// InsertUser stores u and returns false when its username is already taken.
func (p *PostgresStore) InsertUser(ctx context.Context, u models.User) (bool, error) {
	var one int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO users(id, username) VALUES ($1,$2)
		ON CONFLICT (username) DO NOTHING
		RETURNING 1
	`, u.ID, u.Username).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// ListUsers returns every participant ordered by username.
func (p *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, username FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[models.User])
}

// FindUsers returns the participants among ids that exist. Order is unspecified.
func (p *PostgresStore) FindUsers(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	rows, err := p.pool.Query(ctx, `SELECT id, username FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[models.User])
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanEvent(row pgx.Row) (models.Event, error) {
	var ev models.Event
	err := row.Scan(&ev.ID, &ev.Profiles, &ev.TimeZone, &ev.CreatedBy,
		&ev.StartTime, &ev.EndTime, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return models.Event{}, err
	}
	ev.StartTime = ev.StartTime.UTC()
	ev.EndTime = ev.EndTime.UTC()
	ev.CreatedAt = ev.CreatedAt.UTC()
	ev.UpdatedAt = ev.UpdatedAt.UTC()
	return ev, nil
}

// loadLogs fetches the audit entries of ids in append order, grouped by event id.
func loadLogs(ctx context.Context, q querier, ids []string) (map[string][]models.LogEntry, error) {
	rows, err := q.Query(ctx, `
		SELECT event_id, description, at
		FROM event_logs
		WHERE event_id = ANY($1)
		ORDER BY event_id, seq
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]models.LogEntry, len(ids))
	for rows.Next() {
		var (
			eventID string
			entry   models.LogEntry
		)
		if err := rows.Scan(&eventID, &entry.Description, &entry.At); err != nil {
			return nil, err
		}
		entry.At = entry.At.UTC()
		out[eventID] = append(out[eventID], entry)
	}
	return out, rows.Err()
}

func logsOrEmpty(logs []models.LogEntry) []models.LogEntry {
	if logs == nil {
		return []models.LogEntry{}
	}
	return logs
}
