package repository

import (
	"context"
	"database/sql"

	"github.com/homesentry/homesentry/internal/models"
)

// EventRepository is the append-only state-change log. The engine reads the
// latest row per event key to learn the previous status and appends a new row
// for every real transition; rows are never updated in place except to flag
// the latest row as notified.
type EventRepository interface {
	LatestByKey(ctx context.Context, eventKey string) (*models.Event, error)
	Insert(ctx context.Context, params InsertEventParams) (models.Event, error)
	MarkNotified(ctx context.Context, eventKey string) error
	ListRecent(ctx context.Context, limit int) ([]models.Event, error)
	DeleteOlderThan(ctx context.Context, days int) (int64, error)
}

type InsertEventParams struct {
	EventKey              string
	PrevStatus            *models.Status
	NewStatus             models.Status
	Message               string
	MaintenanceSuppressed bool
	SleepSuppressed       bool
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

// LatestByKey returns the most recent event row for the key, or nil when the
// key has never been seen.
func (r *eventRepository) LatestByKey(ctx context.Context, eventKey string) (*models.Event, error) {
	const query = `
		SELECT id, event_key, prev_status, new_status, message, notified, notified_at,
		       maintenance_suppressed, sleep_suppressed, created_at
		FROM sentry.events
		WHERE event_key = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	row := r.db.QueryRowContext(ctx, query, eventKey)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *eventRepository) Insert(ctx context.Context, params InsertEventParams) (models.Event, error) {
	const query = `
		INSERT INTO sentry.events (event_key, prev_status, new_status, message, maintenance_suppressed, sleep_suppressed)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, event_key, prev_status, new_status, message, notified, notified_at,
		          maintenance_suppressed, sleep_suppressed, created_at
	`

	var prevStatus interface{}
	if params.PrevStatus != nil {
		prevStatus = string(*params.PrevStatus)
	}

	row := r.db.QueryRowContext(ctx, query,
		params.EventKey, prevStatus, params.NewStatus, params.Message,
		params.MaintenanceSuppressed, params.SleepSuppressed)
	return scanEvent(row)
}

// MarkNotified flags the latest row for the key as delivered. Older rows keep
// their original notified state so the audit trail stays intact.
func (r *eventRepository) MarkNotified(ctx context.Context, eventKey string) error {
	const query = `
		UPDATE sentry.events
		SET notified = TRUE, notified_at = NOW()
		WHERE id = (
			SELECT id FROM sentry.events
			WHERE event_key = $1
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		)
	`
	_, err := r.db.ExecContext(ctx, query, eventKey)
	return err
}

func (r *eventRepository) ListRecent(ctx context.Context, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	const query = `
		SELECT id, event_key, prev_status, new_status, message, notified, notified_at,
		       maintenance_suppressed, sleep_suppressed, created_at
		FROM sentry.events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) DeleteOlderThan(ctx context.Context, days int) (int64, error) {
	const query = `
		DELETE FROM sentry.events
		WHERE created_at < NOW() - make_interval(days => $1)
	`
	result, err := r.db.ExecContext(ctx, query, days)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Event, error) {
	var (
		event      models.Event
		prevStatus sql.NullString
		notifiedAt sql.NullTime
	)

	if err := scanner.Scan(
		&event.ID,
		&event.EventKey,
		&prevStatus,
		&event.NewStatus,
		&event.Message,
		&event.Notified,
		&notifiedAt,
		&event.MaintenanceSuppressed,
		&event.SleepSuppressed,
		&event.CreatedAt,
	); err != nil {
		return models.Event{}, err
	}

	if prevStatus.Valid {
		val := models.Status(prevStatus.String)
		event.PrevStatus = &val
	}
	if notifiedAt.Valid {
		t := notifiedAt.Time
		event.NotifiedAt = &t
	}

	return event, nil
}
