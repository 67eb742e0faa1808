package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/homesentry/homesentry/internal/models"
)

// SleepEventRepository queues state changes suppressed by the sleep schedule
// until the morning digest drains them.
type SleepEventRepository interface {
	Enqueue(ctx context.Context, params EnqueueSleepEventParams) error
	// Drain returns all queued entries oldest-first and deletes them in the
	// same transaction, so a digest never double-reports an entry.
	Drain(ctx context.Context) ([]models.SleepEvent, error)
}

type EnqueueSleepEventParams struct {
	EventKey   string
	Category   string
	Name       string
	PrevStatus *models.Status
	NewStatus  models.Status
	Message    string
	Details    map[string]any
}

type sleepEventRepository struct {
	db *sql.DB
}

func NewSleepEventRepository(db *sql.DB) SleepEventRepository {
	return &sleepEventRepository{db: db}
}

func (r *sleepEventRepository) Enqueue(ctx context.Context, params EnqueueSleepEventParams) error {
	const query = `
		INSERT INTO sentry.sleep_events (event_key, category, name, prev_status, new_status, message, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var prevStatus interface{}
	if params.PrevStatus != nil {
		prevStatus = string(*params.PrevStatus)
	}

	var details interface{}
	if len(params.Details) > 0 {
		bytes, err := json.Marshal(params.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
		details = bytes
	}

	_, err := r.db.ExecContext(ctx, query,
		params.EventKey, params.Category, params.Name, prevStatus,
		params.NewStatus, params.Message, details)
	return err
}

func (r *sleepEventRepository) Drain(ctx context.Context) ([]models.SleepEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin drain transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		SELECT id, event_key, category, name, prev_status, new_status, message, details, created_at
		FROM sentry.sleep_events
		ORDER BY created_at ASC, id ASC
	`

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.SleepEvent
	for rows.Next() {
		var (
			event      models.SleepEvent
			prevStatus sql.NullString
			details    []byte
		)
		if err := rows.Scan(
			&event.ID,
			&event.EventKey,
			&event.Category,
			&event.Name,
			&prevStatus,
			&event.NewStatus,
			&event.Message,
			&details,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		if prevStatus.Valid {
			val := models.Status(prevStatus.String)
			event.PrevStatus = &val
		}
		if len(details) > 0 {
			event.Details = details
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, "DELETE FROM sentry.sleep_events"); err != nil {
		return nil, fmt.Errorf("clear sleep queue: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit drain transaction: %w", err)
	}
	return events, nil
}
