package models

import (
	"encoding/json"
	"time"
)

// Event is one row of the append-only state-change log. The latest row for an
// event key is the current known state of that target; older rows are kept for
// audit. Consecutive rows for a key never repeat the same NewStatus.
type Event struct {
	ID                    int64      `json:"id" db:"id"`
	EventKey              string     `json:"event_key" db:"event_key"`
	PrevStatus            *Status    `json:"prev_status,omitempty" db:"prev_status"`
	NewStatus             Status     `json:"new_status" db:"new_status"`
	Message               string     `json:"message" db:"message"`
	Notified              bool       `json:"notified" db:"notified"`
	NotifiedAt            *time.Time `json:"notified_at,omitempty" db:"notified_at"`
	MaintenanceSuppressed bool       `json:"maintenance_suppressed" db:"maintenance_suppressed"`
	SleepSuppressed       bool       `json:"sleep_suppressed" db:"sleep_suppressed"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
}

// SleepEvent is a state change that was suppressed by the sleep schedule and
// queued for the next morning digest.
type SleepEvent struct {
	ID         int64           `json:"id" db:"id"`
	EventKey   string          `json:"event_key" db:"event_key"`
	Category   string          `json:"category" db:"category"`
	Name       string          `json:"name" db:"name"`
	PrevStatus *Status         `json:"prev_status,omitempty" db:"prev_status"`
	NewStatus  Status          `json:"new_status" db:"new_status"`
	Message    string          `json:"message" db:"message"`
	Details    json.RawMessage `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
