package notification

import (
	"context"
	"time"

	"github.com/homesentry/homesentry/internal/models"
	"github.com/rs/zerolog"
)

// Embed colors, matching the webhook's RGB-as-integer convention.
const (
	ColorOK     = 0x00FF00
	ColorWarn   = 0xFFFF00
	ColorFail   = 0xFF0000
	ColorOrange = 0xFFA500
)

// Message is a single webhook payload: a status-colored embed with a field
// list, rendered by one of the category formatters or the digest builder.
type Message struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Color       int       `json:"color"`
	Fields      []Field   `json:"fields,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Footer      string    `json:"-"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Notifier delivers a formatted message to the configured destination.
// Implementations report delivery failure as an error and never panic; the
// caller decides whether a failed delivery matters.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// LogSendError records a failed delivery with consistent fields. Callers that
// treat failures as advisory use this instead of propagating the error.
func LogSendError(logger zerolog.Logger, err error, title string) {
	if err == nil {
		return
	}
	logger.Error().
		Err(err).
		Str("title", title).
		Msg("failed to deliver webhook message")
}

// StatusColor maps a status to its embed color. Unrecognized statuses get the
// WARN color as a safe default.
func StatusColor(status models.Status) int {
	switch status {
	case models.StatusOK:
		return ColorOK
	case models.StatusFail:
		return ColorFail
	default:
		return ColorWarn
	}
}

// StatusGlyph returns the indicator glyph for a status.
func StatusGlyph(status models.Status) string {
	switch status {
	case models.StatusOK:
		return "🟢"
	case models.StatusWarn:
		return "🟡"
	case models.StatusFail:
		return "🔴"
	default:
		return "⚪"
	}
}
