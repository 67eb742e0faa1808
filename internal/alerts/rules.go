package alerts

import (
	"strings"
	"time"

	"github.com/homesentry/homesentry/internal/models"
	"github.com/rs/zerolog"
)

// EventKey derives the stable identifier used to correlate observations of the
// same target over time: "service_plex", "disk_/mnt/array", "system_cpu".
func EventKey(category, name string) string {
	clean := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	return strings.ToLower(category) + "_" + clean
}

// shouldAlert is the state-change gate:
//  1. first-ever detection always alerts
//  2. no status change never alerts
//  3. recovery to OK always alerts
//  4. a strictly worse status always alerts
//  5. improvement short of OK (e.g. FAIL→WARN) alerts only outside the cooldown
func shouldAlert(eventKey string, prev *models.Status, next models.Status, lastNotifiedAt *time.Time, cooldown time.Duration, now time.Time, logger zerolog.Logger) bool {
	if prev == nil {
		logger.Info().Str("event_key", eventKey).Str("status", string(next)).Msg("first detection, will alert")
		return true
	}

	if *prev == next {
		logger.Debug().Str("event_key", eventKey).Str("status", string(next)).Msg("no status change, no alert")
		return false
	}

	if next == models.StatusOK {
		logger.Info().Str("event_key", eventKey).Str("prev", string(*prev)).Msg("recovery detected, will alert")
		return true
	}

	if next.WorseThan(*prev) {
		logger.Info().
			Str("event_key", eventKey).
			Str("prev", string(*prev)).
			Str("status", string(next)).
			Msg("status worsened, will alert")
		return true
	}

	// Status improved but not to OK: throttle repeats of the same improvement.
	if lastNotifiedAt != nil {
		elapsed := now.Sub(*lastNotifiedAt)
		if elapsed < cooldown {
			logger.Info().
				Str("event_key", eventKey).
				Dur("since_last_alert", elapsed).
				Msg("alert suppressed by cooldown")
			return false
		}
	}

	logger.Info().
		Str("event_key", eventKey).
		Str("prev", string(*prev)).
		Str("status", string(next)).
		Msg("status changed, will alert")
	return true
}
