package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/homesentry/homesentry/internal/models"
	"github.com/rs/zerolog"
)

// PendingState tracks one event key that has gone bad but has not yet been bad
// for enough consecutive checks to alert on.
type PendingState struct {
	EventKey          string         `json:"event_key"`
	BadStatus         models.Status  `json:"bad_status"`
	PrevStatus        *models.Status `json:"prev_status,omitempty"`
	FirstSeenAt       time.Time      `json:"first_seen_at"`
	ConsecutiveChecks int            `json:"consecutive_checks"`
}

// GraceTracker absorbs transient flaps by requiring a minimum run of
// consecutive bad observations before an alert may proceed. State lives only
// in memory: a process restart resets every counter to zero. That is a known
// limitation, not something callers should try to compensate for.
type GraceTracker struct {
	threshold int
	logger    zerolog.Logger

	mu      sync.Mutex
	pending map[string]*PendingState
}

func NewGraceTracker(threshold int, logger zerolog.Logger) *GraceTracker {
	if threshold < 1 {
		threshold = 1
	}
	return &GraceTracker{
		threshold: threshold,
		logger:    logger.With().Str("component", "grace_tracker").Logger(),
		pending:   make(map[string]*PendingState),
	}
}

// Evaluate decides whether an observation may proceed to the state-change
// gate. Recovery to OK always proceeds and discards any pending state; a bad
// status proceeds only once it has been seen threshold times in a row.
func (t *GraceTracker) Evaluate(eventKey string, current models.Status, prev *models.Status) (bool, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// No grace period for good news.
	if current == models.StatusOK {
		if state, ok := t.pending[eventKey]; ok {
			t.logger.Info().
				Str("event_key", eventKey).
				Int("checks", state.ConsecutiveChecks).
				Msg("recovery during grace period, discarding pending state")
			delete(t.pending, eventKey)
		}
		return true, "recovery to OK"
	}

	state, tracked := t.pending[eventKey]

	// First-ever sighting, or a fresh OK→bad transition: start counting.
	if !tracked && (prev == nil || *prev == models.StatusOK) {
		if t.threshold <= 1 {
			return true, "grace period passed (1 check)"
		}
		t.pending[eventKey] = &PendingState{
			EventKey:          eventKey,
			BadStatus:         current,
			PrevStatus:        prev,
			FirstSeenAt:       time.Now(),
			ConsecutiveChecks: 1,
		}
		t.logger.Info().
			Str("event_key", eventKey).
			Str("status", string(current)).
			Msgf("started grace period (1/%d)", t.threshold)
		return false, fmt.Sprintf("started grace period (1/%d)", t.threshold)
	}

	if tracked {
		state.ConsecutiveChecks++
		state.BadStatus = current

		if state.ConsecutiveChecks >= t.threshold {
			delete(t.pending, eventKey)
			t.logger.Info().
				Str("event_key", eventKey).
				Int("checks", state.ConsecutiveChecks).
				Msg("grace period passed")
			return true, fmt.Sprintf("grace period passed (%d checks)", state.ConsecutiveChecks)
		}

		return false, fmt.Sprintf("in grace period (%d/%d)", state.ConsecutiveChecks, t.threshold)
	}

	// Bad→bad with nothing tracked should not occur given the calling
	// contract; proceed with the alert rather than silently dropping it.
	t.logger.Warn().
		Str("event_key", eventKey).
		Str("status", string(current)).
		Msg("status change without pending state, proceeding with alert")
	return true, "status change without pending state"
}

// Pending returns a snapshot of all pending states, for the status API.
func (t *GraceTracker) Pending() []PendingState {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]PendingState, 0, len(t.pending))
	for _, state := range t.pending {
		out = append(out, *state)
	}
	return out
}
