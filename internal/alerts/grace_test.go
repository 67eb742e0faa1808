package alerts

import (
	"testing"

	"github.com/homesentry/homesentry/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraceTrackerHoldsUntilThreshold(t *testing.T) {
	tracker := NewGraceTracker(3, zerolog.Nop())
	prev := statusPtr(models.StatusOK)

	proceed, _ := tracker.Evaluate("service_plex", models.StatusFail, prev)
	assert.False(t, proceed, "first bad check starts the grace period")

	proceed, _ = tracker.Evaluate("service_plex", models.StatusFail, prev)
	assert.False(t, proceed, "second bad check still inside grace period")

	proceed, _ = tracker.Evaluate("service_plex", models.StatusFail, prev)
	assert.True(t, proceed, "third consecutive bad check passes the threshold")

	assert.Empty(t, tracker.Pending(), "state is discarded once the threshold is reached")
}

func TestGraceTrackerFlapIsAbsorbed(t *testing.T) {
	tracker := NewGraceTracker(3, zerolog.Nop())
	prev := statusPtr(models.StatusOK)

	proceed, _ := tracker.Evaluate("service_plex", models.StatusFail, prev)
	assert.False(t, proceed)
	proceed, _ = tracker.Evaluate("service_plex", models.StatusFail, prev)
	assert.False(t, proceed)

	// Recovery mid-grace proceeds (the state-change gate will then see
	// OK==OK and drop it) and clears the pending state.
	proceed, _ = tracker.Evaluate("service_plex", models.StatusOK, prev)
	assert.True(t, proceed)
	assert.Empty(t, tracker.Pending())

	// A later relapse starts counting from one again.
	proceed, _ = tracker.Evaluate("service_plex", models.StatusFail, prev)
	assert.False(t, proceed)
	require.Len(t, tracker.Pending(), 1)
	assert.Equal(t, 1, tracker.Pending()[0].ConsecutiveChecks)
}

func TestGraceTrackerFirstEverObservation(t *testing.T) {
	tracker := NewGraceTracker(3, zerolog.Nop())

	// Never-seen target going straight to bad is still graced.
	proceed, _ := tracker.Evaluate("disk_/mnt/array", models.StatusWarn, nil)
	assert.False(t, proceed)
}

func TestGraceTrackerEscalationUpdatesBadStatus(t *testing.T) {
	tracker := NewGraceTracker(3, zerolog.Nop())
	prev := statusPtr(models.StatusOK)

	tracker.Evaluate("system_cpu", models.StatusWarn, prev)
	tracker.Evaluate("system_cpu", models.StatusFail, prev)

	pending := tracker.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, models.StatusFail, pending[0].BadStatus)
	assert.Equal(t, 2, pending[0].ConsecutiveChecks)
}

func TestGraceTrackerUntrackedBadToBadProceeds(t *testing.T) {
	tracker := NewGraceTracker(3, zerolog.Nop())

	// Simulates a restart: the stored previous status is bad but no pending
	// state exists. The transition must not be dropped silently.
	proceed, _ := tracker.Evaluate("service_plex", models.StatusFail, statusPtr(models.StatusWarn))
	assert.True(t, proceed)
}

func TestGraceTrackerThresholdOfOne(t *testing.T) {
	tracker := NewGraceTracker(1, zerolog.Nop())

	proceed, _ := tracker.Evaluate("service_plex", models.StatusFail, statusPtr(models.StatusOK))
	assert.True(t, proceed, "threshold 1 means no grace period at all")
	assert.Empty(t, tracker.Pending())
}
