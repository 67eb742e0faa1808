package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/homesentry/homesentry/internal/config"
	"github.com/homesentry/homesentry/internal/models"
	"github.com/homesentry/homesentry/internal/notification"
	"github.com/homesentry/homesentry/internal/repository"
	"github.com/rs/zerolog"
)

// Engine is the single authority that turns an observation into zero or one
// outbound notification. Per observation it applies, in order: the grace
// tracker, the state-change gate, sleep suppression, maintenance suppression,
// then formatting and delivery, recording the outcome in the event log.
//
// Engine expects to be driven by a single caller at a time (the scheduler
// loop); the read-decide-write sequence per event key is not internally
// serialized across concurrent Process calls.
type Engine struct {
	cfg         config.AlertingConfig
	events      repository.EventRepository
	sleepQueue  repository.SleepEventRepository
	grace       *GraceTracker
	maintenance *MaintenancePolicy
	sleep       *SleepPolicy
	notifier    notification.Notifier
	logger      zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

func NewEngine(
	cfg config.AlertingConfig,
	events repository.EventRepository,
	sleepQueue repository.SleepEventRepository,
	grace *GraceTracker,
	maintenance *MaintenancePolicy,
	sleep *SleepPolicy,
	notifier notification.Notifier,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		cfg:         cfg,
		events:      events,
		sleepQueue:  sleepQueue,
		grace:       grace,
		maintenance: maintenance,
		sleep:       sleep,
		notifier:    notifier,
		logger:      logger.With().Str("component", "alert_engine").Logger(),
		now:         time.Now,
	}
}

// Grace exposes the tracker for the status API.
func (e *Engine) Grace() *GraceTracker {
	return e.grace
}

// Process evaluates one observation and returns whether a notification was
// delivered. All failures along the way are logged and reported as false;
// nothing propagates to the caller.
func (e *Engine) Process(ctx context.Context, obs models.Observation) bool {
	if !e.cfg.Enabled || e.notifier == nil {
		return false
	}

	eventKey := EventKey(obs.Category, obs.Name)
	now := e.now()

	latest, err := e.events.LatestByKey(ctx, eventKey)
	if err != nil {
		e.logger.Error().Err(err).Str("event_key", eventKey).Msg("failed to read latest event")
		return false
	}

	var prevStatus *models.Status
	var lastNotifiedAt *time.Time
	if latest != nil {
		prevStatus = &latest.NewStatus
		lastNotifiedAt = latest.NotifiedAt
	}

	// Grace pre-filter: an observation still inside its grace period never
	// reaches the state-change gate this cycle.
	if e.grace != nil {
		proceed, reason := e.grace.Evaluate(eventKey, obs.Status, prevStatus)
		if !proceed {
			e.logger.Debug().Str("event_key", eventKey).Str("reason", reason).Msg("held by grace period")
			return false
		}
	}

	cooldown := time.Duration(e.cfg.CooldownMinutes) * time.Minute
	if !shouldAlert(eventKey, prevStatus, obs.Status, lastNotifiedAt, cooldown, now, e.logger) {
		return false
	}

	transition := transitionMessage(obs.Name, prevStatus, obs.Status)

	// Sleep suppression records the state change and queues it for the
	// morning digest, but delivers nothing.
	if suppress, reason := e.sleep.ShouldSuppress(obs.Category, now); suppress {
		e.logger.Info().Str("event_key", eventKey).Str("reason", reason).Msg("alert suppressed by sleep schedule")

		e.recordEvent(ctx, repository.InsertEventParams{
			EventKey:        eventKey,
			PrevStatus:      prevStatus,
			NewStatus:       obs.Status,
			Message:         transition,
			SleepSuppressed: true,
		})
		if err := e.sleepQueue.Enqueue(ctx, repository.EnqueueSleepEventParams{
			EventKey:   eventKey,
			Category:   obs.Category,
			Name:       obs.Name,
			PrevStatus: prevStatus,
			NewStatus:  obs.Status,
			Message:    transition,
			Details:    obs.Details,
		}); err != nil {
			e.logger.Error().Err(err).Str("event_key", eventKey).Msg("failed to queue sleep event")
		}
		return false
	}

	// Maintenance suppression is silent: record the state change, send and
	// queue nothing.
	if suppress, reason := e.maintenance.ShouldSuppress(obs.Category, obs.Name, obs.Status, now); suppress {
		e.logger.Info().Str("event_key", eventKey).Str("reason", reason).Msg("alert suppressed by maintenance window")

		e.recordEvent(ctx, repository.InsertEventParams{
			EventKey:              eventKey,
			PrevStatus:            prevStatus,
			NewStatus:             obs.Status,
			Message:               transition,
			MaintenanceSuppressed: true,
		})
		return false
	}

	msg := notification.FormatAlert(obs.Category, obs.Name, prevStatus, obs.Status, obs.Details)

	if err := e.notifier.Send(ctx, msg); err != nil {
		// No event row on failure: the next qualifying observation retries
		// delivery instead of being blocked by a phantom cooldown.
		e.logger.Error().Err(err).Str("event_key", eventKey).Msg("failed to deliver alert")
		return false
	}

	e.recordEvent(ctx, repository.InsertEventParams{
		EventKey:   eventKey,
		PrevStatus: prevStatus,
		NewStatus:  obs.Status,
		Message:    msg.Title,
	})
	if err := e.events.MarkNotified(ctx, eventKey); err != nil {
		e.logger.Error().Err(err).Str("event_key", eventKey).Msg("failed to mark event notified")
	}

	e.logger.Info().
		Str("event_key", eventKey).
		Str("status", string(obs.Status)).
		Msg("alert sent")
	return true
}

func (e *Engine) recordEvent(ctx context.Context, params repository.InsertEventParams) {
	if _, err := e.events.Insert(ctx, params); err != nil {
		e.logger.Error().Err(err).Str("event_key", params.EventKey).Msg("failed to record event")
	}
}

func transitionMessage(name string, prev *models.Status, next models.Status) string {
	prevText := "Unknown"
	if prev != nil {
		prevText = string(*prev)
	}
	return fmt.Sprintf("%s: %s → %s", name, prevText, next)
}
