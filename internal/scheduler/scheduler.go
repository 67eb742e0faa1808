package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homesentry/homesentry/internal/alerts"
	"github.com/homesentry/homesentry/internal/collectors"
	"github.com/homesentry/homesentry/internal/config"
	"github.com/homesentry/homesentry/internal/models"
	"github.com/homesentry/homesentry/internal/notification"
	"github.com/homesentry/homesentry/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// cleanupAfter is the time of day from which the once-per-day retention
// cleanup may fire.
const cleanupAfter = 3 * time.Hour

// Scheduler drives all collection and maintenance work. One loop runs the
// base collectors every tick, the drive and array collectors every Nth tick,
// and checks the morning-digest and retention-cleanup clocks every tick.
// Every unit of work is individually recovered: one failing collector or one
// failing alert evaluation never stops its siblings or the loop.
type Scheduler struct {
	cfg        config.SchedulerConfig
	engine     *alerts.Engine
	sleep      *alerts.SleepPolicy
	notifier   notification.Notifier
	sleepQueue repository.SleepEventRepository
	events     repository.EventRepository
	logger     zerolog.Logger

	base  []collectors.Collector
	smart []collectors.Collector
	raid  []collectors.Collector

	// now is swappable for tests.
	now func() time.Time

	lastSummarySent time.Time
	lastCleanupDay  string
}

func New(
	cfg config.SchedulerConfig,
	engine *alerts.Engine,
	sleep *alerts.SleepPolicy,
	notifier notification.Notifier,
	sleepQueue repository.SleepEventRepository,
	events repository.EventRepository,
	logger zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		engine:     engine,
		sleep:      sleep,
		notifier:   notifier,
		sleepQueue: sleepQueue,
		events:     events,
		logger:     logger.With().Str("component", "scheduler").Logger(),
		now:        time.Now,
	}
}

// RegisterBase adds collectors that run every tick.
func (s *Scheduler) RegisterBase(cs ...collectors.Collector) {
	s.base = append(s.base, cs...)
}

// RegisterSmart adds collectors that run on the drive-health cadence.
func (s *Scheduler) RegisterSmart(cs ...collectors.Collector) {
	s.smart = append(s.smart, cs...)
}

// RegisterRaid adds collectors that run on the array-health cadence.
func (s *Scheduler) RegisterRaid(cs ...collectors.Collector) {
	s.raid = append(s.raid, cs...)
}

// Run executes the scheduler loop until ctx is cancelled. The first full
// pass, including the slow-cadence collectors, happens immediately so the
// system is never silent right after boot.
func (s *Scheduler) Run(ctx context.Context) {
	smartEvery := cadence(s.cfg.SmartPollInterval, s.cfg.PollInterval)
	raidEvery := cadence(s.cfg.RaidPollInterval, s.cfg.PollInterval)

	s.logger.Info().
		Dur("poll_interval", s.cfg.PollInterval).
		Int("smart_every_n_cycles", smartEvery).
		Int("raid_every_n_cycles", raidEvery).
		Msg("scheduler started, autonomous monitoring active")

	// Initial collection, no waiting for the first tick.
	start := s.now()
	s.runCycle(ctx, "initial", true, true)
	s.logger.Info().Dur("elapsed", s.now().Sub(start)).Msg("initial collection completed")

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	cycle := 0
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Int("cycles", cycle).Msg("scheduler cancelled, stopping gracefully")
			return
		case <-ticker.C:
		}

		cycle++
		start := s.now()
		s.runCycle(ctx, uuid.NewString()[:8], cycle%smartEvery == 0, cycle%raidEvery == 0)

		elapsed := s.now().Sub(start)
		s.logger.Debug().Int("cycle", cycle).Dur("elapsed", elapsed).Msg("collection cycle completed")

		if elapsed > s.cfg.PollInterval*8/10 {
			s.logger.Warn().
				Dur("elapsed", elapsed).
				Dur("poll_interval", s.cfg.PollInterval).
				Msg("collection consumed most of the poll interval, consider increasing it")
		}
	}
}

// runCycle executes one tick: base collectors, optionally the slow groups,
// then the periodic maintenance tasks.
func (s *Scheduler) runCycle(ctx context.Context, cycleID string, withSmart, withRaid bool) {
	logger := s.logger.With().Str("cycle", cycleID).Logger()

	for _, c := range s.base {
		s.collectAndAlert(ctx, logger, c)
	}
	if withSmart {
		for _, c := range s.smart {
			s.collectAndAlert(ctx, logger, c)
		}
	}
	if withRaid {
		for _, c := range s.raid {
			s.collectAndAlert(ctx, logger, c)
		}
	}

	s.protect(logger, "morning_summary", func() { s.checkMorningSummary(ctx) })
	s.protect(logger, "retention_cleanup", func() { s.checkRetentionCleanup(ctx) })
}

// collectAndAlert runs one collector and feeds its observations to the
// engine sequentially, preserving the single-writer invariant.
func (s *Scheduler) collectAndAlert(ctx context.Context, logger zerolog.Logger, c collectors.Collector) {
	s.protect(logger, c.Name(), func() {
		observations, err := c.Collect(ctx)
		if err != nil {
			logger.Error().Err(err).Str("collector", c.Name()).Msg("collection failed")
			return
		}

		for _, obs := range observations {
			s.processObservation(ctx, logger, obs)
		}
		logger.Debug().
			Str("collector", c.Name()).
			Int("observations", len(observations)).
			Msg("collection completed")
	})
}

func (s *Scheduler) processObservation(ctx context.Context, logger zerolog.Logger, obs models.Observation) {
	s.protect(logger, "alert_"+obs.Category+"_"+obs.Name, func() {
		s.engine.Process(ctx, obs)
	})
}

// protect runs one unit of work and converts a panic into a log entry so the
// rest of the tick keeps going.
func (s *Scheduler) protect(logger zerolog.Logger, unit string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("panic: %v", r)
			logger.Error().Stack().Err(err).Str("unit", unit).Msg("recovered from panic in scheduler unit")
		}
	}()
	fn()
}

// checkMorningSummary sends the overnight digest when the configured
// time-of-day is reached. A last-sent guard prevents duplicates when the tick
// granularity hits the target minute more than once.
func (s *Scheduler) checkMorningSummary(ctx context.Context) {
	if s.notifier == nil || s.sleep == nil || !s.sleep.SummaryEnabled() {
		return
	}

	summaryTime, err := s.sleep.SummaryTime()
	if err != nil {
		s.logger.Warn().Err(err).Msg("invalid summary time configured")
		return
	}

	now := s.now()
	current := now.Hour()*60 + now.Minute()
	diff := current - int(summaryTime)
	if diff < -1 || diff > 1 {
		return
	}

	if !s.lastSummarySent.IsZero() && now.Sub(s.lastSummarySent) < 5*time.Minute {
		return
	}

	s.logger.Info().Msg("morning summary time reached, generating report")

	// The queue is cleared by the drain whether or not delivery succeeds.
	events, err := s.sleepQueue.Drain(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to drain sleep events")
		return
	}

	msg := s.sleep.BuildDigest(events)
	if err := s.notifier.Send(ctx, msg); err != nil {
		notification.LogSendError(s.logger, err, msg.Title)
		return
	}

	s.lastSummarySent = now
	s.logger.Info().Int("events", len(events)).Msg("morning summary sent")
}

// checkRetentionCleanup deletes event rows older than the retention window,
// once per calendar day at or after 03:00.
func (s *Scheduler) checkRetentionCleanup(ctx context.Context) {
	now := s.now()
	today := now.Format("2006-01-02")
	if s.lastCleanupDay == today {
		return
	}
	sinceMidnight := time.Duration(now.Hour())*time.Hour + time.Duration(now.Minute())*time.Minute
	if sinceMidnight < cleanupAfter {
		return
	}
	s.lastCleanupDay = today

	if s.cfg.RetentionDays <= 0 {
		s.logger.Warn().
			Int("retention_days", s.cfg.RetentionDays).
			Msg("retention cleanup is disabled, event log will grow indefinitely")
		return
	}

	deleted, err := s.events.DeleteOlderThan(ctx, s.cfg.RetentionDays)
	if err != nil {
		s.logger.Error().Err(err).Msg("retention cleanup failed")
		return
	}
	s.logger.Info().
		Int64("deleted", deleted).
		Int("retention_days", s.cfg.RetentionDays).
		Msg("retention cleanup complete")
}

// cadence derives how many base ticks make up one slow-collector interval.
func cadence(slow, base time.Duration) int {
	if base <= 0 {
		return 1
	}
	n := int(slow / base)
	if n < 1 {
		n = 1
	}
	return n
}
