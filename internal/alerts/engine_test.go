package alerts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/homesentry/homesentry/internal/config"
	"github.com/homesentry/homesentry/internal/models"
	"github.com/homesentry/homesentry/internal/notification"
	"github.com/homesentry/homesentry/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventRepo is an in-memory append-only stand-in for the Postgres
// repository.
type fakeEventRepo struct {
	rows []models.Event
}

func (r *fakeEventRepo) LatestByKey(_ context.Context, eventKey string) (*models.Event, error) {
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].EventKey == eventKey {
			row := r.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

func (r *fakeEventRepo) Insert(_ context.Context, params repository.InsertEventParams) (models.Event, error) {
	row := models.Event{
		ID:                    int64(len(r.rows) + 1),
		EventKey:              params.EventKey,
		PrevStatus:            params.PrevStatus,
		NewStatus:             params.NewStatus,
		Message:               params.Message,
		MaintenanceSuppressed: params.MaintenanceSuppressed,
		SleepSuppressed:       params.SleepSuppressed,
		CreatedAt:             time.Now(),
	}
	r.rows = append(r.rows, row)
	return row, nil
}

func (r *fakeEventRepo) MarkNotified(_ context.Context, eventKey string) error {
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].EventKey == eventKey {
			now := time.Now()
			r.rows[i].Notified = true
			r.rows[i].NotifiedAt = &now
			return nil
		}
	}
	return errors.New("no row for key")
}

func (r *fakeEventRepo) ListRecent(_ context.Context, limit int) ([]models.Event, error) {
	return r.rows, nil
}

func (r *fakeEventRepo) DeleteOlderThan(_ context.Context, days int) (int64, error) {
	return 0, nil
}

type fakeSleepQueue struct {
	queued []repository.EnqueueSleepEventParams
}

func (q *fakeSleepQueue) Enqueue(_ context.Context, params repository.EnqueueSleepEventParams) error {
	q.queued = append(q.queued, params)
	return nil
}

func (q *fakeSleepQueue) Drain(_ context.Context) ([]models.SleepEvent, error) {
	q.queued = nil
	return nil, nil
}

type fakeNotifier struct {
	sent    []notification.Message
	sendErr error
}

func (n *fakeNotifier) Send(_ context.Context, msg notification.Message) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, msg)
	return nil
}

type engineFixture struct {
	engine   *Engine
	repo     *fakeEventRepo
	queue    *fakeSleepQueue
	notifier *fakeNotifier
}

func newEngineFixture(t *testing.T, alerting config.AlertingConfig, maintenance config.MaintenanceConfig, sleep config.SleepConfig) *engineFixture {
	t.Helper()
	logger := zerolog.Nop()

	repo := &fakeEventRepo{}
	queue := &fakeSleepQueue{}
	notifier := &fakeNotifier{}

	engine := NewEngine(
		alerting,
		repo,
		queue,
		NewGraceTracker(alerting.GraceChecks, logger),
		NewMaintenancePolicy(maintenance, logger),
		NewSleepPolicy(sleep, logger),
		notifier,
		logger,
	)
	return &engineFixture{engine: engine, repo: repo, queue: queue, notifier: notifier}
}

func defaultAlerting() config.AlertingConfig {
	return config.AlertingConfig{Enabled: true, CooldownMinutes: 30, GraceChecks: 1}
}

func obs(category, name string, status models.Status) models.Observation {
	return models.Observation{Category: category, Name: name, Status: status}
}

func TestEngineFirstDetectionAlerts(t *testing.T) {
	f := newEngineFixture(t, defaultAlerting(), config.MaintenanceConfig{}, config.SleepConfig{})

	sent := f.engine.Process(context.Background(), obs(models.CategoryService, "plex", models.StatusFail))

	assert.True(t, sent)
	require.Len(t, f.repo.rows, 1)
	assert.Equal(t, "service_plex", f.repo.rows[0].EventKey)
	assert.True(t, f.repo.rows[0].Notified)
	require.Len(t, f.notifier.sent, 1)
}

func TestEngineNoChangeWritesNothing(t *testing.T) {
	f := newEngineFixture(t, defaultAlerting(), config.MaintenanceConfig{}, config.SleepConfig{})
	ctx := context.Background()

	f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusOK))
	sent := f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusOK))

	assert.False(t, sent)
	assert.Len(t, f.repo.rows, 1, "a steady state appends no rows")
	assert.Len(t, f.notifier.sent, 1)
}

func TestEngineGraceHoldsEarlyFailures(t *testing.T) {
	alerting := defaultAlerting()
	alerting.GraceChecks = 3
	f := newEngineFixture(t, alerting, config.MaintenanceConfig{}, config.SleepConfig{})
	ctx := context.Background()

	f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusOK))

	assert.False(t, f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusFail)))
	assert.False(t, f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusFail)))
	assert.Len(t, f.repo.rows, 1, "held observations write no rows")

	assert.True(t, f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusFail)))
	assert.Len(t, f.repo.rows, 2)
}

func TestEngineDeliveryFailureWritesNoRow(t *testing.T) {
	f := newEngineFixture(t, defaultAlerting(), config.MaintenanceConfig{}, config.SleepConfig{})
	ctx := context.Background()

	f.notifier.sendErr = errors.New("webhook returned 500")
	sent := f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusFail))

	assert.False(t, sent)
	assert.Empty(t, f.repo.rows, "failed delivery must leave no record so the next cycle retries")

	// Next cycle the webhook is back; the same transition goes through.
	f.notifier.sendErr = nil
	sent = f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusFail))
	assert.True(t, sent)
	assert.Len(t, f.repo.rows, 1)
}

func TestEngineSleepSuppressionQueuesForDigest(t *testing.T) {
	sleep := config.SleepConfig{Enabled: true, Start: "00:00", End: "23:59"}
	f := newEngineFixture(t, defaultAlerting(), config.MaintenanceConfig{}, sleep)

	sent := f.engine.Process(context.Background(), obs(models.CategoryService, "plex", models.StatusFail))

	assert.False(t, sent)
	assert.Empty(t, f.notifier.sent)
	require.Len(t, f.repo.rows, 1, "the state change is still recorded")
	assert.True(t, f.repo.rows[0].SleepSuppressed)
	assert.False(t, f.repo.rows[0].Notified)
	require.Len(t, f.queue.queued, 1)
	assert.Equal(t, "service_plex", f.queue.queued[0].EventKey)
}

func TestEngineMaintenanceSuppressionRecordsSilently(t *testing.T) {
	maintenance := config.MaintenanceConfig{GlobalWindow: "00:00-23:59"}
	f := newEngineFixture(t, defaultAlerting(), maintenance, config.SleepConfig{})

	sent := f.engine.Process(context.Background(), obs(models.CategoryService, "plex", models.StatusFail))

	assert.False(t, sent)
	assert.Empty(t, f.notifier.sent)
	require.Len(t, f.repo.rows, 1)
	assert.True(t, f.repo.rows[0].MaintenanceSuppressed)
	assert.Empty(t, f.queue.queued, "maintenance suppression does not feed the digest")
}

func TestEngineSleepStillDeliversCriticalWhenAllowed(t *testing.T) {
	sleep := config.SleepConfig{Enabled: true, Start: "00:00", End: "23:59", AllowCritical: true}
	f := newEngineFixture(t, defaultAlerting(), config.MaintenanceConfig{}, sleep)

	sent := f.engine.Process(context.Background(), obs(models.CategoryRaid, "md0", models.StatusFail))

	assert.True(t, sent)
	require.Len(t, f.notifier.sent, 1)
	assert.Empty(t, f.queue.queued)
}

func TestEngineDisabledDoesNothing(t *testing.T) {
	alerting := defaultAlerting()
	alerting.Enabled = false
	f := newEngineFixture(t, alerting, config.MaintenanceConfig{}, config.SleepConfig{})

	sent := f.engine.Process(context.Background(), obs(models.CategoryService, "plex", models.StatusFail))

	assert.False(t, sent)
	assert.Empty(t, f.repo.rows)
	assert.Empty(t, f.notifier.sent)
}

func TestEngineRecoveryAlwaysAlerts(t *testing.T) {
	f := newEngineFixture(t, defaultAlerting(), config.MaintenanceConfig{}, config.SleepConfig{})
	ctx := context.Background()

	f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusFail))
	sent := f.engine.Process(ctx, obs(models.CategoryService, "plex", models.StatusOK))

	assert.True(t, sent)
	require.Len(t, f.repo.rows, 2)
	assert.Equal(t, models.StatusOK, f.repo.rows[1].NewStatus)
	require.NotNil(t, f.repo.rows[1].PrevStatus)
	assert.Equal(t, models.StatusFail, *f.repo.rows[1].PrevStatus)
}
