package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/homesentry/homesentry/internal/models"
	"github.com/homesentry/homesentry/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepo struct {
	rows     []models.Event
	listErr  error
	gotLimit int
}

func (r *fakeEventRepo) LatestByKey(context.Context, string) (*models.Event, error) {
	return nil, nil
}

func (r *fakeEventRepo) Insert(context.Context, repository.InsertEventParams) (models.Event, error) {
	return models.Event{}, nil
}

func (r *fakeEventRepo) MarkNotified(context.Context, string) error { return nil }

func (r *fakeEventRepo) ListRecent(_ context.Context, limit int) ([]models.Event, error) {
	r.gotLimit = limit
	return r.rows, r.listErr
}

func (r *fakeEventRepo) DeleteOlderThan(context.Context, int) (int64, error) { return 0, nil }

func TestEventListReturnsRows(t *testing.T) {
	repo := &fakeEventRepo{rows: []models.Event{{
		ID:        1,
		EventKey:  "service_plex",
		NewStatus: models.StatusFail,
		Message:   "plex: OK → FAIL",
		CreatedAt: time.Date(2025, 6, 16, 2, 0, 0, 0, time.UTC),
	}}}
	handler := NewEventHandler(repo, zerolog.Nop())

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit=5", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, 5, repo.gotLimit)

	var got []models.Event
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "service_plex", got[0].EventKey)
}

func TestEventListBadLimitFallsBack(t *testing.T) {
	repo := &fakeEventRepo{}
	handler := NewEventHandler(repo, zerolog.Nop())

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit=bogus", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, repo.gotLimit, "unparseable limit defers to the repository default")
}

func TestEventListRepositoryError(t *testing.T) {
	repo := &fakeEventRepo{listErr: errors.New("connection refused")}
	handler := NewEventHandler(repo, zerolog.Nop())

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
