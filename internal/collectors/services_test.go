package collectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/homesentry/homesentry/internal/config"
	"github.com/homesentry/homesentry/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceCollectorStatuses(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	clientError := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer clientError.Close()
	serverError := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer serverError.Close()

	c := NewServiceCollector([]config.ServiceCheck{
		{Name: "ok", URL: ok.URL},
		{Name: "denied", URL: clientError.URL},
		{Name: "broken", URL: serverError.URL},
	}, zerolog.Nop())

	observations, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, observations, 3)

	byName := make(map[string]models.Observation)
	for _, obs := range observations {
		byName[obs.Name] = obs
	}

	assert.Equal(t, models.StatusOK, byName["ok"].Status)
	assert.Equal(t, float64(http.StatusOK), byName["ok"].Details["http_code"])

	assert.Equal(t, models.StatusWarn, byName["denied"].Status)
	assert.Equal(t, "HTTP 403", byName["denied"].Details["error"])

	assert.Equal(t, models.StatusFail, byName["broken"].Status)
	assert.Equal(t, "HTTP 502", byName["broken"].Details["error"])
}

func TestServiceCollectorUnreachable(t *testing.T) {
	c := NewServiceCollector([]config.ServiceCheck{
		{Name: "gone", URL: "http://127.0.0.1:1/health", Timeout: time.Second},
	}, zerolog.Nop())

	observations, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, observations, 1)

	assert.Equal(t, models.StatusFail, observations[0].Status)
	assert.NotEmpty(t, observations[0].Details["error"])
	assert.Equal(t, "http://127.0.0.1:1/health", observations[0].Details["url"])
}

func TestServiceCollectorSlowResponseWarns(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()

	c := NewServiceCollector([]config.ServiceCheck{
		{Name: "slow", URL: slow.URL, WarnAfterMS: 5},
	}, zerolog.Nop())

	observations, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.Equal(t, models.StatusWarn, observations[0].Status)
}
