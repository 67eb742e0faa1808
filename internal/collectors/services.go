package collectors

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/homesentry/homesentry/internal/config"
	"github.com/homesentry/homesentry/internal/models"
	"github.com/rs/zerolog"
)

const defaultProbeTimeout = 10 * time.Second

// ServiceCollector runs HTTP health checks against the configured services.
// Individual services are probed concurrently; results are gathered before
// returning so the caller can feed them to the engine sequentially.
type ServiceCollector struct {
	services []config.ServiceCheck
	client   *http.Client
	logger   zerolog.Logger
}

func NewServiceCollector(services []config.ServiceCheck, logger zerolog.Logger) *ServiceCollector {
	return &ServiceCollector{
		services: services,
		client:   &http.Client{Timeout: defaultProbeTimeout},
		logger:   logger.With().Str("collector", "services").Logger(),
	}
}

func (c *ServiceCollector) Name() string {
	return "services"
}

func (c *ServiceCollector) Collect(ctx context.Context) ([]models.Observation, error) {
	observations := make([]models.Observation, len(c.services))

	var wg sync.WaitGroup
	for i, svc := range c.services {
		wg.Add(1)
		go func(i int, svc config.ServiceCheck) {
			defer wg.Done()
			observations[i] = c.probe(ctx, svc)
		}(i, svc)
	}
	wg.Wait()

	return observations, nil
}

func (c *ServiceCollector) probe(ctx context.Context, svc config.ServiceCheck) models.Observation {
	details := map[string]any{"url": svc.URL}

	timeout := svc.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, svc.URL, nil)
	if err != nil {
		details["error"] = err.Error()
		return models.Observation{Category: models.CategoryService, Name: svc.Name, Status: models.StatusFail, Details: details}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	responseMS := float64(time.Since(start)) / float64(time.Millisecond)
	details["response_ms"] = responseMS

	if err != nil {
		details["error"] = err.Error()
		return models.Observation{Category: models.CategoryService, Name: svc.Name, Status: models.StatusFail, Details: details}
	}
	defer resp.Body.Close()

	details["http_code"] = float64(resp.StatusCode)

	status := models.StatusOK
	switch {
	case resp.StatusCode >= 500:
		status = models.StatusFail
		details["error"] = fmt.Sprintf("HTTP %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		status = models.StatusWarn
		details["error"] = fmt.Sprintf("HTTP %d", resp.StatusCode)
	case svc.WarnAfterMS > 0 && responseMS > svc.WarnAfterMS:
		status = models.StatusWarn
	}

	return models.Observation{Category: models.CategoryService, Name: svc.Name, Status: status, Details: details}
}
